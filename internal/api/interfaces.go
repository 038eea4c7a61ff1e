package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/lalith-99/coursechat/internal/models"
	"github.com/lalith-99/coursechat/internal/realtime"
)

// Handlers depend on these rather than on the concrete services so tests
// can swap them for mocks.

type ChatDirectory interface {
	GetOrCreateCourseChat(ctx context.Context, courseID, authorID uuid.UUID, name string) (*models.Chat, error)
	CreateCourseChat(ctx context.Context, courseID, authorID uuid.UUID, name string) (*models.Chat, error)
	ChatForMember(ctx context.Context, chatID, userID uuid.UUID) (*models.Chat, error)
	DeleteChat(ctx context.Context, chatID, userID uuid.UUID) error
}

type MembershipService interface {
	Join(ctx context.Context, chatID, userID uuid.UUID) (*models.Membership, error)
	Leave(ctx context.Context, chatID, userID uuid.UUID) (*models.Membership, error)
	ChatsOf(ctx context.Context, userID uuid.UUID) ([]models.Chat, error)
	Members(ctx context.Context, chatID, userID uuid.UUID) ([]models.Membership, error)
}

type MessageService interface {
	Send(ctx context.Context, chatID, authorID uuid.UUID, content string) (*models.MessageView, error)
	History(ctx context.Context, chatID, userID uuid.UUID, count int) ([]*models.MessageView, error)
	Edit(ctx context.Context, chatID, userID uuid.UUID, messageID int64, content string) (*models.MessageView, error)
	Delete(ctx context.Context, chatID, userID uuid.UUID, messageID int64) (*models.Message, error)
}

// Realtime is how REST mutations reach live connections.
type Realtime interface {
	Emit(ctx context.Context, chatID uuid.UUID, eventType realtime.EventType, data any) error
	AttachMember(ctx context.Context, chatID, userID uuid.UUID)
	DetachMember(ctx context.Context, chatID, userID uuid.UUID)
	AttachChat(ctx context.Context, chatID uuid.UUID) error
	DetachChat(ctx context.Context, chatID uuid.UUID)
	Serve(w http.ResponseWriter, r *http.Request, userID uuid.UUID)
}

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}
