package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/lalith-99/coursechat/internal/models"
)

// Every method takes ctx first: each one is a round trip to Postgres and
// must stop when the request that caused it goes away.
//
// Lookups return nil, nil when nothing matches. "Not there" is a normal
// answer at this layer; the service decides whether it is an error.

// ErrDuplicate is returned when an insert hits a unique constraint that the
// caller is expected to handle (one chat per course and author).
var ErrDuplicate = errors.New("duplicate record")

// ChatRepository stores chats.
type ChatRepository interface {
	// CreateWithMembers inserts the chat and a membership for every id in
	// memberIDs inside one transaction. Returns ErrDuplicate when the
	// (courseID, authorID) pair already has a chat; nothing is written then.
	CreateWithMembers(ctx context.Context, courseID, authorID uuid.UUID, name string, memberIDs []uuid.UUID) (*models.Chat, error)

	GetByID(ctx context.Context, chatID uuid.UUID) (*models.Chat, error)

	GetByCourseAndAuthor(ctx context.Context, courseID, authorID uuid.UUID) (*models.Chat, error)

	// Delete removes the chat; memberships and messages go with it.
	// Reports whether a row was deleted.
	Delete(ctx context.Context, chatID uuid.UUID) (bool, error)
}

// MembershipRepository handles who belongs to which chat.
type MembershipRepository interface {
	// AddMember is idempotent: a second call returns the existing row.
	AddMember(ctx context.Context, chatID, userID uuid.UUID) (*models.Membership, error)

	// RemoveMember returns the deleted row, or nil, nil if there was none.
	RemoveMember(ctx context.Context, chatID, userID uuid.UUID) (*models.Membership, error)

	// IsMember is the authorization gate for every history read, send and
	// realtime subscription.
	IsMember(ctx context.Context, chatID, userID uuid.UUID) (bool, error)

	ListMembers(ctx context.Context, chatID uuid.UUID) ([]models.Membership, error)

	// ListChatsOfUser returns each chat the user belongs to once.
	ListChatsOfUser(ctx context.Context, userID uuid.UUID) ([]models.Chat, error)
}

// MessageRepository handles chat message persistence. It does not check
// membership; callers authorize before calling.
type MessageRepository interface {
	Create(ctx context.Context, chatID, authorID uuid.UUID, content string) (*models.Message, error)

	// History returns up to limit of the most recent non-deleted messages,
	// oldest first.
	History(ctx context.Context, chatID uuid.UUID, limit int) ([]models.Message, error)

	// GetByID ignores soft-deleted messages.
	GetByID(ctx context.Context, messageID int64) (*models.Message, error)

	// Update and SoftDelete return nil, nil when the message is missing or
	// already deleted.
	Update(ctx context.Context, messageID int64, content string) (*models.Message, error)
	SoftDelete(ctx context.Context, messageID int64) (*models.Message, error)
}

// UserRepository handles user data.
type UserRepository interface {
	Create(ctx context.Context, email, displayName, passwordHash string) (*models.User, error)
	GetByID(ctx context.Context, userID uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// GetByIDs returns the users that exist, keyed by id. Missing ids are
	// simply absent from the map.
	GetByIDs(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]models.User, error)
}

// CourseRepository is the read side of the course catalog that chat needs.
type CourseRepository interface {
	ListCreators(ctx context.Context, courseID uuid.UUID) ([]uuid.UUID, error)
}
