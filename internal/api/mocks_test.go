package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/lalith-99/coursechat/internal/models"
	"github.com/lalith-99/coursechat/internal/realtime"
	"github.com/stretchr/testify/mock"
)

type MockChatDirectory struct {
	mock.Mock
}

func (m *MockChatDirectory) GetOrCreateCourseChat(ctx context.Context, courseID, authorID uuid.UUID, name string) (*models.Chat, error) {
	args := m.Called(ctx, courseID, authorID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Chat), args.Error(1)
}

func (m *MockChatDirectory) CreateCourseChat(ctx context.Context, courseID, authorID uuid.UUID, name string) (*models.Chat, error) {
	args := m.Called(ctx, courseID, authorID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Chat), args.Error(1)
}

func (m *MockChatDirectory) ChatForMember(ctx context.Context, chatID, userID uuid.UUID) (*models.Chat, error) {
	args := m.Called(ctx, chatID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Chat), args.Error(1)
}

func (m *MockChatDirectory) DeleteChat(ctx context.Context, chatID, userID uuid.UUID) error {
	args := m.Called(ctx, chatID, userID)
	return args.Error(0)
}

type MockMembershipService struct {
	mock.Mock
}

func (m *MockMembershipService) Join(ctx context.Context, chatID, userID uuid.UUID) (*models.Membership, error) {
	args := m.Called(ctx, chatID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Membership), args.Error(1)
}

func (m *MockMembershipService) Leave(ctx context.Context, chatID, userID uuid.UUID) (*models.Membership, error) {
	args := m.Called(ctx, chatID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Membership), args.Error(1)
}

func (m *MockMembershipService) ChatsOf(ctx context.Context, userID uuid.UUID) ([]models.Chat, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Chat), args.Error(1)
}

func (m *MockMembershipService) Members(ctx context.Context, chatID, userID uuid.UUID) ([]models.Membership, error) {
	args := m.Called(ctx, chatID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Membership), args.Error(1)
}

type MockMessageService struct {
	mock.Mock
}

func (m *MockMessageService) Send(ctx context.Context, chatID, authorID uuid.UUID, content string) (*models.MessageView, error) {
	args := m.Called(ctx, chatID, authorID, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MessageView), args.Error(1)
}

func (m *MockMessageService) History(ctx context.Context, chatID, userID uuid.UUID, count int) ([]*models.MessageView, error) {
	args := m.Called(ctx, chatID, userID, count)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.MessageView), args.Error(1)
}

func (m *MockMessageService) Edit(ctx context.Context, chatID, userID uuid.UUID, messageID int64, content string) (*models.MessageView, error) {
	args := m.Called(ctx, chatID, userID, messageID, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MessageView), args.Error(1)
}

func (m *MockMessageService) Delete(ctx context.Context, chatID, userID uuid.UUID, messageID int64) (*models.Message, error) {
	args := m.Called(ctx, chatID, userID, messageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

type MockRealtime struct {
	mock.Mock
}

func (m *MockRealtime) Emit(ctx context.Context, chatID uuid.UUID, eventType realtime.EventType, data any) error {
	args := m.Called(ctx, chatID, eventType, data)
	return args.Error(0)
}

func (m *MockRealtime) AttachMember(ctx context.Context, chatID, userID uuid.UUID) {
	m.Called(ctx, chatID, userID)
}

func (m *MockRealtime) DetachMember(ctx context.Context, chatID, userID uuid.UUID) {
	m.Called(ctx, chatID, userID)
}

func (m *MockRealtime) AttachChat(ctx context.Context, chatID uuid.UUID) error {
	args := m.Called(ctx, chatID)
	return args.Error(0)
}

func (m *MockRealtime) DetachChat(ctx context.Context, chatID uuid.UUID) {
	m.Called(ctx, chatID)
}

func (m *MockRealtime) Serve(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	m.Called(w, r, userID)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, email, displayName, passwordHash string) (*models.User, error) {
	args := m.Called(ctx, email, displayName, passwordHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByIDs(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]models.User, error) {
	args := m.Called(ctx, userIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]models.User), args.Error(1)
}

type stubHealth struct{ err error }

func (s stubHealth) Health(context.Context) error { return s.err }
