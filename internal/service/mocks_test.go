package service

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/coursechat/internal/models"
	"github.com/lalith-99/coursechat/internal/repository"
	"github.com/stretchr/testify/mock"
)

type MockChatRepository struct {
	mock.Mock
}

func (m *MockChatRepository) CreateWithMembers(ctx context.Context, courseID, authorID uuid.UUID, name string, memberIDs []uuid.UUID) (*models.Chat, error) {
	args := m.Called(ctx, courseID, authorID, name, memberIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Chat), args.Error(1)
}

func (m *MockChatRepository) GetByID(ctx context.Context, chatID uuid.UUID) (*models.Chat, error) {
	args := m.Called(ctx, chatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Chat), args.Error(1)
}

func (m *MockChatRepository) GetByCourseAndAuthor(ctx context.Context, courseID, authorID uuid.UUID) (*models.Chat, error) {
	args := m.Called(ctx, courseID, authorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Chat), args.Error(1)
}

func (m *MockChatRepository) Delete(ctx context.Context, chatID uuid.UUID) (bool, error) {
	args := m.Called(ctx, chatID)
	return args.Bool(0), args.Error(1)
}

type MockMembershipRepository struct {
	mock.Mock
}

func (m *MockMembershipRepository) AddMember(ctx context.Context, chatID, userID uuid.UUID) (*models.Membership, error) {
	args := m.Called(ctx, chatID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Membership), args.Error(1)
}

func (m *MockMembershipRepository) RemoveMember(ctx context.Context, chatID, userID uuid.UUID) (*models.Membership, error) {
	args := m.Called(ctx, chatID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Membership), args.Error(1)
}

func (m *MockMembershipRepository) IsMember(ctx context.Context, chatID, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, chatID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockMembershipRepository) ListMembers(ctx context.Context, chatID uuid.UUID) ([]models.Membership, error) {
	args := m.Called(ctx, chatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Membership), args.Error(1)
}

func (m *MockMembershipRepository) ListChatsOfUser(ctx context.Context, userID uuid.UUID) ([]models.Chat, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Chat), args.Error(1)
}

type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) Create(ctx context.Context, chatID, authorID uuid.UUID, content string) (*models.Message, error) {
	args := m.Called(ctx, chatID, authorID, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *MockMessageRepository) History(ctx context.Context, chatID uuid.UUID, limit int) ([]models.Message, error) {
	args := m.Called(ctx, chatID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *MockMessageRepository) GetByID(ctx context.Context, messageID int64) (*models.Message, error) {
	args := m.Called(ctx, messageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *MockMessageRepository) Update(ctx context.Context, messageID int64, content string) (*models.Message, error) {
	args := m.Called(ctx, messageID, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *MockMessageRepository) SoftDelete(ctx context.Context, messageID int64) (*models.Message, error) {
	args := m.Called(ctx, messageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
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

type MockCourseRepository struct {
	mock.Mock
}

func (m *MockCourseRepository) ListCreators(ctx context.Context, courseID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, courseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

// memStore is an in-memory stand-in for the Postgres stores with the same
// uniqueness rules. Scenario tests use it where mocks would have to encode
// state by hand.
type memStore struct {
	mu       sync.Mutex
	chats    map[uuid.UUID]models.Chat
	members  []models.Membership
	messages []models.Message
	creators map[uuid.UUID][]uuid.UUID
	users    map[uuid.UUID]models.User
	nextID   int64
	now      time.Time
}

func newMemStore() *memStore {
	return &memStore{
		chats:    make(map[uuid.UUID]models.Chat),
		creators: make(map[uuid.UUID][]uuid.UUID),
		users:    make(map[uuid.UUID]models.User),
		now:      time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (s *memStore) addUser(name string) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New()
	s.users[id] = models.User{ID: id, DisplayName: name, Email: name + "@example.com"}
	return id
}

func (s *memStore) tick() time.Time {
	s.now = s.now.Add(time.Second)
	return s.now
}

func (s *memStore) CreateWithMembers(_ context.Context, courseID, authorID uuid.UUID, name string, memberIDs []uuid.UUID) (*models.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.chats {
		if c.CourseID == courseID && c.AuthorID == authorID {
			return nil, repository.ErrDuplicate
		}
	}
	chat := models.Chat{ID: uuid.New(), CourseID: courseID, AuthorID: authorID, Name: name, CreatedAt: s.tick()}
	s.chats[chat.ID] = chat
	for _, uid := range memberIDs {
		s.addMemberLocked(chat.ID, uid)
	}
	return &chat, nil
}

func (s *memStore) GetByID(_ context.Context, chatID uuid.UUID) (*models.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[chatID]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (s *memStore) GetByCourseAndAuthor(_ context.Context, courseID, authorID uuid.UUID) (*models.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.chats {
		if c.CourseID == courseID && c.AuthorID == authorID {
			return &c, nil
		}
	}
	return nil, nil
}

func (s *memStore) Delete(_ context.Context, chatID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chats[chatID]; !ok {
		return false, nil
	}
	delete(s.chats, chatID)
	s.members = slices.DeleteFunc(s.members, func(m models.Membership) bool { return m.ChatID == chatID })
	s.messages = slices.DeleteFunc(s.messages, func(m models.Message) bool { return m.ChatID == chatID })
	return true, nil
}

func (s *memStore) addMemberLocked(chatID, userID uuid.UUID) models.Membership {
	for _, m := range s.members {
		if m.ChatID == chatID && m.UserID == userID {
			return m
		}
	}
	m := models.Membership{ID: uuid.New(), ChatID: chatID, UserID: userID, JoinedAt: s.tick()}
	s.members = append(s.members, m)
	return m
}

func (s *memStore) AddMember(_ context.Context, chatID, userID uuid.UUID) (*models.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.addMemberLocked(chatID, userID)
	return &m, nil
}

func (s *memStore) RemoveMember(_ context.Context, chatID, userID uuid.UUID) (*models.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, m := range s.members {
		if m.ChatID == chatID && m.UserID == userID {
			s.members = slices.Delete(s.members, i, i+1)
			return &m, nil
		}
	}
	return nil, nil
}

func (s *memStore) IsMember(_ context.Context, chatID, userID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.ContainsFunc(s.members, func(m models.Membership) bool {
		return m.ChatID == chatID && m.UserID == userID
	}), nil
}

func (s *memStore) ListMembers(_ context.Context, chatID uuid.UUID) ([]models.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Membership
	for _, m := range s.members {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memStore) ListChatsOfUser(_ context.Context, userID uuid.UUID) ([]models.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Chat
	for _, m := range s.members {
		if m.UserID == userID {
			out = append(out, s.chats[m.ChatID])
		}
	}
	return out, nil
}

func (s *memStore) ListCreators(_ context.Context, courseID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.creators[courseID]), nil
}

// memMessages shares memStore state but has its own method set, since
// GetByID exists on both the chat and message repositories.
type memMessages struct{ *memStore }

func (s memMessages) Create(_ context.Context, chatID, authorID uuid.UUID, content string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	m := models.Message{ID: s.nextID, ChatID: chatID, AuthorID: authorID, Content: content, CreatedAt: s.tick()}
	s.messages = append(s.messages, m)
	return &m, nil
}

func (s memMessages) History(_ context.Context, chatID uuid.UUID, limit int) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var live []models.Message
	for _, m := range s.messages {
		if m.ChatID == chatID && !m.Deleted {
			live = append(live, m)
		}
	}
	if len(live) > limit {
		live = live[len(live)-limit:]
	}
	return live, nil
}

func (s memMessages) find(id int64) int {
	return slices.IndexFunc(s.messages, func(m models.Message) bool { return m.ID == id && !m.Deleted })
}

func (s memMessages) GetByID(_ context.Context, messageID int64) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.find(messageID)
	if i < 0 {
		return nil, nil
	}
	m := s.messages[i]
	return &m, nil
}

func (s memMessages) Update(_ context.Context, messageID int64, content string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.find(messageID)
	if i < 0 {
		return nil, nil
	}
	edited := s.tick()
	s.messages[i].Content = content
	s.messages[i].EditedAt = &edited
	m := s.messages[i]
	return &m, nil
}

func (s memMessages) SoftDelete(_ context.Context, messageID int64) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.find(messageID)
	if i < 0 {
		return nil, nil
	}
	s.messages[i].Deleted = true
	m := s.messages[i]
	return &m, nil
}

type memUsers struct{ *memStore }

func (s memUsers) Create(context.Context, string, string, string) (*models.User, error) {
	panic("not used")
}

func (s memUsers) GetByID(_ context.Context, userID uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s memUsers) GetByEmail(context.Context, string) (*models.User, error) {
	panic("not used")
}

func (s memUsers) GetByIDs(_ context.Context, userIDs []uuid.UUID) (map[uuid.UUID]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[uuid.UUID]models.User)
	for _, id := range userIDs {
		if u, ok := s.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}
