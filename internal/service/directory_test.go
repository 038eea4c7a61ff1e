package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/lalith-99/coursechat/internal/models"
	"github.com/lalith-99/coursechat/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type services struct {
	store       *memStore
	directory   *Directory
	memberships *Memberships
	messages    *Messages
}

func newServices() *services {
	store := newMemStore()
	members := NewMemberships(store, store)
	return &services{
		store:       store,
		directory:   NewDirectory(store, store, store, zap.NewNop()),
		memberships: members,
		messages:    NewMessages(members, memMessages{store}, memUsers{store}, 50, 200, zap.NewNop()),
	}
}

func TestGetOrCreateCourseChat_SameChatFirstNameWins(t *testing.T) {
	s := newServices()
	ctx := context.Background()
	courseID := uuid.New()
	author := s.store.addUser("ana")

	first, err := s.directory.GetOrCreateCourseChat(ctx, courseID, author, "Calculus Q&A")
	require.NoError(t, err)

	second, err := s.directory.GetOrCreateCourseChat(ctx, courseID, author, "Something else")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Calculus Q&A", second.Name)

	stored, err := s.directory.GetChat(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Calculus Q&A", stored.Name)
}

func TestGetOrCreateCourseChat_EnrollsCreators(t *testing.T) {
	s := newServices()
	ctx := context.Background()
	courseA := uuid.New()
	userX := s.store.addUser("x")
	userY := s.store.addUser("y")
	s.store.creators[courseA] = []uuid.UUID{userY}

	chat, err := s.directory.GetOrCreateCourseChat(ctx, courseA, userX, "Course Chat")
	require.NoError(t, err)

	chatsOfY, err := s.memberships.ChatsOf(ctx, userY)
	require.NoError(t, err)
	require.Len(t, chatsOfY, 1)
	assert.Equal(t, chat.ID, chatsOfY[0].ID)

	ok, err := s.memberships.IsMember(ctx, chat.ID, userX)
	require.NoError(t, err)
	assert.True(t, ok, "author is a member")
}

func TestGetOrCreateCourseChat_CreatorLeavingStaysOut(t *testing.T) {
	s := newServices()
	ctx := context.Background()
	course := uuid.New()
	author := s.store.addUser("author")
	creator := s.store.addUser("creator")
	s.store.creators[course] = []uuid.UUID{creator}

	chat, err := s.directory.GetOrCreateCourseChat(ctx, course, author, "")
	require.NoError(t, err)
	assert.Equal(t, DefaultChatName, chat.Name)

	_, err = s.memberships.Leave(ctx, chat.ID, creator)
	require.NoError(t, err)

	// Viewing again must not re-run the fan-out.
	_, err = s.directory.GetOrCreateCourseChat(ctx, course, author, "")
	require.NoError(t, err)

	ok, err := s.memberships.IsMember(ctx, chat.ID, creator)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetOrCreateCourseChat_AuthorIsCreator(t *testing.T) {
	chats := new(MockChatRepository)
	courses := new(MockCourseRepository)
	d := NewDirectory(chats, new(MockMembershipRepository), courses, zap.NewNop())

	ctx := context.Background()
	course, author, other := uuid.New(), uuid.New(), uuid.New()
	created := &models.Chat{ID: uuid.New(), CourseID: course, AuthorID: author, Name: "Course Chat"}

	chats.On("GetByCourseAndAuthor", ctx, course, author).Return(nil, nil)
	courses.On("ListCreators", ctx, course).Return([]uuid.UUID{author, other}, nil)
	chats.On("CreateWithMembers", ctx, course, author, "Course Chat", []uuid.UUID{author, other}).Return(created, nil)

	chat, err := d.GetOrCreateCourseChat(ctx, course, author, "  ")
	require.NoError(t, err)
	assert.Equal(t, created.ID, chat.ID)
	chats.AssertExpectations(t)
	courses.AssertExpectations(t)
}

func TestGetOrCreateCourseChat_LosesRace(t *testing.T) {
	chats := new(MockChatRepository)
	courses := new(MockCourseRepository)
	d := NewDirectory(chats, new(MockMembershipRepository), courses, zap.NewNop())

	ctx := context.Background()
	course, author := uuid.New(), uuid.New()
	winner := &models.Chat{ID: uuid.New(), CourseID: course, AuthorID: author, Name: "Theirs"}

	chats.On("GetByCourseAndAuthor", ctx, course, author).Return(nil, nil).Once()
	courses.On("ListCreators", ctx, course).Return([]uuid.UUID{}, nil)
	chats.On("CreateWithMembers", ctx, course, author, "Mine", mock.Anything).Return(nil, repository.ErrDuplicate)
	chats.On("GetByCourseAndAuthor", ctx, course, author).Return(winner, nil).Once()

	chat, err := d.GetOrCreateCourseChat(ctx, course, author, "Mine")
	require.NoError(t, err)
	assert.Equal(t, winner.ID, chat.ID)
	assert.Equal(t, "Theirs", chat.Name)
	chats.AssertExpectations(t)
}

func TestCreateCourseChat(t *testing.T) {
	t.Run("duplicate explicit create conflicts while view returns existing", func(t *testing.T) {
		s := newServices()
		ctx := context.Background()
		course := uuid.New()
		author := s.store.addUser("x")

		viewed, err := s.directory.GetOrCreateCourseChat(ctx, course, author, "Course Chat")
		require.NoError(t, err)

		_, err = s.directory.CreateCourseChat(ctx, course, author, "Course Chat")
		assert.ErrorIs(t, err, ErrConflict)

		again, err := s.directory.GetOrCreateCourseChat(ctx, course, author, "Course Chat")
		require.NoError(t, err)
		assert.Equal(t, viewed.ID, again.ID)
	})

	t.Run("creates new chat", func(t *testing.T) {
		s := newServices()
		ctx := context.Background()
		author := s.store.addUser("x")

		chat, err := s.directory.CreateCourseChat(ctx, uuid.New(), author, "  Office hours ")
		require.NoError(t, err)
		assert.Equal(t, "Office hours", chat.Name)
	})

	t.Run("race loser conflicts", func(t *testing.T) {
		chats := new(MockChatRepository)
		courses := new(MockCourseRepository)
		d := NewDirectory(chats, new(MockMembershipRepository), courses, zap.NewNop())
		ctx := context.Background()
		course, author := uuid.New(), uuid.New()

		chats.On("GetByCourseAndAuthor", ctx, course, author).Return(nil, nil)
		courses.On("ListCreators", ctx, course).Return(nil, nil)
		chats.On("CreateWithMembers", ctx, course, author, "Name", []uuid.UUID{author}).Return(nil, repository.ErrDuplicate)

		_, err := d.CreateCourseChat(ctx, course, author, "Name")
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("name validation", func(t *testing.T) {
		s := newServices()
		ctx := context.Background()
		author := s.store.addUser("x")

		tests := []struct {
			name    string
			input   string
			wantErr bool
		}{
			{"empty", "", true},
			{"whitespace", "   ", true},
			{"fifty runes", strings.Repeat("é", 50), false},
			{"fifty one", strings.Repeat("a", 51), true},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := s.directory.CreateCourseChat(ctx, uuid.New(), author, tt.input)
				if !tt.wantErr {
					assert.NoError(t, err)
					return
				}
				assert.ErrorIs(t, err, ErrValidation)
				var verr *ValidationError
				require.True(t, errors.As(err, &verr))
				assert.Equal(t, "name", verr.Field)
			})
		}
	})
}

func TestChatForMember(t *testing.T) {
	s := newServices()
	ctx := context.Background()
	author := s.store.addUser("a")
	stranger := s.store.addUser("z")

	chat, err := s.directory.GetOrCreateCourseChat(ctx, uuid.New(), author, "C")
	require.NoError(t, err)

	got, err := s.directory.ChatForMember(ctx, chat.ID, author)
	require.NoError(t, err)
	assert.Equal(t, chat.ID, got.ID)

	_, err = s.directory.ChatForMember(ctx, chat.ID, stranger)
	assert.ErrorIs(t, err, ErrForbidden)

	// Unknown chat looks the same as someone else's chat.
	_, err = s.directory.ChatForMember(ctx, uuid.New(), stranger)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestDeleteChat(t *testing.T) {
	s := newServices()
	ctx := context.Background()
	author := s.store.addUser("a")
	member := s.store.addUser("m")

	chat, err := s.directory.GetOrCreateCourseChat(ctx, uuid.New(), author, "C")
	require.NoError(t, err)
	_, err = s.memberships.Join(ctx, chat.ID, member)
	require.NoError(t, err)

	err = s.directory.DeleteChat(ctx, chat.ID, member)
	assert.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, s.directory.DeleteChat(ctx, chat.ID, author))

	_, err = s.directory.GetChat(ctx, chat.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	chats, err := s.memberships.ChatsOf(ctx, member)
	require.NoError(t, err)
	assert.Empty(t, chats, "memberships cascade")

	err = s.directory.DeleteChat(ctx, chat.ID, author)
	assert.ErrorIs(t, err, ErrNotFound)
}
