package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lalith-99/coursechat/internal/models"
	"github.com/lalith-99/coursechat/internal/repository"
	"go.uber.org/zap"
)

// DefaultChatName is used when a chat is created on view without a name.
const DefaultChatName = "Course Chat"

const chatNameRules = "required,max=50"

// Directory finds and creates course chats.
//
// There are two ways to create a chat and they differ on purpose. Viewing
// a course (GetOrCreateCourseChat) silently ensures the chat exists. An
// explicit create request (CreateCourseChat) reports ErrConflict when the
// pair already has one, so the UI learns about the duplicate.
type Directory struct {
	chats   repository.ChatRepository
	members repository.MembershipRepository
	courses repository.CourseRepository
	logger  *zap.Logger
}

func NewDirectory(
	chats repository.ChatRepository,
	members repository.MembershipRepository,
	courses repository.CourseRepository,
	logger *zap.Logger,
) *Directory {
	return &Directory{
		chats:   chats,
		members: members,
		courses: courses,
		logger:  logger,
	}
}

// GetOrCreateCourseChat returns the author's chat for the course, creating
// it if needed. An existing chat is returned unchanged and name is ignored.
func (d *Directory) GetOrCreateCourseChat(ctx context.Context, courseID, authorID uuid.UUID, name string) (*models.Chat, error) {
	existing, err := d.chats.GetByCourseAndAuthor(ctx, courseID, authorID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultChatName
	}
	if err := validateVar("name", name, chatNameRules); err != nil {
		return nil, err
	}

	chat, err := d.create(ctx, courseID, authorID, name)
	if errors.Is(err, repository.ErrDuplicate) {
		// Someone else created it between our lookup and insert.
		winner, err := d.chats.GetByCourseAndAuthor(ctx, courseID, authorID)
		if err != nil {
			return nil, err
		}
		if winner == nil {
			return nil, fmt.Errorf("chat for course %s vanished after duplicate insert", courseID)
		}
		return winner, nil
	}
	return chat, err
}

// CreateCourseChat is the explicit create. A pair that already has a chat
// yields ErrConflict and the existing chat is not revealed.
func (d *Directory) CreateCourseChat(ctx context.Context, courseID, authorID uuid.UUID, name string) (*models.Chat, error) {
	name = strings.TrimSpace(name)
	if err := validateVar("name", name, chatNameRules); err != nil {
		return nil, err
	}

	existing, err := d.chats.GetByCourseAndAuthor(ctx, courseID, authorID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("chat for course %s: %w", courseID, ErrConflict)
	}

	chat, err := d.create(ctx, courseID, authorID, name)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, fmt.Errorf("chat for course %s: %w", courseID, ErrConflict)
	}
	return chat, err
}

// create inserts the chat together with the author and every course
// creator as members. This is the only place creators are enrolled, so a
// creator who later leaves stays out.
func (d *Directory) create(ctx context.Context, courseID, authorID uuid.UUID, name string) (*models.Chat, error) {
	creators, err := d.courses.ListCreators(ctx, courseID)
	if err != nil {
		return nil, err
	}

	memberIDs := make([]uuid.UUID, 0, len(creators)+1)
	memberIDs = append(memberIDs, authorID)
	for _, id := range creators {
		if id != authorID {
			memberIDs = append(memberIDs, id)
		}
	}

	chat, err := d.chats.CreateWithMembers(ctx, courseID, authorID, name, memberIDs)
	if err != nil {
		return nil, err
	}

	d.logger.Info("course chat created",
		zap.String("chat_id", chat.ID.String()),
		zap.String("course_id", courseID.String()),
		zap.String("author_id", authorID.String()),
		zap.Int("members", len(memberIDs)),
	)
	return chat, nil
}

func (d *Directory) GetChat(ctx context.Context, chatID uuid.UUID) (*models.Chat, error) {
	chat, err := d.chats.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if chat == nil {
		return nil, fmt.Errorf("chat %s: %w", chatID, ErrNotFound)
	}
	return chat, nil
}

// ChatForMember returns the chat only to its members. Everyone else gets
// ErrForbidden, whether or not the chat exists.
func (d *Directory) ChatForMember(ctx context.Context, chatID, userID uuid.UUID) (*models.Chat, error) {
	ok, err := d.members.IsMember(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("chat %s: %w", chatID, ErrForbidden)
	}
	return d.GetChat(ctx, chatID)
}

// DeleteChat removes a chat with its memberships and messages. Only the
// chat's author may do it.
func (d *Directory) DeleteChat(ctx context.Context, chatID, userID uuid.UUID) error {
	chat, err := d.GetChat(ctx, chatID)
	if err != nil {
		return err
	}
	if chat.AuthorID != userID {
		return fmt.Errorf("delete chat %s: %w", chatID, ErrForbidden)
	}

	deleted, err := d.chats.Delete(ctx, chatID)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("chat %s: %w", chatID, ErrNotFound)
	}

	d.logger.Info("course chat deleted",
		zap.String("chat_id", chatID.String()),
		zap.String("author_id", userID.String()),
	)
	return nil
}
