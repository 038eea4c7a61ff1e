package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lalith-99/coursechat/internal/models"
	"github.com/lalith-99/coursechat/internal/repository"
	"go.uber.org/zap"
)

const (
	MaxContentLength = 500

	// unknownAuthor stands in for an author whose user row is gone.
	unknownAuthor = "unknown"
)

// Messages validates, stores and renders chat messages. Every call takes
// the acting user and checks membership before touching the message store.
type Messages struct {
	members        *Memberships
	messages       repository.MessageRepository
	users          repository.UserRepository
	logger         *zap.Logger
	historyDefault int
	historyMax     int
}

func NewMessages(
	members *Memberships,
	messages repository.MessageRepository,
	users repository.UserRepository,
	historyDefault, historyMax int,
	logger *zap.Logger,
) *Messages {
	return &Messages{
		members:        members,
		messages:       messages,
		users:          users,
		logger:         logger,
		historyDefault: historyDefault,
		historyMax:     historyMax,
	}
}

// Send appends a message and returns it with the author's current display
// name. Nothing is stored unless the author is a member.
func (s *Messages) Send(ctx context.Context, chatID, authorID uuid.UUID, content string) (*models.MessageView, error) {
	if err := s.members.Authorize(ctx, chatID, authorID); err != nil {
		return nil, err
	}

	content, err := normalizeContent(content)
	if err != nil {
		return nil, err
	}

	msg, err := s.messages.Create(ctx, chatID, authorID, content)
	if err != nil {
		return nil, err
	}
	return models.NewMessageView(msg, s.authorName(ctx, authorID)), nil
}

// History returns up to count recent messages, oldest first. A count of
// zero or less means the default; anything above the maximum is capped.
func (s *Messages) History(ctx context.Context, chatID, userID uuid.UUID, count int) ([]*models.MessageView, error) {
	if err := s.members.Authorize(ctx, chatID, userID); err != nil {
		return nil, err
	}

	limit := s.clampLimit(count)
	msgs, err := s.messages.History(ctx, chatID, limit)
	if err != nil {
		return nil, err
	}

	names, err := s.authorNames(ctx, msgs)
	if err != nil {
		return nil, err
	}

	views := make([]*models.MessageView, 0, len(msgs))
	for i := range msgs {
		name, ok := names[msgs[i].AuthorID]
		if !ok {
			name = unknownAuthor
		}
		views = append(views, models.NewMessageView(&msgs[i], name))
	}
	return views, nil
}

// Edit replaces the content of the caller's own message.
func (s *Messages) Edit(ctx context.Context, chatID, userID uuid.UUID, messageID int64, content string) (*models.MessageView, error) {
	if _, err := s.ownMessage(ctx, chatID, userID, messageID); err != nil {
		return nil, err
	}

	content, err := normalizeContent(content)
	if err != nil {
		return nil, err
	}

	msg, err := s.messages.Update(ctx, messageID, content)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		// Deleted between the ownership check and the update.
		return nil, fmt.Errorf("message %d: %w", messageID, ErrNotFound)
	}
	return models.NewMessageView(msg, s.authorName(ctx, userID)), nil
}

// Delete soft-deletes the caller's own message.
func (s *Messages) Delete(ctx context.Context, chatID, userID uuid.UUID, messageID int64) (*models.Message, error) {
	if _, err := s.ownMessage(ctx, chatID, userID, messageID); err != nil {
		return nil, err
	}

	msg, err := s.messages.SoftDelete(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, fmt.Errorf("message %d: %w", messageID, ErrNotFound)
	}
	return msg, nil
}

// ownMessage loads a live message of chatID written by userID. Membership
// is checked first so non-members learn nothing about message ids.
func (s *Messages) ownMessage(ctx context.Context, chatID, userID uuid.UUID, messageID int64) (*models.Message, error) {
	if err := s.members.Authorize(ctx, chatID, userID); err != nil {
		return nil, err
	}

	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg == nil || msg.ChatID != chatID {
		return nil, fmt.Errorf("message %d: %w", messageID, ErrNotFound)
	}
	if msg.AuthorID != userID {
		return nil, fmt.Errorf("message %d: %w", messageID, ErrForbidden)
	}
	return msg, nil
}

func (s *Messages) clampLimit(count int) int {
	if count <= 0 {
		return s.historyDefault
	}
	if count > s.historyMax {
		return s.historyMax
	}
	return count
}

// authorName looks the author up on every call; display names change and
// broadcasts must carry the current one.
func (s *Messages) authorName(ctx context.Context, authorID uuid.UUID) string {
	user, err := s.users.GetByID(ctx, authorID)
	if err != nil {
		s.logger.Warn("resolve author name failed",
			zap.String("author_id", authorID.String()),
			zap.Error(err),
		)
		return unknownAuthor
	}
	if user == nil {
		return unknownAuthor
	}
	return user.DisplayName
}

func (s *Messages) authorNames(ctx context.Context, msgs []models.Message) (map[uuid.UUID]string, error) {
	if len(msgs) == 0 {
		return map[uuid.UUID]string{}, nil
	}

	seen := make(map[uuid.UUID]struct{}, len(msgs))
	ids := make([]uuid.UUID, 0, len(msgs))
	for _, m := range msgs {
		if _, ok := seen[m.AuthorID]; ok {
			continue
		}
		seen[m.AuthorID] = struct{}{}
		ids = append(ids, m.AuthorID)
	}

	users, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[uuid.UUID]string, len(users))
	for id, u := range users {
		names[id] = u.DisplayName
	}
	return names, nil
}

var contentMaxRule = fmt.Sprintf("max=%d", MaxContentLength)

// normalizeContent bounds the content as sent, then trims it for storage.
// Trimming never turns an over-long message into an accepted one.
func normalizeContent(content string) (string, error) {
	if err := validateVar("content", content, contentMaxRule); err != nil {
		return "", err
	}
	content = strings.TrimSpace(content)
	if err := validateVar("content", content, "required"); err != nil {
		return "", err
	}
	return content, nil
}
