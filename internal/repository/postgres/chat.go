package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lalith-99/coursechat/internal/models"
	"github.com/lalith-99/coursechat/internal/repository"
)

type ChatStore struct {
	db DB
}

func NewChatStore(db DB) *ChatStore {
	return &ChatStore{db: db}
}

// CreateWithMembers writes the chat and its initial memberships in one
// transaction, so a reader never sees a chat whose creators are missing.
//
// The unique (course_id, author_id) constraint is what enforces "one chat
// per pair" under concurrency; the loser of a race gets ErrDuplicate.
func (s *ChatStore) CreateWithMembers(ctx context.Context, courseID, authorID uuid.UUID, name string, memberIDs []uuid.UUID) (*models.Chat, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin create chat: %w", err)
	}
	// Rollback after Commit is a no-op.
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		INSERT INTO chats (id, course_id, author_id, name, created_at)
		VALUES ($1, $2, $3, $4, now())
		RETURNING id, course_id, author_id, name, created_at`

	var ch models.Chat
	err = tx.QueryRow(ctx, query, uuid.New(), courseID, authorID, name).Scan(
		&ch.ID,
		&ch.CourseID,
		&ch.AuthorID,
		&ch.Name,
		&ch.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrDuplicate
		}
		return nil, fmt.Errorf("insert chat: %w", err)
	}

	if len(memberIDs) > 0 {
		ids := make([]string, len(memberIDs))
		for i, id := range memberIDs {
			ids[i] = id.String()
		}
		// One statement for the whole fan-out. gen_random_uuid() per row
		// because the ids are not needed by the caller.
		members := `
			INSERT INTO chat_members (id, chat_id, user_id, joined_at)
			SELECT gen_random_uuid(), $1, u::uuid, now()
			FROM unnest($2::text[]) AS u
			ON CONFLICT (chat_id, user_id) DO NOTHING`
		if _, err := tx.Exec(ctx, members, ch.ID, ids); err != nil {
			return nil, fmt.Errorf("insert chat members: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit create chat: %w", err)
	}
	return &ch, nil
}

func (s *ChatStore) GetByID(ctx context.Context, chatID uuid.UUID) (*models.Chat, error) {
	query := `
		SELECT id, course_id, author_id, name, created_at
		FROM chats
		WHERE id = $1`

	return s.getOne(ctx, "get chat", query, chatID)
}

func (s *ChatStore) GetByCourseAndAuthor(ctx context.Context, courseID, authorID uuid.UUID) (*models.Chat, error) {
	query := `
		SELECT id, course_id, author_id, name, created_at
		FROM chats
		WHERE course_id = $1 AND author_id = $2`

	return s.getOne(ctx, "get chat by course", query, courseID, authorID)
}

func (s *ChatStore) Delete(ctx context.Context, chatID uuid.UUID) (bool, error) {
	// chat_members and messages reference chats ON DELETE CASCADE.
	tag, err := s.db.Exec(ctx, `DELETE FROM chats WHERE id = $1`, chatID)
	if err != nil {
		return false, fmt.Errorf("delete chat: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *ChatStore) getOne(ctx context.Context, op, query string, args ...any) (*models.Chat, error) {
	var ch models.Chat
	err := s.db.QueryRow(ctx, query, args...).Scan(
		&ch.ID,
		&ch.CourseID,
		&ch.AuthorID,
		&ch.Name,
		&ch.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &ch, nil
}
