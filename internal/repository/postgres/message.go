package postgres

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lalith-99/coursechat/internal/models"
)

type MessageStore struct {
	db DB
}

func NewMessageStore(db DB) *MessageStore {
	return &MessageStore{db: db}
}

const messageColumns = `id, chat_id, author_id, content, created_at, edited_at, deleted`

func (s *MessageStore) Create(ctx context.Context, chatID uuid.UUID, authorID uuid.UUID, content string) (*models.Message, error) {
	// bigserial id and clock_timestamp() are both assigned by Postgres in
	// the same single-row INSERT: a message is either fully there or not.
	query := `
		INSERT INTO messages (chat_id, author_id, content, created_at)
		VALUES ($1, $2, $3, clock_timestamp())
		RETURNING ` + messageColumns

	msg, err := scanMessage(s.db.QueryRow(ctx, query, chatID, authorID, content))
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	return msg, nil
}

func (s *MessageStore) History(ctx context.Context, chatID uuid.UUID, limit int) ([]models.Message, error) {
	// Take the newest `limit` rows, then flip them so the window reads
	// oldest first. id breaks created_at ties in insertion order.
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE chat_id = $1 AND deleted = false
		ORDER BY created_at DESC, id DESC
		LIMIT $2`

	rows, err := s.db.Query(ctx, query, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages := make([]models.Message, 0, limit)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, *msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	slices.Reverse(messages)
	return messages, nil
}

func (s *MessageStore) GetByID(ctx context.Context, messageID int64) (*models.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE id = $1 AND deleted = false`

	return s.one(ctx, "get message", query, messageID)
}

func (s *MessageStore) Update(ctx context.Context, messageID int64, content string) (*models.Message, error) {
	query := `
		UPDATE messages
		SET content = $2, edited_at = clock_timestamp()
		WHERE id = $1 AND deleted = false
		RETURNING ` + messageColumns

	return s.one(ctx, "update message", query, messageID, content)
}

func (s *MessageStore) SoftDelete(ctx context.Context, messageID int64) (*models.Message, error) {
	query := `
		UPDATE messages
		SET deleted = true
		WHERE id = $1 AND deleted = false
		RETURNING ` + messageColumns

	return s.one(ctx, "delete message", query, messageID)
}

func (s *MessageStore) one(ctx context.Context, op, query string, args ...any) (*models.Message, error) {
	msg, err := scanMessage(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return msg, nil
}

// scanMessage works for both pgx.Row and pgx.Rows.
func scanMessage(row pgx.Row) (*models.Message, error) {
	var msg models.Message
	err := row.Scan(
		&msg.ID,
		&msg.ChatID,
		&msg.AuthorID,
		&msg.Content,
		&msg.CreatedAt,
		&msg.EditedAt,
		&msg.Deleted,
	)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}
