package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lalith-99/coursechat/internal/models"
)

type MembershipStore struct {
	db DB
}

func NewMembershipStore(db DB) *MembershipStore {
	return &MembershipStore{db: db}
}

func (s *MembershipStore) AddMember(ctx context.Context, chatID uuid.UUID, userID uuid.UUID) (*models.Membership, error) {
	// ON CONFLICT DO NOTHING makes join idempotent, but it also makes
	// RETURNING come back empty when the row already existed. In that
	// case read the existing row so both calls answer the same membership.
	query := `
		INSERT INTO chat_members (id, chat_id, user_id, joined_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (chat_id, user_id) DO NOTHING
		RETURNING id, chat_id, user_id, joined_at`

	var m models.Membership
	err := s.db.QueryRow(ctx, query, uuid.New(), chatID, userID).Scan(
		&m.ID,
		&m.ChatID,
		&m.UserID,
		&m.JoinedAt,
	)
	if err == nil {
		return &m, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("add member: %w", err)
	}

	existing, err := s.get(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		// Conflicted, then vanished: a concurrent leave won. Report it
		// rather than pretend the join happened.
		return nil, fmt.Errorf("add member: membership removed concurrently")
	}
	return existing, nil
}

func (s *MembershipStore) RemoveMember(ctx context.Context, chatID uuid.UUID, userID uuid.UUID) (*models.Membership, error) {
	// DELETE ... RETURNING gives back the row we removed, and nothing at
	// all when the user was not a member. Leave twice is fine.
	query := `
		DELETE FROM chat_members
		WHERE chat_id = $1 AND user_id = $2
		RETURNING id, chat_id, user_id, joined_at`

	var m models.Membership
	err := s.db.QueryRow(ctx, query, chatID, userID).Scan(
		&m.ID,
		&m.ChatID,
		&m.UserID,
		&m.JoinedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("remove member: %w", err)
	}
	return &m, nil
}

func (s *MembershipStore) IsMember(ctx context.Context, chatID uuid.UUID, userID uuid.UUID) (bool, error) {
	// EXISTS stops at the first match. Hot path: every send and every
	// realtime join goes through here.
	query := `
		SELECT EXISTS (
			SELECT 1 FROM chat_members
			WHERE chat_id = $1 AND user_id = $2
		)`

	var exists bool
	err := s.db.QueryRow(ctx, query, chatID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return exists, nil
}

func (s *MembershipStore) ListMembers(ctx context.Context, chatID uuid.UUID) ([]models.Membership, error) {
	query := `
		SELECT id, chat_id, user_id, joined_at
		FROM chat_members
		WHERE chat_id = $1
		ORDER BY joined_at, id`

	rows, err := s.db.Query(ctx, query, chatID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	members := make([]models.Membership, 0)
	for rows.Next() {
		var m models.Membership
		if err := rows.Scan(&m.ID, &m.ChatID, &m.UserID, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}

	return members, nil
}

func (s *MembershipStore) ListChatsOfUser(ctx context.Context, userID uuid.UUID) ([]models.Chat, error) {
	// (chat_id, user_id) is unique, so the join cannot produce duplicates;
	// DISTINCT keeps that true even if the constraint is ever relaxed.
	query := `
		SELECT DISTINCT c.id, c.course_id, c.author_id, c.name, c.created_at
		FROM chats c
		JOIN chat_members m ON m.chat_id = c.id
		WHERE m.user_id = $1
		ORDER BY c.created_at DESC, c.id`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list chats of user: %w", err)
	}
	defer rows.Close()

	chats := make([]models.Chat, 0)
	for rows.Next() {
		var ch models.Chat
		if err := rows.Scan(
			&ch.ID,
			&ch.CourseID,
			&ch.AuthorID,
			&ch.Name,
			&ch.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan chat: %w", err)
		}
		chats = append(chats, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chats: %w", err)
	}

	return chats, nil
}

func (s *MembershipStore) get(ctx context.Context, chatID, userID uuid.UUID) (*models.Membership, error) {
	query := `
		SELECT id, chat_id, user_id, joined_at
		FROM chat_members
		WHERE chat_id = $1 AND user_id = $2`

	var m models.Membership
	err := s.db.QueryRow(ctx, query, chatID, userID).Scan(
		&m.ID,
		&m.ChatID,
		&m.UserID,
		&m.JoinedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get member: %w", err)
	}
	return &m, nil
}
