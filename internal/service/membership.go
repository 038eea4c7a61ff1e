package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lalith-99/coursechat/internal/models"
	"github.com/lalith-99/coursechat/internal/repository"
)

// Memberships is the authorization gate. Every history read, send and
// realtime subscription goes through IsMember or Authorize first.
type Memberships struct {
	chats   repository.ChatRepository
	members repository.MembershipRepository
}

func NewMemberships(chats repository.ChatRepository, members repository.MembershipRepository) *Memberships {
	return &Memberships{chats: chats, members: members}
}

func (s *Memberships) IsMember(ctx context.Context, chatID, userID uuid.UUID) (bool, error) {
	return s.members.IsMember(ctx, chatID, userID)
}

// Authorize returns ErrForbidden unless userID belongs to chatID.
func (s *Memberships) Authorize(ctx context.Context, chatID, userID uuid.UUID) error {
	ok, err := s.members.IsMember(ctx, chatID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("chat %s: %w", chatID, ErrForbidden)
	}
	return nil
}

// Join adds the user to an existing chat. Joining twice returns the
// original membership.
func (s *Memberships) Join(ctx context.Context, chatID, userID uuid.UUID) (*models.Membership, error) {
	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if chat == nil {
		return nil, fmt.Errorf("chat %s: %w", chatID, ErrNotFound)
	}
	return s.members.AddMember(ctx, chatID, userID)
}

// Leave removes the membership. It returns nil, nil when the user was not
// a member.
func (s *Memberships) Leave(ctx context.Context, chatID, userID uuid.UUID) (*models.Membership, error) {
	return s.members.RemoveMember(ctx, chatID, userID)
}

func (s *Memberships) ChatsOf(ctx context.Context, userID uuid.UUID) ([]models.Chat, error) {
	return s.members.ListChatsOfUser(ctx, userID)
}

// Members lists a chat's members for one of its members.
func (s *Memberships) Members(ctx context.Context, chatID, userID uuid.UUID) ([]models.Membership, error) {
	if err := s.Authorize(ctx, chatID, userID); err != nil {
		return nil, err
	}
	return s.members.ListMembers(ctx, chatID)
}

// MembersOf lists a chat's members without an authorization check. The
// realtime gateway uses it to attach connections to a new chat.
func (s *Memberships) MembersOf(ctx context.Context, chatID uuid.UUID) ([]models.Membership, error) {
	return s.members.ListMembers(ctx, chatID)
}
