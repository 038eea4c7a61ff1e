package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the identity behind a token. Only the display name matters to
// chat; everything else belongs to the authentication side.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Chat is a named discussion scoped to one (course, author) pair.
// The pair is unique: a course never has two chats by the same author.
type Chat struct {
	ID        uuid.UUID `json:"id"`
	CourseID  uuid.UUID `json:"course_id"`
	AuthorID  uuid.UUID `json:"author_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Membership is the join-table fact that a user belongs to a chat.
// It is owned by neither side: join creates it, leave deletes it, and
// deleting the chat cascades to it.
type Membership struct {
	ID       uuid.UUID `json:"id"`
	ChatID   uuid.UUID `json:"chat_id"`
	UserID   uuid.UUID `json:"user_id"`
	JoinedAt time.Time `json:"joined_at"`
}

// Message is a single chat message.
//
// ID is a bigserial: it doubles as the tie-breaker when two messages share
// a created_at, so history order never depends on anything but insertion.
// Deleted rows stay in the table and are filtered out of every read.
type Message struct {
	ID        int64      `json:"id"`
	ChatID    uuid.UUID  `json:"chat_id"`
	AuthorID  uuid.UUID  `json:"author_id"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"created_at"`
	EditedAt  *time.Time `json:"edited_at,omitempty"`
	Deleted   bool       `json:"-"`
}

// CourseCreator records that a user is one of the creators of a course.
// Courses themselves live in the catalog service.
type CourseCreator struct {
	CourseID uuid.UUID `json:"course_id"`
	UserID   uuid.UUID `json:"user_id"`
}

// MessageView is what clients see: the persisted message plus the author's
// display name as it was when the view was built.
type MessageView struct {
	ID         int64      `json:"id"`
	ChatID     uuid.UUID  `json:"chatId"`
	AuthorID   uuid.UUID  `json:"authorId"`
	AuthorName string     `json:"authorName"`
	Content    string     `json:"content"`
	CreatedAt  time.Time  `json:"createdAt"`
	EditedAt   *time.Time `json:"editedAt,omitempty"`
}

func NewMessageView(m *Message, authorName string) *MessageView {
	return &MessageView{
		ID:         m.ID,
		ChatID:     m.ChatID,
		AuthorID:   m.AuthorID,
		AuthorName: authorName,
		Content:    m.Content,
		CreatedAt:  m.CreatedAt,
		EditedAt:   m.EditedAt,
	}
}
