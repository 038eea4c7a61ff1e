package realtime

import (
	"encoding/json"

	"github.com/google/uuid"
)

type EventType string

// Inbound, client to server.
const (
	EventJoin  EventType = "join"
	EventSend  EventType = "send"
	EventLeave EventType = "leave"
)

// Outbound, server to every connection subscribed to the chat.
const (
	EventReceiveMessage EventType = "receiveMessage"
	EventMessageEdited  EventType = "messageEdited"
	EventMessageDeleted EventType = "messageDeleted"
)

// InboundEvent is the frame a client sends:
//
//	{"type": "send", "chatId": "...", "content": "hello"}
type InboundEvent struct {
	Type    EventType `json:"type"`
	ChatID  string    `json:"chatId"`
	Content string    `json:"content,omitempty"`
}

// OutboundEvent is the frame the server sends. Data is a message view for
// receiveMessage and messageEdited, and a DeletedMessage for messageDeleted.
type OutboundEvent struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

type DeletedMessage struct {
	ID     int64     `json:"id"`
	ChatID uuid.UUID `json:"chatId"`
}

func encodeEvent(eventType EventType, data any) ([]byte, error) {
	return json.Marshal(OutboundEvent{Type: eventType, Data: data})
}

type ControlOp string

// Membership changes every instance applies to its hub, so a user who
// left stops receiving a chat's frames wherever their sockets live.
const (
	ControlAttachUser ControlOp = "attachUser"
	ControlDetachUser ControlOp = "detachUser"
	ControlDropGroup  ControlOp = "dropGroup"
)

// Control never reaches a client. UserID is unused for ControlDropGroup.
type Control struct {
	Op     ControlOp `json:"op"`
	ChatID uuid.UUID `json:"chatId"`
	UserID uuid.UUID `json:"userId"`
}
