package realtime

import (
	"sync"

	"github.com/google/uuid"
)

// Hub tracks which live connections are subscribed to which chat.
//
// It is the only in-process shared state of the realtime side. Callers do
// store I/O first and only then touch the hub, so the lock is never held
// across a database call or a socket write.
type Hub struct {
	mu sync.RWMutex
	// groups is chat -> subscribed connections.
	groups map[uuid.UUID]map[*Client]struct{}
	// joined is the reverse index, so Remove does not scan every group.
	joined map[*Client]map[uuid.UUID]struct{}
	// byUser lets REST joins and leaves reach the user's open sockets.
	byUser map[uuid.UUID]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		groups: make(map[uuid.UUID]map[*Client]struct{}),
		joined: make(map[*Client]map[uuid.UUID]struct{}),
		byUser: make(map[uuid.UUID]map[*Client]struct{}),
	}
}

// Register makes a connection known to the hub. Join ignores connections
// that are not registered, so a late join cannot resurrect a closed one.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.joined[c]; ok {
		return
	}
	h.joined[c] = make(map[uuid.UUID]struct{})
	users, ok := h.byUser[c.userID]
	if !ok {
		users = make(map[*Client]struct{})
		h.byUser[c.userID] = users
	}
	users[c] = struct{}{}
}

// Remove drops the connection from every group it joined and returns how
// many that was.
func (h *Hub) Remove(c *Client) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	chats, ok := h.joined[c]
	if !ok {
		return 0
	}
	// leaveLocked deletes from chats, so count first.
	n := len(chats)
	for chatID := range chats {
		h.leaveLocked(chatID, c)
	}
	delete(h.joined, c)

	if users, ok := h.byUser[c.userID]; ok {
		delete(users, c)
		if len(users) == 0 {
			delete(h.byUser, c.userID)
		}
	}
	return n
}

// Join subscribes c to chatID. It reports false when c is not registered.
func (h *Hub) Join(chatID uuid.UUID, c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.joinLocked(chatID, c)
}

func (h *Hub) joinLocked(chatID uuid.UUID, c *Client) bool {
	chats, ok := h.joined[c]
	if !ok {
		return false
	}
	group, ok := h.groups[chatID]
	if !ok {
		group = make(map[*Client]struct{})
		h.groups[chatID] = group
	}
	group[c] = struct{}{}
	chats[chatID] = struct{}{}
	return true
}

func (h *Hub) Leave(chatID uuid.UUID, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(chatID, c)
}

func (h *Hub) leaveLocked(chatID uuid.UUID, c *Client) {
	if group, ok := h.groups[chatID]; ok {
		delete(group, c)
		if len(group) == 0 {
			delete(h.groups, chatID)
		}
	}
	if chats, ok := h.joined[c]; ok {
		delete(chats, chatID)
	}
}

// JoinUser subscribes every open connection of userID to chatID.
func (h *Hub) JoinUser(chatID, userID uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := 0
	for c := range h.byUser[userID] {
		if h.joinLocked(chatID, c) {
			n++
		}
	}
	return n
}

// LeaveUser unsubscribes every open connection of userID from chatID.
func (h *Hub) LeaveUser(chatID, userID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.byUser[userID] {
		h.leaveLocked(chatID, c)
	}
}

// DropGroup unsubscribes everyone from chatID. Used when a chat is deleted.
func (h *Hub) DropGroup(chatID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.groups[chatID] {
		if chats, ok := h.joined[c]; ok {
			delete(chats, chatID)
		}
	}
	delete(h.groups, chatID)
}

// Broadcast queues frame on every connection subscribed to chatID and
// returns how many accepted it.
func (h *Hub) Broadcast(chatID uuid.UUID, frame []byte) int {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.groups[chatID]))
	for c := range h.groups[chatID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range targets {
		if c.Send(frame) {
			delivered++
		}
	}
	return delivered
}

func (h *Hub) GroupSize(chatID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[chatID])
}

// Subscribed reports whether c is in chatID's group.
func (h *Hub) Subscribed(chatID uuid.UUID, c *Client) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.groups[chatID][c]
	return ok
}

// Connections returns the number of registered connections.
func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.joined)
}

// Apply performs a membership change published through a fanout. It
// reports false for an unknown op.
func (h *Hub) Apply(ctl Control) bool {
	switch ctl.Op {
	case ControlAttachUser:
		h.JoinUser(ctl.ChatID, ctl.UserID)
	case ControlDetachUser:
		h.LeaveUser(ctl.ChatID, ctl.UserID)
	case ControlDropGroup:
		h.DropGroup(ctl.ChatID)
	default:
		return false
	}
	return true
}
