package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lalith-99/coursechat/internal/models"
	"github.com/lalith-99/coursechat/internal/service"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// eventTimeout bounds the store work triggered by one inbound frame.
const eventTimeout = 10 * time.Second

// Memberships is the part of the membership service the gateway needs.
type Memberships interface {
	IsMember(ctx context.Context, chatID, userID uuid.UUID) (bool, error)
	Leave(ctx context.Context, chatID, userID uuid.UUID) (*models.Membership, error)
	ChatsOf(ctx context.Context, userID uuid.UUID) ([]models.Chat, error)
	MembersOf(ctx context.Context, chatID uuid.UUID) ([]models.Membership, error)
}

// MessageSender persists a message for an authorized member.
type MessageSender interface {
	Send(ctx context.Context, chatID, authorID uuid.UUID, content string) (*models.MessageView, error)
}

type GatewayConfig struct {
	SendRate       float64
	SendBurst      int
	AllowedOrigins []string
}

// Gateway drives every live connection: it subscribes new connections to
// their chats, handles join, send and leave frames, and publishes the
// resulting events through the fanout.
type Gateway struct {
	hub      *Hub
	fanout   Fanout
	members  Memberships
	messages MessageSender
	logger   *zap.Logger
	cfg      GatewayConfig
	upgrader websocket.Upgrader
}

func NewGateway(hub *Hub, fanout Fanout, members Memberships, messages MessageSender, cfg GatewayConfig, logger *zap.Logger) *Gateway {
	g := &Gateway{
		hub:      hub,
		fanout:   fanout,
		members:  members,
		messages: messages,
		logger:   logger.Named("gateway"),
		cfg:      cfg,
	}
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     g.checkOrigin,
	}
	return g
}

func (g *Gateway) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || slices.Contains(g.cfg.AllowedOrigins, "*") {
		return true
	}
	return slices.Contains(g.cfg.AllowedOrigins, origin)
}

func (g *Gateway) newLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Limit(g.cfg.SendRate), g.cfg.SendBurst)
}

// Serve upgrades an already identified request and starts its pumps.
// Identification happens before the upgrade so an anonymous caller gets a
// plain 401 and never holds a socket.
func (g *Gateway) Serve(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		g.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := newClient(userID, conn, g.newLimiter())
	if err := g.Connect(c.ctx, c); err != nil {
		g.logger.Error("subscribe new connection failed",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscription failed"),
			time.Now().Add(WriteWait))
		_ = conn.Close()
		c.close()
		return
	}

	go c.writePump()
	go c.readPump(g)
}

// Connect registers an identified connection and subscribes it to every
// chat the user belongs to.
func (g *Gateway) Connect(ctx context.Context, c *Client) error {
	g.hub.Register(c)

	chats, err := g.members.ChatsOf(ctx, c.userID)
	if err != nil {
		g.hub.Remove(c)
		return fmt.Errorf("list chats of user: %w", err)
	}
	for _, chat := range chats {
		g.hub.Join(chat.ID, c)
	}

	g.logger.Info("websocket connected",
		zap.String("client_id", c.id),
		zap.String("user_id", c.userID.String()),
		zap.Int("chats", len(chats)),
	)
	return nil
}

// Disconnect forgets the connection. Memberships are untouched: closing a
// tab is not leaving a chat.
func (g *Gateway) Disconnect(c *Client) {
	c.close()
	groups := g.hub.Remove(c)
	if c.conn != nil {
		_ = c.conn.Close()
	}
	g.logger.Info("websocket disconnected",
		zap.String("client_id", c.id),
		zap.String("user_id", c.userID.String()),
		zap.Int("groups", groups),
	)
}

// HandleEvent processes one inbound frame. Anything it cannot act on is
// dropped without a reply, so a non-member learns nothing about a chat.
func (g *Gateway) HandleEvent(ctx context.Context, c *Client, data []byte) {
	var evt InboundEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		g.logger.Debug("malformed frame", zap.String("client_id", c.id), zap.Error(err))
		return
	}
	chatID, err := uuid.Parse(evt.ChatID)
	if err != nil {
		g.logger.Debug("frame with bad chat id", zap.String("client_id", c.id), zap.String("type", string(evt.Type)))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, eventTimeout)
	defer cancel()

	switch evt.Type {
	case EventJoin:
		g.handleJoin(ctx, c, chatID)
	case EventSend:
		g.handleSend(ctx, c, chatID, evt.Content)
	case EventLeave:
		g.handleLeave(ctx, c, chatID)
	default:
		g.logger.Debug("unknown frame type", zap.String("client_id", c.id), zap.String("type", string(evt.Type)))
	}
}

func (g *Gateway) handleJoin(ctx context.Context, c *Client, chatID uuid.UUID) {
	ok, err := g.members.IsMember(ctx, chatID, c.userID)
	if err != nil {
		g.logger.Error("membership check failed", zap.String("chat_id", chatID.String()), zap.Error(err))
		return
	}
	if !ok {
		return
	}
	g.hub.Join(chatID, c)
}

func (g *Gateway) handleSend(ctx context.Context, c *Client, chatID uuid.UUID, content string) {
	if !c.limiter.Allow() {
		g.logger.Warn("send rate exceeded, frame dropped",
			zap.String("client_id", c.id),
			zap.String("user_id", c.userID.String()),
		)
		return
	}

	view, err := g.messages.Send(ctx, chatID, c.userID, content)
	if err != nil {
		if isQuietError(err) {
			g.logger.Debug("send rejected", zap.String("chat_id", chatID.String()), zap.Error(err))
			return
		}
		g.logger.Error("persist message failed", zap.String("chat_id", chatID.String()), zap.Error(err))
		return
	}

	if err := g.Emit(ctx, chatID, EventReceiveMessage, view); err != nil {
		g.logger.Error("publish message failed",
			zap.String("chat_id", chatID.String()),
			zap.Int64("message_id", view.ID),
			zap.Error(err),
		)
	}
}

// handleLeave unsubscribes every socket of the user, not just c: once the
// membership is gone no tab of theirs may keep receiving the chat.
func (g *Gateway) handleLeave(ctx context.Context, c *Client, chatID uuid.UUID) {
	if _, err := g.members.Leave(ctx, chatID, c.userID); err != nil {
		g.logger.Error("leave failed", zap.String("chat_id", chatID.String()), zap.Error(err))
	}
	g.control(ctx, Control{Op: ControlDetachUser, ChatID: chatID, UserID: c.userID})
}

func isQuietError(err error) bool {
	return errors.Is(err, service.ErrForbidden) ||
		errors.Is(err, service.ErrNotFound) ||
		errors.Is(err, service.ErrValidation)
}

// Emit publishes an event to every connection subscribed to chatID, on
// this instance and, with a shared fanout, on every other one.
func (g *Gateway) Emit(ctx context.Context, chatID uuid.UUID, eventType EventType, data any) error {
	frame, err := encodeEvent(eventType, data)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", eventType, err)
	}
	return g.fanout.Publish(ctx, chatID, frame)
}

// control publishes a membership change to every instance. If the fanout
// cannot carry it, this instance still applies it so a local leave is
// never lost.
func (g *Gateway) control(ctx context.Context, ctl Control) {
	if err := g.fanout.Control(ctx, ctl); err != nil {
		g.logger.Error("publish membership change failed, applied locally only",
			zap.String("op", string(ctl.Op)),
			zap.String("chat_id", ctl.ChatID.String()),
			zap.Error(err),
		)
		g.hub.Apply(ctl)
	}
}

// AttachMember subscribes the user's open connections, on every instance,
// to chatID after a REST join.
func (g *Gateway) AttachMember(ctx context.Context, chatID, userID uuid.UUID) {
	g.control(ctx, Control{Op: ControlAttachUser, ChatID: chatID, UserID: userID})
}

// DetachMember is the REST leave counterpart of AttachMember.
func (g *Gateway) DetachMember(ctx context.Context, chatID, userID uuid.UUID) {
	g.control(ctx, Control{Op: ControlDetachUser, ChatID: chatID, UserID: userID})
}

// AttachChat subscribes the open connections of every member of a newly
// created chat, including the auto-enrolled creators.
func (g *Gateway) AttachChat(ctx context.Context, chatID uuid.UUID) error {
	members, err := g.members.MembersOf(ctx, chatID)
	if err != nil {
		return fmt.Errorf("list members of chat: %w", err)
	}
	for _, m := range members {
		g.control(ctx, Control{Op: ControlAttachUser, ChatID: chatID, UserID: m.UserID})
	}
	return nil
}

// DetachChat drops the group of a deleted chat everywhere.
func (g *Gateway) DetachChat(ctx context.Context, chatID uuid.UUID) {
	g.control(ctx, Control{Op: ControlDropGroup, ChatID: chatID})
}
