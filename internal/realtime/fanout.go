package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Fanout carries encoded frames to the hubs that hold a chat's connections.
type Fanout interface {
	Publish(ctx context.Context, chatID uuid.UUID, frame []byte) error
	// Control applies a membership change to the hubs of every instance.
	Control(ctx context.Context, ctl Control) error
	// Run blocks until ctx is done. Implementations without background
	// work return immediately.
	Run(ctx context.Context) error
}

// LocalFanout delivers straight to this process's hub. It is enough when a
// single instance serves every connection.
type LocalFanout struct {
	hub *Hub
}

func NewLocalFanout(hub *Hub) *LocalFanout {
	return &LocalFanout{hub: hub}
}

func (f *LocalFanout) Publish(_ context.Context, chatID uuid.UUID, frame []byte) error {
	f.hub.Broadcast(chatID, frame)
	return nil
}

func (f *LocalFanout) Control(_ context.Context, ctl Control) error {
	if !f.hub.Apply(ctl) {
		return fmt.Errorf("unknown control op %q", ctl.Op)
	}
	return nil
}

func (f *LocalFanout) Run(context.Context) error {
	return nil
}

// ChannelPrefix namespaces the Redis channels, one per chat. Membership
// changes travel on ControlPrefix channels so they never reach a client.
const (
	ChannelPrefix = "coursechat:chat:"
	ControlPrefix = "coursechat:control:"
)

// RedisFanout shares chat groups across instances. Publish goes to Redis
// only; every instance, the publishing one included, receives the frame
// through its pattern subscription and hands it to its own hub.
type RedisFanout struct {
	client *redis.Client
	hub    *Hub
	logger *zap.Logger
	ready  chan struct{}
}

func NewRedisFanout(client *redis.Client, hub *Hub, logger *zap.Logger) *RedisFanout {
	return &RedisFanout{
		client: client,
		hub:    hub,
		logger: logger.Named("fanout"),
		ready:  make(chan struct{}),
	}
}

func channelFor(chatID uuid.UUID) string {
	return ChannelPrefix + chatID.String()
}

func (f *RedisFanout) Publish(ctx context.Context, chatID uuid.UUID, frame []byte) error {
	if err := f.client.Publish(ctx, channelFor(chatID), frame).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Control goes through Redis like a frame. Both share the subscription
// connection, so a detach published before a message is applied first on
// every instance.
func (f *RedisFanout) Control(ctx context.Context, ctl Control) error {
	payload, err := json.Marshal(ctl)
	if err != nil {
		return fmt.Errorf("encode control: %w", err)
	}
	if err := f.client.Publish(ctx, ControlPrefix+ctl.ChatID.String(), payload).Err(); err != nil {
		return fmt.Errorf("redis publish control: %w", err)
	}
	return nil
}

// Ready is closed once the subscription is confirmed by Redis. Frames
// published before that are not seen by this instance.
func (f *RedisFanout) Ready() <-chan struct{} {
	return f.ready
}

func (f *RedisFanout) Run(ctx context.Context) error {
	patterns := []string{ChannelPrefix + "*", ControlPrefix + "*"}
	sub := f.client.PSubscribe(ctx, patterns...)
	defer sub.Close()

	// One confirmation per pattern.
	for range patterns {
		if _, err := sub.Receive(ctx); err != nil {
			return fmt.Errorf("redis psubscribe: %w", err)
		}
	}
	close(f.ready)
	f.logger.Info("subscribed to chat channels", zap.Strings("patterns", patterns))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return errors.New("redis subscription closed")
			}
			f.dispatch(msg)
		}
	}
}

func (f *RedisFanout) dispatch(msg *redis.Message) {
	if strings.HasPrefix(msg.Channel, ControlPrefix) {
		var ctl Control
		if err := json.Unmarshal([]byte(msg.Payload), &ctl); err != nil || !f.hub.Apply(ctl) {
			f.logger.Warn("bad control message", zap.String("channel", msg.Channel))
		}
		return
	}

	chatID, err := uuid.Parse(strings.TrimPrefix(msg.Channel, ChannelPrefix))
	if err != nil {
		f.logger.Warn("frame on unexpected channel", zap.String("channel", msg.Channel))
		return
	}
	f.hub.Broadcast(chatID, []byte(msg.Payload))
}
