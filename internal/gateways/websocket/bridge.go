package websocket

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const bridgeChannel = "realtime:events"

// evictEvent marks bridge frames that carry an eviction instead of a client
// frame.
const evictEvent = "hub:evict"

type bridgeMessage struct {
	Origin  string          `json:"origin"`
	Room    string          `json:"room"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Bridge relays broadcasts between hub instances over Redis pub/sub. Frames
// published by this instance are ignored on receipt since they were already
// delivered locally.
type Bridge struct {
	client  *redis.Client
	channel string
	origin  string
	logger  *zap.SugaredLogger
}

func NewBridge(client *redis.Client, logger *zap.Logger) *Bridge {
	return &Bridge{
		client:  client,
		channel: bridgeChannel,
		origin:  uuid.NewString(),
		logger:  logger.Sugar(),
	}
}

func (b *Bridge) Publish(ctx context.Context, room, event string, payload []byte) error {
	data, err := json.Marshal(bridgeMessage{Origin: b.origin, Room: room, Event: event, Payload: payload})
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel, data).Err()
}

// Listen subscribes to the channel and calls deliver for every frame from
// another instance until ctx is cancelled. It returns once the subscription
// is confirmed.
func (b *Bridge) Listen(ctx context.Context, deliver func(room, event string, payload []byte)) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", b.channel, err)
	}

	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var m bridgeMessage
				if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
					b.logger.Warnw("Bridge: invalid message", "error", err)
					continue
				}
				if m.Origin == b.origin {
					continue
				}
				deliver(m.Room, m.Event, m.Payload)
			}
		}
	}()

	b.logger.Infow("Realtime bridge subscribed", "channel", b.channel, "origin", b.origin)
	return nil
}

// Attach wires the bridge into h: local broadcasts are published and remote
// frames are delivered to local rooms.
func (b *Bridge) Attach(ctx context.Context, h *Hub) error {
	h.SetBridge(b)
	return b.Listen(ctx, h.receive)
}
