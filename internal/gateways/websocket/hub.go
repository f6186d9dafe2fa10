package websocket

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"taskboard/internal/access"
	"taskboard/internal/apperr"
	"taskboard/internal/metrics"
)

const sendBufferSize = 64

// EventRemoved tells a client it no longer belongs to a room.
const EventRemoved = "Removed"

// Frame is the JSON envelope of every server-to-client message.
type Frame struct {
	Event string      `json:"event"`
	Room  string      `json:"room,omitempty"`
	Data  interface{} `json:"data,omitempty"`
}

// RoomAuthorizer resolves a user's role on the entity behind a room.
type RoomAuthorizer interface {
	Resolve(ctx context.Context, userID, entityID uint64, kind access.EntityKind) access.Role
}

type subscription struct {
	client *Client
	room   string
	join   bool
}

type envelope struct {
	room    string
	event   string
	payload []byte
}

type direct struct {
	client  *Client
	payload []byte
}

// eviction takes access away from open connections. A zero userID matches
// every client in room; an empty room closes the user's connections.
type eviction struct {
	UserID uint64 `json:"userId"`
	Room   string `json:"room"`
}

// Hub owns room membership. All membership changes and deliveries go through
// the Run loop, so deliveries to a room happen in the order they were emitted
// and a client removed by Unregister receives nothing afterwards.
type Hub struct {
	clients    map[*Client]bool
	rooms      map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	subs       chan subscription
	broadcast  chan envelope
	direct     chan direct
	evictions  chan eviction
	done       chan struct{}

	authz   RoomAuthorizer
	bridge  *Bridge
	chat    ChatSender
	metrics *metrics.Metrics
	logger  *zap.SugaredLogger
}

func NewHub(logger *zap.Logger, authz RoomAuthorizer, m *metrics.Metrics) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		subs:       make(chan subscription),
		broadcast:  make(chan envelope),
		direct:     make(chan direct),
		evictions:  make(chan eviction),
		done:       make(chan struct{}),
		authz:      authz,
		metrics:    m,
		logger:     logger.Sugar(),
	}
}

// SetBridge enables cross-instance fan-out.
func (h *Hub) SetBridge(b *Bridge) { h.bridge = b }

// SetChatSender enables the "send" action on connections.
func (h *Hub) SetChatSender(c ChatSender) { h.chat = c }

func generateClientID() string {
	bytes := make([]byte, 6)
	if _, err := rand.Read(bytes); err != nil {
		return "xxxxx"
	}
	return base64.URLEncoding.EncodeToString(bytes)
}

func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("WebSocket Hub started")
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.remove(c)
			}
			h.logger.Info("WebSocket Hub stopped")
			return

		case client := <-h.register:
			h.clients[client] = true
			h.metrics.WSConnectionsActive.Inc()
			h.add(client, access.UserRoom(client.UserID))
			h.logger.Infow("Client connected",
				"client_id", client.ID,
				"user_id", client.UserID,
				"clients_count", len(h.clients),
			)

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.remove(client)
				h.logger.Infow("Client disconnected",
					"client_id", client.ID,
					"user_id", client.UserID,
					"clients_count", len(h.clients),
				)
			}

		case s := <-h.subs:
			if _, ok := h.clients[s.client]; !ok {
				continue
			}
			if s.join {
				h.add(s.client, s.room)
				h.deliver(s.client, mustMarshal(Frame{Event: "Joined", Room: s.room}))
			} else {
				h.drop(s.client, s.room)
				h.deliver(s.client, mustMarshal(Frame{Event: "Left", Room: s.room}))
			}

		case e := <-h.broadcast:
			for client := range h.rooms[e.room] {
				h.deliver(client, e.payload)
			}
			h.metrics.WSBroadcastsTotal.WithLabelValues(e.event).Inc()

		case d := <-h.direct:
			if _, ok := h.clients[d.client]; ok {
				h.deliver(d.client, d.payload)
			}

		case ev := <-h.evictions:
			h.evict(ev)
		}
	}
}

func (h *Hub) evict(ev eviction) {
	if ev.Room == "" {
		for c := range h.clients {
			if c.UserID == ev.UserID {
				h.remove(c)
				h.logger.Infow("Client disconnected by server", "client_id", c.ID, "user_id", c.UserID)
			}
		}
		return
	}

	for c := range h.rooms[ev.Room] {
		if ev.UserID != 0 && c.UserID != ev.UserID {
			continue
		}
		h.drop(c, ev.Room)
		h.deliver(c, mustMarshal(Frame{Event: EventRemoved, Room: ev.Room}))
	}
}

func (h *Hub) add(c *Client, room string) {
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	c.rooms[room] = struct{}{}
}

func (h *Hub) drop(c *Client, room string) {
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(c.rooms, room)
}

func (h *Hub) remove(c *Client) {
	for room := range c.rooms {
		h.drop(c, room)
	}
	delete(h.clients, c)
	close(c.send)
	h.metrics.WSConnectionsActive.Dec()
}

// deliver never blocks the loop: a client that cannot keep up is disconnected
// rather than silently skipping a message.
func (h *Hub) deliver(c *Client, payload []byte) {
	select {
	case c.send <- payload:
	default:
		h.logger.Warnw("Client send buffer full, disconnecting",
			"client_id", c.ID,
			"user_id", c.UserID,
		)
		h.metrics.WSDroppedClients.Inc()
		h.remove(c)
	}
}

func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		close(c.send)
	}
}

// Unregister removes c from every room. It returns once the hub has taken the
// request, so any broadcast emitted afterwards no longer reaches c.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Join adds c to the room of an entity after checking the user's membership.
func (h *Hub) Join(ctx context.Context, c *Client, kind access.EntityKind, entityID uint64) error {
	if role := h.authz.Resolve(ctx, c.UserID, entityID, kind); role == access.RoleNone {
		return apperr.Forbidden(fmt.Sprintf("no access to %s %d", kind, entityID))
	}
	h.subscribe(subscription{client: c, room: access.Room(kind, entityID), join: true})
	return nil
}

func (h *Hub) Leave(c *Client, kind access.EntityKind, entityID uint64) {
	h.subscribe(subscription{client: c, room: access.Room(kind, entityID), join: false})
}

func (h *Hub) subscribe(s subscription) {
	select {
	case h.subs <- s:
	case <-h.done:
	}
}

// Broadcast sends event to every client in room, on this instance and, when
// a bridge is configured, on every other instance.
func (h *Hub) Broadcast(ctx context.Context, room, event string, data interface{}) error {
	payload, err := json.Marshal(Frame{Event: event, Room: room, Data: data})
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event, err)
	}
	h.deliverLocal(room, event, payload)

	if h.bridge != nil {
		if err := h.bridge.Publish(ctx, room, event, payload); err != nil {
			h.logger.Warnw("Failed to publish event to bridge",
				"room", room,
				"event", event,
				"error", err,
			)
		}
	}
	return nil
}

// Evict removes userID's connections from room on every instance. Later
// broadcasts to room no longer reach them.
func (h *Hub) Evict(ctx context.Context, userID uint64, room string) error {
	return h.sendEviction(ctx, eviction{UserID: userID, Room: room})
}

// EvictRoom empties room, e.g. when its board or team is deleted.
func (h *Hub) EvictRoom(ctx context.Context, room string) error {
	return h.sendEviction(ctx, eviction{Room: room})
}

// Disconnect closes every connection of userID on every instance.
func (h *Hub) Disconnect(ctx context.Context, userID uint64) error {
	return h.sendEviction(ctx, eviction{UserID: userID})
}

func (h *Hub) sendEviction(ctx context.Context, ev eviction) error {
	h.evictLocal(ev)
	if h.bridge == nil {
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return h.bridge.Publish(ctx, ev.Room, evictEvent, payload)
}

func (h *Hub) evictLocal(ev eviction) {
	select {
	case h.evictions <- ev:
	case <-h.done:
	}
}

// receive handles frames relayed by the bridge from other instances.
func (h *Hub) receive(room, event string, payload []byte) {
	if event != evictEvent {
		h.deliverLocal(room, event, payload)
		return
	}
	var ev eviction
	if err := json.Unmarshal(payload, &ev); err != nil {
		h.logger.Warnw("Bridge: invalid eviction", "error", err)
		return
	}
	h.evictLocal(ev)
}

func (h *Hub) deliverLocal(room, event string, payload []byte) {
	select {
	case h.broadcast <- envelope{room: room, event: event, payload: payload}:
	case <-h.done:
	}
}

// Reply sends a frame to a single client only.
func (h *Hub) Reply(c *Client, f Frame) {
	select {
	case h.direct <- direct{client: c, payload: mustMarshal(f)}:
	case <-h.done:
	}
}

func mustMarshal(f Frame) []byte {
	data, err := json.Marshal(f)
	if err != nil {
		data, _ = json.Marshal(Frame{Event: "Error", Data: "failed to encode frame"})
	}
	return data
}
