package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"taskboard/internal/access"
	"taskboard/internal/apperr"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 * 1024
)

// ClientConn is the part of *websocket.Conn a client uses.
type ClientConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// ChatSender persists a chat message and broadcasts it to the room.
type ChatSender interface {
	Send(ctx context.Context, userID uint64, kind access.EntityKind, entityID uint64, content string) (interface{}, error)
}

type Client struct {
	hub    *Hub
	conn   ClientConn
	ID     string
	UserID uint64

	send chan []byte
	// rooms is owned by the hub's Run loop.
	rooms map[string]struct{}
}

func NewClient(hub *Hub, conn ClientConn, userID uint64) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		ID:     generateClientID(),
		UserID: userID,
		send:   make(chan []byte, sendBufferSize),
		rooms:  make(map[string]struct{}),
	}
}

type inbound struct {
	Action  string `json:"action"`
	Kind    string `json:"kind"`
	ID      uint64 `json:"id"`
	Content string `json:"content"`
}

// readPump handles client actions until the connection fails.
func (c *Client) readPump(ctx context.Context) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debugw("WebSocket read failed", "client_id", c.ID, "error", err)
			}
			return
		}

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			c.hub.Reply(c, Frame{Event: "Error", Data: "invalid message"})
			continue
		}
		c.handle(ctx, msg)
	}
}

func (c *Client) handle(ctx context.Context, msg inbound) {
	kind, ok := access.ParseEntityKind(msg.Kind)
	if !ok || msg.ID == 0 {
		c.hub.Reply(c, Frame{Event: "Error", Data: "kind must be board or team and id is required"})
		return
	}

	switch msg.Action {
	case "join":
		if err := c.hub.Join(ctx, c, kind, msg.ID); err != nil {
			c.hub.Reply(c, Frame{Event: "Error", Room: access.Room(kind, msg.ID), Data: "forbidden"})
		}
	case "leave":
		c.hub.Leave(c, kind, msg.ID)
	case "send":
		if c.hub.chat == nil {
			c.hub.Reply(c, Frame{Event: "Error", Data: "chat is not available"})
			return
		}
		if _, err := c.hub.chat.Send(ctx, c.UserID, kind, msg.ID, msg.Content); err != nil {
			reason := "failed to send message"
			if k := apperr.KindOf(err); k == apperr.KindForbidden || k == apperr.KindValidation {
				reason = k.String()
			}
			c.hub.Reply(c, Frame{Event: "Error", Room: access.Room(kind, msg.ID), Data: reason})
		}
	default:
		c.hub.Reply(c, Frame{Event: "Error", Data: "unknown action"})
	}
}

// writePump drains the send buffer to the connection and keeps it alive.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
