package websocket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"taskboard/internal/access"
	"taskboard/internal/apperr"
	"taskboard/internal/metrics"
)

type fakeAuthz map[string]access.Role

func (f fakeAuthz) Resolve(_ context.Context, userID, entityID uint64, kind access.EntityKind) access.Role {
	return f[access.Room(kind, entityID)+"/"+access.UserRoom(userID)]
}

func grant(f fakeAuthz, userID, boardID uint64, role access.Role) {
	f[access.Room(access.KindBoard, boardID)+"/"+access.UserRoom(userID)] = role
}

func startHub(t *testing.T, authz RoomAuthorizer) *Hub {
	t.Helper()
	hub := NewHub(zap.NewNop(), authz, metrics.New(prometheus.NewRegistry()))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func next(t *testing.T, c *Client) Frame {
	t.Helper()
	select {
	case data, ok := <-c.send:
		require.True(t, ok, "client channel closed")
		var f Frame
		require.NoError(t, json.Unmarshal(data, &f))
		return f
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame")
		return Frame{}
	}
}

func joined(t *testing.T, hub *Hub, c *Client, boardID uint64) {
	t.Helper()
	require.NoError(t, hub.Join(context.Background(), c, access.KindBoard, boardID))
	f := next(t, c)
	require.Equal(t, "Joined", f.Event)
}

func TestHub_JoinRequiresMembership(t *testing.T) {
	authz := fakeAuthz{}
	grant(authz, 1, 10, access.RoleViewer)
	hub := startHub(t, authz)

	member := NewClient(hub, nil, 1)
	stranger := NewClient(hub, nil, 2)
	hub.Register(member)
	hub.Register(stranger)

	joined(t, hub, member, 10)
	err := hub.Join(context.Background(), stranger, access.KindBoard, 10)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	require.NoError(t, hub.Broadcast(context.Background(), "board:10", "BoardUpdated", map[string]int{"id": 10}))

	f := next(t, member)
	assert.Equal(t, "BoardUpdated", f.Event)
	assert.Equal(t, "board:10", f.Room)
	assert.Empty(t, stranger.send)
}

func TestHub_PreservesOrderWithinRoom(t *testing.T) {
	authz := fakeAuthz{}
	grant(authz, 1, 10, access.RoleEditor)
	grant(authz, 2, 10, access.RoleViewer)
	hub := startHub(t, authz)

	a := NewClient(hub, nil, 1)
	b := NewClient(hub, nil, 2)
	hub.Register(a)
	hub.Register(b)
	joined(t, hub, a, 10)
	joined(t, hub, b, 10)

	ctx := context.Background()
	require.NoError(t, hub.Broadcast(ctx, "board:10", "ReceiveMessage", "M1"))
	require.NoError(t, hub.Broadcast(ctx, "board:10", "ReceiveMessage", "M2"))

	for _, c := range []*Client{a, b} {
		assert.Equal(t, "M1", next(t, c).Data)
		assert.Equal(t, "M2", next(t, c).Data)
	}
}

func TestHub_NoEventsAfterDisconnect(t *testing.T) {
	authz := fakeAuthz{}
	grant(authz, 1, 10, access.RoleViewer)
	grant(authz, 1, 11, access.RoleViewer)
	hub := startHub(t, authz)

	c := NewClient(hub, nil, 1)
	hub.Register(c)
	joined(t, hub, c, 10)
	joined(t, hub, c, 11)

	hub.Unregister(c)
	require.NoError(t, hub.Broadcast(context.Background(), "board:10", "ItemMoved", nil))
	require.NoError(t, hub.Broadcast(context.Background(), "board:11", "ItemMoved", nil))

	_, ok := <-c.send
	assert.False(t, ok, "send channel must be closed with nothing queued")
}

func TestHub_LeaveStopsDelivery(t *testing.T) {
	authz := fakeAuthz{}
	grant(authz, 1, 10, access.RoleViewer)
	hub := startHub(t, authz)

	c := NewClient(hub, nil, 1)
	hub.Register(c)
	joined(t, hub, c, 10)

	hub.Leave(c, access.KindBoard, 10)
	assert.Equal(t, "Left", next(t, c).Event)

	require.NoError(t, hub.Broadcast(context.Background(), "board:10", "BoardUpdated", nil))
	require.NoError(t, hub.Broadcast(context.Background(), access.UserRoom(1), "InvitationReceived", nil))
	assert.Equal(t, "InvitationReceived", next(t, c).Event, "user room is still joined")
}

func TestHub_SlowClientIsDisconnected(t *testing.T) {
	authz := fakeAuthz{}
	grant(authz, 1, 10, access.RoleViewer)
	hub := startHub(t, authz)

	c := NewClient(hub, nil, 1)
	hub.Register(c)
	joined(t, hub, c, 10)

	for i := 0; i <= sendBufferSize; i++ {
		require.NoError(t, hub.Broadcast(context.Background(), "board:10", "BoardUpdated", i))
	}
	require.Eventually(t, func() bool {
		return promtest.ToFloat64(hub.metrics.WSDroppedClients) == 1
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, sendBufferSize, drain(t, c))
}

// drain counts queued frames until the hub closes c.
func drain(t *testing.T, c *Client) int {
	t.Helper()
	count := 0
	for {
		select {
		case _, ok := <-c.send:
			if !ok {
				return count
			}
			count++
		case <-time.After(time.Second):
			t.Fatal("send channel was not closed")
			return count
		}
	}
}

// quiet fails if c receives anything within a short window.
func quiet(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data, ok := <-c.send:
		if ok {
			t.Fatalf("unexpected frame: %s", data)
		}
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHub_EvictStopsDelivery(t *testing.T) {
	authz := fakeAuthz{}
	grant(authz, 1, 10, access.RoleAdmin)
	grant(authz, 2, 10, access.RoleEditor)
	hub := startHub(t, authz)
	ctx := context.Background()

	owner := NewClient(hub, nil, 1)
	removed := NewClient(hub, nil, 2)
	hub.Register(owner)
	hub.Register(removed)
	joined(t, hub, owner, 10)
	joined(t, hub, removed, 10)

	require.NoError(t, hub.Evict(ctx, 2, "board:10"))
	f := next(t, removed)
	assert.Equal(t, EventRemoved, f.Event)
	assert.Equal(t, "board:10", f.Room)

	require.NoError(t, hub.Broadcast(ctx, "board:10", "ReceiveMessage", "secret after removal"))
	assert.Equal(t, "secret after removal", next(t, owner).Data)
	quiet(t, removed)

	require.NoError(t, hub.Broadcast(ctx, access.UserRoom(2), "InvitationReceived", nil))
	assert.Equal(t, "InvitationReceived", next(t, removed).Event, "connection stays open")
}

func TestHub_EvictRoomEmptiesRoom(t *testing.T) {
	authz := fakeAuthz{}
	grant(authz, 1, 10, access.RoleAdmin)
	grant(authz, 2, 10, access.RoleViewer)
	hub := startHub(t, authz)
	ctx := context.Background()

	a := NewClient(hub, nil, 1)
	b := NewClient(hub, nil, 2)
	hub.Register(a)
	hub.Register(b)
	joined(t, hub, a, 10)
	joined(t, hub, b, 10)

	require.NoError(t, hub.EvictRoom(ctx, "board:10"))
	assert.Equal(t, EventRemoved, next(t, a).Event)
	assert.Equal(t, EventRemoved, next(t, b).Event)

	require.NoError(t, hub.Broadcast(ctx, "board:10", "BoardDeleted", nil))
	quiet(t, a)
	quiet(t, b)
}

func TestHub_DisconnectClosesEveryConnection(t *testing.T) {
	authz := fakeAuthz{}
	grant(authz, 1, 10, access.RoleViewer)
	grant(authz, 2, 10, access.RoleViewer)
	hub := startHub(t, authz)

	first := NewClient(hub, nil, 1)
	second := NewClient(hub, nil, 1)
	other := NewClient(hub, nil, 2)
	for _, c := range []*Client{first, second, other} {
		hub.Register(c)
		joined(t, hub, c, 10)
	}

	require.NoError(t, hub.Disconnect(context.Background(), 1))
	assert.Equal(t, 0, drain(t, first))
	assert.Equal(t, 0, drain(t, second))

	require.NoError(t, hub.Broadcast(context.Background(), "board:10", "BoardUpdated", nil))
	assert.Equal(t, "BoardUpdated", next(t, other).Event)
	assert.Equal(t, float64(1), promtest.ToFloat64(hub.metrics.WSConnectionsActive))
}

func TestBridge_RelaysBetweenHubs(t *testing.T) {
	mr := miniredis.RunT(t)
	authz := fakeAuthz{}
	grant(authz, 1, 10, access.RoleViewer)
	grant(authz, 2, 10, access.RoleViewer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hubA := NewHub(zap.NewNop(), authz, metrics.New(prometheus.NewRegistry()))
	hubB := NewHub(zap.NewNop(), authz, metrics.New(prometheus.NewRegistry()))
	clientA := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	clientB := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer clientA.Close()
	defer clientB.Close()
	require.NoError(t, NewBridge(clientA, zap.NewNop()).Attach(ctx, hubA))
	require.NoError(t, NewBridge(clientB, zap.NewNop()).Attach(ctx, hubB))
	go hubA.Run(ctx)
	go hubB.Run(ctx)

	onA := NewClient(hubA, nil, 1)
	onB := NewClient(hubB, nil, 2)
	hubA.Register(onA)
	hubB.Register(onB)
	joined(t, hubA, onA, 10)
	joined(t, hubB, onB, 10)

	require.NoError(t, hubA.Broadcast(ctx, "board:10", "BoardUpdated", "from-a"))

	assert.Equal(t, "from-a", next(t, onA).Data)
	assert.Equal(t, "from-a", next(t, onB).Data)

	select {
	case <-onA.send:
		t.Fatal("origin instance must not deliver its own frame twice")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBridge_RelaysEvictions(t *testing.T) {
	mr := miniredis.RunT(t)
	authz := fakeAuthz{}
	grant(authz, 2, 10, access.RoleViewer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hubA := NewHub(zap.NewNop(), authz, metrics.New(prometheus.NewRegistry()))
	hubB := NewHub(zap.NewNop(), authz, metrics.New(prometheus.NewRegistry()))
	clientA := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	clientB := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer clientA.Close()
	defer clientB.Close()
	require.NoError(t, NewBridge(clientA, zap.NewNop()).Attach(ctx, hubA))
	require.NoError(t, NewBridge(clientB, zap.NewNop()).Attach(ctx, hubB))
	go hubA.Run(ctx)
	go hubB.Run(ctx)

	onB := NewClient(hubB, nil, 2)
	hubB.Register(onB)
	joined(t, hubB, onB, 10)

	require.NoError(t, hubA.Evict(ctx, 2, "board:10"))
	assert.Equal(t, EventRemoved, next(t, onB).Event)

	require.NoError(t, hubA.Broadcast(ctx, "board:10", "ReceiveMessage", "secret after removal"))
	quiet(t, onB)
}

type fakeAuth map[string]uint64

func (f fakeAuth) Authenticate(_ context.Context, token string) (uint64, error) {
	if id, ok := f[token]; ok {
		return id, nil
	}
	return 0, apperr.Unauthorized("invalid token")
}

type fakeChat struct{ hub *Hub }

func (f fakeChat) Send(ctx context.Context, userID uint64, kind access.EntityKind, entityID uint64, content string) (interface{}, error) {
	msg := map[string]interface{}{"senderId": userID, "content": content}
	return msg, f.hub.Broadcast(ctx, access.Room(kind, entityID), "ReceiveMessage", msg)
}

func TestServeWS_EndToEnd(t *testing.T) {
	gin.SetMode(gin.TestMode)
	authz := fakeAuthz{}
	grant(authz, 1, 10, access.RoleEditor)
	hub := startHub(t, authz)
	hub.SetChatSender(fakeChat{hub: hub})

	engine := gin.New()
	RegisterRoutes(engine, hub, fakeAuth{"good": 1})
	srv := httptest.NewServer(engine)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(wsURL+"?access_token=bad", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 401, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?access_token=good", nil)
	require.NoError(t, err)
	defer conn.Close()

	read := func() Frame {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var f Frame
		require.NoError(t, conn.ReadJSON(&f))
		return f
	}

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"action": "join", "kind": "board", "id": 99}))
	assert.Equal(t, "Error", read().Event)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"action": "join", "kind": "board", "id": 10}))
	assert.Equal(t, "Joined", read().Event)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"action": "send", "kind": "board", "id": 10, "content": "hi"}))
	f := read()
	assert.Equal(t, "ReceiveMessage", f.Event)
	assert.Equal(t, "board:10", f.Room)
}
