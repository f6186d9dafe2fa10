package utils

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_DispatchesToSubscribers(t *testing.T) {
	bus := NewEventBus()
	got := make(chan Event, 2)
	bus.Subscribe(EventBoardCreated, func(_ context.Context, e Event) { got <- e })
	bus.Subscribe(EventItemCreated, func(_ context.Context, e Event) { t.Errorf("unexpected event %s", e.Event) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go bus.Run(ctx)

	require.True(t, bus.Publish(EventBoardCreated, 7, map[string]uint64{"board_id": 1}))

	select {
	case e := <-got:
		assert.Equal(t, EventBoardCreated, e.Event)
		assert.Equal(t, uint64(7), e.UserID)
	case <-time.After(time.Second):
		t.Fatal("event was not dispatched")
	}
}

func TestEventBus_PublishDropsWhenFull(t *testing.T) {
	bus := NewEventBus()
	for i := 0; i < cap(bus.events); i++ {
		require.True(t, bus.Publish(EventMessageSent, 1, nil))
	}
	assert.False(t, bus.Publish(EventMessageSent, 1, nil))
}
