package utils

import (
	"context"
	"sync"
)

// Domain events published by services after a successful write.
const (
	EventBoardCreated       = "board_created"
	EventItemCreated        = "item_created"
	EventCommentCreated     = "comment_created"
	EventMessageSent        = "message_sent"
	EventInvitationAccepted = "invitation_accepted"
)

type Event struct {
	Event  string      `json:"event"`
	UserID uint64      `json:"user_id"`
	Data   interface{} `json:"data"`
}

type Handler func(ctx context.Context, event Event)

// EventBus is an in-process, best-effort event queue. Publish never blocks the
// caller; events are dropped when the queue is full.
type EventBus struct {
	subscribers map[string][]Handler
	events      chan Event
	mu          sync.RWMutex
}

func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[string][]Handler),
		events:      make(chan Event, 100),
	}
}

func (eb *EventBus) Publish(event string, userID uint64, data interface{}) bool {
	e := Event{Event: event, UserID: userID, Data: data}
	select {
	case eb.events <- e:
		return true
	default:
		return false
	}
}

func (eb *EventBus) Subscribe(event string, handler Handler) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.subscribers[event] = append(eb.subscribers[event], handler)
}

// Run dispatches queued events to subscribers until ctx is cancelled.
func (eb *EventBus) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-eb.events:
			eb.mu.RLock()
			handlers := append([]Handler(nil), eb.subscribers[e.Event]...)
			eb.mu.RUnlock()
			for _, h := range handlers {
				h(ctx, e)
			}
		}
	}
}
