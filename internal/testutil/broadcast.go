package testutil

import (
	"context"
	"sync"
)

// Broadcast is one event captured by a Recorder.
type Broadcast struct {
	Room  string
	Event string
	Data  interface{}
}

// Eviction is one access revocation captured by a Recorder. A zero UserID
// means the whole room; an empty Room means every connection of the user.
type Eviction struct {
	UserID uint64
	Room   string
}

// Recorder stands in for the realtime hub and records every broadcast and
// eviction.
type Recorder struct {
	mu        sync.Mutex
	events    []Broadcast
	evictions []Eviction
}

func (r *Recorder) Broadcast(_ context.Context, room, event string, data interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Broadcast{Room: room, Event: event, Data: data})
	return nil
}

func (r *Recorder) Events() []Broadcast {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Broadcast(nil), r.events...)
}

// Named returns the recorded broadcasts with the given event name.
func (r *Recorder) Named(event string) []Broadcast {
	var out []Broadcast
	for _, b := range r.Events() {
		if b.Event == event {
			out = append(out, b)
		}
	}
	return out
}

func (r *Recorder) Evict(_ context.Context, userID uint64, room string) error {
	r.evict(Eviction{UserID: userID, Room: room})
	return nil
}

func (r *Recorder) EvictRoom(_ context.Context, room string) error {
	r.evict(Eviction{Room: room})
	return nil
}

func (r *Recorder) Disconnect(_ context.Context, userID uint64) error {
	r.evict(Eviction{UserID: userID})
	return nil
}

func (r *Recorder) evict(e Eviction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evictions = append(r.evictions, e)
}

func (r *Recorder) Evictions() []Eviction {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Eviction(nil), r.evictions...)
}
