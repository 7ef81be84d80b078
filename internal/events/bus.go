// Package events provides a non-blocking publish/subscribe bus used to fan
// install progress and log lines out to the presentation layer.
package events

import (
	"sync"
	"time"
)

// Type names one kind of event.
type Type string

const (
	// TypeItemStatus is published when a queue item changes status.
	TypeItemStatus Type = "item_status"
	// TypeSessionStatus is published when the install session changes status.
	TypeSessionStatus Type = "session_status"
	// TypeLogLine is published for every install output line.
	TypeLogLine Type = "log_line"
	// TypeReconcile is published when reconciliation flips item statuses.
	TypeReconcile Type = "reconcile"
)

// Event is one bus message. ItemID and Line are set where the type calls
// for them; Status carries the new item or session status as a string.
type Event struct {
	Type      Type
	Timestamp time.Time
	ItemID    string
	Status    string
	Line      string
}

// Bus delivers events to subscribers over buffered channels. Publish never
// blocks: when a subscriber's channel is full the event is dropped for that
// subscriber.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[Type][]chan Event
	bufferSize  int
	closed      bool
}

// NewBus creates a bus with the given per-subscriber buffer size.
func NewBus(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Bus{
		subscribers: make(map[Type][]chan Event),
		bufferSize:  bufferSize,
	}
}

// Subscribe registers fn for events of the given type and returns an
// unsubscribe function. fn is invoked from a dedicated goroutine, so slow
// subscribers delay only themselves.
func (b *Bus) Subscribe(t Type, fn func(Event)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, b.bufferSize)
	b.subscribers[t] = append(b.subscribers[t], ch)

	go func() {
		for ev := range ch {
			fn(ev)
		}
	}()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		subs := b.subscribers[t]
		for i, sub := range subs {
			if sub == ch {
				b.subscribers[t] = append(subs[:i], subs[i+1:]...)
				close(ch)
				break
			}
		}
	}
}

// Publish sends ev to every subscriber of its type without blocking.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	for _, ch := range b.subscribers[ev.Type] {
		select {
		case ch <- ev:
		default:
			// Subscriber buffer full; drop rather than stall the engine.
		}
	}
}

// Close shuts every subscriber channel and rejects further publishes.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for t, subs := range b.subscribers {
		for _, ch := range subs {
			close(ch)
		}
		delete(b.subscribers, t)
	}
}
