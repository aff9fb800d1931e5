// Package events fans session changes out to SSE and websocket clients.
package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const subscriberBufSize = 256

// Event types published by the session layer.
const (
	TypeActiveChanged     = "active_changed"
	TypeNavigationChanged = "navigation_changed"
	TypeTabsChanged       = "tabs_changed"
	TypeLoading           = "loading"
	TypeTransport         = "transport"
)

// Event is one change notification.
type Event struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"`
	TabID   int       `json:"tab_id,omitempty"`
	Time    time.Time `json:"time"`
	Payload any       `json:"payload,omitempty"`
}

// New stamps an event with a fresh id and the current time.
func New(typ string, tabID int, payload any) Event {
	return Event{
		ID:      uuid.NewString(),
		Type:    typ,
		TabID:   tabID,
		Time:    time.Now().UTC(),
		Payload: payload,
	}
}

// Broker fans out events to all subscribers.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[int64]chan Event
	nextID      atomic.Int64
	onCount     func(delta int)
}

// NewBroker creates a broker. onCount, if non-nil, is told about every
// subscribe (+1) and unsubscribe (-1).
func NewBroker(onCount func(delta int)) *Broker {
	return &Broker{
		subscribers: make(map[int64]chan Event),
		onCount:     onCount,
	}
}

// Subscribe registers a new client. The channel is buffered; slow consumers
// have events dropped.
func (b *Broker) Subscribe() (int64, <-chan Event) {
	id := b.nextID.Add(1)
	ch := make(chan Event, subscriberBufSize)
	b.mu.Lock()
	b.subscribers[id] = ch
	b.mu.Unlock()
	if b.onCount != nil {
		b.onCount(1)
	}
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broker) Unsubscribe(id int64) {
	b.mu.Lock()
	ch, ok := b.subscribers[id]
	if ok {
		delete(b.subscribers, id)
		close(ch)
	}
	b.mu.Unlock()
	if ok && b.onCount != nil {
		b.onCount(-1)
	}
}

// Publish sends an event to all subscribers without blocking.
func (b *Broker) Publish(evt Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- evt:
		default:
		}
	}
}

// ClientCount returns the number of active subscribers.
func (b *Broker) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
