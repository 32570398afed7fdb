// Package events carries registry change notifications between the portal
// core and whoever renders it. Delivery is best-effort: a subscriber that
// misses an event stays stale until its next read.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Type string

const (
	CityCreated        Type = "city.created"
	CityDeleted        Type = "city.deleted"
	RegistrySeeded     Type = "registry.seeded"
	PermissionsUpdated Type = "permissions.updated"
)

type Event struct {
	Type     Type      `json:"type"`
	CityCode string    `json:"cityCode,omitempty"`
	CityName string    `json:"cityName,omitempty"`
	At       time.Time `json:"at"`
	// Origin is empty for events raised in this process and names the
	// remote instance for events relayed in.
	Origin string `json:"origin,omitempty"`
}

func (e Event) Local() bool {
	return e.Origin == ""
}

// Publisher is what mutators depend on to announce a change.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]func(Event)
	log    zerolog.Logger
}

func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		subs: make(map[int]func(Event)),
		log:  log,
	}
}

// OnRegistryChanged registers fn for every published event and returns a
// function that removes it again.
func (b *Bus) OnRegistryChanged(fn func(Event)) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Publish delivers event to every current subscriber on the caller's goroutine.
func (b *Bus) Publish(_ context.Context, event Event) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	b.mu.RLock()
	handlers := make([]func(Event), 0, len(b.subs))
	for _, fn := range b.subs {
		handlers = append(handlers, fn)
	}
	b.mu.RUnlock()

	for _, fn := range handlers {
		b.deliver(fn, event)
	}
}

func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *Bus) deliver(fn func(Event), event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().
				Interface("panic", r).
				Str("event", string(event.Type)).
				Msg("event subscriber panicked")
		}
	}()
	fn(event)
}
