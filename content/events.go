package content

import (
	"sync"
	"time"
)

// Op is the kind of mutation an Event reports.
type Op string

const (
	OpCreate  Op = "create"
	OpUpdate  Op = "update"
	OpDelete  Op = "delete"
	OpReplace Op = "replace" // snapshot import, homepage save
)

// Event announces a successful mutation. Origin is empty for local events
// and carries the publishing instance id for events received from a relay.
type Event struct {
	Kind   Kind      `json:"kind"`
	Op     Op        `json:"op"`
	ID     string    `json:"id,omitempty"`
	At     time.Time `json:"at"`
	Origin string    `json:"origin,omitempty"`
}

// Local reports whether the event was raised by this process.
func (e Event) Local() bool { return e.Origin == "" }

type subscriber struct {
	id int
	fn func(Event)
}

// Bus delivers events synchronously to subscribers in subscription order.
// It is safe for concurrent use.
type Bus struct {
	mu     sync.RWMutex
	subs   []subscriber
	nextID int
	log    Logger
}

// NewBus returns an empty Bus. Subscriber panics are reported to log.
func NewBus(log Logger) *Bus {
	if log == nil {
		log = nopLogger{}
	}
	return &Bus{log: log}
}

// SetLogger replaces the logger used to report subscriber panics.
func (b *Bus) SetLogger(log Logger) {
	b.mu.Lock()
	b.log = log
	b.mu.Unlock()
}

// Subscribe registers fn and returns a function that removes it again.
// Calling the returned function more than once is harmless.
func (b *Bus) Subscribe(fn func(Event)) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscriber{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, s := range b.subs {
				if s.id == id {
					b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Publish delivers e to every current subscriber. A zero At is set to now.
func (b *Bus) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	b.mu.RLock()
	subs := make([]subscriber, len(b.subs))
	copy(subs, b.subs)
	log := b.log
	b.mu.RUnlock()

	for _, s := range subs {
		deliver(s.fn, e, log)
	}
}

func deliver(fn func(Event), e Event, log Logger) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("event subscriber panicked on %s %s: %v", e.Op, e.Kind, r)
		}
	}()
	fn(e)
}
