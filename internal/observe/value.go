// Package observe holds publish-on-change values. A subscriber receives the
// current value as soon as it subscribes and every later change after that.
// Subscriber channels are conflated: when a consumer falls behind, the oldest
// pending value is discarded so the newest one is always delivered.
package observe

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Observable is the read side of a Value.
type Observable[T any] interface {
	Get() T
	Subscribe(bufferSize int) (<-chan T, *Subscription)
}

// Value is safe for concurrent use. Values handed out by Get and over
// subscription channels are shared and must be treated as read-only.
type Value[T any] struct {
	name    string
	equal   func(a, b T) bool
	metrics *Metrics

	mu      sync.Mutex
	current T
	subs    map[uuid.UUID]chan T
	closed  bool
}

// Subscription detaches a channel subscriber from its Value.
type Subscription struct {
	id     uuid.UUID
	cancel func()
	once   sync.Once
}

// New creates a Value. A nil equal publishes on every Set; metrics may be nil.
func New[T any](name string, initial T, equal func(a, b T) bool, metrics *Metrics) *Value[T] {
	return &Value[T]{
		name:    name,
		equal:   equal,
		metrics: metrics,
		current: initial,
		subs:    make(map[uuid.UUID]chan T),
	}
}

// NewComparable creates a Value that only publishes when the new value differs.
func NewComparable[T comparable](name string, initial T, metrics *Metrics) *Value[T] {
	return New(name, initial, func(a, b T) bool { return a == b }, metrics)
}

func (v *Value[T]) Name() string {
	return v.name
}

func (v *Value[T]) Get() T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current
}

// Set stores next and pushes it to subscribers. It reports whether the value
// changed.
func (v *Value[T]) Set(next T) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return false
	}
	if v.equal != nil && v.equal(v.current, next) {
		return false
	}

	v.current = next
	for id, ch := range v.subs {
		v.deliver(id, ch, next)
	}
	v.metrics.IncrementUpdates(v.name)
	return true
}

// Subscribe returns a channel primed with the current value. bufferSize is
// clamped to at least one.
func (v *Value[T]) Subscribe(bufferSize int) (<-chan T, *Subscription) {
	if bufferSize < 1 {
		bufferSize = 1
	}
	ch := make(chan T, bufferSize)
	id := uuid.New()

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		close(ch)
		return ch, &Subscription{id: id, cancel: func() {}}
	}

	ch <- v.current
	v.subs[id] = ch

	return ch, &Subscription{
		id: id,
		cancel: func() {
			v.mu.Lock()
			defer v.mu.Unlock()
			if sub, ok := v.subs[id]; ok {
				delete(v.subs, id)
				close(sub)
			}
		},
	}
}

func (v *Value[T]) SubscriberCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.subs)
}

// Close closes every subscriber channel. Later Sets are ignored.
func (v *Value[T]) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return
	}
	v.closed = true
	for id, ch := range v.subs {
		close(ch)
		delete(v.subs, id)
	}
}

// deliver must be called with v.mu held.
func (v *Value[T]) deliver(id uuid.UUID, ch chan T, next T) {
	select {
	case ch <- next:
		return
	default:
	}

	select {
	case <-ch:
		v.metrics.IncrementDropped(v.name)
		slog.Debug("conflated observable update",
			"observable", v.name,
			"subscriber_id", id,
		)
	default:
	}

	select {
	case ch <- next:
	default:
		v.metrics.IncrementDropped(v.name)
	}
}

// Unsubscribe closes the subscription channel. Safe to call multiple times.
func (s *Subscription) Unsubscribe() {
	s.once.Do(s.cancel)
}
