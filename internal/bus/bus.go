// Package bus provides the named publish/subscribe channels the capture
// runtime is built on. Independently-constructed components rendezvous on a
// Subject by name through a shared Registry; delivery is synchronous fan-out
// on the publisher's goroutine.
package bus

import (
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/rfnet/nfctap/internal/logging"
)

// Registry resolves named subjects. Repeated lookups with the same name and
// element type yield the same Subject instance. A single Registry is created
// at process start and passed to every component that needs bus access.
type Registry struct {
	mu       sync.Mutex
	subjects map[string]any
	log      *logging.Logger
}

// NewRegistry creates an empty registry. Subscriber faults on every subject
// resolved through it are reported on the given logger.
func NewRegistry(log *logging.Logger) *Registry {
	if log == nil {
		log = logging.NopLogger()
	}
	return &Registry{
		subjects: make(map[string]any),
		log:      log,
	}
}

// Named returns the subject registered under name, creating it on first
// lookup. A lookup whose element type differs from the type the name was
// first registered with returns an error.
func Named[T any](r *Registry, name string) (*Subject[T], error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.subjects[name]; ok {
		subject, ok := existing.(*Subject[T])
		if !ok {
			return nil, fmt.Errorf("subject %q already registered with element type %T", name, existing)
		}
		return subject, nil
	}

	subject := &Subject[T]{name: name, log: r.log}
	r.subjects[name] = subject
	return subject, nil
}

// Subscription is the handle returned by Subject.Subscribe. Cancelling it
// removes the registration, leaving other subscribers unaffected.
type Subscription struct {
	once   sync.Once
	cancel func()
}

// Cancel removes the subscription. Safe to call more than once.
func (s *Subscription) Cancel() {
	if s == nil {
		return
	}
	s.once.Do(s.cancel)
}

// Subject is a named broadcast channel. Publish delivers the value to every
// live subscriber synchronously, in subscription order, on the publisher's
// goroutine. There is no buffering or backpressure at this layer: subscriber
// callbacks must be cheap (a state update or an enqueue).
type Subject[T any] struct {
	name string
	log  *logging.Logger

	mu     sync.RWMutex
	nextID uint64
	subs   []subscriber[T]
}

type subscriber[T any] struct {
	id      uint64
	deliver func(T)
}

// Name returns the name the subject was registered under.
func (s *Subject[T]) Name() string {
	return s.name
}

// Subscribe registers a callback and returns its subscription handle.
// Multiple subscribers are permitted on one subject.
func (s *Subject[T]) Subscribe(fn func(T)) *Subscription {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscriber[T]{id: id, deliver: fn})
	s.mu.Unlock()

	return &Subscription{cancel: func() { s.unsubscribe(id) }}
}

func (s *Subject[T]) unsubscribe(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sub := range s.subs {
		if sub.id == id {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers value to every currently-registered subscriber and
// returns once all callbacks have run. A panicking callback is recovered
// and logged; delivery continues to the remaining subscribers.
func (s *Subject[T]) Publish(value T) {
	s.mu.RLock()
	subs := make([]subscriber[T], len(s.subs))
	copy(subs, s.subs)
	s.mu.RUnlock()

	for _, sub := range subs {
		s.safeDeliver(sub.deliver, value)
	}
}

// SubscriberCount returns the number of live subscriptions.
func (s *Subject[T]) SubscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

func (s *Subject[T]) safeDeliver(fn func(T), value T) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("subscriber fault",
				"subject", s.name,
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()))
		}
	}()
	fn(value)
}
