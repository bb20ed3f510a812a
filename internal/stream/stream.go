// Package stream provides the small publish/subscribe primitives the engine
// uses to push derived results to its consumers.
//
// Callbacks run synchronously on the publishing goroutine, in subscription
// order. A callback must not publish to the stream that invoked it.
package stream

import "sync"

type subscriber[T any] struct {
	id int
	fn func(T)
}

// Subject fans every published value out to the current subscribers.
// Values published before a subscription are not replayed.
type Subject[T any] struct {
	mu     sync.Mutex
	subs   []subscriber[T]
	nextID int
	closed bool
}

// NewSubject returns an empty Subject.
func NewSubject[T any]() *Subject[T] {
	return &Subject[T]{}
}

// Subscribe registers fn and returns a function that removes it.
// Calling the returned function more than once is harmless.
func (s *Subject[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return func() {}
	}

	id := s.nextID
	s.nextID++
	s.subs = append(s.subs, subscriber[T]{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { s.remove(id) })
	}
}

func (s *Subject[T]) remove(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, sub := range s.subs {
		if sub.id == id {
			s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers v to every subscriber registered at the time of the call.
func (s *Subject[T]) Publish(v T) {
	for _, fn := range s.snapshot() {
		fn(v)
	}
}

func (s *Subject[T]) snapshot() []func(T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	fns := make([]func(T), len(s.subs))
	for i, sub := range s.subs {
		fns[i] = sub.fn
	}
	return fns
}

func (s *Subject[T]) subscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Close drops every subscriber; later Publish and Subscribe calls are no-ops.
func (s *Subject[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.subs = nil
}

// Behavior is a Subject that remembers the latest value and replays it to
// each new subscriber.
type Behavior[T any] struct {
	subject Subject[T]

	// pubMu orders publications against subscription replays so a subscriber
	// never observes an older value after a newer one.
	pubMu sync.Mutex

	valMu sync.RWMutex
	value T
}

// NewBehavior returns a Behavior holding initial.
func NewBehavior[T any](initial T) *Behavior[T] {
	return &Behavior[T]{value: initial}
}

// Value returns the latest published value.
func (b *Behavior[T]) Value() T {
	b.valMu.RLock()
	defer b.valMu.RUnlock()
	return b.value
}

// Subscribe registers fn, immediately calls it with the current value, and
// returns a function that removes it.
func (b *Behavior[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	b.pubMu.Lock()
	defer b.pubMu.Unlock()

	unsubscribe = b.subject.Subscribe(fn)
	fn(b.Value())
	return unsubscribe
}

// Publish stores v as the current value and delivers it to subscribers.
func (b *Behavior[T]) Publish(v T) {
	b.pubMu.Lock()
	defer b.pubMu.Unlock()

	b.valMu.Lock()
	b.value = v
	b.valMu.Unlock()

	b.subject.Publish(v)
}

// Close drops every subscriber. Value keeps returning the last value.
func (b *Behavior[T]) Close() {
	b.subject.Close()
}
