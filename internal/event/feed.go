// Package event provides synchronous publish/subscribe with owned subscriptions.
//
// Every Subscribe returns a [Subscription] that the subscriber owns and must
// Close. Controllers collect theirs in a [Group] and close the group on
// teardown, so there is no global observer registry to keep in sync.
package event

import (
	"sync"
)

// Feed delivers values of type T to its subscribers.
// The zero value is ready to use.
//
// Send calls handlers synchronously on the caller's goroutine, in
// subscription order. Handlers may subscribe or unsubscribe during delivery;
// such changes take effect for the next Send.
type Feed[T any] struct {
	mu     sync.Mutex
	nextID uint64
	subs   []feedSub[T]
}

type feedSub[T any] struct {
	id uint64
	fn func(T)
}

// Subscribe registers fn and returns the subscription that releases it.
func (f *Feed[T]) Subscribe(fn func(T)) *Subscription {
	if fn == nil {
		panic("event: nil handler")
	}

	f.mu.Lock()
	f.nextID++
	id := f.nextID
	f.subs = append(f.subs, feedSub[T]{id: id, fn: fn})
	f.mu.Unlock()

	return &Subscription{release: func() { f.remove(id) }}
}

// Send delivers v to every current subscriber.
func (f *Feed[T]) Send(v T) {
	f.mu.Lock()
	snapshot := make([]feedSub[T], len(f.subs))
	copy(snapshot, f.subs)
	f.mu.Unlock()

	for _, s := range snapshot {
		if f.active(s.id) {
			s.fn(v)
		}
	}
}

// Len returns the number of live subscriptions.
func (f *Feed[T]) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.subs)
}

func (f *Feed[T]) active(id uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, s := range f.subs {
		if s.id == id {
			return true
		}
	}

	return false
}

func (f *Feed[T]) remove(id uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, s := range f.subs {
		if s.id == id {
			f.subs = append(f.subs[:i], f.subs[i+1:]...)

			return
		}
	}
}

// Subscription is a live registration on a [Feed].
type Subscription struct {
	once    sync.Once
	release func()
}

// Close unregisters the handler. Close is idempotent and safe on nil.
func (s *Subscription) Close() {
	if s == nil {
		return
	}

	s.once.Do(s.release)
}

// Group owns a set of subscriptions and releases them together.
// The zero value is ready to use.
type Group struct {
	mu   sync.Mutex
	subs []*Subscription
}

// Add takes ownership of subs.
func (g *Group) Add(subs ...*Subscription) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.subs = append(g.subs, subs...)
}

// Len returns the number of subscriptions held.
func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return len(g.subs)
}

// Close releases every subscription in the group and empties it.
// The group can be reused afterwards.
func (g *Group) Close() {
	g.mu.Lock()
	subs := g.subs
	g.subs = nil
	g.mu.Unlock()

	for _, s := range subs {
		s.Close()
	}
}
