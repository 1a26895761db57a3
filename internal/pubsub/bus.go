// Package pubsub is the change-notification fan-out every state engine
// embeds.
package pubsub

import (
	"log"
	"sync"
)

// Bus broadcasts values to subscribers synchronously, in registration order.
// A panicking subscriber is recovered and logged; it cannot prevent the
// remaining subscribers from running or corrupt the registry.
type Bus[T any] struct {
	mu     sync.Mutex
	next   int
	subs   map[int]func(T)
	order  []int
	logger *log.Logger
}

func New[T any](logger *log.Logger) *Bus[T] {
	return &Bus[T]{subs: make(map[int]func(T)), logger: logger}
}

// Subscribe registers fn and returns its unsubscribe func. Unsubscribing
// twice is harmless.
func (b *Bus[T]) Subscribe(fn func(T)) func() {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = fn
	b.order = append(b.order, id)
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		if _, ok := b.subs[id]; ok {
			delete(b.subs, id)
			// Drop the id from the order slice too, or it grows without
			// bound under subscribe/unsubscribe churn.
			for i, oid := range b.order {
				if oid == id {
					b.order = append(b.order[:i], b.order[i+1:]...)
					break
				}
			}
		}
		b.mu.Unlock()
	}
}

// Publish invokes every registered subscriber with v.
func (b *Bus[T]) Publish(v T) {
	b.mu.Lock()
	fns := make([]func(T), 0, len(b.subs))
	for _, id := range b.order {
		if fn, ok := b.subs[id]; ok {
			fns = append(fns, fn)
		}
	}
	b.mu.Unlock()

	for _, fn := range fns {
		b.call(fn, v)
	}
}

// Len reports the number of active subscribers.
func (b *Bus[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *Bus[T]) call(fn func(T), v T) {
	defer func() {
		if r := recover(); r != nil && b.logger != nil {
			b.logger.Printf("subscriber panic: %v", r)
		}
	}()
	fn(v)
}
