package pubsub

import (
	"errors"
	"sync"
)

// ErrTooManySubscribers is returned when a topic's subscriber budget is
// exhausted. A zero limit means unbounded.
var ErrTooManySubscribers = errors.New("too many subscribers")

// Topic is an in-process publish/subscribe channel. Handlers run synchronously
// on the publisher's goroutine, in registration order. A handler that panics
// does not prevent later handlers from running.
type Topic[T any] struct {
	mu      sync.Mutex
	nextID  int
	order   []int
	subs    map[int]func(T)
	maxSubs int
}

func NewTopic[T any](maxSubscribers int) *Topic[T] {
	return &Topic[T]{
		subs:    make(map[int]func(T)),
		maxSubs: maxSubscribers,
	}
}

// Subscribe registers handler and returns a function that removes it.
// Unsubscribing twice is harmless.
func (t *Topic[T]) Subscribe(handler func(T)) (func(), error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.maxSubs > 0 && len(t.subs) >= t.maxSubs {
		return nil, ErrTooManySubscribers
	}

	id := t.nextID
	t.nextID++
	t.subs[id] = handler
	t.order = append(t.order, id)

	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if _, ok := t.subs[id]; !ok {
			return
		}
		delete(t.subs, id)
		for i, v := range t.order {
			if v == id {
				t.order = append(t.order[:i], t.order[i+1:]...)
				break
			}
		}
	}, nil
}

// Publish delivers value to every current subscriber in registration order.
func (t *Topic[T]) Publish(value T) {
	t.mu.Lock()
	handlers := make([]func(T), 0, len(t.order))
	for _, id := range t.order {
		if h, ok := t.subs[id]; ok {
			handlers = append(handlers, h)
		}
	}
	t.mu.Unlock()

	for _, h := range handlers {
		func() {
			defer func() { recover() }()
			h(value)
		}()
	}
}

func (t *Topic[T]) SubscriberCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}
