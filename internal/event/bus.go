// Package event
package event

import "sync"

type Handler func(event any)

type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	subs     map[string]map[int]chan any
	nextID   int
}

func New() *Bus {
	return &Bus{
		handlers: make(map[string][]Handler),
		subs:     make(map[string]map[int]chan any),
	}
}

func (b *Bus) Subscribe(eventName string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventName] = append(b.handlers[eventName], handler)
}

// SubscribeChan returns a buffered channel receiving every event published
// under eventName, plus a cancel func that unsubscribes and closes the
// channel. Slow consumers drop events rather than block publishers.
func (b *Bus) SubscribeChan(eventName string, buffer int) (<-chan any, func()) {
	if buffer <= 0 {
		buffer = 16
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++

	ch := make(chan any, buffer)
	if b.subs[eventName] == nil {
		b.subs[eventName] = make(map[int]chan any)
	}
	b.subs[eventName][id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		if sub, ok := b.subs[eventName][id]; ok {
			delete(b.subs[eventName], id)
			close(sub)
		}
	}

	return ch, cancel
}

func (b *Bus) Publish(eventName string, event any) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[eventName]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}

	// Sends happen under the read lock so a concurrent cancel, which closes
	// the channel under the write lock, cannot race a send.
	b.mu.RLock()
	for _, ch := range b.subs[eventName] {
		select {
		case ch <- event:
		default:
		}
	}
	b.mu.RUnlock()
}
