// Package bus fans lifecycle events out to in-process subscribers.
package bus

import (
	"sync"
)

const defaultBufferSize = 100

type MessageBus struct {
	eventSubscribers      map[uint64]chan Event
	nextEventSubscriberID uint64

	done      chan struct{}
	closeOnce sync.Once

	mu sync.RWMutex
}

func NewMessageBus() *MessageBus {
	return &MessageBus{
		eventSubscribers: make(map[uint64]chan Event),
		done:             make(chan struct{}),
	}
}

// Close stops delivery and closes every subscriber channel.
func (mb *MessageBus) Close() {
	mb.closeOnce.Do(func() {
		close(mb.done)

		mb.mu.Lock()
		for id, ch := range mb.eventSubscribers {
			close(ch)
			delete(mb.eventSubscribers, id)
		}
		mb.mu.Unlock()
	})
}
