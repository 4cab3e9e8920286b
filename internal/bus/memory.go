package bus

import (
	"context"
	"sync"
)

// MemoryBus is a synchronous in-process bus for tests. Publishing invokes
// every subscribed handler inline and records the message.
type MemoryBus struct {
	mu       sync.Mutex
	handlers map[string][]Handler
	messages map[string][][]byte

	// FailPublish, when set, makes every Publish return this error.
	FailPublish error
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		handlers: make(map[string][]Handler),
		messages: make(map[string][][]byte),
	}
}

func (b *MemoryBus) Publish(ctx context.Context, topic string, payload []byte) error {
	if b.FailPublish != nil {
		return b.FailPublish
	}
	b.mu.Lock()
	cp := make([]byte, len(payload))
	copy(cp, payload)
	b.messages[topic] = append(b.messages[topic], cp)
	handlers := append([]Handler(nil), b.handlers[topic]...)
	b.mu.Unlock()

	for _, h := range handlers {
		if err := h(ctx, cp); err != nil {
			return err
		}
	}
	return nil
}

// Subscribe registers a handler invoked synchronously on Publish.
func (b *MemoryBus) Subscribe(topic string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], h)
}

// Messages returns the payloads published to a topic, in order.
func (b *MemoryBus) Messages(topic string) [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([][]byte, len(b.messages[topic]))
	copy(out, b.messages[topic])
	return out
}
