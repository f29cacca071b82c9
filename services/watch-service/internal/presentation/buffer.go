package presentation

import "sync"

const DefaultBufferSize = 500

// Buffer keeps the most recent events in memory for the control API.
type Buffer struct {
	mu     sync.Mutex
	size   int
	events []Event
}

func NewBuffer(size int) *Buffer {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Buffer{size: size}
}

func (b *Buffer) Publish(evt Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, evt)
	if over := len(b.events) - b.size; over > 0 {
		b.events = append([]Event(nil), b.events[over:]...)
	}
}

// Since returns the buffered events with Seq greater than seq, oldest first.
func (b *Buffer) Since(seq uint64) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []Event{}
	for _, evt := range b.events {
		if evt.Seq > seq {
			out = append(out, evt)
		}
	}
	return out
}

func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}
