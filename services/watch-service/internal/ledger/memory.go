package ledger

import (
	"context"
	"sync"
	"time"
)

// Memory keeps the ledger in process memory. It is lost on restart.
type Memory struct {
	Now func() time.Time

	mu      sync.Mutex
	sent    map[string]struct{}
	records []AlertRecord
}

func NewMemory() *Memory {
	return &Memory{Now: time.Now, sent: map[string]struct{}{}}
}

func (m *Memory) SendOnce(ctx context.Context, message string) (SendResult, error) {
	if err := validateMessage(message); err != nil {
		return SendResult{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sent == nil {
		m.sent = map[string]struct{}{}
	}
	if _, dup := m.sent[message]; dup {
		return SendResult{Sent: false}, nil
	}
	now := time.Now
	if m.Now != nil {
		now = m.Now
	}
	m.sent[message] = struct{}{}
	m.records = append(m.records, AlertRecord{Message: message, SentAt: now().UTC()})
	return SendResult{Sent: true}, nil
}

func (m *Memory) List(ctx context.Context) ([]AlertRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]AlertRecord{}, m.records...), nil
}

func (m *Memory) Close() error { return nil }
