package ledger

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
)

func TestMemorySendOnce(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	if res, err := m.SendOnce(ctx, "too high"); err != nil || !res.Sent {
		t.Fatalf("first send: %#v %v", res, err)
	}
	if res, err := m.SendOnce(ctx, "too high"); err != nil || res.Sent {
		t.Fatalf("second send must be suppressed: %#v %v", res, err)
	}
	records, _ := m.List(ctx)
	if len(records) != 1 || records[0].Message != "too high" {
		t.Fatalf("expected one record, got %#v", records)
	}
}

func TestMemorySendOnceConcurrent(t *testing.T) {
	m := NewMemory()
	var (
		wg   sync.WaitGroup
		sent atomic.Int32
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if res, err := m.SendOnce(context.Background(), "same"); err == nil && res.Sent {
				sent.Add(1)
			}
		}()
	}
	wg.Wait()
	if sent.Load() != 1 {
		t.Fatalf("expected exactly one winner, got %d", sent.Load())
	}
}

func TestOpenMemory(t *testing.T) {
	l, err := Open(context.Background(), Config{Driver: "memory"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, ok := l.(*Memory); !ok {
		t.Fatalf("expected memory ledger, got %T", l)
	}
}
