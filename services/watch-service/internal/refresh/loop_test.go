package refresh

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	dbconnector "datawatch"
	"datawatch/services/watch-service/internal/anomaly"
	"datawatch/services/watch-service/internal/cache"
	"datawatch/services/watch-service/internal/ledger"
	"datawatch/services/watch-service/internal/presentation"
	"datawatch/services/watch-service/internal/validation"
)

type stubFetcher struct {
	calls   atomic.Int64
	respond func(call int64) (*dbconnector.QueryResult, error)
}

func (s *stubFetcher) Fetch(ctx context.Context, query string) (*dbconnector.QueryResult, error) {
	return s.respond(s.calls.Add(1))
}

type memLedger struct {
	mu   sync.Mutex
	sent map[string]bool
	err  error
}

func (m *memLedger) SendOnce(ctx context.Context, message string) (ledger.SendResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return ledger.SendResult{}, m.err
	}
	if m.sent == nil {
		m.sent = map[string]bool{}
	}
	if m.sent[message] {
		return ledger.SendResult{Sent: false}, nil
	}
	m.sent[message] = true
	return ledger.SendResult{Sent: true}, nil
}

func (m *memLedger) List(ctx context.Context) ([]ledger.AlertRecord, error) { return nil, nil }

func (m *memLedger) Close() error { return nil }

func values(t *testing.T, vals ...float64) *dbconnector.QueryResult {
	t.Helper()
	col := dbconnector.Column{Name: "EMPLOYEE_ID", Values: []dbconnector.Value{}}
	for _, v := range vals {
		col.Values = append(col.Values, dbconnector.Number(v))
	}
	res, err := dbconnector.NewQueryResult([]dbconnector.Column{col})
	if err != nil {
		t.Fatalf("build result: %v", err)
	}
	return res
}

func newTestLoop(t *testing.T, fetcher *stubFetcher, l ledger.Ledger) (*Loop, *presentation.Buffer) {
	t.Helper()
	rules, perr := validation.BuildRules(validation.DefaultRuleSpecs())
	if perr != nil {
		t.Fatalf("rules: %v", perr)
	}
	buf := presentation.NewBuffer(100)
	opts := Options{
		Query:     "SELECT * FROM EMPLOYEE LIMIT 10",
		Interval:  time.Millisecond,
		Threshold: anomaly.DefaultThreshold,
		Rules:     rules,
		Now:       func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC) },
	}
	loop := NewLoop(NewSession("test"), cache.New(fetcher, 2), l, presentation.NewDisplay("test", buf), opts, nil)
	return loop, buf
}

func texts(events []presentation.Event) []string {
	out := []string{}
	for _, evt := range events {
		if evt.Text != "" {
			out = append(out, evt.Text)
		}
	}
	return out
}

func contains(events []presentation.Event, level presentation.Level, text string) bool {
	for _, evt := range events {
		if evt.Level == level && strings.HasPrefix(evt.Text, text) {
			return true
		}
	}
	return false
}

func TestToggleOnOffBeforeBoundaryDoesNotFetch(t *testing.T) {
	fetcher := &stubFetcher{respond: func(int64) (*dbconnector.QueryResult, error) { return nil, nil }}
	loop, buf := newTestLoop(t, fetcher, &memLedger{})
	loop.Session.Toggle()
	loop.Session.Toggle()

	_, ran := loop.Tick(context.Background())
	if ran {
		t.Fatalf("idle session must not run a cycle")
	}
	if fetcher.calls.Load() != 0 {
		t.Fatalf("expected no fetch, got %d", fetcher.calls.Load())
	}
	got := texts(buf.Since(0))
	want := []string{"Auto-refresh is OFF", "Current time: 2024-05-06 07:08:09"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestDataSourceFailureCompletesCycle(t *testing.T) {
	fetcher := &stubFetcher{respond: func(int64) (*dbconnector.QueryResult, error) {
		return nil, &dbconnector.DataSourceError{Op: "connect", Err: errors.New("network down")}
	}}
	loop, buf := newTestLoop(t, fetcher, &memLedger{})
	loop.Session.Toggle()

	report, ran := loop.Tick(context.Background())
	if !ran || report.Error == "" {
		t.Fatalf("expected failed cycle, got %#v", report)
	}
	events := buf.Since(0)
	if !contains(events, presentation.LevelError, "Error running query: data source connect: network down") {
		t.Fatalf("missing error event: %v", texts(events))
	}
	if contains(events, presentation.LevelSuccess, "Query executed") {
		t.Fatalf("failed cycle must skip the rest")
	}
	if last := loop.LastCycle(); last == nil || last.Poll != 1 {
		t.Fatalf("unexpected last cycle %#v", last)
	}
}

func TestLoopContinuesAfterFailure(t *testing.T) {
	second := make(chan struct{})
	var once sync.Once
	fetcher := &stubFetcher{}
	fetcher.respond = func(call int64) (*dbconnector.QueryResult, error) {
		if call == 1 {
			return nil, &dbconnector.DataSourceError{Op: "query", Err: errors.New("timeout")}
		}
		once.Do(func() { close(second) })
		return values(t, 1, 2), nil
	}
	loop, _ := newTestLoop(t, fetcher, &memLedger{})
	loop.Session.Toggle()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	select {
	case <-second:
	case <-time.After(2 * time.Second):
		t.Fatalf("loop did not retry after a failed cycle")
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}

func TestAlertIsSentOnce(t *testing.T) {
	fetcher := &stubFetcher{respond: func(int64) (*dbconnector.QueryResult, error) { return values(t, 1, 2, 7), nil }}
	loop, buf := newTestLoop(t, fetcher, &memLedger{})

	first := loop.RunCycle(context.Background())
	second := loop.RunCycle(context.Background())
	if !first.AlertSent || first.AlertDuplicate {
		t.Fatalf("first cycle must send, got %#v", first)
	}
	if second.AlertSent || !second.AlertDuplicate {
		t.Fatalf("second cycle must be deduplicated, got %#v", second)
	}
	if fetcher.calls.Load() != 2 {
		t.Fatalf("each cycle must refetch, got %d fetches", fetcher.calls.Load())
	}
	events := buf.Since(0)
	if !contains(events, presentation.LevelWarning, "Alert: One or more numeric columns have values greater than 6.") {
		t.Fatalf("missing alert: %v", texts(events))
	}
	if !contains(events, presentation.LevelInfo, "Alert already sent for this issue.") {
		t.Fatalf("missing duplicate notice: %v", texts(events))
	}
}

func TestNilLedgerStillSendsOnce(t *testing.T) {
	fetcher := &stubFetcher{respond: func(int64) (*dbconnector.QueryResult, error) { return values(t, 9), nil }}
	loop, _ := newTestLoop(t, fetcher, nil)

	if first := loop.RunCycle(context.Background()); !first.AlertSent {
		t.Fatalf("first cycle must send, got %#v", first)
	}
	if second := loop.RunCycle(context.Background()); second.AlertSent || !second.AlertDuplicate {
		t.Fatalf("second cycle must be deduplicated, got %#v", second)
	}
}

func TestCycleWithoutAnomaly(t *testing.T) {
	fetcher := &stubFetcher{respond: func(int64) (*dbconnector.QueryResult, error) { return values(t, 1, 2, 6), nil }}
	loop, buf := newTestLoop(t, fetcher, &memLedger{})

	report := loop.RunCycle(context.Background())
	if report.Rows != 3 || report.Validation == nil || !report.Validation.Success {
		t.Fatalf("unexpected report %#v", report)
	}
	got := texts(buf.Since(0))
	want := []string{"Query executed successfully!", "Results (3 rows):", "Validation success: true", "No anomalies detected."}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestZeroThresholdIsHonored(t *testing.T) {
	fetcher := &stubFetcher{respond: func(int64) (*dbconnector.QueryResult, error) { return values(t, 1, 2), nil }}
	buf := presentation.NewBuffer(100)
	loop := NewLoop(NewSession("zero"), cache.New(fetcher, 2), &memLedger{}, presentation.NewDisplay("zero", buf),
		Options{Query: "SELECT 1", Threshold: 0}, nil)

	report := loop.RunCycle(context.Background())
	if report.Anomaly == nil || !report.Anomaly.Hit || report.Anomaly.LimitExpr != "> 0" {
		t.Fatalf("expected a hit against threshold 0, got %#v", report.Anomaly)
	}
	if !report.AlertSent {
		t.Fatalf("expected the alert to be sent")
	}
	if !contains(buf.Since(0), presentation.LevelWarning, "Alert: One or more numeric columns have values greater than 0.") {
		t.Fatalf("missing alert: %v", texts(buf.Since(0)))
	}
}

func TestEmptyResultSkipsAnomalyCheck(t *testing.T) {
	fetcher := &stubFetcher{respond: func(int64) (*dbconnector.QueryResult, error) { return values(t), nil }}
	loop, buf := newTestLoop(t, fetcher, &memLedger{})

	report := loop.RunCycle(context.Background())
	if report.Anomaly != nil || !report.Validation.Success {
		t.Fatalf("unexpected report %#v", report)
	}
	if contains(buf.Since(0), presentation.LevelText, "No anomalies detected.") {
		t.Fatalf("empty result must not report on anomalies")
	}
}

func TestLedgerFailureIsReported(t *testing.T) {
	fetcher := &stubFetcher{respond: func(int64) (*dbconnector.QueryResult, error) { return values(t, 9), nil }}
	loop, buf := newTestLoop(t, fetcher, &memLedger{err: errors.New("disk full")})

	report := loop.RunCycle(context.Background())
	if report.AlertSent || report.Error == "" {
		t.Fatalf("unexpected report %#v", report)
	}
	if !contains(buf.Since(0), presentation.LevelError, "Error recording alert: disk full") {
		t.Fatalf("missing ledger error")
	}
}

func TestIdleRunWakesOnToggle(t *testing.T) {
	fetched := make(chan struct{}, 1)
	fetcher := &stubFetcher{respond: func(int64) (*dbconnector.QueryResult, error) {
		select {
		case fetched <- struct{}{}:
		default:
		}
		return values(t, 1), nil
	}}
	loop, _ := newTestLoop(t, fetcher, &memLedger{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = loop.Run(ctx) }()

	select {
	case <-fetched:
		t.Fatalf("idle loop must not fetch")
	case <-time.After(20 * time.Millisecond):
	}
	loop.Session.Toggle()
	select {
	case <-fetched:
	case <-time.After(2 * time.Second):
		t.Fatalf("toggle did not start the loop")
	}
}
