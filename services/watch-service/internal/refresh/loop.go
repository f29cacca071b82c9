// Package refresh drives the polling cycle of a watch session: fetch the
// sample, show it, validate it, check it for anomalies and alert once.
package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	dbconnector "datawatch"
	"datawatch/services/watch-service/internal/anomaly"
	"datawatch/services/watch-service/internal/cache"
	"datawatch/services/watch-service/internal/ledger"
	"datawatch/services/watch-service/internal/presentation"
	"datawatch/services/watch-service/internal/validation"
)

const (
	DefaultInterval = 10 * time.Second
	Title           = "Data Anomaly Detection"
	timeLayout      = "2006-01-02 15:04:05"
)

type Source interface {
	GetOrFetch(ctx context.Context, key cache.Key) (*dbconnector.QueryResult, error)
}

// Options of a Loop. Threshold is used as given; zero is a valid threshold.
type Options struct {
	Query        string
	Interval     time.Duration
	Threshold    float64
	Rules        []validation.Rule
	QueryTimeout time.Duration
	Now          func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

type CycleReport struct {
	Poll       uint64             `json:"poll"`
	StartedAt  time.Time          `json:"startedAt"`
	Rows       int                `json:"rows"`
	Error      string             `json:"error,omitempty"`
	Validation *validation.Report `json:"validation,omitempty"`
	Anomaly    *anomaly.Result    `json:"anomaly,omitempty"`
	AlertSent  bool               `json:"alertSent"`
	// AlertDuplicate is set when the ledger already held the alert message.
	AlertDuplicate bool `json:"alertDuplicate"`
}

type Loop struct {
	Session   *Session
	Source    Source
	Ledger    ledger.Ledger
	Presenter presentation.Presenter
	Logger    *slog.Logger

	opts  Options
	polls atomic.Uint64

	mu   sync.Mutex
	last *CycleReport
}

func NewLoop(session *Session, source Source, l ledger.Ledger, presenter presentation.Presenter, opts Options, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	if l == nil {
		l = ledger.NewMemory()
	}
	return &Loop{
		Session:   session,
		Source:    source,
		Ledger:    l,
		Presenter: presenter,
		Logger:    logger,
		opts:      opts.withDefaults(),
	}
}

// Run shows the title and then ticks until ctx is done. While Active it
// sleeps Interval between cycles; a toggle during the sleep is seen at the
// next boundary. While Idle it blocks until the session is toggled.
func (l *Loop) Run(ctx context.Context) error {
	l.Presenter.ShowTitle(Title)
	for {
		if _, ran := l.Tick(ctx); ran {
			if err := sleep(ctx, l.opts.Interval); err != nil {
				return err
			}
			continue
		}
		select {
		case <-l.Session.Changed():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Tick is one cycle boundary: it shows the refresh status and the current
// time, and runs a cycle when the session is Active.
func (l *Loop) Tick(ctx context.Context) (CycleReport, bool) {
	l.Session.drain()
	active := l.Session.Active()
	l.Presenter.ShowText("Auto-refresh is " + onOff(active))
	l.Presenter.ShowText("Current time: " + l.opts.Now().Format(timeLayout))
	if !active {
		return CycleReport{}, false
	}
	return l.RunCycle(ctx), true
}

// RunCycle performs one fetch, validate, detect and alert pass. Failures are
// shown and recorded in the report; they never escape.
func (l *Loop) RunCycle(ctx context.Context) (report CycleReport) {
	report.Poll = l.polls.Add(1)
	report.StartedAt = l.opts.Now().UTC()
	defer func() {
		if r := recover(); r != nil {
			report.Error = fmt.Sprint(r)
			l.Presenter.ShowError("Error running query: " + report.Error)
			l.Logger.Error("refresh cycle panicked", slog.String("session", l.Session.ID), slog.Any("panic", r))
		}
		l.remember(report)
	}()

	queryCtx := ctx
	if l.opts.QueryTimeout > 0 {
		var cancel context.CancelFunc
		queryCtx, cancel = context.WithTimeout(ctx, l.opts.QueryTimeout)
		defer cancel()
	}
	result, err := l.Source.GetOrFetch(queryCtx, cache.Key{Query: l.opts.Query, Poll: report.Poll})
	if err != nil {
		report.Error = err.Error()
		l.Presenter.ShowError("Error running query: " + err.Error())
		l.Logger.Warn("refresh cycle failed",
			slog.String("session", l.Session.ID),
			slog.Uint64("poll", report.Poll),
			slog.Bool("data_source", dbconnector.IsDataSourceError(err)),
			slog.String("error", err.Error()))
		return report
	}

	report.Rows = result.RowCount()
	l.Presenter.ShowSuccess("Query executed successfully!")
	l.Presenter.ShowText(fmt.Sprintf("Results (%d rows):", result.RowCount()))
	l.Presenter.ShowTable(result)

	validated := validation.Validate(result, l.opts.Rules)
	report.Validation = &validated
	l.Presenter.ShowText(fmt.Sprintf("Validation success: %t", validated.Success))
	for _, failed := range validated.Failed() {
		l.Presenter.ShowText(fmt.Sprintf("Rule %s failed: %s", failed.Rule, failed.Detail))
	}

	if result.Empty() {
		return report
	}
	detected := anomaly.Check(result, l.opts.Threshold)
	report.Anomaly = &detected
	if !detected.Hit {
		l.Presenter.ShowText("No anomalies detected.")
		return report
	}
	l.alert(ctx, detected.Message, &report)
	return report
}

func (l *Loop) alert(ctx context.Context, message string, report *CycleReport) {
	res, err := l.Ledger.SendOnce(ctx, message)
	if err != nil {
		report.Error = err.Error()
		l.Presenter.ShowError("Error recording alert: " + err.Error())
		l.Logger.Error("alert ledger failed", slog.String("session", l.Session.ID), slog.String("error", err.Error()))
		return
	}
	if res.Sent {
		report.AlertSent = true
		l.Presenter.ShowWarning("Alert: " + message)
		l.Logger.Info("alert sent", slog.String("session", l.Session.ID), slog.String("message", message))
		return
	}
	report.AlertDuplicate = true
	l.Presenter.ShowInfo("Alert already sent for this issue.")
}

func (l *Loop) Polls() uint64 { return l.polls.Load() }

func (l *Loop) LastCycle() *CycleReport {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.last == nil {
		return nil
	}
	cp := *l.last
	return &cp
}

func (l *Loop) remember(report CycleReport) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.last = &report
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func onOff(active bool) string {
	if active {
		return "ON"
	}
	return "OFF"
}
