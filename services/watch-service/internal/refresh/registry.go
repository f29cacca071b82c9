package refresh

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"datawatch/services/watch-service/internal/cache"
	"datawatch/services/watch-service/internal/ledger"
	"datawatch/services/watch-service/internal/presentation"
)

var ErrSessionNotFound = errors.New("session not found")

// SinkFactory returns extra display sinks for a new session, such as the
// terminal or a bus subject. The in-memory event buffer is always attached.
type SinkFactory func(sessionID string) []presentation.Sink

type Registry struct {
	mu       sync.Mutex
	sessions map[string]*watch
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	fetcher    cache.Fetcher
	ledger     ledger.Ledger
	opts       Options
	sinks      SinkFactory
	bufferSize int
	logger     *slog.Logger
}

type watch struct {
	session *Session
	loop    *Loop
	cache   *cache.Cache
	events  *presentation.Buffer
	stop    context.CancelFunc
	done    chan struct{}
}

type SessionInfo struct {
	ID        string       `json:"id"`
	Active    bool         `json:"active"`
	CreatedAt time.Time    `json:"createdAt"`
	Polls     uint64       `json:"polls"`
	Cache     cache.Stats  `json:"cache"`
	LastCycle *CycleReport `json:"lastCycle,omitempty"`
}

type RegistryConfig struct {
	Fetcher    cache.Fetcher
	Ledger     ledger.Ledger
	Options    Options
	Sinks      SinkFactory
	BufferSize int
	Logger     *slog.Logger
}

func NewRegistry(cfg RegistryConfig) *Registry {
	ctx, cancel := context.WithCancel(context.Background())
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		sessions:   map[string]*watch{},
		ctx:        ctx,
		cancel:     cancel,
		fetcher:    cfg.Fetcher,
		ledger:     cfg.Ledger,
		opts:       cfg.Options,
		sinks:      cfg.Sinks,
		bufferSize: cfg.BufferSize,
		logger:     logger,
	}
}

// Create starts a new session loop. Sessions start Idle unless active is set.
func (r *Registry) Create(active bool) SessionInfo {
	id := uuid.NewString()
	session := NewSession(id)
	if active {
		session.Toggle()
	}
	events := presentation.NewBuffer(r.bufferSize)
	sinks := presentation.Fanout{events}
	if r.sinks != nil {
		sinks = append(sinks, r.sinks(id)...)
	}
	results := cache.New(r.fetcher, 2)
	loop := NewLoop(session, results, r.ledger, presentation.NewDisplay(id, sinks), r.opts, r.logger)

	ctx, stop := context.WithCancel(r.ctx)
	w := &watch{session: session, loop: loop, cache: results, events: events, stop: stop, done: make(chan struct{})}

	r.mu.Lock()
	r.sessions[id] = w
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer close(w.done)
		if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			r.logger.Error("session loop stopped", slog.String("session", id), slog.String("error", err.Error()))
		}
	}()
	r.logger.Info("session started", slog.String("session", id), slog.Bool("active", active))
	return w.info()
}

func (r *Registry) Toggle(id string) (SessionInfo, error) {
	w, err := r.get(id)
	if err != nil {
		return SessionInfo{}, err
	}
	active := w.session.Toggle()
	r.logger.Info("auto-refresh toggled", slog.String("session", id), slog.Bool("active", active))
	return w.info(), nil
}

func (r *Registry) Get(id string) (SessionInfo, error) {
	w, err := r.get(id)
	if err != nil {
		return SessionInfo{}, err
	}
	return w.info(), nil
}

func (r *Registry) Events(id string, since uint64) ([]presentation.Event, error) {
	w, err := r.get(id)
	if err != nil {
		return nil, err
	}
	return w.events.Since(since), nil
}

// Delete ends a session and waits for its loop to return.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	w, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	w.stop()
	<-w.done
	r.logger.Info("session ended", slog.String("session", id))
	return nil
}

func (r *Registry) List() []SessionInfo {
	r.mu.Lock()
	out := make([]SessionInfo, 0, len(r.sessions))
	for _, w := range r.sessions {
		out = append(out, w.info())
	}
	r.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (r *Registry) Stop() {
	r.cancel()
	r.wg.Wait()
	r.mu.Lock()
	r.sessions = map[string]*watch{}
	r.mu.Unlock()
}

func (r *Registry) get(id string) (*watch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return w, nil
}

func (w *watch) info() SessionInfo {
	return SessionInfo{
		ID:        w.session.ID,
		Active:    w.session.Active(),
		CreatedAt: w.session.CreatedAt,
		Polls:     w.loop.Polls(),
		Cache:     w.cache.Stats(),
		LastCycle: w.loop.LastCycle(),
	}
}
