package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/teemow/meetfinder/internal/auth"
	"github.com/teemow/meetfinder/internal/availability"
	"github.com/teemow/meetfinder/internal/booking"
	"github.com/teemow/meetfinder/internal/calendar"
	"github.com/teemow/meetfinder/internal/directory"
	"github.com/teemow/meetfinder/internal/graph"
	"github.com/teemow/meetfinder/internal/instrumentation"
	"github.com/teemow/meetfinder/internal/logging"
	"github.com/teemow/meetfinder/internal/selection"
)

// ErrShutdown is returned once the server context has been shut down.
var ErrShutdown = errors.New("server is shutting down")

// DefaultBackendIdleTTL is how long an unused per-account backend is cached.
// Forwarded bearer tokens rotate, and each new token is a new account key.
const DefaultBackendIdleTTL = 30 * time.Minute

// Backend is one calendar provider for one signed-in account. Directory
// features such as people and room search are optional; tools probe for
// them with type assertions against the directory interfaces.
type Backend interface {
	availability.Fetcher
	booking.Booker
	directory.Profiler
	Name() string
}

// BackendFactory builds a Backend authenticated by ts.
type BackendFactory func(ctx context.Context, ts oauth2.TokenSource) (Backend, error)

// Scheduling holds the defaults applied to availability queries that do not
// override them.
type Scheduling struct {
	SlotDuration time.Duration
	WorkingHours availability.WorkingHours
	HorizonDays  int
	Location     *time.Location
}

// DefaultScheduling returns 30 minute slots, 09:00-17:00 and seven working
// days in the local zone.
func DefaultScheduling() Scheduling {
	return Scheduling{
		SlotDuration: availability.DefaultSlotDuration,
		WorkingHours: availability.DefaultWorkingHours,
		HorizonDays:  availability.DefaultHorizonDays,
		Location:     time.Local,
	}
}

// Validate checks the defaults are usable together.
func (s Scheduling) Validate() error {
	if err := availability.ValidateSlotDuration(s.SlotDuration); err != nil {
		return err
	}
	if _, err := s.WorkingHours.Window(s.SlotDuration); err != nil {
		return err
	}
	return availability.ValidateHorizon(s.HorizonDays)
}

// Config configures a ServerContext.
type Config struct {
	// Backend is "graph" or "google". Ignored when Factory is set.
	Backend string
	Factory BackendFactory

	TokenProvider  auth.TokenProvider
	Scheduling     Scheduling
	SessionTTL     time.Duration
	BackendIdleTTL time.Duration

	// ReadOnly hides the booking tools.
	ReadOnly bool

	Logger *slog.Logger
}

// ServerContext holds the state shared by every tool handler: per-account
// backends, selection sessions and instrumentation.
type ServerContext struct {
	ctx         context.Context
	cancel      context.CancelFunc
	config      Config
	backends    map[string]*cachedBackend
	sessions    *selection.Store
	metrics     *instrumentation.Metrics
	auditLogger *instrumentation.AuditLogger
	logger      *slog.Logger
	now         func() time.Time
	sweepDone   chan struct{}
	mu          sync.RWMutex
	shutdown    bool
}

type cachedBackend struct {
	backend  Backend
	owner    string
	lastUsed time.Time
}

// NewServerContext creates a server context. Backends are created lazily on
// first use per account.
func NewServerContext(ctx context.Context, cfg Config) (*ServerContext, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Scheduling.SlotDuration == 0 {
		def := DefaultScheduling()
		def.Location = cfg.Scheduling.Location
		if def.Location == nil {
			def.Location = time.Local
		}
		cfg.Scheduling = def
	}
	if cfg.Scheduling.Location == nil {
		cfg.Scheduling.Location = time.Local
	}
	if err := cfg.Scheduling.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scheduling defaults: %w", err)
	}
	if cfg.BackendIdleTTL <= 0 {
		cfg.BackendIdleTTL = DefaultBackendIdleTTL
	}
	if cfg.Backend == "" {
		cfg.Backend = instrumentation.BackendGraph
	}
	if cfg.Backend != instrumentation.BackendGraph && cfg.Backend != instrumentation.BackendGoogle && cfg.Factory == nil {
		return nil, fmt.Errorf("unsupported backend %q", cfg.Backend)
	}

	shutdownCtx, cancel := context.WithCancel(ctx)
	sc := &ServerContext{
		ctx:      shutdownCtx,
		cancel:   cancel,
		config:   cfg,
		backends:  make(map[string]*cachedBackend),
		sessions:  selection.NewStore(cfg.SessionTTL, logging.NewSlogAdapter(cfg.Logger)),
		logger:    cfg.Logger,
		now:       time.Now,
		sweepDone: make(chan struct{}),
	}
	sc.sessions.OnRemove(func(n int) {
		m := sc.Metrics()
		for range n {
			m.SelectionSessionClosed(sc.ctx)
		}
	})
	if sc.config.Factory == nil {
		sc.config.Factory = sc.defaultFactory
	}
	go sc.backendSweepLoop()
	return sc, nil
}

// Context returns the server context.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

func (sc *ServerContext) defaultFactory(ctx context.Context, ts oauth2.TokenSource) (Backend, error) {
	switch sc.config.Backend {
	case instrumentation.BackendGoogle:
		return calendar.NewClient(ctx, ts,
			calendar.WithMetrics(sc.Metrics()),
			calendar.WithLogger(sc.logger))
	default:
		return graph.NewClient(ts,
			graph.WithMetrics(sc.Metrics()),
			graph.WithLogger(sc.logger)), nil
	}
}

// BackendName returns the configured backend name.
func (sc *ServerContext) BackendName() string {
	return sc.config.Backend
}

// BackendForAccount returns the backend for account, creating and caching
// it on first use. Backends idle for longer than the configured TTL are
// rebuilt.
func (sc *ServerContext) BackendForAccount(ctx context.Context, account string) (Backend, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil, ErrShutdown
	}
	now := sc.now()
	if e, ok := sc.backends[account]; ok && now.Sub(e.lastUsed) <= sc.config.BackendIdleTTL {
		e.lastUsed = now
		return e.backend, nil
	}
	if sc.config.TokenProvider == nil {
		return nil, fmt.Errorf("%w: %s (no token provider configured)", auth.ErrNoToken, account)
	}

	ts, err := sc.config.TokenProvider.TokenSource(ctx, account)
	if err != nil {
		return nil, err
	}
	b, err := sc.config.Factory(sc.ctx, ts)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s backend for %s: %w", sc.config.Backend, account, err)
	}

	sc.logger.Debug("created backend", logging.Backend(b.Name()), logging.Account(account))
	sc.backends[account] = &cachedBackend{backend: b, lastUsed: now}
	return b, nil
}

// SessionOwner returns the identity that owns selection sessions opened by
// account. It is the signed-in user's email when the backend can look it up,
// so a rotated bearer token for the same user keeps its open sessions. The
// lookup is cached alongside the account's backend.
func (sc *ServerContext) SessionOwner(ctx context.Context, account string) string {
	fallback := "account:" + account
	b, err := sc.BackendForAccount(ctx, account)
	if err != nil {
		return fallback
	}

	sc.mu.RLock()
	if e, ok := sc.backends[account]; ok && e.backend == b && e.owner != "" {
		sc.mu.RUnlock()
		return e.owner
	}
	sc.mu.RUnlock()

	me, err := b.Me(ctx)
	if err != nil || me == nil || me.Email == "" {
		sc.logger.Debug("session owner falls back to account", logging.Account(account), logging.Err(err))
		return fallback
	}
	owner := "user:" + strings.ToLower(strings.TrimSpace(me.Email))

	sc.mu.Lock()
	if e, ok := sc.backends[account]; ok && e.backend == b {
		e.owner = owner
	}
	sc.mu.Unlock()
	return owner
}

// SetBackendForAccount installs a backend for account, replacing any cached one.
func (sc *ServerContext) SetBackendForAccount(account string, b Backend) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.backends[account] = &cachedBackend{backend: b, lastUsed: sc.now()}
}

// SweepBackends drops cached backends that have been idle longer than the
// configured TTL and returns how many were dropped.
func (sc *ServerContext) SweepBackends() int {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	now := sc.now()
	dropped := 0
	for account, e := range sc.backends {
		if now.Sub(e.lastUsed) > sc.config.BackendIdleTTL {
			delete(sc.backends, account)
			dropped++
		}
	}
	return dropped
}

func (sc *ServerContext) backendSweepLoop() {
	interval := min(sc.config.BackendIdleTTL/4, 10*time.Minute)
	if interval <= 0 {
		interval = sc.config.BackendIdleTTL
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := sc.SweepBackends(); n > 0 {
				sc.logger.Debug("Dropped idle backends", "count", n)
			}
		case <-sc.sweepDone:
			return
		}
	}
}

// Aggregator returns an availability aggregator over b using the server's
// scheduling defaults and computation metrics.
func (sc *ServerContext) Aggregator(b Backend) *availability.Aggregator {
	return availability.NewAggregator(b,
		availability.WithWorkingHours(sc.config.Scheduling.WorkingHours),
		availability.WithLocation(sc.config.Scheduling.Location),
		availability.WithLogger(logging.WithBackend(sc.logger, b.Name())),
		availability.WithObserver(sc.observeComputation),
	)
}

func (sc *ServerContext) observeComputation(ctx context.Context, q availability.Query, res *availability.Result, elapsed time.Duration, err error) {
	status := instrumentation.StatusSuccess
	unresolved := 0
	if err != nil {
		status = instrumentation.StatusError
	} else if res != nil {
		unresolved = len(res.Unresolved)
	}
	sc.Metrics().RecordAvailabilityComputation(ctx, status, q.WorkingHoursOnly, unresolved, elapsed)
}

// Sessions returns the selection session store.
func (sc *ServerContext) Sessions() *selection.Store {
	return sc.sessions
}

// Scheduling returns the scheduling defaults.
func (sc *ServerContext) Scheduling() Scheduling {
	return sc.config.Scheduling
}

// ReadOnly reports whether booking tools are disabled.
func (sc *ServerContext) ReadOnly() bool {
	return sc.config.ReadOnly
}

// Logger returns the server logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// Metrics returns the metrics recorder, or nil when instrumentation is off.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.metrics
}

// SetMetrics sets the metrics recorder. Backends created earlier keep the
// recorder they were built with.
func (sc *ServerContext) SetMetrics(m *instrumentation.Metrics) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.metrics = m
}

// AuditLogger returns the audit logger, or nil.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.auditLogger
}

// SetAuditLogger sets the audit logger.
func (sc *ServerContext) SetAuditLogger(al *instrumentation.AuditLogger) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.auditLogger = al
}

// IsShutdown returns whether the server has been shut down.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown stops session cleanup and cancels the server context.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.sessions.Stop()
	close(sc.sweepDone)
	sc.cancel()
	return nil
}
