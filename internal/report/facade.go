// Package report is the single entry point the presentation layer uses. It
// owns the current snapshot and composes the ledger and dues computations
// into the dues, month-detail and financial-summary reports.
package report

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"villaledger/internal/cache"
	"villaledger/internal/ledger"
	applog "villaledger/internal/log"
	"villaledger/internal/metrics"
	"villaledger/internal/snapshot"
)

// State of the facade. There is no transition back to StateEmpty: a failed
// reload keeps the previous snapshot.
type State int

const (
	StateEmpty State = iota
	StateReady
)

func (s State) String() string {
	if s == StateReady {
		return "ready"
	}
	return "empty"
}

// SnapshotLoader produces a complete snapshot or an error wrapping
// core.ErrSourceUnavailable. *snapshot.Loader implements it.
type SnapshotLoader interface {
	Load(ctx context.Context) (*snapshot.Snapshot, error)
}

// Status describes the installed snapshot and the outcome of the last load.
type Status struct {
	State       string    `json:"state"`
	Generation  uint64    `json:"generation"`
	LoadedAt    time.Time `json:"loaded_at"`
	Villas      int       `json:"villas"`
	Payments    int       `json:"payments"`
	Expenses    int       `json:"expenses"`
	Issues      int       `json:"issues"`
	LastAttempt time.Time `json:"last_attempt"`
	LastError   string    `json:"last_error,omitempty"`
}

type Options struct {
	MatchMode ledger.MatchMode
	CacheSize int
	CacheTTL  time.Duration
	Metrics   *metrics.Metrics
	Logger    *applog.Logger
}

// installed pairs a snapshot with the ticket of the load that produced it.
// The ticket doubles as the snapshot generation.
type installed struct {
	snap   *snapshot.Snapshot
	ticket uint64
}

type Facade struct {
	loader    SnapshotLoader
	mode      ledger.MatchMode
	metrics   *metrics.Metrics
	logger    *applog.Logger
	summaries *cache.LRUCache[FinancialSummary]

	current atomic.Pointer[installed]
	tickets atomic.Uint64

	mu          sync.Mutex
	lastAttempt time.Time
	lastErr     error
}

func New(loader SnapshotLoader, opts Options) *Facade {
	logger := opts.Logger
	if logger == nil {
		logger = applog.Discard()
	}
	size := opts.CacheSize
	if size <= 0 {
		size = 64
	}
	return &Facade{
		loader:    loader,
		mode:      opts.MatchMode,
		metrics:   opts.Metrics,
		logger:    logger.WithComponent(applog.ComponentReport),
		summaries: cache.NewLRUCache[FinancialSummary](size, opts.CacheTTL),
	}
}

// SummaryCache exposes the summary cache so a cache.Manager can clean it.
func (f *Facade) SummaryCache() *cache.LRUCache[FinancialSummary] {
	return f.summaries
}

// Reload loads a fresh snapshot and installs it unless a load issued later
// has already been installed. Tickets are taken at issue time, so the
// installed snapshot always comes from the most recently issued successful
// load regardless of completion order. On failure the previous snapshot is
// kept and the error is returned and recorded in Status.
func (f *Facade) Reload(ctx context.Context) error {
	ticket := f.tickets.Add(1)
	start := time.Now()

	snap, err := f.loader.Load(ctx)
	f.mu.Lock()
	f.lastAttempt = time.Now()
	if err != nil {
		f.lastErr = err
	}
	f.mu.Unlock()

	if err != nil {
		f.metrics.ObserveReload(metrics.ResultFailure, time.Since(start))
		f.logger.WarnContext(ctx, "Reload failed, keeping previous snapshot",
			applog.FieldTicket, ticket,
			applog.FieldGeneration, f.Generation(),
			applog.FieldError, err.Error())
		return err
	}

	if !f.install(snap, ticket) {
		f.metrics.ObserveReload(metrics.ResultStale, time.Since(start))
		f.logger.DebugContext(ctx, "Discarding superseded snapshot",
			applog.FieldTicket, ticket,
			applog.FieldGeneration, f.Generation())
		return nil
	}

	f.mu.Lock()
	f.lastErr = nil
	f.mu.Unlock()

	f.metrics.ObserveReload(metrics.ResultSuccess, time.Since(start))
	f.metrics.SetSnapshot(ticket, len(snap.Issues()))
	f.logger.InfoContext(ctx, "Snapshot installed",
		applog.FieldGeneration, ticket,
		applog.FieldDuration, time.Since(start).Milliseconds())
	return nil
}

// install swaps in snap if no later ticket is installed. It reports whether
// the swap happened.
func (f *Facade) install(snap *snapshot.Snapshot, ticket uint64) bool {
	next := &installed{snap: snap, ticket: ticket}
	for {
		cur := f.current.Load()
		if cur != nil && cur.ticket > ticket {
			return false
		}
		if f.current.CompareAndSwap(cur, next) {
			return true
		}
	}
}

func (f *Facade) State() State {
	if f.current.Load() == nil {
		return StateEmpty
	}
	return StateReady
}

// Generation of the installed snapshot, 0 while empty.
func (f *Facade) Generation() uint64 {
	if cur := f.current.Load(); cur != nil {
		return cur.ticket
	}
	return 0
}

// Snapshot returns the installed snapshot, nil while empty.
func (f *Facade) Snapshot() *snapshot.Snapshot {
	if cur := f.current.Load(); cur != nil {
		return cur.snap
	}
	return nil
}

func (f *Facade) Status() Status {
	cur := f.current.Load()
	st := Status{State: StateEmpty.String()}
	if cur != nil {
		st.State = StateReady.String()
		st.Generation = cur.ticket
		st.LoadedAt = cur.snap.LoadedAt()
		st.Villas = len(cur.snap.Villas())
		st.Payments = len(cur.snap.Payments())
		st.Expenses = len(cur.snap.Expenses())
		st.Issues = len(cur.snap.Issues())
	}
	f.mu.Lock()
	st.LastAttempt = f.lastAttempt
	if f.lastErr != nil {
		st.LastError = f.lastErr.Error()
	}
	f.mu.Unlock()
	return st
}

// view returns the installed snapshot and its generation. A nil snapshot is
// valid input for every accessor and yields empty collections.
func (f *Facade) view() (*snapshot.Snapshot, uint64) {
	if cur := f.current.Load(); cur != nil {
		return cur.snap, cur.ticket
	}
	return nil, 0
}
