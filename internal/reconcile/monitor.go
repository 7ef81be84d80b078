// Package reconcile detects packages installed outside the tool. A
// debounced scheduled check, re-armed on every queue change and backed by a
// periodic tick, compares the queue against brew's installed set and flips
// stale items to already_installed. It never runs while an install session
// is active and treats query failures as best-effort.
package reconcile

import (
	"context"
	"log/slog"
	"time"

	"github.com/zreik-blanc/pakky/internal/brew"
)

// Target is the queue owner the monitor reports findings to.
type Target interface {
	// Active reports whether an install session is running; the monitor
	// defers whenever it is.
	Active() bool

	// MarkAlreadyInstalled applies the installed set to eligible items and
	// returns how many changed.
	MarkAlreadyInstalled(set brew.InstalledSet) int
}

// Query is the external installed-set lookup.
type Query interface {
	Installed(ctx context.Context) (brew.InstalledSet, error)
}

// Monitor schedules reconciliation checks.
type Monitor struct {
	target   Target
	query    Query
	logger   *slog.Logger
	debounce time.Duration
	interval time.Duration
	kick     chan struct{}
}

// Options configures a Monitor. Zero durations get sensible defaults.
type Options struct {
	Debounce time.Duration // delay after a queue change before checking
	Interval time.Duration // periodic backstop between checks
	Logger   *slog.Logger
}

// New creates a Monitor. Call Start to begin scheduling.
func New(target Target, query Query, opts Options) *Monitor {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		target:   target,
		query:    query,
		logger:   logger,
		debounce: debounce,
		interval: interval,
		kick:     make(chan struct{}, 1),
	}
}

// QueueChanged re-arms the debounce timer. Safe to call from any goroutine;
// coalesces bursts of changes into one check.
func (m *Monitor) QueueChanged() {
	select {
	case m.kick <- struct{}{}:
	default:
	}
}

// Start launches the scheduling loop. It returns immediately; the loop
// stops when ctx is cancelled.
func (m *Monitor) Start(ctx context.Context) {
	go m.loop(ctx)
}

func (m *Monitor) loop(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	debounce := time.NewTimer(m.debounce)
	if !debounce.Stop() {
		<-debounce.C
	}
	armed := false

	for {
		select {
		case <-ctx.Done():
			return

		case <-m.kick:
			if armed && !debounce.Stop() {
				select {
				case <-debounce.C:
				default:
				}
			}
			debounce.Reset(m.debounce)
			armed = true

		case <-debounce.C:
			armed = false
			m.RunOnce(ctx)

		case <-ticker.C:
			m.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single reconciliation check. Exposed for the manual
// `pakky reconcile` command.
func (m *Monitor) RunOnce(ctx context.Context) {
	if m.target.Active() {
		// The orchestrator owns item statuses during a session.
		return
	}

	set, err := m.query.Installed(ctx)
	if err != nil {
		m.logger.Warn("installed-set query failed, queue left unchanged",
			slog.String("error", err.Error()))
		return
	}

	if n := m.target.MarkAlreadyInstalled(set); n > 0 {
		m.logger.Info("reconciled externally installed packages", slog.Int("changed", n))
	}
}
