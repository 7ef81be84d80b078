// Package orchestrator owns the install queue and drives install sessions:
// one session at a time, per-item status transitions, streamed per-item
// logs, and cooperative cancellation at item boundaries.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/zreik-blanc/pakky/internal/brew"
	"github.com/zreik-blanc/pakky/internal/events"
	"github.com/zreik-blanc/pakky/internal/exec"
	"github.com/zreik-blanc/pakky/internal/queue"
)

var (
	// ErrSessionActive is returned when a session is started while another
	// one is still running.
	ErrSessionActive = errors.New("an install session is already active")

	// ErrItemInstalling is returned for mutations that are forbidden while
	// an item is being installed.
	ErrItemInstalling = errors.New("item is currently installing")

	// ErrUnknownItem is returned when an item ID is not in the queue.
	ErrUnknownItem = errors.New("item not found in queue")
)

// Installer is the external install capability: it streams output lines and
// returns nil (success) or an error carrying the failure reason.
type Installer interface {
	Install(ctx context.Context, it queue.Item, onLine exec.LineFunc) error
}

// InstalledQuery reports the externally installed package set.
type InstalledQuery interface {
	Installed(ctx context.Context) (brew.InstalledSet, error)
}

// Describer looks up package descriptions for lazy enrichment.
type Describer interface {
	Describe(ctx context.Context, it queue.Item) (string, error)
}

// Orchestrator is the single source of truth for the queue and session
// state. All mutation goes through its methods; observers receive snapshots
// and bus events, never shared structures.
type Orchestrator struct {
	mu      sync.Mutex
	queue   queue.Queue
	session *session

	installer Installer
	query     InstalledQuery
	describer Describer
	bus       *events.Bus
	logger    *slog.Logger
	workers   int

	active bool
	cancel context.CancelFunc

	queueListener func()
}

// Options configures an Orchestrator.
type Options struct {
	Installer Installer
	Query     InstalledQuery
	Describer Describer // optional
	Bus       *events.Bus
	Logger    *slog.Logger
	Workers   int // concurrent installs; <=1 means sequential
}

// New creates an Orchestrator seeded with an initial queue.
func New(initial queue.Queue, opts Options) *Orchestrator {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	q := make(queue.Queue, len(initial))
	copy(q, initial)
	return &Orchestrator{
		queue:     q,
		installer: opts.Installer,
		query:     opts.Query,
		describer: opts.Describer,
		bus:       opts.Bus,
		logger:    logger,
		workers:   workers,
	}
}

// SetQueueListener registers a function invoked after every queue mutation.
// The reconciliation monitor uses it to re-arm its debounce timer.
func (o *Orchestrator) SetQueueListener(fn func()) {
	o.mu.Lock()
	o.queueListener = fn
	o.mu.Unlock()
}

func (o *Orchestrator) notifyQueueChanged() {
	o.mu.Lock()
	fn := o.queueListener
	o.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Queue returns a copy of the current queue.
func (o *Orchestrator) Queue() queue.Queue {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make(queue.Queue, len(o.queue))
	copy(out, o.queue)
	return out
}

// Session returns a snapshot of the current or most recent session. Before
// any session has run, the view reports SessionIdle.
func (o *Orchestrator) Session() SessionView {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session == nil {
		return SessionView{Status: SessionIdle, Logs: map[string][]string{}}
	}
	return o.session.view()
}

// Active reports whether an install session is running.
func (o *Orchestrator) Active() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active
}

// AddPackages enqueues the candidates not already queued and returns the
// genuinely new items. Descriptions for new items are filled in the
// background, best-effort.
func (o *Orchestrator) AddPackages(ctx context.Context, candidates ...queue.Candidate) []queue.Item {
	o.mu.Lock()
	q, added := queue.Add(o.queue, candidates...)
	o.queue = q
	o.mu.Unlock()

	if len(added) > 0 {
		o.notifyQueueChanged()
		if o.describer != nil {
			go o.enrich(ctx, added)
		}
	}
	return added
}

// enrich fetches descriptions for newly added items. Lookup failures leave
// the description empty.
func (o *Orchestrator) enrich(ctx context.Context, items []queue.Item) {
	for _, it := range items {
		desc, err := o.describer.Describe(ctx, it)
		if err != nil || desc == "" {
			continue
		}
		o.mu.Lock()
		if i := queue.Find(o.queue, it.ID); i >= 0 && o.queue[i].Description == "" {
			o.queue[i].Description = desc
		}
		o.mu.Unlock()
	}
}

// RemoveItem drops the item from the queue. An item that is currently
// installing cannot be removed; removing an absent ID is a no-op.
func (o *Orchestrator) RemoveItem(id string) error {
	o.mu.Lock()
	if i := queue.Find(o.queue, id); i >= 0 && o.queue[i].Status == queue.StatusInstalling {
		o.mu.Unlock()
		return ErrItemInstalling
	}
	before := len(o.queue)
	o.queue = queue.Remove(o.queue, id)
	changed := len(o.queue) != before
	o.mu.Unlock()

	if changed {
		o.notifyQueueChanged()
	}
	return nil
}

// MergeItems imports items (from a preset or saved configuration),
// appending only IDs not already queued.
func (o *Orchestrator) MergeItems(items []queue.Item) int {
	o.mu.Lock()
	before := len(o.queue)
	o.queue = queue.Merge(o.queue, items)
	addedCount := len(o.queue) - before
	o.mu.Unlock()

	if addedCount > 0 {
		o.notifyQueueChanged()
	}
	return addedCount
}

// Reinstall resets a terminal or already-installed item back to pending
// with the reinstall action so the next session picks it up.
func (o *Orchestrator) Reinstall(id string) error {
	o.mu.Lock()
	i := queue.Find(o.queue, id)
	if i < 0 {
		o.mu.Unlock()
		return ErrUnknownItem
	}
	it := &o.queue[i]
	if it.Status == queue.StatusInstalling {
		o.mu.Unlock()
		return ErrItemInstalling
	}
	if err := queue.ValidateTransition(it.Status, queue.StatusPending); err != nil {
		o.mu.Unlock()
		return err
	}
	it.Status = queue.StatusPending
	it.Action = queue.ActionReinstall
	it.Error = ""
	o.publishItem(it.ID, queue.StatusPending)
	o.mu.Unlock()

	o.notifyQueueChanged()
	return nil
}

// MarkAlreadyInstalled flips eligible items found in the installed set to
// already_installed and returns how many changed. Items that are
// installing, terminal (success/failed), or carry an action override are
// never touched. While a session is active the call is a no-op.
func (o *Orchestrator) MarkAlreadyInstalled(set brew.InstalledSet) int {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.active {
		return 0
	}

	changed := 0
	for i := range o.queue {
		it := &o.queue[i]
		switch it.Status {
		case queue.StatusInstalling, queue.StatusSuccess, queue.StatusFailed, queue.StatusAlreadyInstalled:
			continue
		}
		if it.Action != "" {
			continue
		}
		if !set.ContainsItem(*it) {
			continue
		}
		it.Status = queue.StatusAlreadyInstalled
		o.publishItem(it.ID, queue.StatusAlreadyInstalled)
		changed++
	}

	if changed > 0 && o.bus != nil {
		o.bus.Publish(events.Event{Type: events.TypeReconcile})
	}
	return changed
}

// Cancel requests cooperative cancellation of the active session. The
// currently running installs finish; no further items are dispatched.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	cancel := o.cancel
	o.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Run executes one install session over the current queue and blocks until
// it reaches completed or cancelled. Only one session may run at a time.
func (o *Orchestrator) Run(ctx context.Context) error {
	runCtx, err := o.begin(ctx)
	if err != nil {
		return err
	}
	defer o.end()

	// Checking phase: refresh the installed set once so satisfied items can
	// be skipped without invoking brew. A query failure is best-effort.
	var installed brew.InstalledSet
	haveInstalled := false
	if o.query != nil {
		if set, err := o.query.Installed(runCtx); err == nil {
			installed = set
			haveInstalled = true
		} else {
			o.logger.Warn("installed-set query failed, skipping pre-check", slog.String("error", err.Error()))
		}
	}

	eligible := o.collectEligible()
	o.setSessionStatus(SessionInstalling)

	sem := semaphore.NewWeighted(int64(o.workers))
	var wg sync.WaitGroup

dispatch:
	for _, id := range eligible {
		select {
		case <-runCtx.Done():
			// Cancellation observed at the item boundary: stop dispatching,
			// leave remaining items pending.
			break dispatch
		default:
		}

		if err := sem.Acquire(runCtx, 1); err != nil {
			break dispatch
		}

		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			defer sem.Release(1)
			o.installOne(runCtx, id, installed, haveInstalled)
		}(id)
	}

	wg.Wait()

	if runCtx.Err() != nil {
		o.setSessionStatus(SessionCancelled)
		return context.Canceled
	}
	o.setSessionStatus(SessionCompleted)
	return nil
}

// begin atomically claims the single-session slot and resets session state.
func (o *Orchestrator) begin(ctx context.Context) (context.Context, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.active {
		return nil, ErrSessionActive
	}

	runCtx, cancel := context.WithCancel(ctx)
	o.active = true
	o.cancel = cancel
	o.session = newSession(uuid.NewString())
	if o.bus != nil {
		o.bus.Publish(events.Event{Type: events.TypeSessionStatus, Status: string(SessionChecking)})
	}
	return runCtx, nil
}

func (o *Orchestrator) end() {
	o.mu.Lock()
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.active = false
	o.mu.Unlock()
}

// collectEligible returns the IDs of items the session will install, in
// queue order: everything pending (including reinstall resets).
func (o *Orchestrator) collectEligible() []string {
	o.mu.Lock()
	defer o.mu.Unlock()

	var ids []string
	for _, it := range o.queue {
		if it.Status == queue.StatusPending {
			ids = append(ids, it.ID)
		}
	}
	return ids
}

// installOne drives a single item through installing → terminal status.
// The install itself runs on a context detached from session cancellation:
// a cancel request stops dispatch at item boundaries but never kills a
// running brew process mid-write.
func (o *Orchestrator) installOne(runCtx context.Context, id string, installed brew.InstalledSet, haveInstalled bool) {
	o.mu.Lock()
	i := queue.Find(o.queue, id)
	if i < 0 || o.queue[i].Status != queue.StatusPending {
		o.mu.Unlock()
		return
	}
	it := o.queue[i]

	// Already satisfied and no reinstall requested: skipped, not failed.
	// This is the tie-break for installs racing external changes.
	if haveInstalled && it.Action != queue.ActionReinstall && installed.ContainsItem(it) {
		o.queue[i].Status = queue.StatusSkipped
		o.publishItem(id, queue.StatusSkipped)
		o.mu.Unlock()
		return
	}

	o.queue[i].Status = queue.StatusInstalling
	o.queue[i].Error = ""
	o.publishItem(id, queue.StatusInstalling)
	o.mu.Unlock()

	onLine := func(line string) {
		o.appendLog(id, line)
	}

	err := o.installer.Install(context.WithoutCancel(runCtx), it, onLine)

	o.mu.Lock()
	defer o.mu.Unlock()

	i = queue.Find(o.queue, id)
	if i < 0 {
		return
	}
	if err != nil {
		o.queue[i].Status = queue.StatusFailed
		o.queue[i].Error = err.Error()
		o.publishItem(id, queue.StatusFailed)
		o.logger.Error("install failed",
			slog.String("package", id),
			slog.String("error", err.Error()),
		)
		return
	}
	o.queue[i].Status = queue.StatusSuccess
	o.queue[i].Action = ""
	o.publishItem(id, queue.StatusSuccess)
	o.logger.Info("install succeeded", slog.String("package", id))
}

// appendLog appends one line to the item's session log, preserving per-item
// order, and mirrors it onto the bus.
func (o *Orchestrator) appendLog(id, line string) {
	o.mu.Lock()
	if o.session != nil {
		o.session.logs[id] = append(o.session.logs[id], line)
	}
	o.mu.Unlock()

	if o.bus != nil {
		o.bus.Publish(events.Event{Type: events.TypeLogLine, ItemID: id, Line: line})
	}
}

func (o *Orchestrator) setSessionStatus(s SessionStatus) {
	o.mu.Lock()
	if o.session != nil {
		o.session.status = s
	}
	o.mu.Unlock()

	if o.bus != nil {
		o.bus.Publish(events.Event{Type: events.TypeSessionStatus, Status: string(s)})
	}
}

// publishItem mirrors an item status change onto the bus. Callers hold the
// mutex; Publish never blocks, so that is safe.
func (o *Orchestrator) publishItem(id string, s queue.Status) {
	if o.bus != nil {
		o.bus.Publish(events.Event{Type: events.TypeItemStatus, ItemID: id, Status: string(s)})
	}
}
