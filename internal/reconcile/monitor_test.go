package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/zreik-blanc/pakky/internal/brew"
	"github.com/zreik-blanc/pakky/internal/logging"
)

type fakeTarget struct {
	mu      sync.Mutex
	active  bool
	applied int
}

func (f *fakeTarget) Active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

func (f *fakeTarget) MarkAlreadyInstalled(set brew.InstalledSet) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applied++
	return 1
}

func (f *fakeTarget) applies() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.applied
}

type fakeQuery struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeQuery) Installed(ctx context.Context) (brew.InstalledSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return brew.InstalledSet{}, f.err
	}
	return brew.InstalledSet{Formulae: map[string]bool{"jq": true}, Casks: map[string]bool{}}, nil
}

func (f *fakeQuery) queries() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func nopLogger() *slog.Logger { return slog.New(logging.NopHandler{}) }

func TestRunOnce_AppliesInstalledSet(t *testing.T) {
	target := &fakeTarget{}
	query := &fakeQuery{}
	m := New(target, query, Options{Logger: nopLogger()})

	m.RunOnce(context.Background())

	if target.applies() != 1 {
		t.Errorf("applied %d times, want 1", target.applies())
	}
}

func TestRunOnce_DefersWhileSessionActive(t *testing.T) {
	target := &fakeTarget{active: true}
	query := &fakeQuery{}
	m := New(target, query, Options{Logger: nopLogger()})

	m.RunOnce(context.Background())

	if query.queries() != 0 {
		t.Error("query issued while session active")
	}
	if target.applies() != 0 {
		t.Error("queue mutated while session active")
	}
}

func TestRunOnce_QueryFailureLeavesQueueUntouched(t *testing.T) {
	target := &fakeTarget{}
	query := &fakeQuery{err: errors.New("brew unreachable")}
	m := New(target, query, Options{Logger: nopLogger()})

	m.RunOnce(context.Background())

	if target.applies() != 0 {
		t.Error("queue mutated despite query failure")
	}
}

func TestQueueChanged_DebouncedCheck(t *testing.T) {
	target := &fakeTarget{}
	query := &fakeQuery{}
	m := New(target, query, Options{
		Debounce: 20 * time.Millisecond,
		Interval: time.Hour,
		Logger:   nopLogger(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	// A burst of changes coalesces into one check.
	m.QueueChanged()
	m.QueueChanged()
	m.QueueChanged()

	deadline := time.Now().Add(2 * time.Second)
	for target.applies() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	if got := target.applies(); got != 1 {
		t.Errorf("applied %d times, want 1", got)
	}
}

func TestQueueChanged_ReArmsDebounce(t *testing.T) {
	target := &fakeTarget{}
	query := &fakeQuery{}
	m := New(target, query, Options{
		Debounce: 50 * time.Millisecond,
		Interval: time.Hour,
		Logger:   nopLogger(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	m.QueueChanged()
	time.Sleep(25 * time.Millisecond)
	m.QueueChanged() // pushes the deadline out

	if target.applies() != 0 {
		t.Error("check fired before the re-armed debounce elapsed")
	}

	deadline := time.Now().Add(2 * time.Second)
	for target.applies() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if target.applies() != 1 {
		t.Errorf("applied %d times, want 1", target.applies())
	}
}

func TestPeriodicBackstop(t *testing.T) {
	target := &fakeTarget{}
	query := &fakeQuery{}
	m := New(target, query, Options{
		Debounce: time.Hour,
		Interval: 20 * time.Millisecond,
		Logger:   nopLogger(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for target.applies() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if target.applies() == 0 {
		t.Error("periodic tick never ran a check")
	}
}
