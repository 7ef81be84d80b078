package install

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zreik-blanc/pakky/internal/events"
	"github.com/zreik-blanc/pakky/internal/orchestrator"
)

// Bridge runs an install session in a background goroutine and converts bus
// events into tea.Msg values for the TUI.
type Bridge struct {
	orch   *orchestrator.Orchestrator
	bus    *events.Bus
	msgs   chan tea.Msg
	unsubs []func()
	ctx    context.Context
	cancel context.CancelFunc
}

// NewBridge creates a Bridge over the orchestrator and its event bus.
func NewBridge(orch *orchestrator.Orchestrator, bus *events.Bus) *Bridge {
	ctx, cancel := context.WithCancel(context.Background())
	return &Bridge{
		orch:   orch,
		bus:    bus,
		msgs:   make(chan tea.Msg, 256),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Cancel requests cooperative cancellation of the running session.
func (b *Bridge) Cancel() {
	b.orch.Cancel()
}

// send delivers a message, giving up if the TUI has shut down.
func (b *Bridge) send(msg tea.Msg) {
	select {
	case b.msgs <- msg:
	case <-b.ctx.Done():
	}
}

// Start subscribes to session events, launches the session goroutine, and
// returns a tea.Cmd delivering the first message.
func (b *Bridge) Start() tea.Cmd {
	b.unsubs = append(b.unsubs,
		b.bus.Subscribe(events.TypeItemStatus, func(ev events.Event) {
			b.send(ItemStatusMsg{ItemID: ev.ItemID, Status: ev.Status})
		}),
		b.bus.Subscribe(events.TypeSessionStatus, func(ev events.Event) {
			b.send(SessionStatusMsg{Status: ev.Status})
		}),
		b.bus.Subscribe(events.TypeLogLine, func(ev events.Event) {
			b.send(LogLineMsg{ItemID: ev.ItemID, Line: ev.Line})
		}),
	)

	go func() {
		err := b.orch.Run(b.ctx)
		b.send(DoneMsg{Err: err})
	}()

	return b.NextMsg()
}

// NextMsg returns a tea.Cmd that waits for the next bridge message.
func (b *Bridge) NextMsg() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-b.msgs:
			return msg
		case <-b.ctx.Done():
			return nil
		}
	}
}

// Stop tears down subscriptions after the TUI exits.
func (b *Bridge) Stop() {
	b.cancel()
	for _, unsub := range b.unsubs {
		unsub()
	}
	b.unsubs = nil
}
