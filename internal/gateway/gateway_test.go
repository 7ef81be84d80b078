package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/zreik-blanc/pakky/internal/events"
	"github.com/zreik-blanc/pakky/internal/exec"
	"github.com/zreik-blanc/pakky/internal/logging"
	"github.com/zreik-blanc/pakky/internal/orchestrator"
	"github.com/zreik-blanc/pakky/internal/queue"
	"github.com/zreik-blanc/pakky/internal/script"
)

type noopInstaller struct{}

func (noopInstaller) Install(ctx context.Context, it queue.Item, onLine exec.LineFunc) error {
	return nil
}

func testGateway() (*Gateway, *orchestrator.Orchestrator, *events.Bus) {
	bus := events.NewBus(16)
	orch := orchestrator.New(queue.Queue{}, orchestrator.Options{
		Installer: noopInstaller{},
		Bus:       bus,
		Logger:    slog.New(logging.NopHandler{}),
	})
	templates := func() ([]script.Template, error) {
		return []script.Template{
			{ID: "git-ssh", Name: "Git SSH", SuggestedFor: []string{"git"}},
		}, nil
	}
	return New(orch, bus, templates), orch, bus
}

func dispatch(t *testing.T, g *Gateway, op string, params any) Response {
	t.Helper()
	var raw json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			t.Fatal(err)
		}
		raw = data
	}
	return g.Dispatch(context.Background(), Request{Op: op, Params: raw})
}

func TestDispatch_UnknownOperationRejected(t *testing.T) {
	g, _, _ := testGateway()

	resp := dispatch(t, g, "system.exec", map[string]string{"cmd": "rm -rf /"})
	if resp.OK {
		t.Fatal("unknown operation accepted")
	}
	if resp.Error.Code != CodeNotAllowed {
		t.Errorf("code = %q, want NOT_ALLOWED", resp.Error.Code)
	}
}

func TestDispatch_QueueAddAndList(t *testing.T) {
	g, orch, _ := testGateway()

	resp := dispatch(t, g, OpQueueAdd, map[string]string{"name": "docker", "type": "cask"})
	if !resp.OK {
		t.Fatalf("queue.add failed: %+v", resp.Error)
	}

	// Duplicate add is a no-op, not an error.
	resp = dispatch(t, g, OpQueueAdd, map[string]string{"name": "docker", "type": "cask"})
	if !resp.OK {
		t.Fatalf("duplicate add errored: %+v", resp.Error)
	}
	var result struct {
		Added int `json:"added"`
	}
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		t.Fatal(err)
	}
	if result.Added != 0 {
		t.Errorf("duplicate add reported %d additions", result.Added)
	}

	if q := orch.Queue(); len(q) != 1 || q[0].ID != "cask:docker" {
		t.Errorf("queue = %+v", q)
	}

	resp = dispatch(t, g, OpQueueList, nil)
	if !resp.OK {
		t.Fatalf("queue.list failed: %+v", resp.Error)
	}
	var items []queue.Item
	if err := json.Unmarshal(resp.Data, &items); err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Errorf("items = %v", items)
	}
}

func TestDispatch_QueueAddValidation(t *testing.T) {
	g, _, _ := testGateway()

	resp := dispatch(t, g, OpQueueAdd, map[string]string{"name": "x", "type": "bottle"})
	if resp.OK || resp.Error.Code != CodeValidation {
		t.Errorf("bad type: %+v", resp)
	}
	resp = dispatch(t, g, OpQueueAdd, map[string]string{"type": "formula"})
	if resp.OK || resp.Error.Code != CodeValidation {
		t.Errorf("missing name: %+v", resp)
	}
}

func TestDispatch_QueueRemove(t *testing.T) {
	bus := events.NewBus(16)
	orch := orchestrator.New(queue.Queue{
		{ID: "formula:jq", Name: "jq", Type: queue.TypeFormula, Status: queue.StatusInstalling},
	}, orchestrator.Options{
		Installer: noopInstaller{},
		Bus:       bus,
		Logger:    slog.New(logging.NopHandler{}),
	})
	g := New(orch, bus, nil)

	resp := dispatch(t, g, OpQueueRemove, map[string]string{"id": "formula:jq"})
	if resp.OK || resp.Error.Code != CodeSessionActive {
		t.Errorf("removing installing item: %+v, want SESSION_ACTIVE", resp)
	}

	// An absent ID is a no-op, never a session error.
	resp = dispatch(t, g, OpQueueRemove, map[string]string{"id": "formula:ghost"})
	if !resp.OK {
		t.Errorf("removing absent id errored: %+v", resp.Error)
	}
}

func TestDispatch_InstallStartAndStatus(t *testing.T) {
	g, orch, _ := testGateway()
	dispatch(t, g, OpQueueAdd, map[string]string{"name": "jq", "type": "formula"})

	resp := dispatch(t, g, OpInstallStart, nil)
	if !resp.OK {
		t.Fatalf("install.start failed: %+v", resp.Error)
	}

	deadline := time.Now().Add(2 * time.Second)
	for !orchestrator.IsSessionTerminal(orch.Session().Status) && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	resp = dispatch(t, g, OpInstallStatus, nil)
	if !resp.OK {
		t.Fatalf("install.status failed: %+v", resp.Error)
	}
	var status struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(resp.Data, &status); err != nil {
		t.Fatal(err)
	}
	if status.Status != string(orchestrator.SessionCompleted) {
		t.Errorf("status = %q, want completed", status.Status)
	}
}

func TestDispatch_ReinstallUnknownItem(t *testing.T) {
	g, _, _ := testGateway()

	resp := dispatch(t, g, OpInstallReinstall, map[string]string{"id": "formula:ghost"})
	if resp.OK || resp.Error.Code != CodeNotFound {
		t.Errorf("resp = %+v, want NOT_FOUND", resp)
	}
}

func TestDispatch_ScriptSuggest(t *testing.T) {
	g, _, _ := testGateway()

	resp := dispatch(t, g, OpScriptSuggest, map[string][]string{"installed": {"git"}})
	if !resp.OK {
		t.Fatalf("script.suggest failed: %+v", resp.Error)
	}
	var templates []script.Template
	if err := json.Unmarshal(resp.Data, &templates); err != nil {
		t.Fatal(err)
	}
	if len(templates) != 1 || templates[0].ID != "git-ssh" {
		t.Errorf("templates = %v", templates)
	}

	resp = dispatch(t, g, OpScriptSuggest, map[string][]string{"installed": {}})
	if !resp.OK {
		t.Fatalf("script.suggest failed: %+v", resp.Error)
	}
}

func TestSubscribe_AllowedChannels(t *testing.T) {
	g, orch, _ := testGateway()

	got := make(chan events.Event, 16)
	unsub, err := g.Subscribe(ChannelInstallProgress, func(ev events.Event) {
		got <- ev
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer unsub()

	dispatch(t, g, OpQueueAdd, map[string]string{"name": "jq", "type": "formula"})
	if err := orch.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	select {
	case <-got:
	case <-time.After(2 * time.Second):
		t.Fatal("no progress events delivered")
	}
}

func TestSubscribe_UnknownChannelRejected(t *testing.T) {
	g, _, _ := testGateway()

	if _, err := g.Subscribe("system.secrets", func(events.Event) {}); err == nil {
		t.Error("unknown channel accepted")
	}
}
