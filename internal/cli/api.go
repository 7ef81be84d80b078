package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/zreik-blanc/pakky/internal/brew"
	"github.com/zreik-blanc/pakky/internal/config"
	"github.com/zreik-blanc/pakky/internal/events"
	"github.com/zreik-blanc/pakky/internal/exec"
	"github.com/zreik-blanc/pakky/internal/gateway"
	"github.com/zreik-blanc/pakky/internal/orchestrator"
	"github.com/zreik-blanc/pakky/internal/queue"
	"github.com/zreik-blanc/pakky/internal/script"
)

func newAPICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "api <op> [json-params]",
		Short: "Dispatch one gateway operation and print the JSON response",
		Long:  "Send an allow-listed operation (e.g. queue.list, queue.add, install.status) through the request gateway. Useful for front-ends and debugging.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := ""
			if len(args) == 2 {
				params = args[1]
			}
			return runAPI(args[0], params)
		},
	}
}

func runAPI(op, params string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := setupLogger()

	q, err := queue.Load(config.QueueFilePath())
	if err != nil {
		return fmt.Errorf("loading queue: %w", err)
	}

	client := brew.NewClient(cfg.Brew.Bin, &exec.DefaultRunner{}, logger)
	bus := events.NewBus(256)
	defer bus.Close()

	orch := orchestrator.New(q, orchestrator.Options{
		Installer: client,
		Query:     client,
		Describer: client,
		Bus:       bus,
		Logger:    logger,
		Workers:   cfg.Install.Workers,
	})

	gw := gateway.New(orch, bus, func() ([]script.Template, error) {
		return script.LoadAll(cfg.Scripts.TemplatesDir)
	})

	req := gateway.Request{Op: op}
	if params != "" {
		req.Params = json.RawMessage(params)
	}

	resp := gw.Dispatch(context.Background(), req)

	// install.start runs the session on a gateway goroutine. Block until it
	// reaches a terminal status so the snapshot saved below records outcomes,
	// never mid-session installing items.
	if op == gateway.OpInstallStart && resp.OK {
		for !orchestrator.IsSessionTerminal(orch.Session().Status) {
			time.Sleep(100 * time.Millisecond)
		}
	}

	if err := queue.Save(config.QueueFilePath(), orch.Queue()); err != nil {
		logger.Error("failed to save queue", "error", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("%s: %s", resp.Error.Code, resp.Error.Message)
	}
	return nil
}
