package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/zreik-blanc/pakky/internal/brew"
	"github.com/zreik-blanc/pakky/internal/config"
	"github.com/zreik-blanc/pakky/internal/events"
	"github.com/zreik-blanc/pakky/internal/exec"
	"github.com/zreik-blanc/pakky/internal/orchestrator"
	"github.com/zreik-blanc/pakky/internal/queue"
	"github.com/zreik-blanc/pakky/internal/reconcile"
	"github.com/zreik-blanc/pakky/internal/tui/components"
	installtui "github.com/zreik-blanc/pakky/internal/tui/install"
)

func newInstallCmd() *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install everything pending in the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(workers)
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent installs (default from config)")
	return cmd
}

func runInstall(workers int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := setupLogger()

	if !exec.CommandExists(cfg.Brew.Bin) {
		return fmt.Errorf("%s not found; install Homebrew first (https://brew.sh)", cfg.Brew.Bin)
	}

	q, err := queue.Load(config.QueueFilePath())
	if err != nil {
		return fmt.Errorf("loading queue: %w", err)
	}
	if len(q) == 0 {
		fmt.Println("Queue is empty. Use 'pakky add' to queue packages.")
		return nil
	}

	if workers <= 0 {
		workers = cfg.Install.Workers
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
		Workers:   workers,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	monitor := reconcile.New(orch, client, reconcile.Options{
		Debounce: cfg.ReconcileDebounce(),
		Interval: cfg.ReconcileInterval(),
		Logger:   logger,
	})
	orch.SetQueueListener(monitor.QueueChanged)
	monitor.Start(ctx)

	var runErr error
	if flagPlain {
		runErr = runInstallPlain(ctx, orch, bus)
	} else {
		runErr = runInstallTUI(orch, bus)
	}

	if err := queue.Save(config.QueueFilePath(), orch.Queue()); err != nil {
		logger.Error("failed to save queue", "error", err)
	}

	printInstallSummary(orch.Queue())

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

// runInstallPlain streams progress as plain lines. Ctrl-C cancels
// cooperatively: running installs finish, remaining items stay pending.
func runInstallPlain(ctx context.Context, orch *orchestrator.Orchestrator, bus *events.Bus) error {
	unsubs := []func(){
		bus.Subscribe(events.TypeItemStatus, func(ev events.Event) {
			fmt.Printf("%s: %s\n", ev.ItemID, ev.Status)
		}),
		bus.Subscribe(events.TypeLogLine, func(ev events.Event) {
			fmt.Printf("  %s | %s\n", ev.ItemID, ev.Line)
		}),
	}
	defer func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}()

	return orch.Run(ctx)
}

func runInstallTUI(orch *orchestrator.Orchestrator, bus *events.Bus) error {
	bridge := installtui.NewBridge(orch, bus)
	defer bridge.Stop()

	model := installtui.NewModel(components.DefaultStyles(), orch.Queue(), bridge)
	out, err := tea.NewProgram(model).Run()
	if err != nil {
		return fmt.Errorf("running install UI: %w", err)
	}
	return out.(installtui.Model).Err()
}

func printInstallSummary(q queue.Queue) {
	counts := map[queue.Status]int{}
	for _, it := range q {
		counts[it.Status]++
	}
	fmt.Printf("\n%d installed, %d failed, %d skipped, %d already installed, %d pending\n",
		counts[queue.StatusSuccess],
		counts[queue.StatusFailed],
		counts[queue.StatusSkipped],
		counts[queue.StatusAlreadyInstalled],
		counts[queue.StatusPending])
	for _, it := range q {
		if it.Status == queue.StatusFailed && it.Error != "" {
			fmt.Printf("  %s failed: %s\n", it.Name, it.Error)
		}
	}
}

func newReinstallCmd() *cobra.Command {
	var cask bool

	cmd := &cobra.Command{
		Use:   "reinstall <package>",
		Short: "Queue an installed package for reinstallation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReinstall(args[0], cask)
		},
	}
	cmd.Flags().BoolVar(&cask, "cask", false, "Reinstall a cask instead of a formula")
	return cmd
}

func runReinstall(name string, cask bool) error {
	q, err := queue.Load(config.QueueFilePath())
	if err != nil {
		return fmt.Errorf("loading queue: %w", err)
	}

	pkgType := queue.TypeFormula
	if cask {
		pkgType = queue.TypeCask
	}
	id := queue.ItemID(pkgType, name)

	orch := orchestrator.New(q, orchestrator.Options{Logger: setupLogger()})
	if err := orch.Reinstall(id); err != nil {
		return err
	}

	if err := queue.Save(config.QueueFilePath(), orch.Queue()); err != nil {
		return fmt.Errorf("saving queue: %w", err)
	}

	fmt.Printf("%s queued for reinstall. Run 'pakky install' to apply.\n", name)
	return nil
}
