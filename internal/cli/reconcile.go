package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zreik-blanc/pakky/internal/brew"
	"github.com/zreik-blanc/pakky/internal/config"
	"github.com/zreik-blanc/pakky/internal/exec"
	"github.com/zreik-blanc/pakky/internal/orchestrator"
	"github.com/zreik-blanc/pakky/internal/queue"
	"github.com/zreik-blanc/pakky/internal/reconcile"
)

func newReconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Mark queued packages that are already installed",
		Long:  "Check brew's installed set against the queue and flip pending packages that were installed outside pakky to already_installed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile()
		},
	}
}

func runReconcile() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := setupLogger()

	q, err := queue.Load(config.QueueFilePath())
	if err != nil {
		return fmt.Errorf("loading queue: %w", err)
	}
	if len(q) == 0 {
		fmt.Println("Queue is empty, nothing to reconcile.")
		return nil
	}

	client := brew.NewClient(cfg.Brew.Bin, &exec.DefaultRunner{}, logger)
	orch := orchestrator.New(q, orchestrator.Options{Logger: logger})

	before := statusCounts(orch.Queue())
	monitor := reconcile.New(orch, client, reconcile.Options{Logger: logger})
	monitor.RunOnce(context.Background())

	if err := queue.Save(config.QueueFilePath(), orch.Queue()); err != nil {
		return fmt.Errorf("saving queue: %w", err)
	}

	after := statusCounts(orch.Queue())
	changed := after[queue.StatusAlreadyInstalled] - before[queue.StatusAlreadyInstalled]
	fmt.Printf("Reconciled: %d packages marked already installed.\n", changed)
	return nil
}

func statusCounts(q queue.Queue) map[queue.Status]int {
	counts := map[queue.Status]int{}
	for _, it := range q {
		counts[it.Status]++
	}
	return counts
}
