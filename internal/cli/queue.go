package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/zreik-blanc/pakky/internal/brew"
	"github.com/zreik-blanc/pakky/internal/config"
	"github.com/zreik-blanc/pakky/internal/exec"
	"github.com/zreik-blanc/pakky/internal/queue"
)

const describeTimeout = 10 * time.Second

func newAddCmd() *cobra.Command {
	var cask bool

	cmd := &cobra.Command{
		Use:   "add <package>...",
		Short: "Add packages to the install queue",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(args, cask)
		},
	}
	cmd.Flags().BoolVar(&cask, "cask", false, "Queue as casks instead of formulae")
	return cmd
}

func runAdd(names []string, cask bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	q, err := queue.Load(config.QueueFilePath())
	if err != nil {
		return fmt.Errorf("loading queue: %w", err)
	}

	pkgType := queue.TypeFormula
	if cask {
		pkgType = queue.TypeCask
	}

	candidates := make([]queue.Candidate, 0, len(names))
	for _, name := range names {
		candidates = append(candidates, queue.Candidate{Name: name, Type: pkgType})
	}

	q, added := queue.Add(q, candidates...)
	if len(added) == 0 {
		fmt.Println("All packages already queued.")
		return nil
	}

	// Descriptions are decoration; a failed or slow lookup never blocks add.
	client := brew.NewClient(cfg.Brew.Bin, &exec.DefaultRunner{}, setupLogger())
	ctx, cancel := context.WithTimeout(context.Background(), describeTimeout)
	defer cancel()
	for _, it := range added {
		desc, err := client.Describe(ctx, it)
		if err != nil || desc == "" {
			continue
		}
		if i := queue.Find(q, it.ID); i >= 0 {
			q[i].Description = desc
		}
	}

	if err := queue.Save(config.QueueFilePath(), q); err != nil {
		return fmt.Errorf("saving queue: %w", err)
	}

	for _, it := range added {
		fmt.Printf("Queued %s (%s)\n", it.Name, it.Type)
	}
	return nil
}

func newRemoveCmd() *cobra.Command {
	var cask bool

	cmd := &cobra.Command{
		Use:   "remove <package>...",
		Short: "Remove packages from the install queue",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemove(args, cask)
		},
	}
	cmd.Flags().BoolVar(&cask, "cask", false, "Remove casks instead of formulae")
	return cmd
}

func runRemove(names []string, cask bool) error {
	q, err := queue.Load(config.QueueFilePath())
	if err != nil {
		return fmt.Errorf("loading queue: %w", err)
	}

	pkgType := queue.TypeFormula
	if cask {
		pkgType = queue.TypeCask
	}

	for _, name := range names {
		id := queue.ItemID(pkgType, name)
		before := len(q)
		q = queue.Remove(q, id)
		if len(q) == before {
			fmt.Printf("Not queued: %s\n", name)
		} else {
			fmt.Printf("Removed %s\n", name)
		}
	}

	if err := queue.Save(config.QueueFilePath(), q); err != nil {
		return fmt.Errorf("saving queue: %w", err)
	}
	return nil
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the install queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList()
		},
	}
}

func runList() error {
	q, err := queue.Load(config.QueueFilePath())
	if err != nil {
		return fmt.Errorf("loading queue: %w", err)
	}

	if len(q) == 0 {
		fmt.Println("Queue is empty. Use 'pakky add' to queue packages.")
		return nil
	}

	for _, it := range q {
		line := fmt.Sprintf("  %-12s %-8s %s", it.Status, it.Type, it.Name)
		if it.Description != "" {
			line += "  " + it.Description
		}
		if it.Error != "" {
			line += fmt.Sprintf("  (%s)", it.Error)
		}
		fmt.Println(line)
	}
	return nil
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import a preset file into the queue",
		Long:  "Merge a preset (a saved queue snapshot or a bare item list) into the queue. Packages already queued are left untouched.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(args[0])
		},
	}
}

func runImport(path string) error {
	items, err := queue.LoadPreset(path)
	if err != nil {
		return fmt.Errorf("loading preset: %w", err)
	}

	q, err := queue.Load(config.QueueFilePath())
	if err != nil {
		return fmt.Errorf("loading queue: %w", err)
	}

	before := len(q)
	q = queue.Merge(q, items)
	if err := queue.Save(config.QueueFilePath(), q); err != nil {
		return fmt.Errorf("saving queue: %w", err)
	}

	fmt.Printf("Imported %d new packages (%d in preset).\n", len(q)-before, len(items))
	return nil
}
