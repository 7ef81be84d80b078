package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zreik-blanc/pakky/internal/brew"
	"github.com/zreik-blanc/pakky/internal/config"
	"github.com/zreik-blanc/pakky/internal/exec"
	"github.com/zreik-blanc/pakky/internal/platform"
	"github.com/zreik-blanc/pakky/internal/script"
	"github.com/zreik-blanc/pakky/internal/tui/components"
	"github.com/zreik-blanc/pakky/internal/tui/prompt"
)

func newScriptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "script",
		Short: "Run post-install setup scripts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List available script templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScriptList()
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "suggest",
		Short: "Suggest scripts matching installed packages",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScriptSuggest()
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "run <template-id>",
		Short: "Run one script template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScriptRun(args[0])
		},
	})

	return cmd
}

func loadTemplates() ([]script.Template, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return script.LoadAll(cfg.Scripts.TemplatesDir)
}

func runScriptList() error {
	templates, err := loadTemplates()
	if err != nil {
		return err
	}
	for _, tpl := range templates {
		fmt.Printf("  %-20s %-12s %s\n", tpl.ID, tpl.Category, tpl.Description)
	}
	return nil
}

// installedNames queries brew for the installed set. Failures return an
// empty list so suggestions and conditions degrade instead of erroring.
func installedNames(ctx context.Context, cfg *config.Config) []string {
	client := brew.NewClient(cfg.Brew.Bin, &exec.DefaultRunner{}, setupLogger())
	set, err := client.Installed(ctx)
	if err != nil {
		return nil
	}
	return set.Names()
}

func runScriptSuggest() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	templates, err := script.LoadAll(cfg.Scripts.TemplatesDir)
	if err != nil {
		return err
	}

	suggested := script.Suggest(templates, installedNames(context.Background(), cfg))
	if len(suggested) == 0 {
		fmt.Println("No suggestions for the installed packages.")
		return nil
	}
	for _, tpl := range suggested {
		fmt.Printf("  %-20s %s\n", tpl.ID, tpl.Description)
	}
	return nil
}

func runScriptRun(id string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := setupLogger()

	templates, err := script.LoadAll(cfg.Scripts.TemplatesDir)
	if err != nil {
		return err
	}

	var tpl *script.Template
	for i := range templates {
		if templates[i].ID == id {
			tpl = &templates[i]
			break
		}
	}
	if tpl == nil {
		return fmt.Errorf("unknown script template %q", id)
	}

	ctx := context.Background()
	facts := platform.NewFacts(installedNames(ctx, cfg))

	engine := script.NewEngine(
		facts,
		prompt.NewProvider(components.DefaultStyles()),
		&script.ShellExecutor{Runner: &exec.DefaultRunner{}, Shell: cfg.Scripts.Shell},
		logger,
	)

	fmt.Printf("Running %s\n", tpl.Name)
	results, runErr := engine.Run(ctx, []script.Step{tpl.Step})
	for _, r := range results {
		printStepResult(r)
	}
	return runErr
}

func printStepResult(r script.StepResult) {
	switch r.Outcome {
	case script.OutcomeSkipped:
		fmt.Printf("  ~ %s (%s)\n", r.Step, r.Reason)
	case script.OutcomeFailed:
		fmt.Printf("  ✗ %s: %s\n", r.Step, r.Reason)
	default:
		fmt.Printf("  ✓ %s\n", r.Step)
	}
	for _, c := range r.Commands {
		if c.Err != "" {
			fmt.Printf("    %s: %s\n", c.Command, c.Err)
		}
	}
}
