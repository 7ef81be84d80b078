package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/zreik-blanc/pakky/internal/config"
	"github.com/zreik-blanc/pakky/internal/logging"
)

var (
	flagVerbose bool
	flagPlain   bool
)

func newRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pakky",
		Short: "Homebrew install queue and post-install automation",
		Long:  "pakky queues Homebrew formulae and casks, installs them in orchestrated sessions, and runs post-install setup scripts.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Show detailed log output")
	cmd.PersistentFlags().BoolVar(&flagPlain, "plain", false, "Plain text output instead of the interactive UI")

	cmd.AddCommand(newVersionCmd(version))
	cmd.AddCommand(newAddCmd())
	cmd.AddCommand(newRemoveCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newImportCmd())
	cmd.AddCommand(newInstallCmd())
	cmd.AddCommand(newReinstallCmd())
	cmd.AddCommand(newScriptCmd())
	cmd.AddCommand(newReconcileCmd())
	cmd.AddCommand(newAPICmd())

	return cmd
}

func newVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print pakky version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("pakky", version)
		},
	}
}

// loadConfig reads the config file, falling back to defaults when absent.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFromFile(config.ConfigFilePath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return config.Defaults(), nil
		}
		return nil, err
	}
	return cfg, nil
}

// setupLogger builds the file logger; logging failures degrade to a no-op.
func setupLogger() *slog.Logger {
	logger, err := logging.Setup(config.LogFilePath(), flagVerbose)
	if err != nil {
		return slog.New(logging.NopHandler{})
	}
	return logger
}

func Execute(version string) error {
	return newRootCmd(version).Execute()
}
