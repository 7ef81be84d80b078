// Package brew shells out to the Homebrew CLI: installing packages with
// streamed output, querying the installed set, and looking up descriptions.
package brew

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/zreik-blanc/pakky/internal/exec"
	"github.com/zreik-blanc/pakky/internal/queue"
)

// InstalledSet holds the names of currently installed formulae and casks.
type InstalledSet struct {
	Formulae map[string]bool
	Casks    map[string]bool
}

// Contains reports whether name is installed as either kind.
func (s InstalledSet) Contains(name string) bool {
	return s.Formulae[name] || s.Casks[name]
}

// ContainsItem reports whether the item's package is installed as its own kind.
func (s InstalledSet) ContainsItem(it queue.Item) bool {
	if it.Type == queue.TypeCask {
		return s.Casks[it.Name]
	}
	return s.Formulae[it.Name]
}

// Names returns every installed package name, formulae first.
func (s InstalledSet) Names() []string {
	names := make([]string, 0, len(s.Formulae)+len(s.Casks))
	for n := range s.Formulae {
		names = append(names, n)
	}
	for n := range s.Casks {
		names = append(names, n)
	}
	return names
}

// Client drives the brew binary through an exec.Runner.
type Client struct {
	bin    string
	runner exec.Runner
	logger *slog.Logger
}

// NewClient creates a Client. bin defaults to "brew" when empty.
func NewClient(bin string, runner exec.Runner, logger *slog.Logger) *Client {
	if bin == "" {
		bin = "brew"
	}
	return &Client{bin: bin, runner: runner, logger: logger}
}

// Install runs `brew install` (or `brew reinstall` for items carrying the
// reinstall action) for the item, delivering output lines to onLine as they
// arrive. A non-zero exit is returned as an error whose message carries the
// last of the captured stderr.
func (c *Client) Install(ctx context.Context, it queue.Item, onLine exec.LineFunc) error {
	verb := "install"
	if it.Action == queue.ActionReinstall {
		verb = "reinstall"
	}

	args := []string{verb}
	if it.Type == queue.TypeCask {
		args = append(args, "--cask")
	}
	args = append(args, it.Name)

	c.logger.Info("running brew",
		slog.String("verb", verb),
		slog.String("package", it.ID),
	)

	result, err := c.runner.RunStream(ctx, onLine, c.bin, args...)
	if err != nil {
		reason := lastLine(result.Stderr)
		if reason == "" {
			reason = err.Error()
		}
		return fmt.Errorf("brew %s %s: %s", verb, it.Name, reason)
	}
	return nil
}

// Installed queries the currently installed formula and cask names. Both
// queries must succeed; a failure means the caller should treat the queue
// as unchanged.
func (c *Client) Installed(ctx context.Context) (InstalledSet, error) {
	set := InstalledSet{
		Formulae: make(map[string]bool),
		Casks:    make(map[string]bool),
	}

	formulae, err := c.list(ctx, "--formula")
	if err != nil {
		return InstalledSet{}, fmt.Errorf("listing formulae: %w", err)
	}
	for _, n := range formulae {
		set.Formulae[n] = true
	}

	casks, err := c.list(ctx, "--cask")
	if err != nil {
		return InstalledSet{}, fmt.Errorf("listing casks: %w", err)
	}
	for _, n := range casks {
		set.Casks[n] = true
	}

	return set, nil
}

func (c *Client) list(ctx context.Context, kindFlag string) ([]string, error) {
	result, err := c.runner.Run(ctx, c.bin, "list", "-1", kindFlag)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, line := range strings.Split(result.Stdout, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			names = append(names, line)
		}
	}
	return names, nil
}

// Describe returns the one-line description for a package, used to lazily
// enrich newly queued items. Lookup failures are reported so the caller can
// swallow them.
func (c *Client) Describe(ctx context.Context, it queue.Item) (string, error) {
	args := []string{"desc"}
	if it.Type == queue.TypeCask {
		args = append(args, "--cask")
	}
	args = append(args, it.Name)

	result, err := c.runner.Run(ctx, c.bin, args...)
	if err != nil {
		return "", err
	}

	// Output shape: "name: description".
	line := strings.TrimSpace(result.Stdout)
	if _, desc, ok := strings.Cut(line, ":"); ok {
		return strings.TrimSpace(desc), nil
	}
	return line, nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if trimmed := strings.TrimSpace(lines[i]); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
