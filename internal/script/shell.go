package script

import (
	"context"
	"strings"

	"github.com/zreik-blanc/pakky/internal/exec"
)

// ShellExecutor runs interpolated commands through `sh -c` via an
// exec.Runner, capturing combined output lines.
type ShellExecutor struct {
	Runner exec.Runner
	Shell  string // defaults to /bin/sh
}

// Exec implements CommandExecutor.
func (s *ShellExecutor) Exec(ctx context.Context, command string) (int, []string, error) {
	shell := s.Shell
	if shell == "" {
		shell = "/bin/sh"
	}

	var lines []string
	result, err := s.Runner.RunStream(ctx, func(line string) {
		lines = append(lines, line)
	}, shell, "-c", command)

	if err != nil && result.ExitCode != 0 {
		// Non-zero exit is reported through the code; keep output usable.
		return result.ExitCode, lines, nil
	}
	return result.ExitCode, lines, err
}

// CombinedOutput joins a command result's output lines for display.
func CombinedOutput(lines []string) string {
	return strings.Join(lines, "\n")
}
