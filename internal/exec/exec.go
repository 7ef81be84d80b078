// Package exec wraps external command execution behind a Runner interface so
// brew invocations and script commands can be mocked in tests.
package exec

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
)

// Result holds the output and exit code of a command execution.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// LineFunc receives one line of combined output as it is produced.
type LineFunc func(line string)

// Runner executes external commands. DefaultRunner runs real commands;
// MockRunner serves tests.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)

	// RunStream executes the command and delivers each output line to
	// onLine as it arrives, in order. Stdout and stderr are merged
	// line-by-line; ordering between the two streams is best-effort but
	// lines are never torn.
	RunStream(ctx context.Context, onLine LineFunc, name string, args ...string) (Result, error)
}

// DefaultRunner executes commands on the real system.
type DefaultRunner struct{}

// Run executes the named command and returns captured output.
func (d *DefaultRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	result := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		}
		return result, fmt.Errorf("command %q failed: %w\nstderr: %s", name, err, stderr.String())
	}

	return result, nil
}

// RunStream executes the named command, scanning stdout and stderr
// concurrently and delivering whole lines to onLine. The full output is
// also captured in the returned Result.
func (d *DefaultRunner) RunStream(ctx context.Context, onLine LineFunc, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	outPipe, err := cmd.StdoutPipe()
	if err != nil {
		return Result{}, fmt.Errorf("stdout pipe: %w", err)
	}
	errPipe, err := cmd.StderrPipe()
	if err != nil {
		return Result{}, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return Result{}, fmt.Errorf("starting %q: %w", name, err)
	}

	var mu sync.Mutex
	var stdout, stderr strings.Builder
	var wg sync.WaitGroup

	scan := func(r io.Reader, buf *strings.Builder) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			mu.Lock()
			buf.WriteString(line)
			buf.WriteByte('\n')
			if onLine != nil {
				onLine(line)
			}
			mu.Unlock()
		}
	}

	wg.Add(2)
	go scan(outPipe, &stdout)
	go scan(errPipe, &stderr)
	wg.Wait()

	waitErr := cmd.Wait()

	result := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if waitErr != nil {
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		}
		return result, fmt.Errorf("command %q failed: %w", name, waitErr)
	}

	return result, nil
}

// CommandExists checks whether a command is available on the system PATH.
func CommandExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// MockRunner is a test double that returns pre-configured results for
// commands. The key is formed as "name arg1 arg2 ...".
type MockRunner struct {
	Results map[string]Result
	Calls   []string
}

func (m *MockRunner) lookup(name string, args ...string) (Result, error) {
	key := name
	if len(args) > 0 {
		key = name + " " + strings.Join(args, " ")
	}
	m.Calls = append(m.Calls, key)

	result, ok := m.Results[key]
	if !ok {
		return Result{}, fmt.Errorf("unexpected command: %q", key)
	}
	if result.ExitCode != 0 {
		return result, fmt.Errorf("command %q exited with code %d", key, result.ExitCode)
	}
	return result, nil
}

// Run looks up the command key in the Results map.
func (m *MockRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	return m.lookup(name, args...)
}

// RunStream behaves like Run but also replays the configured stdout and
// stderr through onLine, line by line, before returning.
func (m *MockRunner) RunStream(ctx context.Context, onLine LineFunc, name string, args ...string) (Result, error) {
	result, err := m.lookup(name, args...)
	if onLine != nil {
		for _, out := range []string{result.Stdout, result.Stderr} {
			for _, line := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
				if line != "" {
					onLine(line)
				}
			}
		}
	}
	return result, err
}
