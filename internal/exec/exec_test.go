package exec

import (
	"context"
	"runtime"
	"testing"
)

func TestRun_SimpleCommand(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test uses unix commands")
	}

	d := &DefaultRunner{}
	result, err := d.Run(context.Background(), "echo", "hello")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.ExitCode != 0 {
		t.Errorf("exit code = %d, want 0", result.ExitCode)
	}
	if result.Stdout != "hello\n" {
		t.Errorf("stdout = %q, want %q", result.Stdout, "hello\n")
	}
}

func TestRun_FailingCommand(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test uses unix commands")
	}

	d := &DefaultRunner{}
	_, err := d.Run(context.Background(), "false")
	if err == nil {
		t.Error("expected error for failing command")
	}
}

func TestRunStream_DeliversLinesInOrder(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test uses unix commands")
	}

	d := &DefaultRunner{}
	var lines []string
	result, err := d.RunStream(context.Background(), func(line string) {
		lines = append(lines, line)
	}, "sh", "-c", "echo one; echo two; echo three")
	if err != nil {
		t.Fatalf("RunStream: %v", err)
	}
	if result.Stdout != "one\ntwo\nthree\n" {
		t.Errorf("stdout = %q", result.Stdout)
	}
	want := []string{"one", "two", "three"}
	if len(lines) != len(want) {
		t.Fatalf("lines = %v", lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("lines[%d] = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestRunStream_FailingCommandStillStreams(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test uses unix commands")
	}

	d := &DefaultRunner{}
	var lines []string
	result, err := d.RunStream(context.Background(), func(line string) {
		lines = append(lines, line)
	}, "sh", "-c", "echo before; exit 3")
	if err == nil {
		t.Fatal("expected error")
	}
	if result.ExitCode != 3 {
		t.Errorf("exit code = %d, want 3", result.ExitCode)
	}
	if len(lines) != 1 || lines[0] != "before" {
		t.Errorf("lines = %v", lines)
	}
}

func TestCommandExists(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test uses unix commands")
	}

	if !CommandExists("echo") {
		t.Error("echo should exist")
	}
	if CommandExists("nonexistent_command_12345") {
		t.Error("nonexistent command should not exist")
	}
}

func TestMockRunner(t *testing.T) {
	mock := &MockRunner{
		Results: map[string]Result{
			"brew --version": {Stdout: "Homebrew 4.2.0\n", ExitCode: 0},
		},
	}

	result, err := mock.Run(context.Background(), "brew", "--version")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Stdout != "Homebrew 4.2.0\n" {
		t.Errorf("stdout = %q", result.Stdout)
	}
	if len(mock.Calls) != 1 || mock.Calls[0] != "brew --version" {
		t.Errorf("calls = %v", mock.Calls)
	}
}

func TestMockRunner_StreamReplaysLines(t *testing.T) {
	mock := &MockRunner{
		Results: map[string]Result{
			"brew install jq": {Stdout: "Downloading jq\nPouring jq\n"},
		},
	}

	var lines []string
	_, err := mock.RunStream(context.Background(), func(line string) {
		lines = append(lines, line)
	}, "brew", "install", "jq")
	if err != nil {
		t.Fatalf("RunStream: %v", err)
	}
	if len(lines) != 2 || lines[0] != "Downloading jq" {
		t.Errorf("lines = %v", lines)
	}
}
