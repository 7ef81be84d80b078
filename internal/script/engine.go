package script

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/zreik-blanc/pakky/internal/platform"
)

// Outcome is the terminal result of one step.
type Outcome string

const (
	OutcomeRan     Outcome = "ran"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// maxInputAttempts bounds re-prompting after a validation failure.
const maxInputAttempts = 3

// InputRequest asks the provider for one variable value.
type InputRequest struct {
	Variable   string
	Message    string
	Default    string
	Validation string
}

// InputProvider supplies user-entered variable values and confirmations.
// Implementations block until the user responds or declines.
type InputProvider interface {
	// Input returns the entered value; ok is false when the user declined.
	Input(req InputRequest) (value string, ok bool, err error)

	// Confirm asks a yes/no question.
	Confirm(prompt string) (bool, error)
}

// CommandExecutor runs one interpolated command string and returns its exit
// code and captured output lines.
type CommandExecutor interface {
	Exec(ctx context.Context, command string) (exitCode int, output []string, err error)
}

// CommandResult records one command invocation within a step.
type CommandResult struct {
	Command string
	Output  []string
	Err     string
}

// StepResult is the terminal outcome of one step plus its invocation log.
type StepResult struct {
	Step     string
	Outcome  Outcome
	Reason   string // why the step was skipped or failed
	Commands []CommandResult
}

// Engine runs a chosen sequence of steps against a fact set, an input
// provider, and a command executor.
type Engine struct {
	facts    platform.Facts
	input    InputProvider
	executor CommandExecutor
	logger   *slog.Logger
}

// NewEngine creates an Engine.
func NewEngine(facts platform.Facts, input InputProvider, executor CommandExecutor, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{facts: facts, input: input, executor: executor, logger: logger}
}

// Run executes the steps in order. A command failure in a step with
// continue_on_error=false aborts the whole run: the failing step reports
// OutcomeFailed and later steps never appear in the results. All other
// failures are contained within their step.
func (e *Engine) Run(ctx context.Context, steps []Step) ([]StepResult, error) {
	var results []StepResult

	for _, step := range steps {
		result := e.runStep(ctx, step)
		results = append(results, result)

		if result.Outcome == OutcomeFailed && !step.ContinueOnError {
			return results, fmt.Errorf("step %q failed: %s", step.Name, result.Reason)
		}
	}
	return results, nil
}

func (e *Engine) runStep(ctx context.Context, step Step) StepResult {
	result := StepResult{Step: step.Name}

	// A false condition skips the step entirely: no prompts, no commands.
	if !EvalCondition(step.Condition, e.facts) {
		result.Outcome = OutcomeSkipped
		result.Reason = fmt.Sprintf("condition %q not met", step.Condition)
		e.logger.Info("step skipped",
			slog.String("step", step.Name),
			slog.String("condition", step.Condition),
		)
		return result
	}

	// Steps may arrive without passing through the template loader.
	if err := ValidateURLQuoting(step); err != nil {
		result.Outcome = OutcomeFailed
		result.Reason = err.Error()
		return result
	}

	// Collect variables once per step, not per command.
	values, declined, err := e.collectInputs(step)
	if err != nil {
		result.Outcome = OutcomeFailed
		result.Reason = err.Error()
		return result
	}
	if declined {
		result.Outcome = OutcomeSkipped
		result.Reason = "input declined"
		return result
	}

	// Optional confirmation gate; declining skips, it does not fail.
	if step.Prompt != "" {
		ok, err := e.input.Confirm(step.Prompt)
		if err != nil {
			result.Outcome = OutcomeFailed
			result.Reason = fmt.Sprintf("confirmation: %v", err)
			return result
		}
		if !ok {
			result.Outcome = OutcomeSkipped
			result.Reason = "declined by user"
			return result
		}
	}

	failed := false
	for _, tmpl := range step.Commands {
		cmd, err := Interpolate(tmpl, values)
		if err != nil {
			result.Commands = append(result.Commands, CommandResult{Command: tmpl, Err: err.Error()})
			failed = true
			if !step.ContinueOnError {
				break
			}
			continue
		}

		exitCode, output, execErr := e.executor.Exec(ctx, cmd)
		cr := CommandResult{Command: cmd, Output: output}
		if execErr != nil || exitCode != 0 {
			if execErr != nil {
				cr.Err = execErr.Error()
			} else {
				cr.Err = fmt.Sprintf("exit code %d", exitCode)
			}
			failed = true
			e.logger.Error("command failed",
				slog.String("step", step.Name),
				slog.String("command", cmd),
				slog.String("error", cr.Err),
			)
			result.Commands = append(result.Commands, cr)
			if !step.ContinueOnError {
				break
			}
			continue
		}
		result.Commands = append(result.Commands, cr)
	}

	// With continue_on_error the step completes despite logged failures;
	// without it the first failure is terminal for the whole run.
	if failed && !step.ContinueOnError {
		result.Outcome = OutcomeFailed
		result.Reason = lastCommandError(result.Commands)
		return result
	}
	result.Outcome = OutcomeRan
	return result
}

// collectInputs gathers every declared variable for the step, re-prompting
// a bounded number of times when validation fails. Variables are requested
// in sorted name order for determinism.
func (e *Engine) collectInputs(step Step) (values map[string]string, declined bool, err error) {
	if len(step.PromptForInput) == 0 {
		return map[string]string{}, false, nil
	}

	names := make([]string, 0, len(step.PromptForInput))
	for name := range step.PromptForInput {
		names = append(names, name)
	}
	sort.Strings(names)

	values = make(map[string]string, len(names))
	for _, name := range names {
		decl := step.PromptForInput[name]
		req := InputRequest{
			Variable:   name,
			Message:    decl.Message,
			Default:    decl.Default,
			Validation: decl.Validation,
		}

		var lastErr error
		accepted := false
		for attempt := 0; attempt < maxInputAttempts; attempt++ {
			value, ok, inputErr := e.input.Input(req)
			if inputErr != nil {
				return nil, false, fmt.Errorf("reading input for %q: %w", name, inputErr)
			}
			if !ok {
				return nil, true, nil
			}
			if lastErr = ValidateValue(name, value, decl.Validation); lastErr == nil {
				values[name] = value
				accepted = true
				break
			}
		}
		if !accepted {
			return nil, false, lastErr
		}
	}
	return values, false, nil
}

func lastCommandError(commands []CommandResult) string {
	for i := len(commands) - 1; i >= 0; i-- {
		if commands[i].Err != "" {
			return commands[i].Err
		}
	}
	return "command failed"
}
