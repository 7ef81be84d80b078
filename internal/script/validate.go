package script

import (
	"fmt"
	"regexp"
	"strings"
)

// ValidationError reports a variable value that failed its declared
// validation kind or the shell-safety check.
type ValidationError struct {
	Variable string
	Reason   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid value for %q: %s", e.Variable, e.Reason)
}

var (
	emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	urlRe   = regexp.MustCompile(`^https?://[A-Za-z0-9._~:/?#&=%+-]+$`)

	// safeValueRe is the character set allowed in interpolated values.
	// Values reach a shell verbatim, so anything a shell could interpret
	// (quotes, backticks, redirects, separators, expansions) is rejected
	// outright rather than escaped.
	safeValueRe = regexp.MustCompile(`^[A-Za-z0-9@._/+:=,~ -]*$`)

	placeholderRe = regexp.MustCompile(`\{\{([A-Za-z_][A-Za-z0-9_]*)\}\}`)
)

// ValidateValue checks a collected variable value against its declared
// validation kind and the shell-safety character policy.
func ValidateValue(variable, value, kind string) error {
	switch kind {
	case "", "text":
		// No kind-specific shape.
	case "email":
		if !emailRe.MatchString(value) {
			return &ValidationError{Variable: variable, Reason: "not a valid email address"}
		}
	case "url":
		if !urlRe.MatchString(value) {
			return &ValidationError{Variable: variable, Reason: "not a valid http(s) URL"}
		}
		// URLs carry ? # & % legitimately, so the shell-safety charset does
		// not apply; ValidateURLQuoting requires their placeholders to be
		// single-quoted in the template instead.
		return nil
	case "path":
		if strings.ContainsAny(value, "\n\x00") || !safeValueRe.MatchString(value) {
			return &ValidationError{Variable: variable, Reason: "not a safe filesystem path"}
		}
		return nil
	default:
		return &ValidationError{Variable: variable, Reason: fmt.Sprintf("unknown validation kind %q", kind)}
	}

	if !safeValueRe.MatchString(value) {
		return &ValidationError{Variable: variable, Reason: "contains shell metacharacters"}
	}
	return nil
}

// ValidateURLQuoting rejects a step whose url-kind placeholders appear
// unquoted in a command template. url values may legitimately carry
// characters a shell would interpret (& ? #) but never a single quote, so
// '{{name}}' keeps them inert while bare {{name}} would not.
func ValidateURLQuoting(step Step) error {
	for name, decl := range step.PromptForInput {
		if decl.Validation != "url" {
			continue
		}
		placeholder := "{{" + name + "}}"
		quoted := "'" + placeholder + "'"
		for _, cmd := range step.Commands {
			if strings.Count(cmd, placeholder) != strings.Count(cmd, quoted) {
				return fmt.Errorf("step %q: %s must be single-quoted in command %q", step.Name, placeholder, cmd)
			}
		}
	}
	return nil
}

// Interpolate substitutes every {{name}} placeholder in the command template
// with its collected value. Every placeholder must have a value and every
// value must already have passed ValidateValue; an unresolved placeholder is
// an error, never passed through to the shell.
func Interpolate(command string, values map[string]string) (string, error) {
	var missing []string
	out := placeholderRe.ReplaceAllStringFunc(command, func(m string) string {
		name := placeholderRe.FindStringSubmatch(m)[1]
		v, ok := values[name]
		if !ok {
			missing = append(missing, name)
			return m
		}
		return v
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("unresolved placeholders: %s", strings.Join(missing, ", "))
	}
	return out, nil
}
