// Package script evaluates post-install automation scripts: ordered steps,
// each gated by a condition, parameterized by user-supplied variables, and
// executed as templated shell commands with a per-step error policy.
package script

import (
	"strings"

	"github.com/zreik-blanc/pakky/internal/platform"
)

// Condition prefixes recognized in step definitions.
const (
	ConditionAlways        = "always"
	ConditionMacOS         = "macos"
	conditionPackagePrefix = "package_installed:"
)

// InputSpec declares one user-supplied variable for a step.
type InputSpec struct {
	Message    string `yaml:"message"`
	Default    string `yaml:"default,omitempty"`
	Validation string `yaml:"validation,omitempty"`
}

// Step is one automation step.
type Step struct {
	Name            string               `yaml:"name"`
	Condition       string               `yaml:"condition"`
	Prompt          string               `yaml:"prompt,omitempty"`
	PromptForInput  map[string]InputSpec `yaml:"prompt_for_input,omitempty"`
	Commands        []string             `yaml:"commands"`
	ContinueOnError bool                 `yaml:"continue_on_error,omitempty"`
}

// Template wraps a step with metadata used for discovery and suggestion.
type Template struct {
	ID           string   `yaml:"id"`
	Name         string   `yaml:"name"`
	Description  string   `yaml:"description"`
	Category     string   `yaml:"category"`
	SuggestedFor []string `yaml:"suggested_for,omitempty"`
	Step         Step     `yaml:"step"`
}

// EvalCondition reports whether a step's condition holds against the facts.
// Unknown conditions evaluate false, so a typo skips rather than runs.
func EvalCondition(condition string, facts platform.Facts) bool {
	switch {
	case condition == "" || condition == ConditionAlways:
		return true
	case condition == ConditionMacOS:
		return facts.Platform == platform.PlatformMacOS
	case strings.HasPrefix(condition, conditionPackagePrefix):
		name := strings.TrimPrefix(condition, conditionPackagePrefix)
		return facts.Installed[name]
	default:
		return false
	}
}

// Suggest returns the templates whose SuggestedFor substrings match any of
// the installed package names, in template order.
func Suggest(templates []Template, installedNames []string) []Template {
	var out []Template
	for _, tpl := range templates {
		if matchesAny(tpl.SuggestedFor, installedNames) {
			out = append(out, tpl)
		}
	}
	return out
}

func matchesAny(substrings, names []string) bool {
	for _, sub := range substrings {
		for _, name := range names {
			if strings.Contains(name, sub) {
				return true
			}
		}
	}
	return false
}
