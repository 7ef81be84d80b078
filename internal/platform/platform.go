// Package platform exposes the facts script conditions are evaluated
// against: the platform name and the installed package set.
package platform

import "runtime"

// PlatformMacOS is the platform name script conditions test for.
const PlatformMacOS = "macos"

// Facts is the fact set consumed by the script engine.
type Facts struct {
	// Platform is the normalized platform name: "macos", "linux", ...
	Platform string

	// Installed holds every installed package name (formulae and casks).
	Installed map[string]bool
}

// Name returns the normalized platform name for the current OS.
func Name() string {
	switch runtime.GOOS {
	case "darwin":
		return PlatformMacOS
	default:
		return runtime.GOOS
	}
}

// NewFacts builds a fact set for the current platform and the given
// installed package names.
func NewFacts(installedNames []string) Facts {
	installed := make(map[string]bool, len(installedNames))
	for _, n := range installedNames {
		installed[n] = true
	}
	return Facts{Platform: Name(), Installed: installed}
}
