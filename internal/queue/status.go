package queue

import "fmt"

// Status is the install lifecycle state of a queued item.
type Status string

const (
	StatusPending          Status = "pending"
	StatusInstalling       Status = "installing"
	StatusSuccess          Status = "success"
	StatusFailed           Status = "failed"
	StatusAlreadyInstalled Status = "already_installed"
	StatusSkipped          Status = "skipped"
)

// terminalStatuses are states an item only leaves through an explicit user
// action (reinstall).
var terminalStatuses = map[Status]bool{
	StatusSuccess: true,
	StatusFailed:  true,
	StatusSkipped: true,
}

// validTransitions enumerates every allowed item status change. The
// orchestrator owns pending ↔ installing → terminal; reconciliation may
// flip pending and skipped items to already_installed; reinstall resets a
// terminal item back to pending.
var validTransitions = map[Status]map[Status]bool{
	StatusPending: {
		StatusInstalling:       true,
		StatusAlreadyInstalled: true,
		StatusSkipped:          true,
	},
	StatusInstalling: {
		StatusSuccess: true,
		StatusFailed:  true,
		StatusSkipped: true,
	},
	StatusAlreadyInstalled: {
		StatusPending:    true, // reinstall
		StatusInstalling: true,
	},
	StatusSuccess: {
		StatusPending: true, // reinstall
	},
	StatusFailed: {
		StatusPending: true, // reinstall
	},
	StatusSkipped: {
		StatusPending:          true, // reinstall
		StatusAlreadyInstalled: true,
	},
}

// IsTerminal reports whether s is a per-item terminal status.
func IsTerminal(s Status) bool {
	return terminalStatuses[s]
}

// ValidateTransition returns an error if from → to is not an allowed item
// status change.
func ValidateTransition(from, to Status) error {
	allowed, ok := validTransitions[from]
	if !ok {
		return fmt.Errorf("unknown status %q", from)
	}
	if !allowed[to] {
		return fmt.Errorf("invalid status transition: %q → %q", from, to)
	}
	return nil
}
