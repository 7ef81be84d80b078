package orchestrator

// SessionStatus is the overall state of one install session.
type SessionStatus string

const (
	SessionIdle       SessionStatus = "idle"
	SessionChecking   SessionStatus = "checking"
	SessionInstalling SessionStatus = "installing"
	SessionCompleted  SessionStatus = "completed"
	SessionCancelled  SessionStatus = "cancelled"
)

// IsSessionTerminal reports whether s is a terminal session status.
func IsSessionTerminal(s SessionStatus) bool {
	return s == SessionCompleted || s == SessionCancelled
}

// session is the run-state of one orchestrator session. All fields are
// guarded by the orchestrator mutex.
type session struct {
	id     string
	status SessionStatus
	logs   map[string][]string // item ID → ordered, append-only log lines
}

func newSession(id string) *session {
	return &session{
		id:     id,
		status: SessionChecking,
		logs:   make(map[string][]string),
	}
}

// SessionView is an immutable snapshot of session state for presentation.
type SessionView struct {
	ID     string
	Status SessionStatus
	Logs   map[string][]string
}

func (s *session) view() SessionView {
	logs := make(map[string][]string, len(s.logs))
	for id, lines := range s.logs {
		logs[id] = append([]string(nil), lines...)
	}
	return SessionView{ID: s.id, Status: s.status, Logs: logs}
}
