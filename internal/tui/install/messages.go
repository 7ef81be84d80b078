package install

// ItemStatusMsg is sent when a queue item changes status.
type ItemStatusMsg struct {
	ItemID string
	Status string
}

// SessionStatusMsg is sent when the session status changes.
type SessionStatusMsg struct {
	Status string
}

// LogLineMsg is sent for every streamed install output line.
type LogLineMsg struct {
	ItemID string
	Line   string
}

// DoneMsg is sent when the session goroutine returns.
type DoneMsg struct {
	Err error
}
