package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Snapshot is the persisted form of a queue.
type Snapshot struct {
	SavedAt time.Time `json:"saved_at"`
	Items   []Item    `json:"items"`
}

// Load reads a queue snapshot from path. A missing file yields an empty
// queue, not an error. An item persisted as installing belongs to a session
// that no longer exists, so it comes back pending and a later session can
// resume it.
func Load(path string) (Queue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Queue{}, nil
		}
		return nil, err
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}

	q := Queue(snap.Items)
	for i := range q {
		if q[i].Status == StatusInstalling {
			q[i].Status = StatusPending
		}
	}
	return q, nil
}

// Save writes the queue as a snapshot to path, creating parent directories
// as needed.
func Save(path string, q Queue) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	snap := Snapshot{SavedAt: time.Now().UTC(), Items: q}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadPreset reads a preset file (a plain list of items or a snapshot) for
// merging into an existing queue. Items with no status become pending.
func LoadPreset(path string) ([]Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil || snap.Items == nil {
		// Fall back to a bare item list.
		var items []Item
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, err
		}
		snap.Items = items
	}

	for i := range snap.Items {
		if snap.Items[i].Status == "" {
			snap.Items[i].Status = StatusPending
		}
	}
	return snap.Items, nil
}
