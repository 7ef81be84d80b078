// Package queue defines the install queue: ordered package items keyed by a
// stable "type:name" ID, with pure add/remove/merge operations.
package queue

import "fmt"

// PackageType distinguishes the two Homebrew package kinds.
type PackageType string

const (
	TypeFormula PackageType = "formula"
	TypeCask    PackageType = "cask"
)

// Action overrides the default install behavior for one item.
type Action string

// ActionReinstall forces `brew reinstall` even when the package is already
// present.
const ActionReinstall Action = "reinstall"

// Item is one queued package.
type Item struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Type        PackageType `json:"type"`
	Description string      `json:"description,omitempty"`
	Status      Status      `json:"status"`
	Action      Action      `json:"action,omitempty"`
	Error       string      `json:"error,omitempty"`
}

// ItemID forms the stable identity for a package of the given type and name.
func ItemID(t PackageType, name string) string {
	return fmt.Sprintf("%s:%s", t, name)
}

// Candidate describes a package the user wants to enqueue.
type Candidate struct {
	Name string
	Type PackageType
}

// Queue is an ordered sequence of items. Insertion order is significant for
// both display and install order. Operations return new slices and never
// mutate their input.
type Queue []Item

// Add appends a pending item for each candidate not already present, and
// returns the resulting queue together with the genuinely new items.
// Adding an existing ID is a no-op, not an error.
func Add(q Queue, candidates ...Candidate) (Queue, []Item) {
	seen := make(map[string]bool, len(q))
	for _, it := range q {
		seen[it.ID] = true
	}

	out := make(Queue, len(q), len(q)+len(candidates))
	copy(out, q)

	var added []Item
	for _, c := range candidates {
		id := ItemID(c.Type, c.Name)
		if seen[id] {
			continue
		}
		seen[id] = true
		it := Item{
			ID:     id,
			Name:   c.Name,
			Type:   c.Type,
			Status: StatusPending,
		}
		out = append(out, it)
		added = append(added, it)
	}
	return out, added
}

// Remove returns the queue without the item matching id. Removing an absent
// ID is a no-op. Callers must not remove an item that is currently
// installing; the orchestrator owns that exclusivity, not this function.
func Remove(q Queue, id string) Queue {
	out := make(Queue, 0, len(q))
	for _, it := range q {
		if it.ID != id {
			out = append(out, it)
		}
	}
	return out
}

// Merge appends the items from incoming whose IDs are not already present,
// preserving existing order first and incoming order after. Internal
// duplicates within incoming are dropped too.
func Merge(q Queue, incoming []Item) Queue {
	seen := make(map[string]bool, len(q))
	for _, it := range q {
		seen[it.ID] = true
	}

	out := make(Queue, len(q), len(q)+len(incoming))
	copy(out, q)

	for _, it := range incoming {
		if it.ID == "" {
			it.ID = ItemID(it.Type, it.Name)
		}
		if seen[it.ID] {
			continue
		}
		seen[it.ID] = true
		out = append(out, it)
	}
	return out
}

// Find returns the index of the item with the given id, or -1.
func Find(q Queue, id string) int {
	for i, it := range q {
		if it.ID == id {
			return i
		}
	}
	return -1
}
