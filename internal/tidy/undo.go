package tidy

import "time"

// EntryStatus is the lifecycle state of an undo entry.
type EntryStatus string

const (
	EntryDone     EntryStatus = "done"
	EntryReverted EntryStatus = "reverted"
	EntryFailed   EntryStatus = "failed" // a revert was attempted and did not complete
)

// UndoEntry records one completed action. It is written only after the
// filesystem operation succeeded.
type UndoEntry struct {
	ID          int64
	RunID       string
	Kind        ActionKind
	Transfer    Transfer
	Source      string // original location
	Destination string // where the file ended up
	Root        string // organize root; revert never removes folders outside it
	Size        int64  // destination size after the action
	ModTime     time.Time
	Hash        string // sha256 of the destination when known
	CreatedAt   time.Time
	Status      EntryStatus
	Note        string
	CreatedDirs []string // folders the action created, deepest first
}

// Reversible reports whether a revert would touch the filesystem.
func (e *UndoEntry) Reversible() bool {
	return e.Kind != ActionSkip
}

// UndoLog is the append-only store of completed actions.
// Implementations serialize writes; Append may be called from many goroutines.
type UndoLog interface {
	// Append stores e and assigns its ID.
	Append(e *UndoEntry) error

	// Entries returns entries in append order, optionally filtered by status.
	// No statuses means all entries.
	Entries(statuses ...EntryStatus) ([]*UndoEntry, error)

	// MarkStatus updates an entry's status and note.
	MarkStatus(id int64, status EntryStatus, note string) error

	// Clear drops every entry.
	Clear() error
}
