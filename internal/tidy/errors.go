package tidy

import (
	"errors"
	"fmt"
)

// ErrAccess is the class shared by per-file failures. Both *AccessError and
// *CollisionResolutionError match it with errors.Is.
var ErrAccess = errors.New("file access failed")

// AccessError is a permission or IO failure on a single file. It never aborts
// a batch: the file is skipped and the error reported.
type AccessError struct {
	Op   string
	Path string
	Err  error
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *AccessError) Unwrap() error { return e.Err }

func (e *AccessError) Is(target error) bool { return target == ErrAccess }

// ValidationError reports a bad run configuration. It is returned before any
// filesystem mutation happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// CollisionResolutionError means no free destination name was found within
// the disambiguation budget. The record is left where it is.
type CollisionResolutionError struct {
	Path     string
	Attempts int
}

func (e *CollisionResolutionError) Error() string {
	return fmt.Sprintf("no free destination for %s after %d attempts", e.Path, e.Attempts)
}

func (e *CollisionResolutionError) Is(target error) bool { return target == ErrAccess }

// PartialMoveError means a cross-volume move placed the destination but could
// not remove the source. Both copies exist and need manual cleanup.
type PartialMoveError struct {
	Source      string
	Destination string
	Err         error
}

func (e *PartialMoveError) Error() string {
	return fmt.Sprintf("moved %s to %s but source was not removed: %v", e.Source, e.Destination, e.Err)
}

func (e *PartialMoveError) Unwrap() error { return e.Err }

// StaleUndoError means an undo target vanished or changed after it was logged,
// or the original location is occupied.
type StaleUndoError struct {
	Path   string
	Reason string
}

func (e *StaleUndoError) Error() string {
	return fmt.Sprintf("cannot undo %s: %s", e.Path, e.Reason)
}
