package tidy

import "time"

// ProgressStatus is the outcome of one executed action.
type ProgressStatus string

const (
	ProgressSucceeded ProgressStatus = "succeeded"
	ProgressFailed    ProgressStatus = "failed"
	ProgressSkipped   ProgressStatus = "skipped"
	ProgressCanceled  ProgressStatus = "canceled"
)

// Progress is emitted once per action, in plan order.
type Progress struct {
	Index  int // position in the plan, 0-based
	Total  int
	Action Action
	Status ProgressStatus
	Err    error
}

// Failure pairs a failed action with its error.
type Failure struct {
	Action Action
	Err    error
}

// Report is the end-of-run summary of an execution.
type Report struct {
	PlanID   string
	Moved    int
	Copied   int
	Renamed  int
	Skipped  int
	Failed   int
	Canceled int
	Bytes    int64
	Failures []Failure
	Duration time.Duration
}

// Succeeded is the number of actions that changed the filesystem.
func (r *Report) Succeeded() int {
	return r.Moved + r.Copied + r.Renamed
}

// Record folds one progress event into the report.
func (r *Report) Record(p Progress) {
	switch p.Status {
	case ProgressSucceeded:
		switch p.Action.Kind {
		case ActionMove:
			r.Moved++
		case ActionCopy:
			r.Copied++
		case ActionRename:
			r.Renamed++
		}
		r.Bytes += p.Action.Size
	case ProgressSkipped:
		r.Skipped++
	case ProgressFailed:
		r.Failed++
		r.Failures = append(r.Failures, Failure{Action: p.Action, Err: p.Err})
	case ProgressCanceled:
		r.Canceled++
	}
}

// RevertReport summarizes an undo batch.
type RevertReport struct {
	Reverted int
	Failed   int
	Failures []RevertFailure
}

// RevertFailure pairs an undo entry with why it could not be reverted.
type RevertFailure struct {
	Entry *UndoEntry
	Err   error
}

// RunStatus is the final state of a recorded run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "success"
	RunPartial   RunStatus = "partial"
	RunFailed    RunStatus = "error"
	RunCanceled  RunStatus = "canceled"
)

// Run tracks one CLI invocation that mutates files or the undo log.
// A run has ID 0 until it is persisted.
type Run struct {
	ID         int64
	UUID       string
	Operation  string
	Parameters string
	StartedAt  time.Time
	FinishedAt time.Time
	Status     RunStatus
	Succeeded  int
	Failed     int
}

// Persisted returns true if this run has been saved.
func (r *Run) Persisted() bool {
	return r.ID != 0
}
