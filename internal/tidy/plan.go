package tidy

import (
	"fmt"
	"time"
)

// ActionKind is what the executor does for one record.
type ActionKind string

const (
	ActionMove   ActionKind = "move"
	ActionCopy   ActionKind = "copy"
	ActionRename ActionKind = "rename" // placed under a disambiguated name
	ActionSkip   ActionKind = "skip"
)

// Transfer says whether the source survives an action.
type Transfer string

const (
	TransferMove Transfer = "move"
	TransferCopy Transfer = "copy"
)

// ParseTransfer validates a configured organize mode. Empty means move.
func ParseTransfer(s string) (Transfer, error) {
	switch Transfer(s) {
	case "", TransferMove:
		return TransferMove, nil
	case TransferCopy:
		return TransferCopy, nil
	}
	return "", &ValidationError{Field: "mode", Reason: fmt.Sprintf("unknown mode %q", s)}
}

// Skip reasons recorded on actions.
const (
	SkipInPlace   = "already organized"
	SkipIdentical = "identical file at destination"
	SkipDuplicate = "duplicate of"
)

// Action is one planned filesystem operation.
type Action struct {
	Kind        ActionKind `json:"kind" yaml:"kind"`
	Transfer    Transfer   `json:"transfer" yaml:"transfer"`
	Source      string     `json:"source" yaml:"source"`
	Destination string     `json:"destination" yaml:"destination"`
	Category    string     `json:"category" yaml:"category"`
	Reason      string     `json:"reason,omitempty" yaml:"reason,omitempty"`
	Size        int64      `json:"size" yaml:"size"`
	ModTime     time.Time  `json:"mod_time" yaml:"mod_time"`

	Record *FileRecord `json:"-" yaml:"-"`
}

// Mutates reports whether the action touches the filesystem.
func (a Action) Mutates() bool {
	return a.Kind != ActionSkip
}

// FilterCriteria bounds the records admitted into a plan. Nil bounds are open.
// Sizes are inclusive; the date range is [After, Before).
type FilterCriteria struct {
	MinSize *int64     `json:"min_size,omitempty" yaml:"min_size,omitempty"`
	MaxSize *int64     `json:"max_size,omitempty" yaml:"max_size,omitempty"`
	After   *time.Time `json:"after,omitempty" yaml:"after,omitempty"`
	Before  *time.Time `json:"before,omitempty" yaml:"before,omitempty"`
}

// Empty reports whether no bound is set.
func (c FilterCriteria) Empty() bool {
	return c.MinSize == nil && c.MaxSize == nil && c.After == nil && c.Before == nil
}

// PlanSnapshot records the inputs a plan was built from.
type PlanSnapshot struct {
	RulesRevision  string         `json:"rules_revision" yaml:"rules_revision"`
	Precedence     []RuleKind     `json:"precedence" yaml:"precedence"`
	Filter         FilterCriteria `json:"filter" yaml:"filter"`
	Tags           []string       `json:"tags,omitempty" yaml:"tags,omitempty"`
	DateMode       DateMode       `json:"date_mode" yaml:"date_mode"`
	SkipDuplicates bool           `json:"skip_duplicates" yaml:"skip_duplicates"`
	Assignments    int            `json:"assignments" yaml:"assignments"`
}

// Issue is a record the planner could not place.
type Issue struct {
	Path    string `json:"path" yaml:"path"`
	Message string `json:"message" yaml:"message"`
	Err     error  `json:"-" yaml:"-"`
}

// Plan is an ordered, collision-free list of actions. Built once, then only read.
type Plan struct {
	ID        string       `json:"id" yaml:"id"`
	CreatedAt time.Time    `json:"created_at" yaml:"created_at"`
	Root      string       `json:"root" yaml:"root"`
	DestRoot  string       `json:"dest_root" yaml:"dest_root"`
	Mode      Transfer     `json:"mode" yaml:"mode"`
	Actions   []Action     `json:"actions" yaml:"actions"`
	Issues    []Issue      `json:"issues,omitempty" yaml:"issues,omitempty"`
	Snapshot  PlanSnapshot `json:"snapshot" yaml:"snapshot"`
}

// PlanSummary counts actions by kind.
type PlanSummary struct {
	Moves   int
	Copies  int
	Renames int
	Skips   int
	Issues  int
	Bytes   int64 // bytes that would be transferred
}

// Summary tallies the plan.
func (p *Plan) Summary() PlanSummary {
	var s PlanSummary
	for _, a := range p.Actions {
		switch a.Kind {
		case ActionMove:
			s.Moves++
		case ActionCopy:
			s.Copies++
		case ActionRename:
			s.Renames++
		case ActionSkip:
			s.Skips++
			continue
		}
		s.Bytes += a.Size
	}
	s.Issues = len(p.Issues)
	return s
}

// ByCategory groups mutating actions by category in plan order.
func (p *Plan) ByCategory() map[string][]Action {
	out := make(map[string][]Action)
	for _, a := range p.Actions {
		if a.Mutates() {
			out[a.Category] = append(out[a.Category], a)
		}
	}
	return out
}
