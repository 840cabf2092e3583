// Package filter decides which records take part in a run.
package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"tidy-go/internal/tidy"
)

// Filter is a validated, pure predicate over file records.
type Filter struct {
	c tidy.FilterCriteria
}

// New validates c. Inverted bounds are rejected.
func New(c tidy.FilterCriteria) (*Filter, error) {
	if c.MinSize != nil && *c.MinSize < 0 {
		return nil, &tidy.ValidationError{Field: "min_size", Reason: "must not be negative"}
	}
	if c.MaxSize != nil && *c.MaxSize < 0 {
		return nil, &tidy.ValidationError{Field: "max_size", Reason: "must not be negative"}
	}
	if c.MinSize != nil && c.MaxSize != nil && *c.MinSize > *c.MaxSize {
		return nil, &tidy.ValidationError{
			Field:  "min_size",
			Reason: fmt.Sprintf("%s is larger than max_size %s", humanize.IBytes(uint64(*c.MinSize)), humanize.IBytes(uint64(*c.MaxSize))),
		}
	}
	if c.After != nil && c.Before != nil && !c.After.Before(*c.Before) {
		return nil, &tidy.ValidationError{Field: "after", Reason: "must be earlier than before"}
	}
	return &Filter{c: c}, nil
}

// Criteria returns the bounds the filter was built from.
func (f *Filter) Criteria() tidy.FilterCriteria {
	return f.c
}

// Admit reports whether r satisfies every bound.
func (f *Filter) Admit(r *tidy.FileRecord) bool {
	if f.c.MinSize != nil && r.Size < *f.c.MinSize {
		return false
	}
	if f.c.MaxSize != nil && r.Size > *f.c.MaxSize {
		return false
	}
	if f.c.After != nil && r.ModTime.Before(*f.c.After) {
		return false
	}
	if f.c.Before != nil && !r.ModTime.Before(*f.c.Before) {
		return false
	}
	return true
}

// Apply returns the admitted records, keeping their order.
func (f *Filter) Apply(records []*tidy.FileRecord) []*tidy.FileRecord {
	if f.c.Empty() {
		return records
	}
	out := make([]*tidy.FileRecord, 0, len(records))
	for _, r := range records {
		if f.Admit(r) {
			out = append(out, r)
		}
	}
	return out
}

// ParseSize parses a size bound such as "10MB", "1.5 GiB" or "4096".
// An empty string means no bound.
func ParseSize(field, s string) (*int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return nil, &tidy.ValidationError{Field: field, Reason: err.Error()}
	}
	v := int64(n)
	return &v, nil
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02", "2006-01"}

// ParseDate parses a date bound in local time. Accepted forms are RFC 3339,
// "2006-01-02" and "2006-01". An empty string means no bound.
func ParseDate(field, s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return &t, nil
		}
	}
	return nil, &tidy.ValidationError{Field: field, Reason: fmt.Sprintf("cannot parse date %q", s)}
}
