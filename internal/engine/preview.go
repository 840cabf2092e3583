package engine

import (
	"context"
	"fmt"
	"sort"

	"tidy-go/internal/plan"
	"tidy-go/internal/tidy"
)

// Suggestion proposes a built-in category for a file no rule claimed.
type Suggestion struct {
	Path     string
	Ext      string
	Category string
}

// Preview is a built plan together with what the scan reported.
type Preview struct {
	Plan        *tidy.Plan
	Scanned     int // records found before filtering
	Admitted    int // records that passed the filter
	ScanErrors  []error
	Duplicates  []tidy.DuplicateGroup // only when duplicates were skipped
	Suggestions []Suggestion
}

// Preview runs the pipeline up to the plan. The filesystem is only read.
func (s *Service) Preview(ctx context.Context, req Request) (*Preview, error) {
	pr, err := s.prepare(req)
	if err != nil {
		return nil, err
	}

	records, scanErrs, err := s.scan(ctx, pr)
	if err != nil {
		return nil, err
	}
	out := &Preview{Scanned: len(records), ScanErrors: scanErrs}

	admitted := pr.filter.Apply(records)
	out.Admitted = len(admitted)

	items := make([]plan.Item, 0, len(admitted))
	for _, r := range admitted {
		res := pr.classifier.Classify(r)
		items = append(items, plan.Item{Record: r, Category: res.Category})
		if res.Category == tidy.Uncategorized {
			if cat, ok := tidy.SuggestCategory(r.Ext); ok {
				out.Suggestions = append(out.Suggestions, Suggestion{Path: r.Path, Ext: r.Ext, Category: cat})
			}
		}
	}
	sort.Slice(out.Suggestions, func(i, j int) bool {
		return out.Suggestions[i].Path < out.Suggestions[j].Path
	})

	opts := plan.Options{
		Root:      pr.root,
		DestRoot:  pr.destRoot,
		Mode:      pr.req.Mode,
		DateMode:  pr.req.DateMode,
		MaxSuffix: pr.req.MaxSuffix,
		Snapshot: tidy.PlanSnapshot{
			RulesRevision: pr.req.Rules.Revision(),
			Precedence:    pr.classifier.Order(),
			Filter:        pr.req.Filter,
			Tags:          pr.req.Tags,
			Assignments:   len(pr.req.Manual),
		},
	}
	if pr.req.SkipDuplicates {
		res, err := s.detector().Find(ctx, admitted)
		if err != nil {
			return nil, fmt.Errorf("finding duplicates: %w", err)
		}
		out.ScanErrors = append(out.ScanErrors, res.Errors...)
		out.Duplicates = res.Groups
		// A non-nil slice marks the plan as deduplicated even without groups.
		opts.Duplicates = append([]tidy.DuplicateGroup{}, res.Groups...)
	}

	p, err := s.planner.Build(items, opts)
	if err != nil {
		return nil, err
	}
	out.Plan = p
	return out, nil
}

// Stage saves a previewed plan so a later Apply runs exactly that plan.
func (s *Service) Stage(p *tidy.Plan) error {
	if s.plans == nil {
		return fmt.Errorf("plan staging is not configured")
	}
	if err := s.plans.Save(p); err != nil {
		return fmt.Errorf("staging plan %s: %w", p.ID, err)
	}
	s.logger.Info("plan staged", "plan", p.ID, "actions", len(p.Actions))
	return nil
}

// Apply executes p. Progress events are sent on progress in plan order and
// progress is closed before Apply returns; it may be nil. A staged plan is
// removed once it has run to completion.
func (s *Service) Apply(ctx context.Context, p *tidy.Plan, runID string, progress chan<- tidy.Progress) (*tidy.Report, error) {
	report, err := s.executor.Run(ctx, p, runID, progress)
	if err != nil {
		return report, err
	}
	if s.plans != nil {
		if err := s.plans.Remove(p.ID); err != nil {
			s.logger.Warn("failed to drop staged plan", "plan", p.ID, "error", err)
		}
	}
	return report, nil
}

// Organize previews and applies in one step.
func (s *Service) Organize(ctx context.Context, req Request, runID string, progress chan<- tidy.Progress) (*Preview, *tidy.Report, error) {
	pv, err := s.Preview(ctx, req)
	if err != nil {
		if progress != nil {
			close(progress)
		}
		return nil, nil, err
	}
	report, err := s.Apply(ctx, pv.Plan, runID, progress)
	return pv, report, err
}
