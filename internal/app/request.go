package app

import (
	"fmt"
	"strings"

	"tidy-go/internal/engine"
	"tidy-go/internal/filter"
	"tidy-go/internal/tidy"
)

// RunOptions are the per-invocation overrides of the configured behavior.
// Nil pointers and empty strings keep the config value.
type RunOptions struct {
	Root     string
	DestRoot string
	Mode     string
	DateMode string

	Recursive      *bool
	SkipHidden     *bool
	SkipDuplicates *bool

	Tags []string // replaces the configured tags when non-empty

	MinSize string // human sizes, e.g. "10MB"
	MaxSize string
	After   string // dates, e.g. "2024-01-31"
	Before  string
}

// String renders the options as run parameters for the runs table.
func (o RunOptions) String() string {
	parts := []string{o.Root}
	add := func(k, v string) {
		if v != "" {
			parts = append(parts, k+"="+v)
		}
	}
	add("dest", o.DestRoot)
	add("mode", o.Mode)
	add("date", o.DateMode)
	add("tags", strings.Join(o.Tags, ","))
	add("min", o.MinSize)
	add("max", o.MaxSize)
	add("after", o.After)
	add("before", o.Before)
	return strings.Join(parts, " ")
}

// buildRequest merges the config with o into a validated engine request.
// Only the config-level fields are checked here; the engine validates the
// paths and the combined criteria.
func (a *TidyApp) buildRequest(o RunOptions) (engine.Request, error) {
	cfg := a.cfg
	pick := func(override, fallback string) string {
		if override != "" {
			return override
		}
		return fallback
	}
	flag := func(override *bool, fallback bool) bool {
		if override != nil {
			return *override
		}
		return fallback
	}

	mode, err := tidy.ParseTransfer(pick(o.Mode, cfg.Mode))
	if err != nil {
		return engine.Request{}, err
	}
	dateMode, err := tidy.ParseDateMode(pick(o.DateMode, cfg.DateMode))
	if err != nil {
		return engine.Request{}, err
	}
	precedence, err := tidy.ParsePrecedence(cfg.Precedence)
	if err != nil {
		return engine.Request{}, err
	}

	rules := cfg.Rules
	if len(rules) == 0 {
		rules = tidy.DefaultRules()
	}
	rs, err := tidy.NewRuleSet(rules)
	if err != nil {
		return engine.Request{}, fmt.Errorf("loading rules: %w", err)
	}

	tags := cfg.Tags
	if len(o.Tags) > 0 {
		tags = o.Tags
	}

	var criteria tidy.FilterCriteria
	if criteria.MinSize, err = filter.ParseSize("min_size", o.MinSize); err != nil {
		return engine.Request{}, err
	}
	if criteria.MaxSize, err = filter.ParseSize("max_size", o.MaxSize); err != nil {
		return engine.Request{}, err
	}
	if criteria.After, err = filter.ParseDate("after", o.After); err != nil {
		return engine.Request{}, err
	}
	if criteria.Before, err = filter.ParseDate("before", o.Before); err != nil {
		return engine.Request{}, err
	}

	return engine.Request{
		Root:           o.Root,
		DestRoot:       o.DestRoot,
		Mode:           mode,
		Recursive:      flag(o.Recursive, cfg.Recursive),
		SkipHidden:     flag(o.SkipHidden, cfg.SkipHidden),
		OneFilesystem:  cfg.Filesystem.OneFilesystem,
		CaptureDates:   cfg.UseExifDates,
		Exclude:        cfg.Filesystem.Ignore,
		Rules:          rs,
		Manual:         cfg.Assignments,
		Tags:           tags,
		DateMode:       dateMode,
		Precedence:     precedence,
		Filter:         criteria,
		SkipDuplicates: flag(o.SkipDuplicates, cfg.SkipDuplicates),
		MaxSuffix:      cfg.MaxSuffix,
	}, nil
}
