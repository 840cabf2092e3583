// Package classify maps file records to exactly one category.
package classify

import (
	"fmt"
	"path/filepath"
	"strings"

	"tidy-go/internal/tidy"
)

// Options is the frozen input of a classifier.
type Options struct {
	Rules      *tidy.RuleSet
	Manual     map[string]string // canonical path -> category
	Tags       []string          // run tags, earlier tags win
	DateMode   tidy.DateMode
	Precedence []tidy.RuleKind // nil means tidy.DefaultPrecedence
}

// Result is a classification together with the stage that produced it.
type Result struct {
	Category string
	Kind     tidy.RuleKind
}

type stage func(c *Classifier, r *tidy.FileRecord) (string, bool)

var stages = map[tidy.RuleKind]stage{
	tidy.RuleManual:    (*Classifier).byManual,
	tidy.RuleTag:       (*Classifier).byTag,
	tidy.RuleExtension: (*Classifier).byExtension,
	tidy.RuleDate:      (*Classifier).byDate,
	tidy.RuleDefault:   (*Classifier).byDefault,
}

// Classifier is a pure function of its options. It is safe for concurrent use.
type Classifier struct {
	rules    *tidy.RuleSet
	manual   map[string]string
	tags     []string // trimmed, original case
	lowTags  []string
	dateMode tidy.DateMode
	order    []tidy.RuleKind
}

// New validates opts and builds a classifier.
func New(opts Options) (*Classifier, error) {
	if opts.Rules == nil {
		return nil, &tidy.ValidationError{Field: "rules", Reason: "rule set is required"}
	}

	order := opts.Precedence
	if len(order) == 0 {
		order = tidy.DefaultPrecedence
	}
	if order[0] != tidy.RuleManual || order[len(order)-1] != tidy.RuleDefault {
		return nil, &tidy.ValidationError{Field: "precedence", Reason: "must start with manual and end with default"}
	}
	for _, k := range order {
		if _, ok := stages[k]; !ok {
			return nil, &tidy.ValidationError{Field: "precedence", Reason: fmt.Sprintf("unknown stage %q", k)}
		}
	}

	manual := make(map[string]string, len(opts.Manual))
	for path, cat := range opts.Manual {
		if err := tidy.ValidateCategoryName(cat); err != nil {
			return nil, &tidy.ValidationError{Field: "assignments", Reason: fmt.Sprintf("%s: %v", path, err)}
		}
		manual[filepath.Clean(path)] = cat
	}

	c := &Classifier{
		rules:    opts.Rules,
		manual:   manual,
		dateMode: opts.DateMode,
		order:    append([]tidy.RuleKind(nil), order...),
	}
	for _, tag := range opts.Tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, mapped := opts.Rules.CategoryForTag(tag); !mapped {
			if err := tidy.ValidateCategoryName(tag); err != nil {
				return nil, &tidy.ValidationError{Field: "tags", Reason: err.Error()}
			}
		}
		c.tags = append(c.tags, tag)
		c.lowTags = append(c.lowTags, strings.ToLower(tag))
	}
	return c, nil
}

// Order returns the stage order in use.
func (c *Classifier) Order() []tidy.RuleKind {
	return append([]tidy.RuleKind(nil), c.order...)
}

// Classify returns the category of r. It always returns a category.
func (c *Classifier) Classify(r *tidy.FileRecord) Result {
	for _, k := range c.order {
		if cat, ok := stages[k](c, r); ok {
			return Result{Category: cat, Kind: k}
		}
	}
	return Result{Category: tidy.Uncategorized, Kind: tidy.RuleDefault}
}

func (c *Classifier) byManual(r *tidy.FileRecord) (string, bool) {
	cat, ok := c.manual[r.Path]
	return cat, ok
}

func (c *Classifier) byTag(r *tidy.FileRecord) (string, bool) {
	name := strings.ToLower(r.Name())
	for i, low := range c.lowTags {
		if !strings.Contains(name, low) {
			continue
		}
		if cat, ok := c.rules.CategoryForTag(c.tags[i]); ok {
			return cat, true
		}
		return c.tags[i], true
	}
	return "", false
}

func (c *Classifier) byExtension(r *tidy.FileRecord) (string, bool) {
	return c.rules.CategoryForExt(r.Ext)
}

func (c *Classifier) byDate(r *tidy.FileRecord) (string, bool) {
	if c.dateMode != tidy.DateCategory {
		return "", false
	}
	return r.DateFolder(), true
}

func (c *Classifier) byDefault(*tidy.FileRecord) (string, bool) {
	return tidy.Uncategorized, true
}
