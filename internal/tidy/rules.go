package tidy

import (
	"fmt"
	"sort"
	"strings"
)

// Uncategorized is the reserved category for records no rule claims.
const Uncategorized = "Uncategorized"

// CategoryRule maps extensions and tag labels to a category.
// Higher Priority wins; equal priorities fall back to registration order.
type CategoryRule struct {
	Name       string   `toml:"name" yaml:"name" json:"name"`
	Extensions []string `toml:"extensions" yaml:"extensions" json:"extensions"`
	Tags       []string `toml:"tags,omitempty" yaml:"tags,omitempty" json:"tags,omitempty"`
	Priority   int      `toml:"priority,omitempty" yaml:"priority,omitempty" json:"priority,omitempty"`
}

// RuleSet is an immutable snapshot of the category rules for one run.
// Editing rules means building a new RuleSet.
type RuleSet struct {
	rules    []CategoryRule    // registration order, normalized
	byExt    map[string]string // extension -> winning category
	byTag    map[string]string // lowercase tag -> winning category
	revision string
}

// NewRuleSet validates and freezes rules. Extensions are normalized to
// lowercase with a leading dot. Names must be unique and usable as a folder.
func NewRuleSet(rules []CategoryRule) (*RuleSet, error) {
	rs := &RuleSet{
		byExt: make(map[string]string),
		byTag: make(map[string]string),
	}

	seen := make(map[string]bool, len(rules))
	for i, r := range rules {
		if err := ValidateCategoryName(r.Name); err != nil {
			return nil, &ValidationError{Field: fmt.Sprintf("rules[%d].name", i), Reason: err.Error()}
		}
		if r.Name == Uncategorized {
			return nil, &ValidationError{Field: fmt.Sprintf("rules[%d].name", i), Reason: "Uncategorized is reserved"}
		}
		if seen[r.Name] {
			return nil, &ValidationError{Field: fmt.Sprintf("rules[%d].name", i), Reason: fmt.Sprintf("duplicate category %q", r.Name)}
		}
		seen[r.Name] = true

		norm := CategoryRule{Name: r.Name, Priority: r.Priority}
		for _, ext := range r.Extensions {
			if e := NormalizeExt(ext); e != "" {
				norm.Extensions = append(norm.Extensions, e)
			}
		}
		for _, tag := range r.Tags {
			if t := strings.TrimSpace(tag); t != "" {
				norm.Tags = append(norm.Tags, t)
			}
		}
		rs.rules = append(rs.rules, norm)
	}

	// Resolve winners once. A stable sort keeps registration order among
	// equal priorities, so the first registered rule claims an extension.
	ordered := make([]CategoryRule, len(rs.rules))
	copy(ordered, rs.rules)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority > ordered[j].Priority
	})
	for _, r := range ordered {
		for _, ext := range r.Extensions {
			if _, ok := rs.byExt[ext]; !ok {
				rs.byExt[ext] = r.Name
			}
		}
		for _, tag := range r.Tags {
			key := strings.ToLower(tag)
			if _, ok := rs.byTag[key]; !ok {
				rs.byTag[key] = r.Name
			}
		}
	}

	rs.revision = rs.computeRevision()
	return rs, nil
}

// Rules returns a copy of the normalized rules in registration order.
func (rs *RuleSet) Rules() []CategoryRule {
	out := make([]CategoryRule, len(rs.rules))
	for i, r := range rs.rules {
		out[i] = CategoryRule{
			Name:       r.Name,
			Extensions: append([]string(nil), r.Extensions...),
			Tags:       append([]string(nil), r.Tags...),
			Priority:   r.Priority,
		}
	}
	return out
}

// CategoryForExt returns the category owning ext, if any.
func (rs *RuleSet) CategoryForExt(ext string) (string, bool) {
	if ext == "" {
		return "", false
	}
	name, ok := rs.byExt[NormalizeExt(ext)]
	return name, ok
}

// CategoryForTag returns the category whose tag labels include tag.
func (rs *RuleSet) CategoryForTag(tag string) (string, bool) {
	name, ok := rs.byTag[strings.ToLower(strings.TrimSpace(tag))]
	return name, ok
}

// Has reports whether a category with this name is registered.
func (rs *RuleSet) Has(name string) bool {
	for _, r := range rs.rules {
		if r.Name == name {
			return true
		}
	}
	return false
}

// Revision is a stable fingerprint of the rule set, recorded in plans so a
// preview can be traced back to the rules that produced it.
func (rs *RuleSet) Revision() string {
	return rs.revision
}

func (rs *RuleSet) computeRevision() string {
	var b strings.Builder
	for _, r := range rs.rules {
		fmt.Fprintf(&b, "%s|%d|%s|%s\n", r.Name, r.Priority, strings.Join(r.Extensions, ","), strings.Join(r.Tags, ","))
	}
	sum, _, _ := HashReader(XXH64, strings.NewReader(b.String()))
	return sum
}

// ValidateCategoryName checks that name can be used as a single folder name.
func ValidateCategoryName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("category name is empty")
	case name == "." || name == "..":
		return fmt.Errorf("category name %q is not a folder name", name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("category name %q contains a path separator", name)
	case strings.ContainsRune(name, 0):
		return fmt.Errorf("category name contains a NUL byte")
	}
	return nil
}
