package tidy

import (
	"fmt"
	"strings"
)

// RuleKind names one classification stage.
type RuleKind string

const (
	RuleManual    RuleKind = "manual"
	RuleTag       RuleKind = "tag"
	RuleExtension RuleKind = "extension"
	RuleDate      RuleKind = "date"
	RuleDefault   RuleKind = "default"
)

// DefaultPrecedence is the stage order used when none is configured.
var DefaultPrecedence = []RuleKind{RuleManual, RuleTag, RuleExtension, RuleDate, RuleDefault}

// ParsePrecedence builds a full stage order from the configurable middle
// stages. Manual always runs first and the default always last; an empty
// input yields DefaultPrecedence.
func ParsePrecedence(names []string) ([]RuleKind, error) {
	if len(names) == 0 {
		return append([]RuleKind(nil), DefaultPrecedence...), nil
	}

	out := []RuleKind{RuleManual}
	seen := make(map[RuleKind]bool)
	for _, n := range names {
		k := RuleKind(strings.ToLower(strings.TrimSpace(n)))
		switch k {
		case RuleTag, RuleExtension, RuleDate:
		case RuleManual, RuleDefault:
			return nil, &ValidationError{Field: "precedence", Reason: fmt.Sprintf("%q has a fixed position", k)}
		default:
			return nil, &ValidationError{Field: "precedence", Reason: fmt.Sprintf("unknown stage %q", n)}
		}
		if seen[k] {
			return nil, &ValidationError{Field: "precedence", Reason: fmt.Sprintf("stage %q listed twice", k)}
		}
		seen[k] = true
		out = append(out, k)
	}
	// Stages left out keep their default relative order.
	for _, k := range []RuleKind{RuleTag, RuleExtension, RuleDate} {
		if !seen[k] {
			out = append(out, k)
		}
	}
	return append(out, RuleDefault), nil
}

// DateMode controls how modification dates shape the layout.
type DateMode string

const (
	DateOff       DateMode = "off"
	DateCategory  DateMode = "category"  // YYYY-MM is a classification stage
	DateSubfolder DateMode = "subfolder" // YYYY-MM nested under the category
)

// ParseDateMode validates a configured date mode. Empty means off.
func ParseDateMode(s string) (DateMode, error) {
	switch DateMode(strings.ToLower(s)) {
	case "", DateOff:
		return DateOff, nil
	case DateCategory:
		return DateCategory, nil
	case DateSubfolder:
		return DateSubfolder, nil
	}
	return "", &ValidationError{Field: "date_mode", Reason: fmt.Sprintf("unknown mode %q", s)}
}
