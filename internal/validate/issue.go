package validate

import (
	"fmt"
	"strings"
)

// Kind classifies an Issue.
type Kind int

const (
	// KindParse is a malformed user-typed field.
	KindParse Kind = iota + 1
	// KindRange is a value outside the allowed domain.
	KindRange
	// KindCross is an unusable cross-coverage entry.
	KindCross
	// KindMissingData marks a parameter with no domain data; it is a note,
	// not a failure.
	KindMissingData
	// KindSkipped marks an entry left out of one generation because it does
	// not apply there; it is a note, not a failure.
	KindSkipped
)

func (k Kind) String() string {
	switch k {
	case KindParse:
		return "parse"
	case KindRange:
		return "range"
	case KindCross:
		return "cross"
	case KindMissingData:
		return "missing-data"
	case KindSkipped:
		return "skipped"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// IsError reports whether issues of this kind fail a generation pass.
func (k Kind) IsError() bool {
	return k == KindParse || k == KindRange || k == KindCross
}

// Issue is one problem found during a pass. Location fields that do not
// apply are left empty.
type Issue struct {
	Kind       Kind
	Parameter  string
	Generation string
	Cross      string
	// Field is the 1-based input record of Parameter, or 0.
	Field   int
	Input   string
	Message string
}

// Where renders the issue's location, e.g. "pkt_len #2 (HE_SU)".
func (i Issue) Where() string {
	var parts []string
	switch {
	case i.Cross != "":
		parts = append(parts, "cross "+i.Cross)
	case i.Parameter != "":
		p := i.Parameter
		if i.Field > 0 {
			p += fmt.Sprintf(" #%d", i.Field)
		}
		parts = append(parts, p)
	}
	if i.Generation != "" {
		parts = append(parts, "("+i.Generation+")")
	}
	return strings.Join(parts, " ")
}

func (i Issue) String() string {
	s := fmt.Sprintf("%s: %s", i.Kind, i.Message)
	if w := i.Where(); w != "" {
		s = w + ": " + s
	}
	if i.Input != "" {
		s += fmt.Sprintf(" [input %q]", i.Input)
	}
	return s
}

// Issues is the ordered list of everything a pass reported.
type Issues []Issue

// Errors returns only the failing issues.
func (is Issues) Errors() Issues {
	var out Issues
	for _, i := range is {
		if i.Kind.IsError() {
			out = append(out, i)
		}
	}
	return out
}

// HasErrors reports whether any issue fails the pass.
func (is Issues) HasErrors() bool {
	for _, i := range is {
		if i.Kind.IsError() {
			return true
		}
	}
	return false
}

// Count returns how many issues have kind k.
func (is Issues) Count(k Kind) int {
	n := 0
	for _, i := range is {
		if i.Kind == k {
			n++
		}
	}
	return n
}
