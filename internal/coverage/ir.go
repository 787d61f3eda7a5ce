// Package coverage renders planned bins and cross specs into a
// SystemVerilog coverage model.
//
// Emission is two-step: callers assemble a Document (plain structs, no
// text), then Render runs one template pass over it. The grammar lives in
// templates/module.sv.tmpl and can change without touching planning code.
package coverage

import (
	"strings"
	"unicode"

	"covgen/internal/bins"
)

// Document is a whole coverage module.
type Document struct {
	Module string
	// Variables are the sampled variable identifiers, one per parameter.
	Variables []string
	Clock     string
	// Events are trigger event identifiers; empty when sampling on Clock.
	Events   []string
	Groups   []Covergroup
	Selector *Selector
}

// Covergroup is one generation's group.
type Covergroup struct {
	Name        string
	Generation  string
	Sample      string
	Coverpoints []Coverpoint
	Crosses     []Cross
}

// Coverpoint binds a variable to its planned bins.
type Coverpoint struct {
	Name     string
	Variable string
	Bins     []bins.Bin
}

// Cross is a cross of two or more coverpoints with optional exclusions.
type Cross struct {
	Name        string
	Coverpoints []string
	Illegal     []Condition
	Ignore      []Condition
}

// HasConditions reports whether the cross renders as a block.
func (c Cross) HasConditions() bool { return len(c.Illegal)+len(c.Ignore) > 0 }

// Condition is one expanded illegal/ignore expression.
type Condition struct {
	Name string
	Expr string
}

// Selector fires each generation's trigger event from the value of one
// variable, for event-sampled models.
type Selector struct {
	Variable string
	Arms     []SelectorArm
}

// SelectorArm maps one selector value to a trigger event.
type SelectorArm struct {
	Value int64
	Event string
}

// Identifier folds s into a lower-case SystemVerilog identifier: runs of
// characters outside [a-z0-9_] become one underscore and a leading digit
// gets a "g_" prefix.
func Identifier(s string) string {
	var b strings.Builder
	under := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if r == '_' || r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			under = false
			continue
		}
		if !under {
			b.WriteByte('_')
			under = true
		}
	}
	id := strings.Trim(b.String(), "_")
	if id == "" {
		return "_"
	}
	if id[0] >= '0' && id[0] <= '9' {
		id = "g_" + id
	}
	return id
}

// CoverpointName is the coverpoint label used for parameter; crosses refer
// to coverpoints by this name.
func CoverpointName(parameter string) string { return "cov_" + Identifier(parameter) }

// CovergroupName is the covergroup type name of generation.
func CovergroupName(generation string) string { return "cg_" + Identifier(generation) }

// EventName is the trigger event of generation.
func EventName(generation string) string { return "trigger_" + Identifier(generation) + "_cov" }
