// Package validate checks user overrides against the allowed domains of a
// registry and defines the issue taxonomy a generation pass reports.
//
// Two checks with different strictness exist. WithinCombinedRange tests
// containment in the union envelope of all generations and gates whether an
// override is accepted at all. AllowedForGeneration tests one generation's
// own items and gates which bins are emitted into that generation's
// covergroup.
package validate

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"covgen/internal/domain"
	"covgen/internal/registry"
)

// NoData is DescribeAllowed's result for a parameter without any domain.
const NoData = "no valid data"

// Domains is the registry surface the checks need.
type Domains interface {
	Domain(generation, parameter string) []domain.Item
	Items(parameter string) []domain.Item
	CombinedRange(parameter string) (registry.Envelope, bool)
}

// WithinCombinedRange reports whether ov fits inside parameter's combined
// envelope: a range must be contained, a list must have every value inside.
// A parameter without any domain accepts nothing.
func WithinCombinedRange(d Domains, parameter string, ov domain.Override) bool {
	env, ok := d.CombinedRange(parameter)
	if !ok {
		return false
	}
	if ov.Kind == domain.OverrideRange {
		return env.Low.Cmp(ov.Low) <= 0 && ov.High.Cmp(env.High) <= 0
	}
	for _, v := range ov.Values {
		b := domain.Finite(v)
		if env.Low.Cmp(b) > 0 || b.Cmp(env.High) > 0 {
			return false
		}
	}
	return len(ov.Values) > 0
}

// AllowedForGeneration reports whether ov is valid in one generation. A
// range must fit inside a single item; it is never split across items. A
// list passes when each value matches some item, not necessarily the same
// one.
func AllowedForGeneration(d Domains, generation, parameter string, ov domain.Override) bool {
	items := d.Domain(generation, parameter)
	if len(items) == 0 {
		return false
	}
	if ov.Kind == domain.OverrideRange {
		for _, it := range items {
			if it.Covers(ov.Low, ov.High) {
				return true
			}
		}
		return false
	}
	for _, v := range ov.Values {
		if !slices.ContainsFunc(items, func(it domain.Item) bool { return it.Contains(v) }) {
			return false
		}
	}
	return len(ov.Values) > 0
}

// DescribeAllowed summarizes parameter's combined domain for messages: the
// envelope "[min:max]" when any generation gives a range, otherwise the
// sorted distinct values, otherwise NoData.
func DescribeAllowed(d Domains, parameter string) string {
	items := d.Items(parameter)
	if len(items) == 0 {
		return NoData
	}
	var values []int64
	ranged := false
	for _, it := range items {
		if it.Kind == domain.KindRange {
			ranged = true
			break
		}
		values = append(values, it.Value)
	}
	if ranged {
		env, _ := d.CombinedRange(parameter)
		return env.String()
	}
	slices.Sort(values)
	values = slices.Compact(values)
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatInt(v, 10)
	}
	return strings.Join(parts, ",")
}

// CheckOverride parses one input field of parameter and runs the combined
// check. On failure it returns the issue to report; field is the 1-based
// record number used in the issue.
func CheckOverride(d Domains, parameter string, field int, raw string) (domain.Override, *Issue) {
	ov, err := domain.ParseOverride(raw)
	if err != nil {
		return domain.Override{}, &Issue{
			Kind:      KindParse,
			Parameter: parameter,
			Field:     field,
			Input:     raw,
			Message:   "invalid format: " + parseReason(err),
		}
	}
	if !WithinCombinedRange(d, parameter, ov) {
		return domain.Override{}, &Issue{
			Kind:      KindRange,
			Parameter: parameter,
			Field:     field,
			Input:     raw,
			Message:   "out of combined range, allowed: " + DescribeAllowed(d, parameter),
		}
	}
	return ov, nil
}

func parseReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmpty):
		return "nothing entered"
	case errors.Is(err, domain.ErrMixed):
		return "a range must be entered on its own, e.g. [1:10]"
	case errors.Is(err, domain.ErrInverted):
		return "range low bound exceeds high bound"
	case errors.Is(err, domain.ErrOverflow):
		return "value does not fit in 64 bits"
	}
	var te *domain.TokenError
	if errors.As(err, &te) {
		return fmt.Sprintf("cannot read %q, expected [a:b] or a list of integers", te.Token)
	}
	return err.Error()
}
