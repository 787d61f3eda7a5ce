// Package domain implements the allowed-domain notation shared by the
// parameter table and user overrides.
//
// A notation string is a comma-separated list of tokens. Each token is a
// bracketed range "[A:B]" or a bare integer. The range ends accept the
// sentinels "$" and "∞":
//
//	[$:10]    negative infinity to 10
//	[5:$]     5 to positive infinity
//	[5:∞]     same as [5:$]
//	[-∞:0]    negative infinity to 0
//
// Values are 64-bit signed integers; anything that does not fit is rejected
// rather than wrapped.
package domain

import (
	"strconv"
	"strings"
)

// Bound is one end of a range: either a finite integer or an infinity.
type Bound struct {
	Value int64
	// Inf is -1 for negative infinity, +1 for positive infinity and 0 for a
	// finite bound.
	Inf int8
}

var (
	NegInf = Bound{Inf: -1}
	PosInf = Bound{Inf: 1}
)

// Finite returns a finite bound at v.
func Finite(v int64) Bound { return Bound{Value: v} }

// IsFinite reports whether b is an ordinary integer bound.
func (b Bound) IsFinite() bool { return b.Inf == 0 }

// Cmp orders bounds with -inf below every integer and +inf above.
func (b Bound) Cmp(o Bound) int {
	if b.Inf != o.Inf {
		if b.Inf < o.Inf {
			return -1
		}
		return 1
	}
	if b.Inf != 0 {
		return 0
	}
	switch {
	case b.Value < o.Value:
		return -1
	case b.Value > o.Value:
		return 1
	}
	return 0
}

// String renders a bound in canonical notation. Both infinities print as
// "$"; the side of the range disambiguates them.
func (b Bound) String() string {
	if b.Inf != 0 {
		return "$"
	}
	return strconv.FormatInt(b.Value, 10)
}

// Kind tags an Item.
type Kind int

const (
	KindRange Kind = iota + 1
	KindValue
)

// Item is one allowed range or discrete value. Items are immutable once
// parsed.
type Item struct {
	Kind  Kind
	Low   Bound // KindRange only
	High  Bound // KindRange only
	Value int64 // KindValue only
}

// Range returns a range item. Callers are expected to pass low <= high.
func Range(low, high Bound) Item { return Item{Kind: KindRange, Low: low, High: high} }

// Value returns a discrete value item.
func Value(v int64) Item { return Item{Kind: KindValue, Value: v} }

// Span returns the item's extent; a value spans [v:v].
func (it Item) Span() (Bound, Bound) {
	if it.Kind == KindValue {
		return Finite(it.Value), Finite(it.Value)
	}
	return it.Low, it.High
}

// Contains reports whether v lies inside the item.
func (it Item) Contains(v int64) bool {
	lo, hi := it.Span()
	b := Finite(v)
	return lo.Cmp(b) <= 0 && b.Cmp(hi) <= 0
}

// Covers reports whether [low:high] lies entirely inside the item.
func (it Item) Covers(low, high Bound) bool {
	lo, hi := it.Span()
	return lo.Cmp(low) <= 0 && high.Cmp(hi) <= 0
}

func (it Item) String() string {
	if it.Kind == KindValue {
		return strconv.FormatInt(it.Value, 10)
	}
	return "[" + it.Low.String() + ":" + it.High.String() + "]"
}

// FormatItems renders items back into notation, comma separated.
func FormatItems(items []Item) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = it.String()
	}
	return strings.Join(parts, ", ")
}

// OverrideKind tags an Override.
type OverrideKind int

const (
	OverrideRange OverrideKind = iota + 1
	OverrideList
)

// Override is the parsed form of one user input field: a single range or a
// list of discrete values.
type Override struct {
	Kind   OverrideKind
	Low    Bound   // OverrideRange only
	High   Bound   // OverrideRange only
	Values []int64 // OverrideList only
}

// Bounds returns the override's extent. For a list this is the smallest and
// largest listed value.
func (o Override) Bounds() (Bound, Bound) {
	if o.Kind == OverrideRange {
		return o.Low, o.High
	}
	if len(o.Values) == 0 {
		return PosInf, NegInf
	}
	lo, hi := o.Values[0], o.Values[0]
	for _, v := range o.Values[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return Finite(lo), Finite(hi)
}

// Finite reports whether both ends of the override are finite.
func (o Override) Finite() bool {
	lo, hi := o.Bounds()
	return lo.IsFinite() && hi.IsFinite()
}

func (o Override) String() string {
	if o.Kind == OverrideRange {
		return "[" + o.Low.String() + ":" + o.High.String() + "]"
	}
	parts := make([]string, len(o.Values))
	for i, v := range o.Values {
		parts[i] = strconv.FormatInt(v, 10)
	}
	return strings.Join(parts, ",")
}

// FromItem turns a table domain item into an override, as used when the
// table's own domain drives bin generation.
func FromItem(it Item) Override {
	if it.Kind == KindValue {
		return Override{Kind: OverrideList, Values: []int64{it.Value}}
	}
	return Override{Kind: OverrideRange, Low: it.Low, High: it.High}
}
