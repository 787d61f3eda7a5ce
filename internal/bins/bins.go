// Package bins plans the named bins of one coverpoint from an override.
//
// For a range the planner picks the first rule that applies:
//
//  1. split width given and both bounds finite: consecutive sub-intervals of
//     that width, the last one clipped to the high bound;
//  2. bin count > 1 and both bounds finite: count equal-width sub-intervals
//     by integer division, the last absorbing the remainder (CountSplit), or
//     one bin replicated count ways (CountArray);
//  3. a single bin over the whole range.
//
// A split width always wins over a bin count.
package bins

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"covgen/internal/domain"
)

// CountPolicy selects how an explicit bin count is honored.
type CountPolicy string

const (
	// CountSplit emits one auto-named bin per equal-width sub-interval.
	CountSplit CountPolicy = "split"
	// CountArray emits one bin with an array-size annotation.
	CountArray CountPolicy = "array"
)

// ListPolicy selects how a multi-value list becomes bins.
type ListPolicy string

const (
	// ListSet emits one auto-sized array bin holding every value.
	ListSet ListPolicy = "set"
	// ListEach emits one bin per value.
	ListEach ListPolicy = "each"
)

// Naming selects how generated sub-interval bins are named.
type Naming string

const (
	// NamingBounds names sub-intervals "<prefix>_v<low>_<high>".
	NamingBounds Naming = "bounds"
	// NamingIndex names sub-intervals "<prefix>_r<n>" counting from 1.
	NamingIndex Naming = "index"
)

// Options carries the per-override inputs and the project policies.
type Options struct {
	// Count is the requested number of bins; 0 or 1 means none.
	Count int
	// Split is the equal-width split size; 0 means none.
	Split int64
	// Name is the user-given bin name; empty derives a default.
	Name string

	CountPolicy CountPolicy
	ListPolicy  ListPolicy
	Naming      Naming
}

// Bin is one planned bin: an interval or a literal value set.
type Bin struct {
	Name string
	// Values is set for literal bins; Low/High for interval bins.
	Values []int64
	Low    domain.Bound
	High   domain.Bound
	// Count > 1 requests that many array bins over the set.
	Count int
	// AutoArray requests one bin per element ("name[]").
	AutoArray bool
}

// IsInterval reports whether b covers a [Low:High] interval.
func (b Bin) IsInterval() bool { return b.Values == nil }

// Plan returns the ordered bins for ov on parameter.
func Plan(parameter string, ov domain.Override, opts Options) []Bin {
	if ov.Kind == domain.OverrideList {
		return planList(parameter, ov.Values, opts)
	}
	return planRange(parameter, ov.Low, ov.High, opts)
}

func planRange(parameter string, low, high domain.Bound, opts Options) []Bin {
	finite := low.IsFinite() && high.IsFinite()
	prefix := opts.Name
	if prefix == "" {
		prefix = parameter
	}

	if finite && opts.Split > 0 {
		return subIntervals(prefix, widthCuts(low.Value, high.Value, opts.Split), opts.Naming)
	}
	if finite && opts.Count > 1 {
		if opts.CountPolicy == CountArray {
			name := opts.Name
			if name == "" {
				name = DefaultName(parameter, low, high)
			}
			return []Bin{{Name: name, Low: low, High: high, Count: opts.Count}}
		}
		return subIntervals(prefix, countCuts(low.Value, high.Value, opts.Count), opts.Naming)
	}

	name := opts.Name
	if name == "" {
		name = DefaultName(parameter, low, high)
	}
	return []Bin{{Name: name, Low: low, High: high}}
}

func planList(parameter string, values []int64, opts Options) []Bin {
	if len(values) == 0 {
		return nil
	}
	if len(values) > 1 && opts.ListPolicy == ListEach {
		prefix := opts.Name
		if prefix == "" {
			prefix = parameter
		}
		out := make([]Bin, len(values))
		for i, v := range values {
			out[i] = Bin{Name: pieceName(prefix, i, v, v, opts.Naming), Values: []int64{v}}
		}
		return out
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	name := opts.Name
	if name == "" {
		name = DefaultName(parameter, domain.Finite(lo), domain.Finite(hi))
	}
	b := Bin{Name: name, Values: append([]int64(nil), values...)}
	switch {
	case opts.Count > 1:
		b.Count = opts.Count
	case len(values) > 1:
		b.AutoArray = true
	}
	return []Bin{b}
}

// MaxBins caps the number of bins one override may plan.
const MaxBins = 1024

// ErrTooMany is returned by Check for plans above MaxBins.
var ErrTooMany = errors.New("too many bins")

// Check reports ErrTooMany when Plan(_, ov, opts) would return more than
// MaxBins bins. It counts without building them.
func Check(ov domain.Override, opts Options) error {
	if n := size(ov, opts); n > MaxBins {
		return fmt.Errorf("%w: %d planned, at most %d allowed", ErrTooMany, n, MaxBins)
	}
	return nil
}

func size(ov domain.Override, opts Options) uint64 {
	if ov.Kind == domain.OverrideList {
		if len(ov.Values) > 1 && opts.ListPolicy == ListEach {
			return uint64(len(ov.Values))
		}
		return 1
	}
	if !ov.Low.IsFinite() || !ov.High.IsFinite() {
		return 1
	}
	// The unsigned difference is exact even when hi-lo overflows int64.
	span1 := uint64(ov.High.Value - ov.Low.Value)
	switch {
	case opts.Split > 0:
		return span1/uint64(opts.Split) + 1
	case opts.Count > 1 && opts.CountPolicy == CountArray:
		return 1
	case opts.Count > 1:
		if span1 < uint64(opts.Count) {
			return span1 + 1
		}
		return uint64(opts.Count)
	}
	return 1
}

type cut struct{ lo, hi int64 }

// widthCuts partitions [lo:hi] into pieces of width w, clipping the last.
func widthCuts(lo, hi, w int64) []cut {
	var out []cut
	for cur := lo; ; {
		end := hi
		if uint64(hi-cur) >= uint64(w) {
			end = cur + w - 1
		}
		out = append(out, cut{cur, end})
		if end >= hi {
			return out
		}
		cur = end + 1
	}
}

// countCuts partitions [lo:hi] into n equal pieces; the last one absorbs
// the remainder. A range narrower than n yields one piece per value.
func countCuts(lo, hi int64, n int) []cut {
	span := uint64(hi-lo) + 1
	if span == 0 {
		span = math.MaxUint64
	}
	if span < uint64(n) {
		n = int(span)
	}
	w := int64(span / uint64(n))
	out := make([]cut, 0, n)
	for i := 0; i < n; i++ {
		start := lo + int64(i)*w
		end := start + w - 1
		if i == n-1 {
			end = hi
		}
		out = append(out, cut{start, end})
	}
	return out
}

func subIntervals(prefix string, cuts []cut, naming Naming) []Bin {
	out := make([]Bin, len(cuts))
	for i, c := range cuts {
		out[i] = Bin{Name: pieceName(prefix, i, c.lo, c.hi, naming), Low: domain.Finite(c.lo), High: domain.Finite(c.hi)}
	}
	return out
}

// pieceName names the i-th (0-based) piece of a split range or list.
func pieceName(prefix string, i int, lo, hi int64, naming Naming) string {
	if naming == NamingIndex {
		return prefix + "_r" + strconv.Itoa(i+1)
	}
	return prefix + "_v" + label(lo) + "_" + label(hi)
}

// DefaultName derives "<parameter>_v<low>_<high>". An open low end reads
// "inf" and an open high end "$"; negative values are written "n<abs>" so
// the name stays a legal identifier.
func DefaultName(parameter string, low, high domain.Bound) string {
	lo, hi := "inf", "$"
	if low.IsFinite() {
		lo = label(low.Value)
	}
	if high.IsFinite() {
		hi = label(high.Value)
	}
	return parameter + "_v" + lo + "_" + hi
}

func label(v int64) string {
	if v < 0 {
		return "n" + strconv.FormatUint(uint64(-(v+1))+1, 10)
	}
	return strconv.FormatInt(v, 10)
}

// Dedupe makes bin names unique within one coverpoint by suffixing later
// duplicates with _2, _3, ... in order. taken may hold names already used
// by earlier bins of the same coverpoint; it is updated in place.
func Dedupe(bs []Bin, taken map[string]bool) []Bin {
	if taken == nil {
		taken = make(map[string]bool, len(bs))
	}
	for i := range bs {
		base := bs[i].Name
		name := base
		for n := 2; taken[name]; n++ {
			name = base + "_" + strconv.Itoa(n)
		}
		taken[name] = true
		bs[i].Name = name
	}
	return bs
}
