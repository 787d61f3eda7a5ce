// Package registry holds the parsed allowed domain of every (generation,
// parameter) pair of a loaded table. A Registry is built once and never
// mutated, so it is safe to share between concurrent generation passes.
package registry

import (
	"errors"
	"log/slog"
	"strconv"

	"covgen/internal/domain"
	"covgen/internal/table"
)

// Registry is the read-only domain lookup built from a table.
type Registry struct {
	params      []string
	gens        []string
	domains     map[string]map[string][]domain.Item // generation -> parameter -> items
	defaultBins map[string]int
	log         *slog.Logger
}

// Envelope is the union envelope of a parameter across generations.
type Envelope struct {
	Low  domain.Bound
	High domain.Bound
}

func (e Envelope) String() string {
	return "[" + e.Low.String() + ":" + e.High.String() + "]"
}

// New parses every cell of t. Malformed cell tokens are skipped and logged;
// a malformed default-bins cell is logged and treated as "auto". A nil
// logger falls back to slog.Default().
func New(t *table.Table, log *slog.Logger) (*Registry, error) {
	if t == nil {
		return nil, errors.New("registry: no table loaded")
	}
	if log == nil {
		log = slog.Default()
	}
	r := &Registry{
		params:      append([]string(nil), t.Parameters...),
		gens:        append([]string(nil), t.Generations...),
		domains:     make(map[string]map[string][]domain.Item, len(t.Generations)),
		defaultBins: make(map[string]int, len(t.Parameters)),
		log:         log,
	}
	for _, name := range t.Duplicates {
		log.Warn("duplicate parameter row ignored", "parameter", name)
	}

	for _, p := range r.params {
		raw := t.DefaultBins(p)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			log.Warn("invalid default bins, using auto", "parameter", p, "value", raw)
			continue
		}
		r.defaultBins[p] = n
	}

	for _, g := range r.gens {
		byParam := make(map[string][]domain.Item, len(r.params))
		for _, p := range r.params {
			text, _ := t.Cell(g, p)
			items, skipped := domain.ParseCell(text)
			for _, err := range skipped {
				log.Warn("skipping malformed domain token", "generation", g, "parameter", p, "error", err)
			}
			byParam[p] = items
		}
		r.domains[g] = byParam
	}
	return r, nil
}

// Parameters returns the parameter names in table order.
func (r *Registry) Parameters() []string { return append([]string(nil), r.params...) }

// Generations returns the generation labels in table order.
func (r *Registry) Generations() []string { return append([]string(nil), r.gens...) }

// HasParameter reports whether the table has a row for name.
func (r *Registry) HasParameter(name string) bool {
	for _, p := range r.params {
		if p == name {
			return true
		}
	}
	return false
}

// HasGeneration reports whether the table has a column for name.
func (r *Registry) HasGeneration(name string) bool {
	_, ok := r.domains[name]
	return ok
}

// DefaultBins returns the table's default bin count for parameter, or 0
// when the table leaves it on auto.
func (r *Registry) DefaultBins(parameter string) int {
	return r.defaultBins[parameter]
}

// Domain returns the allowed items for (generation, parameter). An unknown
// generation or parameter is treated as "no constraint": it is logged and
// yields an empty result. The returned slice must not be modified.
func (r *Registry) Domain(generation, parameter string) []domain.Item {
	byParam, ok := r.domains[generation]
	if !ok {
		r.log.Warn("unknown generation, treating as unconstrained", "generation", generation)
		return nil
	}
	items, ok := byParam[parameter]
	if !ok {
		r.log.Warn("parameter not in table, treating as unconstrained", "generation", generation, "parameter", parameter)
		return nil
	}
	return items
}

// Items returns every item of parameter across all generations, in
// generation order.
func (r *Registry) Items(parameter string) []domain.Item {
	var out []domain.Item
	for _, g := range r.gens {
		out = append(out, r.domains[g][parameter]...)
	}
	return out
}

// CombinedRange returns the union envelope of parameter across every
// generation. Only finite bounds and discrete values set the envelope; a
// side stays infinite only when no generation bounds it finitely. ok is
// false when no generation constrains the parameter at all.
func (r *Registry) CombinedRange(parameter string) (Envelope, bool) {
	var (
		low, high         domain.Bound
		haveLow, haveHigh bool
		openLow, openHigh bool
		seen              bool
	)
	lower := func(b domain.Bound) {
		if !haveLow || b.Cmp(low) < 0 {
			low, haveLow = b, true
		}
	}
	raise := func(b domain.Bound) {
		if !haveHigh || b.Cmp(high) > 0 {
			high, haveHigh = b, true
		}
	}
	for _, it := range r.Items(parameter) {
		seen = true
		if it.Kind == domain.KindValue {
			lower(domain.Finite(it.Value))
			raise(domain.Finite(it.Value))
			continue
		}
		if it.Low.IsFinite() {
			lower(it.Low)
		} else {
			openLow = true
		}
		if it.High.IsFinite() {
			raise(it.High)
		} else {
			openHigh = true
		}
	}
	if !seen {
		return Envelope{}, false
	}
	if !haveLow && openLow {
		low = domain.NegInf
	}
	if !haveHigh && openHigh {
		high = domain.PosInf
	}
	return Envelope{Low: low, High: high}, true
}
