// Package generate runs one generation pass: a pure function from a loaded
// registry and a request (the user's override records, cross specs and
// generation selection) to a coverage document plus every issue found on
// the way.
package generate

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"covgen/internal/bins"
	"covgen/internal/coverage"
	"covgen/internal/domain"
	"covgen/internal/registry"
	"covgen/internal/validate"
)

var (
	ErrNoRegistry    = errors.New("no domain registry loaded")
	ErrNoGenerations = errors.New("no generation selected")
	ErrSelector      = errors.New("invalid selector")
	ErrNameClash     = errors.New("names fold to the same identifier")
)

// Record is one override record of a parameter: the domain text typed by
// the user and its optional bin count, split width and bin name.
type Record struct {
	Input string
	Bins  int
	Split int64
	Name  string
}

// Parameter is the request state of one parameter.
type Parameter struct {
	// UseDefault takes the bins from the table instead of Records.
	UseDefault bool
	Records    []Record
}

// CrossSpec is one cross-coverage entry of a generation. Coverpoints are
// coverpoint names (cov_<parameter>); conditions use the shorthand
// "cov_x{values}".
type CrossSpec struct {
	Name        string
	Coverpoints []string
	Illegal     []string
	Ignore      []string
}

// Request is the snapshot of user input a pass runs over.
type Request struct {
	Parameters map[string]Parameter
	// Crosses maps generation to its cross specs.
	Crosses map[string][]CrossSpec
	// Generations selects covergroups in output order; nil selects every
	// generation and an empty non-nil slice selects none.
	Generations []string
}

// Trigger selects how covergroups are sampled.
type Trigger string

const (
	TriggerClock Trigger = "clock"
	TriggerEvent Trigger = "event"
)

// Config carries the project policies of a pass.
type Config struct {
	Module  string
	Trigger Trigger
	// Selector names the parameter whose per-generation value fires that
	// generation's trigger event. Event trigger only.
	Selector    string
	CountPolicy bins.CountPolicy
	ListPolicy  bins.ListPolicy
	Naming      bins.Naming
	Log         *slog.Logger
}

// DefaultConfig returns the policies used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Module:      "coverage_model",
		Trigger:     TriggerClock,
		CountPolicy: bins.CountSplit,
		ListPolicy:  bins.ListSet,
		Naming:      bins.NamingBounds,
	}
}

// Result is the outcome of a pass. Text is rendered even when Issues holds
// errors; callers decide whether to write it.
type Result struct {
	Document *coverage.Document
	Text     string
	Issues   validate.Issues
}

const clock = "clk"

// Run executes one pass. Per-field and per-cross problems become issues;
// only an unusable registry, selection or config returns an error.
func Run(reg *registry.Registry, req Request, cfg Config) (*Result, error) {
	if reg == nil {
		return nil, ErrNoRegistry
	}
	cfg = withDefaults(cfg)
	log := cfg.Log

	if cfg.Selector != "" {
		if cfg.Trigger != TriggerEvent {
			return nil, fmt.Errorf("%w: selector %s needs the event trigger", ErrSelector, cfg.Selector)
		}
		if !reg.HasParameter(cfg.Selector) {
			return nil, fmt.Errorf("%w: %s is not a table parameter", ErrSelector, cfg.Selector)
		}
	}

	if err := checkNames("parameters", reg.Parameters()); err != nil {
		return nil, err
	}

	p := &pass{reg: reg, cfg: cfg}
	gens := p.selectGenerations(req.Generations)
	if len(gens) == 0 {
		return nil, ErrNoGenerations
	}
	if err := checkNames("generations", gens); err != nil {
		return nil, err
	}
	p.checkOverrides(req.Parameters)

	doc := &coverage.Document{Module: cfg.Module, Clock: clock}
	for _, param := range reg.Parameters() {
		doc.Variables = append(doc.Variables, coverage.Identifier(param))
	}
	for _, g := range gens {
		group := coverage.Covergroup{
			Name:       coverage.CovergroupName(g),
			Generation: g,
			Sample:     "@(posedge " + clock + ")",
		}
		if cfg.Trigger == TriggerEvent {
			ev := coverage.EventName(g)
			doc.Events = append(doc.Events, ev)
			group.Sample = "@(" + ev + ")"
		}
		group.Coverpoints = p.coverpoints(g, req.Parameters)
		group.Crosses = p.crosses(g, req.Crosses[g], group.Coverpoints)
		doc.Groups = append(doc.Groups, group)
	}
	if cfg.Selector != "" {
		doc.Selector = p.selector(gens)
	}
	p.unknownCrossGenerations(req.Crosses)

	text, err := coverage.Render(doc)
	if err != nil {
		return nil, err
	}
	log.Debug("generation pass finished",
		"generations", len(gens),
		"errors", len(p.issues.Errors()),
		"issues", len(p.issues))
	return &Result{Document: doc, Text: text, Issues: p.issues}, nil
}

func withDefaults(cfg Config) Config {
	def := DefaultConfig()
	if cfg.Module == "" {
		cfg.Module = def.Module
	}
	if cfg.Trigger == "" {
		cfg.Trigger = def.Trigger
	}
	if cfg.CountPolicy == "" {
		cfg.CountPolicy = def.CountPolicy
	}
	if cfg.ListPolicy == "" {
		cfg.ListPolicy = def.ListPolicy
	}
	if cfg.Naming == "" {
		cfg.Naming = def.Naming
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	return cfg
}

// checkNames fails when two names would share one emitted identifier.
func checkNames(what string, names []string) error {
	seen := make(map[string]string, len(names))
	for _, n := range names {
		id := coverage.Identifier(n)
		if prev, ok := seen[id]; ok {
			return fmt.Errorf("%w: %s %q and %q both become %s", ErrNameClash, what, prev, n, id)
		}
		seen[id] = n
	}
	return nil
}

// accepted is a record that parsed and passed the combined check.
type accepted struct {
	field int
	rec   Record
	ov    domain.Override
}

type pass struct {
	reg       *registry.Registry
	cfg       Config
	overrides map[string][]accepted
	issues    validate.Issues
}

func (p *pass) note(i validate.Issue) {
	p.issues = append(p.issues, i)
	if i.Kind.IsError() {
		p.cfg.Log.Debug("issue", "issue", i.String())
		return
	}
	p.cfg.Log.Info("skipped", "issue", i.String())
}

func (p *pass) selectGenerations(selected []string) []string {
	if selected == nil {
		return p.reg.Generations()
	}
	var out []string
	for _, g := range selected {
		if !p.reg.HasGeneration(g) {
			p.note(validate.Issue{Kind: validate.KindMissingData, Generation: g, Message: "generation not in table"})
			continue
		}
		if !slices.Contains(out, g) {
			out = append(out, g)
		}
	}
	return out
}

// checkOverrides parses every record once and runs the combined check.
// Records with blank input are empty form rows and are ignored.
func (p *pass) checkOverrides(params map[string]Parameter) {
	p.overrides = make(map[string][]accepted, len(params))
	for _, name := range sortedKeys(params) {
		if !p.reg.HasParameter(name) {
			p.note(validate.Issue{Kind: validate.KindMissingData, Parameter: name, Message: "parameter not in table"})
		}
	}
	for _, name := range p.reg.Parameters() {
		param, ok := params[name]
		if !ok || param.UseDefault {
			continue
		}
		for i, rec := range param.Records {
			if strings.TrimSpace(rec.Input) == "" {
				continue
			}
			if rec.Name != "" && !coverage.IsIdentifier(rec.Name) {
				p.note(validate.Issue{Kind: validate.KindParse, Parameter: name, Field: i + 1, Input: rec.Name, Message: "bin name is not an identifier"})
				continue
			}
			ov, issue := validate.CheckOverride(p.reg, name, i+1, rec.Input)
			if issue != nil {
				p.note(*issue)
				continue
			}
			if err := bins.Check(ov, p.options(rec)); err != nil {
				p.note(validate.Issue{Kind: validate.KindParse, Parameter: name, Field: i + 1, Input: rec.Input, Message: err.Error()})
				continue
			}
			p.overrides[name] = append(p.overrides[name], accepted{field: i + 1, rec: rec, ov: ov})
		}
	}
}

// coverpoints plans the coverpoints of generation g in table order.
func (p *pass) coverpoints(g string, params map[string]Parameter) []coverage.Coverpoint {
	var out []coverage.Coverpoint
	for _, name := range p.reg.Parameters() {
		param, ok := params[name]
		if !ok {
			continue
		}
		var planned []bins.Bin
		if param.UseDefault {
			planned = p.defaultBins(g, name)
		} else {
			planned = p.overrideBins(g, name)
		}
		if len(planned) == 0 {
			continue
		}
		out = append(out, coverage.Coverpoint{
			Name:     coverage.CoverpointName(name),
			Variable: coverage.Identifier(name),
			Bins:     bins.Dedupe(planned, nil),
		})
	}
	return out
}

func (p *pass) options(rec Record) bins.Options {
	return bins.Options{
		Count:       rec.Bins,
		Split:       rec.Split,
		Name:        rec.Name,
		CountPolicy: p.cfg.CountPolicy,
		ListPolicy:  p.cfg.ListPolicy,
		Naming:      p.cfg.Naming,
	}
}

// defaultBins plans one group of bins per table item of (g, name), using
// the table's default bin count.
func (p *pass) defaultBins(g, name string) []bins.Bin {
	items := p.reg.Domain(g, name)
	if len(items) == 0 {
		p.note(validate.Issue{Kind: validate.KindMissingData, Parameter: name, Generation: g, Message: validate.NoData})
		return nil
	}
	opts := p.options(Record{Bins: p.reg.DefaultBins(name)})
	var out []bins.Bin
	for _, it := range items {
		ov := domain.FromItem(it)
		if err := bins.Check(ov, opts); err != nil {
			p.note(validate.Issue{Kind: validate.KindParse, Parameter: name, Generation: g, Input: it.String(), Message: "table default bins: " + err.Error()})
			continue
		}
		out = append(out, bins.Plan(coverage.Identifier(name), ov, opts)...)
	}
	return out
}

// overrideBins plans the accepted records of name that generation g allows.
func (p *pass) overrideBins(g, name string) []bins.Bin {
	var out []bins.Bin
	for _, a := range p.overrides[name] {
		if !validate.AllowedForGeneration(p.reg, g, name, a.ov) {
			p.note(validate.Issue{
				Kind:       validate.KindSkipped,
				Parameter:  name,
				Generation: g,
				Field:      a.field,
				Input:      a.rec.Input,
				Message:    "not allowed in this generation, allowed: " + allowedIn(p.reg, g, name),
			})
			continue
		}
		out = append(out, bins.Plan(coverage.Identifier(name), a.ov, p.options(a.rec))...)
	}
	return out
}

func allowedIn(reg *registry.Registry, g, name string) string {
	items := reg.Domain(g, name)
	if len(items) == 0 {
		return validate.NoData
	}
	return domain.FormatItems(items)
}

// crosses builds the crosses of generation g. A cross whose coverpoints are
// not all present in the group is skipped.
func (p *pass) crosses(g string, specs []CrossSpec, cps []coverage.Coverpoint) []coverage.Cross {
	present := make(map[string]bool, len(cps))
	for _, cp := range cps {
		present[cp.Name] = true
	}
	seen := make(map[string]bool)
	var out []coverage.Cross
	for _, spec := range specs {
		if spec.Name == "" && len(spec.Coverpoints) == 0 {
			continue
		}
		c, err := coverage.NewCross(spec.Name, spec.Coverpoints, spec.Illegal, spec.Ignore)
		if err != nil {
			p.note(validate.Issue{Kind: validate.KindCross, Cross: spec.Name, Generation: g, Message: err.Error()})
			continue
		}
		if seen[c.Name] {
			p.note(validate.Issue{Kind: validate.KindCross, Cross: c.Name, Generation: g, Message: "duplicate cross name"})
			continue
		}
		seen[c.Name] = true
		if missing := absent(c.Coverpoints, present); len(missing) > 0 {
			p.note(validate.Issue{
				Kind:       validate.KindSkipped,
				Cross:      c.Name,
				Generation: g,
				Message:    "no bins for " + strings.Join(missing, ", ") + " in this generation",
			})
			continue
		}
		out = append(out, c)
	}
	return out
}

func absent(names []string, present map[string]bool) []string {
	var out []string
	for _, n := range names {
		if !present[n] {
			out = append(out, n)
		}
	}
	return out
}

// unknownCrossGenerations reports cross specs filed under a generation the
// table does not have. Specs of unselected generations are not an issue.
func (p *pass) unknownCrossGenerations(crosses map[string][]CrossSpec) {
	for _, g := range sortedKeys(crosses) {
		if p.reg.HasGeneration(g) {
			continue
		}
		for _, spec := range crosses[g] {
			p.note(validate.Issue{Kind: validate.KindCross, Cross: spec.Name, Generation: g, Message: "generation not in table"})
		}
	}
}

// selector maps each selected generation to the single value the selector
// parameter takes there. Generations without exactly one value get no arm.
func (p *pass) selector(gens []string) *coverage.Selector {
	sel := &coverage.Selector{Variable: coverage.Identifier(p.cfg.Selector)}
	for _, g := range gens {
		items := p.reg.Domain(g, p.cfg.Selector)
		if len(items) != 1 || items[0].Kind != domain.KindValue {
			p.note(validate.Issue{
				Kind:       validate.KindSkipped,
				Parameter:  p.cfg.Selector,
				Generation: g,
				Message:    "selector needs exactly one value to fire the trigger, got " + allowedIn(p.reg, g, p.cfg.Selector),
			})
			continue
		}
		sel.Arms = append(sel.Arms, coverage.SelectorArm{Value: items[0].Value, Event: coverage.EventName(g)})
	}
	return sel
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
