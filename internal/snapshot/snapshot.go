// Package snapshot saves and restores the raw state of the input form: the
// override records of every parameter, the cross specs of every generation
// and the generation selection. Field values stay opaque strings until
// Request turns them into a generation request.
//
// Files are YAML. Snapshots written as JSON by earlier tools load as well,
// including their "wifi_specifications" selection key.
package snapshot

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"covgen/internal/coverage"
	"covgen/internal/generate"
	"covgen/internal/registry"
	"covgen/internal/validate"
)

// MaxRecords is how many override records one parameter may carry.
const MaxRecords = 10

// Snapshot is the saved form state.
type Snapshot struct {
	Parameters          map[string]ParameterInputs `yaml:"parameters"`
	CrossCoverage       map[string][]CrossInput    `yaml:"cross_coverage,omitempty"`
	SelectedGenerations map[string]bool            `yaml:"selected_generations,omitempty"`
	// LegacySelection is read from older files only.
	LegacySelection map[string]bool `yaml:"wifi_specifications,omitempty"`
}

// ParameterInputs is the form state of one parameter.
type ParameterInputs struct {
	UseDefault bool    `yaml:"use_default"`
	Inputs     []Input `yaml:"inputs,omitempty"`
}

// Input is one override record as typed.
type Input struct {
	Input   string `yaml:"input"`
	Bins    string `yaml:"bins,omitempty"`
	Range   string `yaml:"range,omitempty"`
	BinName string `yaml:"bin_name,omitempty"`
}

// CrossInput is one cross entry as typed. Coverpoints are comma separated;
// conditions are semicolon separated.
type CrossInput struct {
	CrossName   string `yaml:"cross_name"`
	Coverpoints string `yaml:"coverpoints"`
	IllegalBins string `yaml:"illegal_bins,omitempty"`
	IgnoreBins  string `yaml:"ignore_bins,omitempty"`
}

// New returns a blank snapshot for reg: every parameter with one empty
// record and every generation selected.
func New(reg *registry.Registry) *Snapshot {
	s := &Snapshot{
		Parameters:          make(map[string]ParameterInputs),
		CrossCoverage:       make(map[string][]CrossInput),
		SelectedGenerations: make(map[string]bool),
	}
	for _, p := range reg.Parameters() {
		s.Parameters[p] = ParameterInputs{Inputs: []Input{{}}}
	}
	for _, g := range reg.Generations() {
		s.SelectedGenerations[g] = true
	}
	return s
}

// Load reads a snapshot file.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return Parse(data)
}

// Parse decodes a snapshot from YAML or JSON.
func Parse(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	if s.SelectedGenerations == nil && s.LegacySelection != nil {
		s.SelectedGenerations = s.LegacySelection
	}
	s.LegacySelection = nil
	return &s, nil
}

// Save writes s to path as YAML.
func Save(path string, s *Snapshot) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// Request converts the raw fields into a generation request. Malformed bin
// counts and split widths are reported and dropped from their record; the
// record's domain input is still checked by the generation pass.
func (s *Snapshot) Request(reg *registry.Registry) (generate.Request, validate.Issues) {
	var issues validate.Issues
	req := generate.Request{
		Parameters: make(map[string]generate.Parameter, len(s.Parameters)),
		Crosses:    make(map[string][]generate.CrossSpec, len(s.CrossCoverage)),
	}

	for _, name := range slices.Sorted(maps.Keys(s.Parameters)) {
		pi := s.Parameters[name]
		param := generate.Parameter{UseDefault: pi.UseDefault}
		for i, in := range pi.Inputs {
			field := i + 1
			if i >= MaxRecords {
				if strings.TrimSpace(in.Input) != "" {
					issues = append(issues, validate.Issue{
						Kind: validate.KindParse, Parameter: name, Field: field, Input: in.Input,
						Message: fmt.Sprintf("at most %d input records per parameter", MaxRecords),
					})
				}
				continue
			}
			rec := generate.Record{Input: strings.TrimSpace(in.Input), Name: strings.TrimSpace(in.BinName)}
			if rec.Input != "" {
				var bad *validate.Issue
				if rec.Bins, bad = positive(name, field, "bins", in.Bins); bad != nil {
					issues = append(issues, *bad)
				}
				var split int
				if split, bad = positive(name, field, "range", in.Range); bad != nil {
					issues = append(issues, *bad)
				}
				rec.Split = int64(split)
			}
			param.Records = append(param.Records, rec)
		}
		req.Parameters[name] = param
	}

	for g, entries := range s.CrossCoverage {
		for _, c := range entries {
			req.Crosses[g] = append(req.Crosses[g], generate.CrossSpec{
				Name:        strings.TrimSpace(c.CrossName),
				Coverpoints: splitList(c.Coverpoints),
				Illegal:     coverage.SplitConditions(c.IllegalBins),
				Ignore:      coverage.SplitConditions(c.IgnoreBins),
			})
		}
	}

	if s.SelectedGenerations != nil {
		req.Generations = []string{}
		for _, g := range reg.Generations() {
			if s.SelectedGenerations[g] {
				req.Generations = append(req.Generations, g)
			}
		}
		var unknown []string
		for g, on := range s.SelectedGenerations {
			if on && !reg.HasGeneration(g) {
				unknown = append(unknown, g)
			}
		}
		slices.Sort(unknown)
		req.Generations = append(req.Generations, unknown...)
	}
	return req, issues
}

// positive parses an optional positive integer field. Blank means 0.
func positive(param string, field int, key, raw string) (int, *validate.Issue) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, &validate.Issue{
			Kind: validate.KindParse, Parameter: param, Field: field, Input: raw,
			Message: key + " must be a positive integer",
		}
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
