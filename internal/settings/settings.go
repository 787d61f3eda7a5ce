// Package settings loads per-project configuration from
// .covgen/settings.yaml.
//
// Every key is optional; an absent file means all defaults. Example:
//
//	module: rxpktgen_fcov
//	trigger: event
//	selector: pkt_type
//	count_policy: split   # or array
//	list_policy: set      # or each
//	naming: bounds        # or index
//	exclude:
//	  - "dbg_*"
package settings

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"covgen/internal/bins"
	"covgen/internal/generate"
)

// Dir is the project directory holding settings.yaml.
const Dir = ".covgen"

var ErrInvalid = errors.New("invalid settings")

// Settings holds covgen configuration from .covgen/settings.yaml.
type Settings struct {
	// Module is the emitted module name.
	Module string `yaml:"module"`
	// Trigger is "clock" or "event".
	Trigger string `yaml:"trigger"`
	// Selector is the parameter whose value fires each generation's event.
	Selector    string `yaml:"selector"`
	CountPolicy string `yaml:"count_policy"`
	ListPolicy  string `yaml:"list_policy"`
	Naming      string `yaml:"naming"`
	// Exclude is a list of glob patterns over parameter names. Matching
	// parameters never get a coverpoint.
	Exclude []string `yaml:"exclude"`
}

// Load reads .covgen/settings.yaml relative to root.
// Returns nil (not an error) if the file does not exist.
func Load(root string) (*Settings, error) {
	p := filepath.Join(root, Dir, "settings.yaml")
	data, err := os.ReadFile(p)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", p, err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}
	return &s, nil
}

// Default returns settings spelling out every default policy.
func Default() *Settings {
	cfg := generate.DefaultConfig()
	return &Settings{
		Module:      cfg.Module,
		Trigger:     string(cfg.Trigger),
		CountPolicy: string(cfg.CountPolicy),
		ListPolicy:  string(cfg.ListPolicy),
		Naming:      string(cfg.Naming),
	}
}

// Validate rejects unknown policy values and malformed exclude patterns.
func (s *Settings) Validate() error {
	if s == nil {
		return nil
	}
	check := func(key, val string, allowed ...string) error {
		if val == "" {
			return nil
		}
		for _, a := range allowed {
			if val == a {
				return nil
			}
		}
		return fmt.Errorf("%w: %s %q, want one of %v", ErrInvalid, key, val, allowed)
	}
	if err := errors.Join(
		check("trigger", s.Trigger, string(generate.TriggerClock), string(generate.TriggerEvent)),
		check("count_policy", s.CountPolicy, string(bins.CountSplit), string(bins.CountArray)),
		check("list_policy", s.ListPolicy, string(bins.ListSet), string(bins.ListEach)),
		check("naming", s.Naming, string(bins.NamingBounds), string(bins.NamingIndex)),
	); err != nil {
		return err
	}
	if s.Selector != "" && s.Trigger != string(generate.TriggerEvent) {
		return fmt.Errorf("%w: selector %s needs trigger: event", ErrInvalid, s.Selector)
	}
	for _, pat := range s.Exclude {
		if _, err := path.Match(pat, ""); err != nil {
			return fmt.Errorf("%w: exclude pattern %q: %v", ErrInvalid, pat, err)
		}
	}
	return nil
}

// Config returns the generation config these settings describe, with
// defaults for every unset key. Safe to call on a nil *Settings receiver.
func (s *Settings) Config() generate.Config {
	cfg := generate.DefaultConfig()
	if s == nil {
		return cfg
	}
	if s.Module != "" {
		cfg.Module = s.Module
	}
	if s.Trigger != "" {
		cfg.Trigger = generate.Trigger(s.Trigger)
	}
	cfg.Selector = s.Selector
	if s.CountPolicy != "" {
		cfg.CountPolicy = bins.CountPolicy(s.CountPolicy)
	}
	if s.ListPolicy != "" {
		cfg.ListPolicy = bins.ListPolicy(s.ListPolicy)
	}
	if s.Naming != "" {
		cfg.Naming = bins.Naming(s.Naming)
	}
	return cfg
}

// IsExcluded reports whether parameter matches any exclude pattern.
// Safe to call on a nil *Settings receiver.
func (s *Settings) IsExcluded(parameter string) bool {
	if s == nil {
		return false
	}
	for _, pat := range s.Exclude {
		if ok, _ := path.Match(pat, parameter); ok {
			return true
		}
	}
	return false
}

// Save writes s to .covgen/settings.yaml under root, creating the directory.
func Save(root string, s *Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	dir := filepath.Join(root, Dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	p := filepath.Join(dir, "settings.yaml")
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", p, err)
	}
	return nil
}
