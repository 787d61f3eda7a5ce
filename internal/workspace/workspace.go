// Package workspace manages the ~/.covgen/ directory hierarchy.
//
// Directory layout:
//
//	~/.covgen/<workspace>/
//	    project.yaml             # table path the workspace is bound to
//	    snapshots/<name>.yaml    # saved form inputs
//	    out/                     # generated coverage models and reports
package workspace

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"covgen/internal/snapshot"
	"covgen/internal/table"
)

// Workspace represents a named covgen workspace directory (~/.covgen/<name>/).
type Workspace struct {
	Name string
	Dir  string
}

// Project is the content of project.yaml.
type Project struct {
	// Table is the absolute path of the parameter table.
	Table string `yaml:"table"`
}

// baseDir returns the base ~/.covgen directory.
func baseDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	return filepath.Join(home, ".covgen"), nil
}

// Path returns the directory a workspace called name lives in.
func Path(name string) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	base, err := baseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, name), nil
}

// Init creates ~/.covgen/<name>/ bound to tablePath and errors if it
// already exists. The table must load.
func Init(name, tablePath string) (*Workspace, error) {
	dir, err := Path(name)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(dir); err == nil {
		return nil, fmt.Errorf("workspace %q already exists at %s", name, dir)
	}
	abs, err := filepath.Abs(tablePath)
	if err != nil {
		return nil, fmt.Errorf("resolve table path: %w", err)
	}
	if _, err := table.Load(abs); err != nil {
		return nil, err
	}
	for _, sub := range []string{"snapshots", "out"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create workspace: %w", err)
		}
	}
	data, err := yaml.Marshal(Project{Table: abs})
	if err != nil {
		return nil, fmt.Errorf("marshal project: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "project.yaml"), data, 0o644); err != nil {
		return nil, fmt.Errorf("write project: %w", err)
	}
	return &Workspace{Name: name, Dir: dir}, nil
}

// Open opens an existing workspace directory. Returns an error if not found.
func Open(name string) (*Workspace, error) {
	dir, err := Path(name)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(filepath.Join(dir, "project.yaml")); err != nil {
		return nil, fmt.Errorf("workspace %q not found (run 'covgen init %s <table>' first)", name, name)
	}
	return &Workspace{Name: name, Dir: dir}, nil
}

// Project reads project.yaml.
func (w *Workspace) Project() (*Project, error) {
	data, err := os.ReadFile(filepath.Join(w.Dir, "project.yaml"))
	if err != nil {
		return nil, fmt.Errorf("read project: %w", err)
	}
	var p Project
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse project: %w", err)
	}
	if p.Table == "" {
		return nil, fmt.Errorf("workspace %q has no table", w.Name)
	}
	return &p, nil
}

// LoadTable loads the table the workspace is bound to.
func (w *Workspace) LoadTable() (*table.Table, error) {
	p, err := w.Project()
	if err != nil {
		return nil, err
	}
	return table.Load(p.Table)
}

// TableHash returns the hex sha256 of the bound table file, so a report
// can name the exact table it was generated from.
func (w *Workspace) TableHash() (string, error) {
	p, err := w.Project()
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(p.Table)
	if err != nil {
		return "", fmt.Errorf("read table: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// snapshotPath returns the path to snapshots/<name>.yaml.
func (w *Workspace) snapshotPath(name string) string {
	return filepath.Join(w.Dir, "snapshots", name+".yaml")
}

// SaveSnapshot writes (or replaces) a named snapshot.
func (w *Workspace) SaveSnapshot(name string, s *snapshot.Snapshot) error {
	if err := checkName(name); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Join(w.Dir, "snapshots"), 0o755); err != nil {
		return fmt.Errorf("create snapshots dir: %w", err)
	}
	return snapshot.Save(w.snapshotPath(name), s)
}

// LoadSnapshot reads a named snapshot.
func (w *Workspace) LoadSnapshot(name string) (*snapshot.Snapshot, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	if _, err := os.Stat(w.snapshotPath(name)); err != nil {
		return nil, fmt.Errorf("snapshot %q in workspace %q: %w", name, w.Name, err)
	}
	return snapshot.Load(w.snapshotPath(name))
}

// ListSnapshots returns snapshot names derived from snapshots/*.yaml.
func (w *Workspace) ListSnapshots() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(w.Dir, "snapshots"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read snapshots dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".yaml") {
			names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
		}
	}
	return names, nil
}

// OutputPath returns where a generated file called name is written.
func (w *Workspace) OutputPath(name string) string {
	return filepath.Join(w.Dir, "out", name)
}

// WriteOutput writes data to out/<name> atomically and returns the path.
func (w *Workspace) WriteOutput(name string, data []byte) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	path := w.OutputPath(name)
	if err := WriteAtomic(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// WriteAtomic writes data to a temp file beside path and renames it into
// place, so readers see either the previous file or the new one.
func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}

// List returns the names of all workspaces under ~/.covgen/.
func List() ([]string, error) {
	base, err := baseDir()
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(base)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read covgen dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	return names, nil
}

// Remove deletes a workspace and all its contents.
func Remove(name string) error {
	dir, err := Path(name)
	if err != nil {
		return err
	}
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("workspace %q not found", name)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove workspace: %w", err)
	}
	return nil
}

// checkName rejects names that would escape their directory.
func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid name %q", name)
	}
	return nil
}
