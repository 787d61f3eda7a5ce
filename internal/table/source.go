package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Source reads a table from some exported spreadsheet format.
type Source interface {
	// Name returns the source's short identifier (e.g. "csv").
	Name() string

	// Extensions lists the file extensions (with dot) the source handles.
	Extensions() []string

	// Read parses a header row and data rows from r.
	Read(r io.Reader) (header []string, rows [][]string, err error)
}

// sources is the registry of available table readers.
var sources = []Source{
	csvSource{},
	yamlSource{},
}

// SourceFor returns the source that handles path's extension.
func SourceFor(path string) (Source, error) {
	ext := strings.ToLower(filepath.Ext(path))
	var known []string
	for _, s := range sources {
		for _, e := range s.Extensions() {
			if e == ext {
				return s, nil
			}
			known = append(known, e)
		}
	}
	sort.Strings(known)
	return nil, fmt.Errorf("no table source for %q (supported: %s)", ext, strings.Join(known, ", "))
}

// Load reads and validates the table at path.
func Load(path string) (*Table, error) {
	src, err := SourceFor(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open table: %w", err)
	}
	defer f.Close()

	header, rows, err := src.Read(f)
	if err != nil {
		return nil, fmt.Errorf("read %s table %s: %w", src.Name(), path, err)
	}
	t, err := FromRows(header, rows)
	if err != nil {
		return nil, fmt.Errorf("table %s: %w", path, err)
	}
	return t, nil
}

// ---------------------------------------------------------------------------
// CSV
// ---------------------------------------------------------------------------

// csvSource reads a spreadsheet saved as CSV; the first record is the header.
type csvSource struct{}

func (csvSource) Name() string { return "csv" }

func (csvSource) Extensions() []string { return []string{".csv"} }

func (csvSource) Read(r io.Reader) ([]string, [][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, ErrEmptyTable
	}
	return records[0], records[1:], nil
}

// ---------------------------------------------------------------------------
// YAML
// ---------------------------------------------------------------------------

// yamlDoc is the on-disk YAML table layout:
//
//	columns: [Parameters, Bins, HE_SU]
//	rows:
//	  - [pkt_len, 4, "[1:100]"]
type yamlDoc struct {
	Columns []string   `yaml:"columns"`
	Rows    [][]string `yaml:"rows"`
}

type yamlSource struct{}

func (yamlSource) Name() string { return "yaml" }

func (yamlSource) Extensions() []string { return []string{".yaml", ".yml"} }

func (yamlSource) Read(r io.Reader) ([]string, [][]string, error) {
	var doc yamlDoc
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, nil, ErrEmptyTable
		}
		return nil, nil, err
	}
	return doc.Columns, doc.Rows, nil
}
