// Package table holds the parameter table the generator is driven by.
//
// The table has a "Parameters" key column (one row per parameter, in display
// order), a default-bins column, and one column per generation whose cells
// hold domain notation:
//
//	Parameters | Bins | HE_SU   | EHT_MU
//	pkt_len    | 4    | [1:100] | [1:4095]
//	mcs        |      | 0,1,2   | [0:13]
//
// Reading spreadsheets is left to the caller: sources only need to produce a
// header row and data rows (see Source).
package table

import (
	"errors"
	"fmt"
	"strings"
)

// ParametersColumn is the header of the required key column.
const ParametersColumn = "Parameters"

var (
	ErrEmptyTable        = errors.New("table has no parameter rows")
	ErrMissingParameters = errors.New("table has no " + ParametersColumn + " column")
	ErrNoGenerations     = errors.New("table needs a bins column and at least one generation column")
)

// Table is the validated, read-only form of the parameter table.
type Table struct {
	// Parameters in display order.
	Parameters []string
	// Generations in column order.
	Generations []string
	// BinsColumn is the header of the default-bins column.
	BinsColumn string
	// Duplicates lists parameter names that appeared on more than one row.
	// Only the first row is kept.
	Duplicates []string

	bins  map[string]string
	cells map[string]map[string]string // parameter -> generation -> cell
}

// FromRows builds a Table from a header row and data rows. Short rows are
// padded with blank cells. Rows with a blank parameter name are dropped.
func FromRows(header []string, rows [][]string) (*Table, error) {
	header = trimAll(header)
	key := -1
	for i, h := range header {
		if h == ParametersColumn {
			key = i
			break
		}
	}
	if key < 0 {
		return nil, fmt.Errorf("%w (columns: %s)", ErrMissingParameters, strings.Join(header, ", "))
	}
	if len(header) < 3 {
		return nil, fmt.Errorf("%w (got %d columns)", ErrNoGenerations, len(header))
	}

	// The first non-key column is the bins column; the rest are generations.
	var others []int
	for i := range header {
		if i != key {
			others = append(others, i)
		}
	}
	t := &Table{
		BinsColumn: header[others[0]],
		bins:       make(map[string]string),
		cells:      make(map[string]map[string]string),
	}
	genCols := others[1:]
	for _, i := range genCols {
		if header[i] == "" {
			return nil, fmt.Errorf("%w: column %d has no header", ErrNoGenerations, i+1)
		}
		t.Generations = append(t.Generations, header[i])
	}

	for _, row := range rows {
		name := cell(row, key)
		if name == "" {
			continue
		}
		if _, seen := t.cells[name]; seen {
			t.Duplicates = append(t.Duplicates, name)
			continue
		}
		t.Parameters = append(t.Parameters, name)
		t.bins[name] = cell(row, others[0])
		gens := make(map[string]string, len(genCols))
		for _, i := range genCols {
			gens[header[i]] = cell(row, i)
		}
		t.cells[name] = gens
	}
	if len(t.Parameters) == 0 {
		return nil, ErrEmptyTable
	}
	return t, nil
}

// Cell returns the raw domain cell for (generation, parameter). ok is false
// when either the row or the column does not exist.
func (t *Table) Cell(generation, parameter string) (string, bool) {
	gens, ok := t.cells[parameter]
	if !ok {
		return "", false
	}
	c, ok := gens[generation]
	return c, ok
}

// DefaultBins returns the raw default-bins cell for parameter.
func (t *Table) DefaultBins(parameter string) string {
	return t.bins[parameter]
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func trimAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.TrimSpace(strings.TrimPrefix(s, "\ufeff"))
	}
	return out
}
