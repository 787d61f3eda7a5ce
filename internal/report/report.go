// Package report writes the markdown summary of a generation pass: YAML
// frontmatter with the pass metadata, then every issue and a per-generation
// coverage table.
package report

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"covgen/internal/generate"
	"covgen/internal/validate"
)

// Meta is the report frontmatter.
type Meta struct {
	Workspace   string   `yaml:"workspace,omitempty"`
	Snapshot    string   `yaml:"snapshot,omitempty"`
	TableSHA256 string   `yaml:"table_sha256,omitempty"`
	Module      string   `yaml:"module"`
	Generations []string `yaml:"generations"`
	Output      string   `yaml:"output,omitempty"`
	Written     bool     `yaml:"written"`
	Errors      int      `yaml:"errors"`
	Notes       int      `yaml:"notes"`
}

// Build renders the report of res. The counts in meta are filled from res.
func Build(meta Meta, res *generate.Result) ([]byte, error) {
	if res == nil || res.Document == nil {
		return nil, fmt.Errorf("report: no generation result")
	}
	meta.Module = res.Document.Module
	meta.Generations = make([]string, 0, len(res.Document.Groups))
	for _, g := range res.Document.Groups {
		meta.Generations = append(meta.Generations, g.Generation)
	}
	errs := res.Issues.Errors()
	meta.Errors = len(errs)
	meta.Notes = len(res.Issues) - len(errs)

	var b strings.Builder
	fmt.Fprintf(&b, "# Coverage generation: %s\n", meta.Module)

	b.WriteString("\n## Covergroups\n\n")
	b.WriteString("| Generation | Covergroup | Coverpoints | Bins | Crosses |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, g := range res.Document.Groups {
		nbins := 0
		for _, cp := range g.Coverpoints {
			nbins += len(cp.Bins)
		}
		fmt.Fprintf(&b, "| %s | `%s` | %d | %d | %d |\n", g.Generation, g.Name, len(g.Coverpoints), nbins, len(g.Crosses))
	}

	writeIssues(&b, "Errors", errs)
	var notes validate.Issues
	for _, i := range res.Issues {
		if !i.Kind.IsError() {
			notes = append(notes, i)
		}
	}
	writeIssues(&b, "Notes", notes)

	return write(meta, b.String())
}

func writeIssues(b *strings.Builder, title string, is validate.Issues) {
	fmt.Fprintf(b, "\n## %s\n\n", title)
	if len(is) == 0 {
		b.WriteString("None.\n")
		return
	}
	for _, i := range is {
		line := fmt.Sprintf("- **%s** %s", i.Kind, i.Message)
		if w := i.Where(); w != "" {
			line = fmt.Sprintf("- `%s` **%s** %s", w, i.Kind, i.Message)
		}
		if i.Input != "" {
			line += fmt.Sprintf(" (input `%s`)", i.Input)
		}
		b.WriteString(line + "\n")
	}
}

// write marshals v as YAML frontmatter and concatenates body.
func write(v any, body string) ([]byte, error) {
	fm, err := yaml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("report: marshal: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(fm)
	buf.WriteString("---\n")
	buf.WriteString(body)
	return buf.Bytes(), nil
}
