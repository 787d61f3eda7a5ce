package report_test

import (
	"bytes"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"covgen/internal/bins"
	"covgen/internal/coverage"
	"covgen/internal/generate"
	"covgen/internal/report"
	"covgen/internal/validate"
)

func sampleResult() *generate.Result {
	return &generate.Result{
		Document: &coverage.Document{
			Module: "coverage_model",
			Groups: []coverage.Covergroup{
				{Name: "cg_g1", Generation: "G1", Coverpoints: []coverage.Coverpoint{
					{Name: "cov_a", Bins: []bins.Bin{{Name: "a1"}, {Name: "a2"}}},
				}},
				{Name: "cg_g2", Generation: "G2"},
			},
		},
		Issues: validate.Issues{
			{Kind: validate.KindRange, Parameter: "a", Field: 2, Input: "[0:99]", Message: "out of combined range, allowed: [1:10]"},
			{Kind: validate.KindSkipped, Cross: "x", Generation: "G2", Message: "no bins for cov_b in this generation"},
		},
	}
}

// splitReport separates the YAML frontmatter of a built report from its body.
func splitReport(t *testing.T, data []byte) (report.Meta, []byte) {
	t.Helper()
	const delim = "---\n"
	if !bytes.HasPrefix(data, []byte(delim)) {
		t.Fatalf("report does not open with ---:\n%s", data)
	}
	rest := data[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		t.Fatalf("report has no closing ---:\n%s", data)
	}
	var m report.Meta
	if err := yaml.Unmarshal(rest[:idx+1], &m); err != nil {
		t.Fatalf("frontmatter: %v", err)
	}
	return m, rest[idx+1+len(delim):]
}

func TestBuild(t *testing.T) {
	data, err := report.Build(report.Meta{Workspace: "wifi", Snapshot: "base", TableSHA256: "abc123", Output: "/tmp/m.sv"}, sampleResult())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	meta, body := splitReport(t, data)

	if meta.Module != "coverage_model" || meta.Workspace != "wifi" || meta.Snapshot != "base" || meta.TableSHA256 != "abc123" {
		t.Errorf("meta = %+v", meta)
	}
	if meta.Errors != 1 || meta.Notes != 1 {
		t.Errorf("counts = %d errors, %d notes; want 1, 1", meta.Errors, meta.Notes)
	}
	if meta.Written {
		t.Error("Written should stay false unless the caller sets it")
	}
	if len(meta.Generations) != 2 || meta.Generations[0] != "G1" {
		t.Errorf("generations = %v", meta.Generations)
	}

	text := string(body)
	for _, want := range []string{
		"# Coverage generation: coverage_model\n",
		"| G1 | `cg_g1` | 1 | 2 | 0 |\n",
		"| G2 | `cg_g2` | 0 | 0 | 0 |\n",
		"- `a #2` **range** out of combined range, allowed: [1:10] (input `[0:99]`)\n",
		"- `cross x (G2)` **skipped** no bins for cov_b in this generation\n",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("body missing %q\ngot:\n%s", want, text)
		}
	}
}

func TestBuildNoIssues(t *testing.T) {
	res := sampleResult()
	res.Issues = nil
	data, err := report.Build(report.Meta{}, res)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(string(data), "None.\n") != 2 {
		t.Errorf("expected both sections empty:\n%s", data)
	}
}

func TestBuildNilResult(t *testing.T) {
	if _, err := report.Build(report.Meta{}, nil); err == nil {
		t.Fatal("expected error for nil result")
	}
}

func TestBuildKeepsCallerGenerations(t *testing.T) {
	gens := make([]string, 1, 4)
	gens[0] = "keep"
	data, err := report.Build(report.Meta{Generations: gens}, sampleResult())
	if err != nil {
		t.Fatal(err)
	}
	if gens[0] != "keep" || gens[:2][1] != "" {
		t.Errorf("caller slice changed: %q", gens[:2])
	}
	meta, _ := splitReport(t, data)
	if len(meta.Generations) != 2 || meta.Generations[1] != "G2" {
		t.Errorf("generations = %v", meta.Generations)
	}
}
