package workspace_test

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"covgen/internal/snapshot"
	"covgen/internal/workspace"
)

// withTempHome redirects os.UserHomeDir to a temp directory for the duration of the test.
func withTempHome(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)
	return tmp
}

// writeTable writes a small CSV table and returns its path.
func writeTable(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "params.csv")
	body := "Parameters,Bins,G1,G2\npkt_len,4,[1:100],[1:200]\nmcs,,\"0,1\",[0:9]\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestInitAndOpen(t *testing.T) {
	tmp := withTempHome(t)
	tablePath := writeTable(t)

	if _, err := workspace.Init("wifi", tablePath); err != nil {
		t.Fatalf("Init: %v", err)
	}

	dir := filepath.Join(tmp, ".covgen", "wifi")
	for _, sub := range []string{"project.yaml", "snapshots", "out"} {
		if _, err := os.Stat(filepath.Join(dir, sub)); err != nil {
			t.Fatalf("%s not created: %v", sub, err)
		}
	}

	// Init again must fail.
	if _, err := workspace.Init("wifi", tablePath); err == nil {
		t.Fatal("expected error on duplicate Init")
	}

	w, err := workspace.Open("wifi")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if w.Dir != dir {
		t.Errorf("Dir mismatch: got %s want %s", w.Dir, dir)
	}
	tbl, err := w.LoadTable()
	if err != nil {
		t.Fatalf("LoadTable: %v", err)
	}
	if len(tbl.Parameters) != 2 || len(tbl.Generations) != 2 {
		t.Errorf("table = %v / %v", tbl.Parameters, tbl.Generations)
	}

	sum, err := w.TableHash()
	if err != nil {
		t.Fatalf("TableHash: %v", err)
	}
	if len(sum) != 64 {
		t.Errorf("TableHash = %q, want 64 hex digits", sum)
	}
	if err := os.WriteFile(tablePath, []byte("Parameters,Bins,G1\nx,,1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if again, _ := w.TableHash(); again == sum {
		t.Error("TableHash did not change with the table")
	}
}

func TestInitRejectsBadTable(t *testing.T) {
	withTempHome(t)
	bad := filepath.Join(t.TempDir(), "bad.csv")
	if err := os.WriteFile(bad, []byte("Name,Value\nx,1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := workspace.Init("w", bad); err == nil {
		t.Fatal("expected error for table without Parameters column")
	}
	if _, err := workspace.Open("w"); err == nil {
		t.Fatal("failed Init must not leave a workspace behind")
	}
}

func TestOpenMissing(t *testing.T) {
	withTempHome(t)
	if _, err := workspace.Open("notexist"); err == nil {
		t.Fatal("expected error for missing workspace")
	}
}

func TestInvalidNames(t *testing.T) {
	withTempHome(t)
	for _, name := range []string{"", "..", "a/b"} {
		if _, err := workspace.Open(name); err == nil {
			t.Errorf("Open(%q) should fail", name)
		}
	}
}

func TestSnapshots(t *testing.T) {
	withTempHome(t)
	w, err := workspace.Init("w", writeTable(t))
	if err != nil {
		t.Fatal(err)
	}

	names, err := w.ListSnapshots()
	if err != nil || len(names) != 0 {
		t.Fatalf("ListSnapshots on fresh workspace = %v, %v", names, err)
	}

	s := &snapshot.Snapshot{Parameters: map[string]snapshot.ParameterInputs{
		"mcs": {Inputs: []snapshot.Input{{Input: "0,1"}}},
	}}
	if err := w.SaveSnapshot("base", s); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	got, err := w.LoadSnapshot("base")
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if got.Parameters["mcs"].Inputs[0].Input != "0,1" {
		t.Errorf("loaded snapshot = %+v", got)
	}
	names, _ = w.ListSnapshots()
	if len(names) != 1 || names[0] != "base" {
		t.Errorf("ListSnapshots = %v, want [base]", names)
	}
	if _, err := w.LoadSnapshot("other"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("LoadSnapshot(missing) = %v, want fs.ErrNotExist", err)
	}

	bad := filepath.Join(w.Dir, "snapshots", "bad.yaml")
	if err := os.WriteFile(bad, []byte("parameters: [unclosed\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err = w.LoadSnapshot("bad")
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		t.Errorf("LoadSnapshot(corrupt) = %v, want a parse error", err)
	}
}

func TestWriteOutputReplacesAtomically(t *testing.T) {
	withTempHome(t)
	w, err := workspace.Init("w", writeTable(t))
	if err != nil {
		t.Fatal(err)
	}
	path, err := w.WriteOutput("model.sv", []byte("first\n"))
	if err != nil {
		t.Fatalf("WriteOutput: %v", err)
	}
	if _, err := w.WriteOutput("model.sv", []byte("second\n")); err != nil {
		t.Fatalf("WriteOutput: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "second\n" {
		t.Errorf("content = %q, want %q", data, "second\n")
	}

	// No temp files are left behind.
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("out/ has %d entries, want 1", len(entries))
	}
}

func TestListAndRemove(t *testing.T) {
	withTempHome(t)
	if names, err := workspace.List(); err != nil || names != nil {
		t.Fatalf("List with no ~/.covgen = %v, %v", names, err)
	}
	tablePath := writeTable(t)
	for _, n := range []string{"b", "a"} {
		if _, err := workspace.Init(n, tablePath); err != nil {
			t.Fatal(err)
		}
	}
	names, err := workspace.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("List = %v, want [a b]", names)
	}
	if err := workspace.Remove("a"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := workspace.Remove("a"); err == nil {
		t.Error("expected error removing missing workspace")
	}
}
