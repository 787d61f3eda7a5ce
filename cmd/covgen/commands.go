package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"text/tabwriter"

	"covgen/internal/domain"
	"covgen/internal/generate"
	"covgen/internal/registry"
	"covgen/internal/report"
	"covgen/internal/settings"
	"covgen/internal/snapshot"
	"covgen/internal/validate"
	"covgen/internal/workspace"
)

// session is an opened workspace with its table parsed and the project
// settings of the working directory loaded.
type session struct {
	ws  *workspace.Workspace
	reg *registry.Registry
	st  *settings.Settings
	log *slog.Logger
}

func openSession(name string, log *slog.Logger) (*session, error) {
	ws, err := workspace.Open(name)
	if err != nil {
		return nil, err
	}
	tbl, err := ws.LoadTable()
	if err != nil {
		return nil, err
	}
	reg, err := registry.New(tbl, log)
	if err != nil {
		return nil, err
	}
	st, err := settings.Load(".")
	if err != nil {
		return nil, err
	}
	return &session{ws: ws, reg: reg, st: st, log: log}, nil
}

// pass loads a snapshot and runs a generation pass over it. Snapshot field
// issues come first in the result.
func (s *session) pass(snapName string) (*generate.Result, error) {
	snap, err := s.ws.LoadSnapshot(snapName)
	if err != nil {
		return nil, err
	}
	req, issues := snap.Request(s.reg)
	for p := range req.Parameters {
		if s.st.IsExcluded(p) {
			s.log.Info("parameter excluded by settings", "parameter", p)
			delete(req.Parameters, p)
		}
	}
	cfg := s.st.Config()
	cfg.Log = s.log
	res, err := generate.Run(s.reg, req, cfg)
	if err != nil {
		return nil, err
	}
	res.Issues = append(issues, res.Issues...)
	return res, nil
}

func printIssues(w io.Writer, issues validate.Issues) {
	for _, i := range issues {
		fmt.Fprintf(w, "  %s\n", i)
	}
}

// ---------------------------------------------------------------------------
// init
// ---------------------------------------------------------------------------

func runInit(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: covgen init <workspace> <table.csv|table.yaml>")
	}
	ws, err := workspace.Init(args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Printf("created workspace %q at %s\n", ws.Name, ws.Dir)

	// Seed project settings once; an existing file is never touched.
	if st, err := settings.Load("."); err == nil && st == nil {
		if err := settings.Save(".", settings.Default()); err != nil {
			return err
		}
		fmt.Printf("wrote default %s\n", filepath.Join(settings.Dir, "settings.yaml"))
	}
	return nil
}

// ---------------------------------------------------------------------------
// workspace
// ---------------------------------------------------------------------------

func runWorkspace(args []string) error {
	const usage = "usage: covgen workspace list | covgen workspace remove <workspace>"
	if len(args) < 1 {
		return errors.New(usage)
	}
	switch args[0] {
	case "list":
		names, err := workspace.List()
		if err != nil {
			return err
		}
		for _, n := range names {
			fmt.Println(n)
		}
		return nil
	case "remove":
		if len(args) < 2 {
			return errors.New(usage)
		}
		if err := workspace.Remove(args[1]); err != nil {
			return err
		}
		fmt.Printf("removed workspace %q\n", args[1])
		return nil
	}
	return fmt.Errorf("unknown workspace action %q\n%s", args[0], usage)
}

// ---------------------------------------------------------------------------
// snapshot
// ---------------------------------------------------------------------------

func runSnapshot(args []string) error {
	fs := flag.NewFlagSet("snapshot", flag.ContinueOnError)
	from := fs.String("from", "", "import this snapshot file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	args = fs.Args()
	if len(args) < 1 {
		return fmt.Errorf("usage: covgen snapshot [-from file] <workspace> [name]")
	}
	ws, err := workspace.Open(args[0])
	if err != nil {
		return err
	}

	if len(args) < 2 {
		names, err := ws.ListSnapshots()
		if err != nil {
			return err
		}
		if len(names) == 0 {
			fmt.Printf("no snapshots in workspace %q\n", ws.Name)
		}
		for _, n := range names {
			fmt.Println(n)
		}
		return nil
	}

	var snap *snapshot.Snapshot
	if *from != "" {
		if snap, err = snapshot.Load(*from); err != nil {
			return err
		}
	} else {
		tbl, err := ws.LoadTable()
		if err != nil {
			return err
		}
		reg, err := registry.New(tbl, slog.New(slog.DiscardHandler))
		if err != nil {
			return err
		}
		snap = snapshot.New(reg)
	}
	if err := ws.SaveSnapshot(args[1], snap); err != nil {
		return err
	}
	fmt.Printf("saved snapshot %q in workspace %q\n", args[1], ws.Name)
	return nil
}

// ---------------------------------------------------------------------------
// prompt
// ---------------------------------------------------------------------------

func runPrompt(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: covgen prompt <workspace> <name>")
	}
	s, err := openSession(args[0], newLogger("warn", "text", os.Stderr))
	if err != nil {
		return err
	}
	snap, err := s.ws.LoadSnapshot(args[1])
	if errors.Is(err, fs.ErrNotExist) {
		snap, err = snapshot.New(s.reg), nil
	}
	if err != nil {
		return err
	}

	questions := formQuestions(s.reg, s.st, snap)
	answers, err := promptQuestions(questions)
	if err != nil {
		return fmt.Errorf("prompt: %w", err)
	}
	applyAnswers(snap, s.reg, answers)
	if err := s.ws.SaveSnapshot(args[1], snap); err != nil {
		return err
	}
	fmt.Printf("saved snapshot %q in workspace %q\n", args[1], s.ws.Name)
	return nil
}

// ---------------------------------------------------------------------------
// validate
// ---------------------------------------------------------------------------

func runValidate(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	lf := addLogFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	args = fs.Args()
	if len(args) < 2 {
		return fmt.Errorf("usage: covgen validate [-log-level level] <workspace> <name>")
	}
	s, err := openSession(args[0], newLogger(lf.level, lf.format, os.Stderr))
	if err != nil {
		return err
	}
	res, err := s.pass(args[1])
	if err != nil {
		return err
	}
	if len(res.Issues) == 0 {
		fmt.Println("ok: no issues")
		return nil
	}
	printIssues(os.Stdout, res.Issues)
	if n := len(res.Issues.Errors()); n > 0 {
		return fmt.Errorf("%d error(s) in snapshot %q", n, args[1])
	}
	fmt.Printf("ok: %d note(s)\n", len(res.Issues))
	return nil
}

// ---------------------------------------------------------------------------
// describe
// ---------------------------------------------------------------------------

func runDescribe(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: covgen describe <workspace> [parameter...]")
	}
	s, err := openSession(args[0], newLogger("warn", "text", os.Stderr))
	if err != nil {
		return err
	}
	params := args[1:]
	if len(params) == 0 {
		params = s.reg.Parameters()
	}
	for _, p := range params {
		if !s.reg.HasParameter(p) {
			return fmt.Errorf("parameter %q not in table", p)
		}
	}
	return describe(os.Stdout, s.reg, params)
}

func describe(w io.Writer, reg *registry.Registry, params []string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, p := range params {
		defaults := "auto"
		if n := reg.DefaultBins(p); n > 0 {
			defaults = fmt.Sprint(n)
		}
		fmt.Fprintf(tw, "%s\tbins %s\tallowed %s\n", p, defaults, validate.DescribeAllowed(reg, p))
		for _, g := range reg.Generations() {
			items := reg.Domain(g, p)
			text := domain.FormatItems(items)
			if len(items) == 0 {
				text = "-"
			}
			fmt.Fprintf(tw, "  %s\t%s\t\n", g, text)
		}
	}
	return tw.Flush()
}

// ---------------------------------------------------------------------------
// generate
// ---------------------------------------------------------------------------

func runGenerate(args []string) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	out := fs.String("o", "", "output path")
	reportPath := fs.String("report", "", "write a markdown report of the pass")
	force := fs.Bool("force", false, "write the model even when the pass has errors")
	lf := addLogFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	args = fs.Args()
	if len(args) < 2 {
		return fmt.Errorf("usage: covgen generate [-o file] [-report file] [-force] <workspace> <name>")
	}
	s, err := openSession(args[0], newLogger(lf.level, lf.format, os.Stderr))
	if err != nil {
		return err
	}
	res, err := s.pass(args[1])
	if err != nil {
		return err
	}

	name := res.Document.Module + ".sv"
	path := *out
	if path == "" {
		path = s.ws.OutputPath(name)
	}
	errs := res.Issues.Errors()
	if len(res.Issues) > 0 {
		fmt.Fprintf(os.Stderr, "%d issue(s):\n", len(res.Issues))
		printIssues(os.Stderr, res.Issues)
	}

	written := false
	if len(errs) == 0 || *force {
		if *out == "" {
			path, err = s.ws.WriteOutput(name, []byte(res.Text))
		} else {
			err = workspace.WriteAtomic(path, []byte(res.Text))
		}
		if err != nil {
			return err
		}
		written = true
		fmt.Printf("wrote %s\n", path)
	}

	if *reportPath != "" {
		sum, err := s.ws.TableHash()
		if err != nil {
			return err
		}
		data, err := report.Build(report.Meta{
			Workspace:   s.ws.Name,
			Snapshot:    args[1],
			TableSHA256: sum,
			Output:      path,
			Written:     written,
		}, res)
		if err != nil {
			return err
		}
		if err := workspace.WriteAtomic(*reportPath, data); err != nil {
			return err
		}
		fmt.Printf("wrote report %s\n", *reportPath)
	}

	if !written {
		return fmt.Errorf("%d error(s); %s left untouched", len(errs), path)
	}
	return nil
}
