package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
)

// command describes a CLI subcommand.
type command struct {
	name  string
	short string
	usage string
	long  string
	run   func(args []string) error
}

var commands = []command{
	{
		name:  "init",
		short: "Create a workspace bound to a parameter table",
		usage: "covgen init <workspace> <table.csv|table.yaml>",
		long: `Create a new workspace at ~/.covgen/<workspace>/ bound to a parameter table.

The table needs a Parameters column, a default-bins column and one column per
generation. CSV and YAML tables are read. The table is loaded once to check it.

Errors if the workspace already exists. When the current directory has no
.covgen/settings.yaml, one is written with the default policies.
`,
		run: runInit,
	},
	{
		name:  "workspace",
		short: "List or remove workspaces",
		usage: "covgen workspace list | covgen workspace remove <workspace>",
		long: `list prints every workspace under ~/.covgen/. remove deletes a workspace with
its snapshots and outputs; the bound table is left alone.
`,
		run: runWorkspace,
	},
	{
		name:  "snapshot",
		short: "Create, import or list saved inputs",
		usage: "covgen snapshot [-from file] <workspace> [name]",
		long: `With a name, write a snapshot of form inputs to the workspace: a blank one
listing every parameter and generation, or a copy of -from (YAML, or JSON saved
by earlier tools). Without a name, list the workspace's snapshots.

Flags:
  -from file   import this snapshot file instead of writing a blank one
`,
		run: runSnapshot,
	},
	{
		name:  "prompt",
		short: "Fill in a snapshot interactively",
		usage: "covgen prompt <workspace> <name>",
		long: `Walk through every parameter in the terminal and ask for its first override
record (domain, bin count, split width, bin name), then for the generations to
emit. A blank domain keeps the table defaults for that parameter. Existing
answers are shown as the starting value. Cross specs are edited in the
snapshot file.
`,
		run: runPrompt,
	},
	{
		name:  "validate",
		short: "Check a snapshot against the table",
		usage: "covgen validate [-log-level level] <workspace> <name>",
		long: `Run a generation pass without writing anything and print every issue.
Exits non-zero when any parse error, range violation or unusable cross is found.
`,
		run: runValidate,
	},
	{
		name:  "describe",
		short: "Show the allowed domains of the table",
		usage: "covgen describe <workspace> [parameter...]",
		long: `Print, per parameter, the default bin count, the combined range across all
generations, and each generation's own domain.
`,
		run: runDescribe,
	},
	{
		name:  "generate",
		short: "Generate the coverage model from a snapshot",
		usage: "covgen generate [-o file] [-report file] [-force] <workspace> <name>",
		long: `Run a generation pass and write the coverage model.

The model is written only when the pass has no errors; otherwise every issue is
printed and the previous output is left untouched. Files are replaced
atomically.

Flags:
  -o file        output path (default ~/.covgen/<workspace>/out/<module>.sv)
  -report file   also write a markdown report of the pass
  -force         write the model even when the pass has errors
  -log-level     debug, info, warn or error (default warn)
  -log-format    text or json (default text)
`,
		run: runGenerate,
	},
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, "covgen: coverage bin generator for parameter tables\n\n")
	fmt.Fprintf(w, "Usage:\n  covgen <command> [arguments]\n\n")
	fmt.Fprintf(w, "Commands:\n")
	for _, cmd := range commands {
		fmt.Fprintf(w, "  %-10s %s\n", cmd.name, cmd.short)
	}
	fmt.Fprintf(w, "\nRun 'covgen help <command>' for details on a specific command.\n")
}

func printCommandHelp(w io.Writer, name string) {
	for _, cmd := range commands {
		if cmd.name == name {
			fmt.Fprintf(w, "Usage: %s\n\n%s", cmd.usage, cmd.long)
			return
		}
	}
	fmt.Fprintf(w, "covgen: unknown command %q\n\nRun 'covgen help' for usage.\n", name)
}

func dispatch(args []string) error {
	if len(args) == 0 || args[0] == "--help" || args[0] == "-h" {
		printUsage(os.Stdout)
		return nil
	}
	if args[0] == "help" {
		if len(args) >= 2 {
			printCommandHelp(os.Stdout, args[1])
		} else {
			printUsage(os.Stdout)
		}
		return nil
	}
	for _, cmd := range commands {
		if cmd.name == args[0] {
			err := cmd.run(args[1:])
			if errors.Is(err, flag.ErrHelp) {
				return nil
			}
			return err
		}
	}
	return fmt.Errorf("unknown command %q\n\nRun 'covgen help' for usage.", args[0])
}

func main() {
	if err := dispatch(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}
