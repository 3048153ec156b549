package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/funvibe/jiffle/internal/diagnostics"
	"github.com/funvibe/jiffle/pkg/jiffle"
)

const (
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorReset  = "\033[0m"
)

// printDiagnostics writes one message per line, coloured on terminals.
func printDiagnostics(w io.Writer, list []*diagnostics.DiagnosticError) {
	color := isTerminal(w)
	for _, d := range list {
		if !color {
			fmt.Fprintln(w, d.Error())
			continue
		}
		c := colorYellow
		if d.IsError() {
			c = colorRed
		}
		fmt.Fprintf(w, "%s%s%s\n", c, d.Error(), colorReset)
	}
}

func parseMode(s string) (jiffle.Mode, error) {
	switch s {
	case "", "direct":
		return jiffle.Direct, nil
	case "indirect":
		return jiffle.Indirect, nil
	}
	return jiffle.Direct, errors.Errorf("unknown mode %q", s)
}

// checkCommand compiles each script and reports its diagnostics. Images
// are taken from the script's images block.
func checkCommand(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(stderr)
	modeName := fs.String("mode", "direct", "evaluator mode: direct or indirect")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	mode, err := parseMode(*modeName)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", err)
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	status := 0
	for _, path := range fs.Args() {
		src, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(stderr, "Error reading file: %s\n", err)
			status = 1
			continue
		}
		j, err := jiffle.Compile(string(src), nil, jiffle.WithMode(mode), jiffle.WithFileName(path))
		var cerr *jiffle.CompileError
		switch {
		case errors.As(err, &cerr):
			printDiagnostics(stdout, cerr.Diagnostics)
			status = 1
		case err != nil:
			fmt.Fprintf(stderr, "Error: %s\n", err)
			status = 1
		default:
			printDiagnostics(stdout, j.Warnings())
			fmt.Fprintf(stdout, "%s: ok (%d sources, %d destinations)\n",
				path, len(j.SourceNames()), len(j.DestinationNames()))
		}
	}
	return status
}
