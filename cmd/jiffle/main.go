package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
)

const usage = `Usage:
  jiffle check [-mode direct|indirect] <script.jfl> [more.jfl...]
  jiffle run [-v] [-workers n] <run.yaml>
  jiffle journal [-executor id] <journal.db>
  jiffle help
`

func main() {
	if handleHelp() || handleCheck() || handleRun() || handleJournal() {
		return
	}
	fmt.Fprint(os.Stderr, usage)
	os.Exit(2)
}

func handleHelp() bool {
	if len(os.Args) < 2 {
		return false
	}
	if os.Args[1] != "-help" && os.Args[1] != "--help" && os.Args[1] != "help" {
		return false
	}
	fmt.Print(usage)
	return true
}

func handleCheck() bool {
	if len(os.Args) < 2 || os.Args[1] != "check" {
		return false
	}
	os.Exit(checkCommand(os.Args[2:], os.Stdout, os.Stderr))
	return true
}

func handleRun() bool {
	if len(os.Args) < 2 || os.Args[1] != "run" {
		return false
	}
	os.Exit(runCommand(os.Args[2:], os.Stdout, os.Stderr))
	return true
}

func handleJournal() bool {
	if len(os.Args) < 2 || os.Args[1] != "journal" {
		return false
	}
	os.Exit(journalCommand(os.Args[2:], os.Stdout, os.Stderr))
	return true
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
