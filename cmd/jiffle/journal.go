package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/funvibe/jiffle/internal/journal"
)

// journalCommand lists the job events stored in a journal file.
func journalCommand(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("journal", flag.ContinueOnError)
	fs.SetOutput(stderr)
	executorID := fs.String("executor", "", "only list events of this executor")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	j, err := journal.Open(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", err)
		return 1
	}
	defer j.Close()

	events, err := j.Events(context.Background(), *executorID)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", err)
		return 1
	}
	if len(events) == 0 {
		fmt.Fprintln(stdout, "No events")
		return 0
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "EXECUTOR\tJOB\tSTATUS\tIMAGES\tWHEN")
	for _, ev := range events {
		status := "completed"
		if !ev.Completed {
			status = "failed: " + ev.Error
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n",
			ev.Executor, ev.JobID, status, strings.Join(ev.Images, ","), humanize.Time(ev.RecordedAt))
	}
	tw.Flush()
	return 0
}
