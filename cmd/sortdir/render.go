package main

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"sortdir/internal/classify"
	"sortdir/internal/journal"
	"sortdir/internal/organizer"
)

const maxListedFailures = 25

func renderReport(r *organizer.Report) string {
	var b strings.Builder

	verb := "moved"
	if r.DryRun {
		verb = "would move"
		fmt.Fprintln(&b, "Dry run: nothing was changed.")
	}
	fmt.Fprintf(&b, "Run %s %s in %s\n", shortID(r.RunID), statusLabel(r.Status), r.Timings.Total.Round(time.Millisecond))
	fmt.Fprintf(&b, "Root: %s\n", r.Root)

	if len(r.Categories) > 0 {
		names := make([]string, 0, len(r.Categories))
		for name := range r.Categories {
			names = append(names, name)
		}
		slices.Sort(names)
		rows := make([][]string, 0, len(names))
		for _, name := range names {
			rows = append(rows, []string{classify.Title(name), name + "/", strconv.Itoa(r.Categories[name])})
		}
		b.WriteString(renderTable([]string{"Category", "Folder", "Files"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight}))
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Discovered %d files, %s %d (%s)", r.Discovered, verb, r.Moved, humanize.IBytes(uint64(max(r.Bytes, 0))))
	if r.Unstarted > 0 {
		fmt.Fprintf(&b, ", %d not started", r.Unstarted)
	}
	fmt.Fprintf(&b, ", pruned %d directories\n", len(r.Pruned))
	fmt.Fprintf(&b, "Phases: walk %s, relocate %s, prune %s\n",
		r.Timings.Walk.Round(time.Millisecond),
		r.Timings.Relocate.Round(time.Millisecond),
		r.Timings.Prune.Round(time.Millisecond),
	)

	for _, n := range r.Notices {
		fmt.Fprintf(&b, "Note: %s: %s\n", n.Path, n.Message())
	}

	if len(r.Failures) > 0 {
		rows := make([][]string, 0, min(len(r.Failures), maxListedFailures))
		for i, f := range r.Failures {
			if i == maxListedFailures {
				break
			}
			rows = append(rows, []string{f.Kind, f.Phase, f.Path})
		}
		fmt.Fprintf(&b, "%d failures:\n", len(r.Failures))
		b.WriteString(renderTable([]string{"Kind", "Phase", "Path"}, rows, nil))
		b.WriteString("\n")
		if hidden := len(r.Failures) - maxListedFailures; hidden > 0 {
			fmt.Fprintf(&b, "... and %d more (use --json for the full list)\n", hidden)
		}
	}
	return b.String()
}

func statusLabel(status string) string {
	switch status {
	case journal.StatusCompleted:
		return "completed"
	case journal.StatusPartial:
		return "completed with failures"
	case journal.StatusCanceled:
		return "was canceled"
	case journal.StatusFailed:
		return "failed"
	case journal.StatusRunning:
		return "is running"
	default:
		return status
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatWhen(ts time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	return fmt.Sprintf("%s (%s)", ts.Local().Format("2006-01-02 15:04"), humanize.Time(ts))
}
