package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"sortdir/internal/journal"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool
	var showEntries bool

	cmd := &cobra.Command{
		Use:   "history [RUN_ID]",
		Short: "List recorded runs, or show one run in detail",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.Journal.Enabled {
				return errors.New("the journal is disabled in the configuration")
			}
			store, err := ctx.openJournal(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			if len(args) == 1 {
				return showRun(cmd, store, strings.TrimSpace(args[0]), showEntries, jsonOutput)
			}
			if !cmd.Flags().Changed("limit") {
				limit = cfg.Journal.HistoryLimit
			}
			return listRuns(cmd, store, limit, jsonOutput)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "Maximum runs to list (0 lists all)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
	cmd.Flags().BoolVar(&showEntries, "entries", false, "Include per-file outcomes when showing a run")
	return cmd
}

func listRuns(cmd *cobra.Command, store *journal.Store, limit int, jsonOutput bool) error {
	runs, err := store.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if jsonOutput {
		if runs == nil {
			runs = []journal.Run{}
		}
		return writeJSON(cmd, runs)
	}
	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded")
		return nil
	}
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		status := run.Status
		if run.DryRun {
			status += " (dry run)"
		}
		rows = append(rows, []string{
			shortID(run.ID),
			run.StartedAt.Local().Format("2006-01-02 15:04"),
			status,
			strconv.Itoa(run.Moved),
			strconv.Itoa(run.Failed),
			strconv.Itoa(run.Pruned),
			run.Root,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"ID", "Started", "Status", "Moved", "Failed", "Pruned", "Root"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
	))
	return nil
}

type runDetail struct {
	journal.Run
	Entries []journal.Entry `json:"entries,omitempty"`
}

func showRun(cmd *cobra.Command, store *journal.Store, id string, withEntries, jsonOutput bool) error {
	run, err := store.GetRun(cmd.Context(), id)
	if err != nil {
		return err
	}
	detail := runDetail{Run: *run}
	if withEntries {
		detail.Entries, err = store.Entries(cmd.Context(), run.ID)
		if err != nil {
			return err
		}
	}
	if jsonOutput {
		return writeJSON(cmd, detail)
	}

	out := cmd.OutOrStdout()
	rows := [][]string{
		{"Run", run.ID},
		{"Root", run.Root},
		{"Status", run.Status},
		{"Dry run", yesNo(run.DryRun)},
		{"Started", formatWhen(run.StartedAt)},
		{"Duration", run.Duration().Round(time.Millisecond).String()},
		{"Discovered", strconv.Itoa(run.Discovered)},
		{"Moved", fmt.Sprintf("%d (%s)", run.Moved, humanize.IBytes(uint64(max(run.Bytes, 0))))},
		{"Failed", strconv.Itoa(run.Failed)},
		{"Skipped", strconv.Itoa(run.Skipped)},
		{"Pruned", strconv.Itoa(run.Pruned)},
	}
	if run.Error != "" {
		rows = append(rows, []string{"Error", run.Error})
	}
	fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows, nil))

	if withEntries {
		entryRows := make([][]string, 0, len(detail.Entries))
		for _, e := range detail.Entries {
			target := e.Destination
			if e.Error != "" {
				target = e.Error
			}
			entryRows = append(entryRows, []string{e.Status, e.Source, target})
		}
		fmt.Fprintln(out, renderTable([]string{"Status", "Source", "Destination"}, entryRows, nil))
	}
	return nil
}
