package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"sortdir/internal/faults"
	"sortdir/internal/logging"
	"sortdir/internal/organizer"
)

type runFlags struct {
	dryRun              bool
	jsonOutput          bool
	walkWorkers         int
	relocateWorkers     int
	expandArchives      bool
	keepEmptyCategories bool
	noPrune             bool
	noProgress          bool
	noJournal           bool
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run [ROOT]",
		Short: "Sort every file under ROOT into category folders",
		Long: "Walk ROOT, move each file into a category folder directly under ROOT " +
			"(images, documents, audio, video, archives, Unknown) and remove the " +
			"directories left empty. ROOT defaults to the current directory.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			return runOrganize(cmd, ctx, root, flags)
		},
	}

	cmd.Flags().BoolVarP(&flags.dryRun, "dry-run", "n", false, "Plan moves and pruning without changing anything")
	cmd.Flags().BoolVar(&flags.jsonOutput, "json", false, "Print the run report as JSON")
	cmd.Flags().IntVar(&flags.walkWorkers, "walk-workers", 0, "Traversal workers (overrides config)")
	cmd.Flags().IntVar(&flags.relocateWorkers, "relocate-workers", 0, "Relocation workers (overrides config)")
	cmd.Flags().BoolVar(&flags.expandArchives, "expand-archives", false, "Expand archives after moving them")
	cmd.Flags().BoolVar(&flags.keepEmptyCategories, "keep-empty-categories", false, "Never prune category folders, even when empty")
	cmd.Flags().BoolVar(&flags.noPrune, "no-prune", false, "Leave empty directories in place")
	cmd.Flags().BoolVar(&flags.noProgress, "no-progress", false, "Disable the progress bar")
	cmd.Flags().BoolVar(&flags.noJournal, "no-journal", false, "Do not record this run in history")
	return cmd
}

func runOrganize(cmd *cobra.Command, ctx *commandContext, root string, flags runFlags) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}

	fs := cmd.Flags()
	if fs.Changed("walk-workers") {
		cfg.Workers.Walk = flags.walkWorkers
	}
	if fs.Changed("relocate-workers") {
		cfg.Workers.Relocate = flags.relocateWorkers
	}
	if fs.Changed("expand-archives") {
		cfg.Archives.Expand = flags.expandArchives
	}
	if fs.Changed("keep-empty-categories") {
		cfg.Pruning.KeepEmptyCategories = flags.keepEmptyCategories
	}
	if flags.noPrune {
		cfg.Pruning.Enabled = false
	}
	if flags.noJournal {
		cfg.Journal.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := ctx.newLogger(cfg)
	if err != nil {
		return err
	}
	store, err := ctx.openJournal(cfg)
	if err != nil {
		logging.WarnWithContext(logger, "journal unavailable", "journal_error",
			logging.Error(err),
			logging.String(logging.FieldImpact, "this run is not recorded in history"),
		)
		store = nil
	}
	if store != nil {
		defer store.Close()
	}

	org, err := organizer.New(cfg, store, logger)
	if err != nil {
		return err
	}

	bar := newRelocationBar(cmd.ErrOrStderr(), !flags.noProgress && !flags.jsonOutput)
	report, runErr := org.Run(cmd.Context(), filepath.Clean(root), organizer.RunOptions{
		DryRun:     flags.dryRun,
		Progress:   bar.tick,
		Discovered: bar.start,
	})
	bar.finish()

	if flags.jsonOutput {
		if err := writeJSON(cmd, report); err != nil {
			return err
		}
	} else if runErr == nil || errors.Is(runErr, faults.ErrCanceled) {
		fmt.Fprint(cmd.OutOrStdout(), renderReport(report))
	}

	if runErr != nil {
		return runErr
	}
	if report.Failed() {
		return &partialError{failures: len(report.Failures)}
	}
	return nil
}
