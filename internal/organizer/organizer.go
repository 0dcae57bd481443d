package organizer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"sortdir/internal/archive"
	"sortdir/internal/classify"
	"sortdir/internal/config"
	"sortdir/internal/journal"
	"sortdir/internal/logging"
	"sortdir/internal/prune"
	"sortdir/internal/relocate"
	"sortdir/internal/walk"
)

// RunOptions tune a single run.
type RunOptions struct {
	// DryRun plans moves and pruning without touching the tree.
	DryRun bool
	// Progress receives relocation progress. It may be called concurrently.
	Progress func(done, total int)
	// Discovered is called once traversal has finished.
	Discovered func(files int)
}

// Organizer wires the walk, relocate and prune phases together.
type Organizer struct {
	cfg    *config.Config
	table  *classify.Table
	store  *journal.Store
	logger *slog.Logger
}

// New builds an Organizer. store may be nil to skip journaling.
func New(cfg *config.Config, store *journal.Store, logger *slog.Logger) (*Organizer, error) {
	if cfg == nil {
		return nil, errors.New("organizer requires a config")
	}
	table, err := cfg.Table()
	if err != nil {
		return nil, err
	}
	return &Organizer{
		cfg:    cfg,
		table:  table,
		store:  store,
		logger: logging.NewComponentLogger(logger, "organizer"),
	}, nil
}

// Run organizes root. The returned report is never nil. The error is non-nil
// only for fatal conditions: a failed root precondition, a held run lock, or
// cancellation. Per-file problems land in Report.Failures.
func (o *Organizer) Run(ctx context.Context, root string, opts RunOptions) (*Report, error) {
	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, o.logger)
	report := newReport(runID, root, opts.DryRun)

	abs, err := walk.CheckRoot(root)
	if err != nil {
		report.finish(err)
		logging.ErrorWithContext(logger, "root precondition failed", "precondition_failed",
			logging.String("root", root),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "pass an existing, readable directory"),
		)
		return report, err
	}
	report.Root = abs

	lock, err := acquireLock(o.cfg.LockDir(), abs)
	if err != nil {
		report.finish(err)
		logging.ErrorWithContext(logger, "run lock unavailable", "lock_held",
			logging.String("root", abs),
			logging.Error(err),
		)
		return report, err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release run lock", logging.Error(err))
		}
	}()

	journaled := o.beginJournal(ctx, logger, report)
	logger.Info("run started",
		logging.String("root", abs),
		logging.Bool("dry_run", opts.DryRun),
	)

	err = o.runPhases(ctx, logger, report, opts)
	report.finish(err)
	if err == nil {
		o.verify(logger, report)
	}
	if journaled {
		o.finishJournal(ctx, logger, report)
	}

	logger.Info("run finished",
		logging.String("status", report.Status),
		logging.Int("discovered", report.Discovered),
		logging.Int("moved", report.Moved),
		logging.Int("failed", len(report.Failures)),
		logging.Int("pruned", len(report.Pruned)),
		logging.Duration("elapsed", report.Timings.Total),
	)
	return report, err
}

func (o *Organizer) runPhases(ctx context.Context, logger *slog.Logger, report *Report, opts RunOptions) error {
	exclude := []string{o.cfg.Paths.StateDir, o.cfg.Paths.LogDir}

	// Walk.
	start := time.Now()
	walker := walk.New(walk.Options{
		Workers: o.cfg.WalkWorkers(),
		Table:   o.table,
		Exclude: exclude,
		Logger:  o.logger,
	})
	walked, err := walker.Walk(logging.WithPhase(ctx, "walk"), report.Root)
	report.Timings.Walk = time.Since(start)
	if err != nil {
		return err
	}
	report.Discovered = len(walked.Files)
	report.CategoryDirs = walked.CategoryDirs
	report.Failures = append(report.Failures, walked.Skipped...)
	logger.Info("walk complete",
		logging.Int("files", report.Discovered),
		logging.Int("dirs", walked.Dirs),
		logging.Int("skipped", len(walked.Skipped)),
		logging.Duration("elapsed", report.Timings.Walk),
	)
	if opts.Discovered != nil {
		opts.Discovered(report.Discovered)
	}

	// Relocate.
	start = time.Now()
	relocateCtx := logging.WithPhase(ctx, "relocate")
	engine := relocate.New(relocate.Options{
		Workers:           o.cfg.RelocateWorkers(),
		Table:             o.table,
		DryRun:            opts.DryRun,
		Expander:          o.expander(),
		UnsupportedPolicy: o.cfg.Archives.UnsupportedPolicy,
		Progress:          o.progress(relocateCtx, opts.Progress),
		Logger:            o.logger,
	})
	moved, err := engine.Relocate(relocateCtx, report.Root, walked.Files)
	report.Timings.Relocate = time.Since(start)
	if moved != nil {
		report.Moves = moved.Moves
		report.Moved = moved.Moved
		report.Bytes = moved.Bytes
		report.Unstarted = moved.Unstarted
		report.Categories = moved.Categories
		report.Failures = append(report.Failures, moved.Failures...)
		report.Notices = append(report.Notices, moved.Notices...)
	}
	if err != nil {
		return err
	}
	logger.Info("relocation complete",
		logging.Int("moved", moved.Moved),
		logging.Int("failed", len(moved.Failures)),
		logging.Duration("elapsed", report.Timings.Relocate),
	)

	// Prune.
	if !o.cfg.Pruning.Enabled {
		logger.Debug("pruning disabled")
		return nil
	}
	start = time.Now()
	pruneOpts := prune.Options{
		Exclude: exclude,
		DryRun:  opts.DryRun,
		Logger:  o.logger,
	}
	if o.cfg.Pruning.KeepEmptyCategories {
		pruneOpts.Protect = o.table.Categories()
	}
	if opts.DryRun {
		pruneOpts.Vacated = make(map[string]struct{}, len(report.Moves))
		for _, m := range report.Moves {
			if m.Status == relocate.StatusPlanned {
				pruneOpts.Vacated[m.Source] = struct{}{}
			}
		}
	}
	pruned, err := prune.New(pruneOpts).Prune(logging.WithPhase(ctx, "prune"), report.Root)
	report.Timings.Prune = time.Since(start)
	if pruned != nil {
		report.Pruned = pruned.Removed
		report.Failures = append(report.Failures, pruned.Failures...)
	}
	if err != nil {
		return err
	}
	logger.Info("prune complete",
		logging.Int("removed", len(report.Pruned)),
		logging.Duration("elapsed", report.Timings.Prune),
	)
	return nil
}

func (o *Organizer) expander() relocate.Expander {
	if !o.cfg.Archives.Expand {
		return nil
	}
	return archive.New(archive.Options{Logger: o.logger})
}

// progress logs relocation progress at 10% steps and forwards every tick to
// the caller's callback.
func (o *Organizer) progress(ctx context.Context, forward func(done, total int)) func(done, total int) {
	logger := logging.WithContext(ctx, o.logger)
	sampler := logging.NewProgressSampler(10)
	var mu sync.Mutex
	return func(done, total int) {
		mu.Lock()
		emit := sampler.ShouldLog(done, total)
		mu.Unlock()
		if emit {
			logger.Info("relocation progress", logging.Int("done", done), logging.Int("total", total))
		}
		if forward != nil {
			forward(done, total)
		}
	}
}

func (o *Organizer) beginJournal(ctx context.Context, logger *slog.Logger, report *Report) bool {
	if o.store == nil {
		return false
	}
	run := journal.Run{ID: report.RunID, Root: report.Root, DryRun: report.DryRun, StartedAt: report.StartedAt}
	if err := o.store.BeginRun(context.WithoutCancel(ctx), run); err != nil {
		logging.WarnWithContext(logger, "journal unavailable", "journal_error",
			logging.Error(err),
			logging.String(logging.FieldImpact, "this run is not recorded in history"),
		)
		return false
	}
	return true
}

func (o *Organizer) finishJournal(ctx context.Context, logger *slog.Logger, report *Report) {
	// Record the outcome even when the run itself was canceled.
	ctx = context.WithoutCancel(ctx)
	if err := o.store.RecordEntries(ctx, report.RunID, report.journalEntries()); err != nil {
		logging.WarnWithContext(logger, "journal entries not recorded", "journal_error", logging.Error(err))
	}
	if err := o.store.FinishRun(ctx, report.journalRun()); err != nil {
		logging.WarnWithContext(logger, "journal run not finalized", "journal_error", logging.Error(err))
	}
	if _, err := o.store.Trim(ctx, o.cfg.Journal.KeepRuns); err != nil {
		logger.Debug("journal trim failed", logging.Error(err))
	}
}
