package prune

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"sortdir/internal/faults"
	"sortdir/internal/logging"
)

const phase = "prune"

// Options configures a Pruner.
type Options struct {
	// Protect names folders directly under the root that survive even when
	// empty, typically the category folders.
	Protect []string
	// Exclude lists absolute directory paths that are never entered.
	Exclude []string
	// DryRun reports what would be removed. Files listed in Vacated are
	// treated as already gone.
	DryRun  bool
	Vacated map[string]struct{}
	Logger  *slog.Logger
}

// Result lists what a prune pass removed.
type Result struct {
	// Removed holds the removed (or, in a dry run, removable) directories, sorted.
	Removed  []string
	Failures []faults.Failure
}

// Pruner removes empty directories bottom-up.
type Pruner struct {
	opts    Options
	protect map[string]struct{}
	exclude map[string]struct{}
	logger  *slog.Logger
}

// New builds a Pruner.
func New(opts Options) *Pruner {
	protect := make(map[string]struct{}, len(opts.Protect))
	for _, name := range opts.Protect {
		protect[name] = struct{}{}
	}
	exclude := make(map[string]struct{}, len(opts.Exclude))
	for _, path := range opts.Exclude {
		if abs, err := filepath.Abs(path); err == nil {
			exclude[abs] = struct{}{}
		}
	}
	return &Pruner{
		opts:    opts,
		protect: protect,
		exclude: exclude,
		logger:  logging.NewComponentLogger(opts.Logger, "pruner"),
	}
}

// Prune visits every directory below root and removes each one that is empty
// once its children have been pruned. Unreadable or unremovable directories
// are recorded and left in place.
func (p *Pruner) Prune(ctx context.Context, root string) (*Result, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, faults.Wrap(faults.ErrPrecondition, phase, "resolve root", root, err)
	}
	logger := logging.WithContext(ctx, p.logger)
	result := &Result{}
	if _, err := p.visit(ctx, logger, abs, abs, result); err != nil {
		return result, err
	}
	sort.Strings(result.Removed)
	logger.Debug("prune finished", logging.Int("removed", len(result.Removed)))
	return result, nil
}

// visit prunes dir's children and reports whether dir is now empty.
func (p *Pruner) visit(ctx context.Context, logger *slog.Logger, root, dir string, result *Result) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, faults.Wrap(faults.ErrCanceled, phase, "visit", dir, err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		p.fail(logger, result, dir, "read dir", err)
		return false, nil
	}

	empty := true
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if !entry.IsDir() {
			if _, gone := p.opts.Vacated[path]; p.opts.DryRun && gone {
				continue
			}
			empty = false
			continue
		}
		if _, excluded := p.exclude[path]; excluded {
			empty = false
			continue
		}
		childEmpty, err := p.visit(ctx, logger, root, path, result)
		if err != nil {
			return false, err
		}
		if !childEmpty || p.protected(root, dir, entry.Name()) {
			empty = false
			continue
		}
		if !p.opts.DryRun {
			if err := os.Remove(path); err != nil {
				p.fail(logger, result, path, "remove", err)
				empty = false
				continue
			}
		}
		logger.Debug("empty directory removed", logging.String("dir", path), logging.Bool("dry_run", p.opts.DryRun))
		result.Removed = append(result.Removed, path)
	}
	return empty, nil
}

func (p *Pruner) protected(root, parent, name string) bool {
	if parent != root {
		return false
	}
	_, ok := p.protect[name]
	return ok
}

func (p *Pruner) fail(logger *slog.Logger, result *Result, dir, op string, err error) {
	if errors.Is(err, os.ErrNotExist) {
		return
	}
	wrapped := faults.Wrap(faults.ErrTraversalSkip, phase, op, dir, err)
	result.Failures = append(result.Failures, faults.NewFailure(phase, dir, wrapped))
	logging.WarnWithContext(logger, "directory not pruned", "prune_skip",
		logging.String("dir", dir),
		logging.Error(err),
		logging.String(logging.FieldImpact, "directory left in place"),
	)
}
