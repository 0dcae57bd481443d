package walk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"

	"sortdir/internal/classify"
	"sortdir/internal/faults"
	"sortdir/internal/logging"
)

const phase = "walk"

// Options configures a Walker.
type Options struct {
	// Workers bounds the number of directories read concurrently (0 = NumCPU).
	Workers int
	// Table supplies the category labels whose directories are not entered.
	Table *classify.Table
	// Exclude lists absolute directory paths that are never entered.
	Exclude []string
	Logger  *slog.Logger
}

// Result is the outcome of one walk.
type Result struct {
	Root string
	// Files holds every discovered regular file, sorted.
	Files []string
	// Skipped holds one traversal skip per unreadable directory.
	Skipped []faults.Failure
	// Dirs counts directories read, EmptyDirs those that held nothing.
	Dirs      int
	EmptyDirs int
	// CategoryDirs counts already-organized folders left untouched.
	CategoryDirs int
}

// Walker discovers files under a root directory.
type Walker struct {
	workers int
	table   *classify.Table
	exclude map[string]struct{}
	logger  *slog.Logger
}

// New builds a Walker from opts.
func New(opts Options) *Walker {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	table := opts.Table
	if table == nil {
		table = classify.Default()
	}
	exclude := make(map[string]struct{}, len(opts.Exclude))
	for _, path := range opts.Exclude {
		if abs, err := filepath.Abs(path); err == nil {
			exclude[abs] = struct{}{}
		}
	}
	return &Walker{
		workers: workers,
		table:   table,
		exclude: exclude,
		logger:  logging.NewComponentLogger(opts.Logger, "walker"),
	}
}

type walkState struct {
	root      string
	queue     *dirQueue
	files     Collection
	mu        sync.Mutex
	skipped   []faults.Failure
	dirs      atomic.Int64
	emptyDirs atomic.Int64
	category  atomic.Int64
}

func (s *walkState) skip(f faults.Failure) {
	s.mu.Lock()
	s.skipped = append(s.skipped, f)
	s.mu.Unlock()
}

// Walk traverses root and returns every regular file found. It fails before
// any traversal when root is missing, not a directory, or unreadable; a
// canceled context stops outstanding work and returns the context error.
func (w *Walker) Walk(ctx context.Context, root string) (*Result, error) {
	abs, err := CheckRoot(root)
	if err != nil {
		return nil, err
	}
	logger := logging.WithContext(ctx, w.logger)
	logger.Debug("walk started", logging.String("root", abs), logging.Int("workers", w.workers))

	state := &walkState{root: abs, queue: newDirQueue()}
	state.queue.push(abs)

	stop := context.AfterFunc(ctx, state.queue.abort)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(w.workers)
	for range w.workers {
		go func() {
			defer wg.Done()
			for {
				dir, ok := state.queue.pop()
				if !ok {
					return
				}
				w.readDir(ctx, logger, state, dir)
				state.queue.done()
			}
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, faults.Wrap(faults.ErrCanceled, phase, "traverse", "walk interrupted", err)
	}

	result := &Result{
		Root:         abs,
		Files:        state.files.Sorted(),
		Skipped:      state.skipped,
		Dirs:         int(state.dirs.Load()),
		EmptyDirs:    int(state.emptyDirs.Load()),
		CategoryDirs: int(state.category.Load()),
	}
	logger.Debug("walk finished",
		logging.Int("files", len(result.Files)),
		logging.Int("dirs", result.Dirs),
		logging.Int("skipped", len(result.Skipped)),
	)
	return result, nil
}

func (w *Walker) readDir(ctx context.Context, logger *slog.Logger, state *walkState, dir string) {
	if ctx.Err() != nil {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		wrapped := faults.Wrap(faults.ErrTraversalSkip, phase, "read dir", dir, err)
		state.skip(faults.NewFailure(phase, dir, wrapped))
		logging.WarnWithContext(logger, "directory unreadable; branch skipped", "traversal_skip",
			logging.String("dir", dir),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check directory permissions"),
			logging.String(logging.FieldImpact, "files below this directory are not organized"),
		)
		// os.ReadDir may return the entries read before the failure.
	}
	state.dirs.Add(1)
	if err == nil && len(entries) == 0 && dir != state.root {
		state.emptyDirs.Add(1)
		return
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		switch {
		case entry.Type().IsRegular():
			state.files.Add(path)
		case entry.IsDir():
			if w.table.IsCategory(entry.Name()) {
				state.category.Add(1)
				logger.Debug("category folder left untouched", logging.String("dir", path))
				continue
			}
			if _, excluded := w.exclude[path]; excluded {
				logger.Debug("excluded folder left untouched", logging.String("dir", path))
				continue
			}
			state.queue.push(path)
		default:
			logger.Debug("non-regular entry ignored",
				logging.String("path", path),
				logging.String("mode", entry.Type().String()),
			)
		}
	}
}

// CheckRoot validates the root precondition and returns its absolute path.
func CheckRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", faults.Wrap(faults.ErrPrecondition, phase, "resolve root", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", faults.Wrap(faults.ErrPrecondition, phase, "stat root", fmt.Sprintf("%s does not exist", abs), err)
		}
		return "", faults.Wrap(faults.ErrPrecondition, phase, "stat root", abs, err)
	}
	if !info.IsDir() {
		return "", faults.Wrap(faults.ErrPrecondition, phase, "stat root", fmt.Sprintf("%s is not a directory", abs), nil)
	}
	f, err := os.Open(abs)
	if err != nil {
		return "", faults.Wrap(faults.ErrPrecondition, phase, "open root", abs, err)
	}
	_ = f.Close()
	return abs, nil
}
