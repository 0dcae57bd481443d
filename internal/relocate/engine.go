package relocate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"sortdir/internal/archive"
	"sortdir/internal/classify"
	"sortdir/internal/faults"
	"sortdir/internal/fileutil"
	"sortdir/internal/logging"
)

const phase = "relocate"

// Unsupported archive policies.
const (
	UnsupportedKeep = "keep"
	UnsupportedFail = "fail"
)

// Move statuses.
const (
	StatusMoved    = "moved"
	StatusExpanded = "expanded"
	StatusPlanned  = "planned"
	StatusFailed   = "failed"
)

// Expander materializes an archive's entries under destDir.
type Expander interface {
	Expand(ctx context.Context, archivePath, destDir string) (int, error)
}

// Options configures an Engine.
type Options struct {
	// Workers bounds concurrent moves (0 = 4 x NumCPU, capped at 64).
	Workers int
	Table   *classify.Table
	// DryRun plans every move and reports collisions without touching the tree.
	DryRun bool
	// Expander, when set, expands files classified as archives after the move.
	Expander Expander
	// UnsupportedPolicy decides whether an unsupported archive is a failure.
	UnsupportedPolicy string
	// Progress is called after each file settles. It may run concurrently.
	Progress func(done, total int)
	Logger   *slog.Logger
}

// Move is the outcome for one discovered file.
type Move struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Category    string `json:"category"`
	Size        int64  `json:"size"`
	Status      string `json:"status"`
	// ExpandedTo is the folder holding the archive's entries, when expanded.
	ExpandedTo string `json:"expanded_to,omitempty"`
	Entries    int    `json:"entries,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Result aggregates one relocation pass.
type Result struct {
	// Moves holds one record per settled file, sorted by source.
	Moves    []Move
	Failures []faults.Failure
	// Notices are non-fatal problems that are not failures, such as an
	// archive kept unexpanded under the keep policy.
	Notices []faults.Failure
	Moved   int
	Bytes   int64
	// Unstarted counts files never attempted because the run was canceled.
	Unstarted  int
	Categories map[string]int
}

// Engine relocates files into root/<category>/.
type Engine struct {
	opts    Options
	workers int
	table   *classify.Table
	dirs    *fileutil.DirCache
	logger  *slog.Logger
}

// New builds an Engine from opts.
func New(opts Options) *Engine {
	workers := opts.Workers
	if workers <= 0 {
		workers = min(4*runtime.NumCPU(), 64)
	}
	table := opts.Table
	if table == nil {
		table = classify.Default()
	}
	if opts.UnsupportedPolicy == "" {
		opts.UnsupportedPolicy = UnsupportedKeep
	}
	return &Engine{
		opts:    opts,
		workers: workers,
		table:   table,
		dirs:    fileutil.NewDirCache(0),
		logger:  logging.NewComponentLogger(opts.Logger, "relocator"),
	}
}

type pass struct {
	root     string
	total    int
	done     atomic.Int64
	mu       sync.Mutex
	reserved map[string]string
	result   Result
}

// reserve claims dst for src for the rest of the pass. It reports the source
// that already holds the claim, if any.
func (p *pass) reserve(dst, src string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if holder, ok := p.reserved[dst]; ok {
		return holder, false
	}
	p.reserved[dst] = src
	return "", true
}

func (p *pass) release(dst string) {
	p.mu.Lock()
	delete(p.reserved, dst)
	p.mu.Unlock()
}

func (p *pass) record(m Move, failure, notice *faults.Failure) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.result.Moves = append(p.result.Moves, m)
	switch m.Status {
	case StatusMoved, StatusExpanded, StatusPlanned:
		p.result.Moved++
		p.result.Bytes += m.Size
		p.result.Categories[m.Category]++
	}
	if failure != nil {
		p.result.Failures = append(p.result.Failures, *failure)
	}
	if notice != nil {
		p.result.Notices = append(p.result.Notices, *notice)
	}
}

// Relocate moves every file in files into its category folder below root.
// Per-file problems are collected in the result. The returned error is
// non-nil only when ctx was canceled; the partial result is still returned.
func (e *Engine) Relocate(ctx context.Context, root string, files []string) (*Result, error) {
	logger := logging.WithContext(ctx, e.logger)
	p := &pass{
		root:     root,
		total:    len(files),
		reserved: make(map[string]string, len(files)),
		result:   Result{Categories: make(map[string]int)},
	}
	logger.Debug("relocation started",
		logging.Int("files", len(files)),
		logging.Int("workers", e.workers),
		logging.Bool("dry_run", e.opts.DryRun),
	)

	var g errgroup.Group
	g.SetLimit(e.workers)
	submitted := 0
	for _, src := range files {
		if ctx.Err() != nil {
			break
		}
		submitted++
		g.Go(func() error {
			// A move is never interrupted once started.
			if ctx.Err() != nil {
				p.mu.Lock()
				p.result.Unstarted++
				p.mu.Unlock()
				return nil
			}
			e.relocateOne(ctx, logger, p, src)
			if e.opts.Progress != nil {
				e.opts.Progress(int(p.done.Add(1)), p.total)
			}
			return nil
		})
	}
	_ = g.Wait()

	result := &p.result
	result.Unstarted += len(files) - submitted
	sort.Slice(result.Moves, func(i, j int) bool { return result.Moves[i].Source < result.Moves[j].Source })
	sortFailures(result.Failures)
	sortFailures(result.Notices)

	if err := ctx.Err(); err != nil {
		return result, faults.Wrap(faults.ErrCanceled, phase, "relocate",
			fmt.Sprintf("%d files not attempted", result.Unstarted), err)
	}
	return result, nil
}

func (e *Engine) relocateOne(ctx context.Context, logger *slog.Logger, p *pass, src string) {
	name := filepath.Base(src)
	category := e.table.Classify(name)
	destDir := filepath.Join(p.root, category)
	dest := filepath.Join(destDir, name)
	m := Move{Source: src, Destination: dest, Category: category}

	fail := func(marker error, op string, err error) {
		wrapped := faults.Wrap(marker, phase, op, src, err)
		failure := faults.NewFailure(phase, src, wrapped)
		m.Status = StatusFailed
		m.Error = wrapped.Error()
		logging.WarnWithContext(logger, "file not relocated", "relocation_failed",
			logging.String("source", src),
			logging.String("destination", dest),
			logging.String("kind", failure.Kind),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, hintFor(marker)),
		)
		p.record(m, &failure, nil)
	}

	info, err := os.Lstat(src)
	if err != nil {
		fail(faults.ErrRelocation, "stat source", err)
		return
	}
	if !info.Mode().IsRegular() {
		fail(faults.ErrRelocation, "stat source", fmt.Errorf("no longer a regular file (%s)", info.Mode().Type()))
		return
	}
	m.Size = info.Size()

	if holder, ok := p.reserve(dest, src); !ok {
		fail(faults.ErrNameCollision, "reserve destination", fmt.Errorf("%s also targets %s", holder, dest))
		return
	}

	if e.opts.DryRun {
		if _, err := os.Lstat(dest); err == nil {
			fail(faults.ErrNameCollision, "plan", fmt.Errorf("%s already exists", dest))
			return
		}
		m.Status = StatusPlanned
		p.record(m, nil, nil)
		return
	}

	if err := e.dirs.Ensure(destDir); err != nil {
		p.release(dest)
		fail(faults.ErrRelocation, "ensure destination", err)
		return
	}
	if err := move(src, dest); err != nil {
		if errors.Is(err, os.ErrExist) {
			fail(faults.ErrNameCollision, "move", fmt.Errorf("%s already exists", dest))
			return
		}
		p.release(dest)
		fail(faults.ErrRelocation, "move", err)
		return
	}
	m.Status = StatusMoved
	logger.Debug("file relocated",
		logging.String("source", src),
		logging.String("destination", dest),
		logging.String("category", category),
	)

	if e.opts.Expander == nil || category != classify.Archives {
		p.record(m, nil, nil)
		return
	}
	e.expand(ctx, logger, p, m)
}

// expand runs after a successful move; the archive stays in place whatever
// the outcome.
func (e *Engine) expand(ctx context.Context, logger *slog.Logger, p *pass, m Move) {
	target := filepath.Join(filepath.Dir(m.Destination), archive.BaseName(m.Destination))
	entries, err := e.opts.Expander.Expand(ctx, m.Destination, target)
	if err == nil {
		m.Status = StatusExpanded
		m.ExpandedTo = target
		m.Entries = entries
		logger.Debug("archive expanded",
			logging.String("archive", m.Destination),
			logging.String("target", target),
			logging.Int("entries", entries),
		)
		p.record(m, nil, nil)
		return
	}

	marker := faults.ErrRelocation
	switch {
	case errors.Is(err, faults.ErrUnsupportedArchive):
		marker = faults.ErrUnsupportedArchive
	case errors.Is(err, faults.ErrNameCollision):
		marker = faults.ErrNameCollision
	}
	wrapped := faults.Wrap(marker, phase, "expand", m.Destination, err)
	record := faults.NewFailure(phase, m.Destination, wrapped)
	m.Error = wrapped.Error()

	if marker == faults.ErrUnsupportedArchive && e.opts.UnsupportedPolicy != UnsupportedFail {
		logger.Info("archive kept unexpanded",
			logging.String("archive", m.Destination),
			logging.String("reason", err.Error()),
		)
		p.record(m, nil, &record)
		return
	}
	logging.WarnWithContext(logger, "archive not expanded", "expansion_failed",
		logging.String("archive", m.Destination),
		logging.String("kind", record.Kind),
		logging.Error(err),
		logging.String(logging.FieldImpact, "archive moved but its contents were not extracted"),
	)
	p.record(m, &record, nil)
}

func hintFor(marker error) string {
	if marker == faults.ErrNameCollision {
		return "rename or remove one of the files and run again"
	}
	return "check permissions and free space, then run again"
}

func sortFailures(items []faults.Failure) {
	sort.Slice(items, func(i, j int) bool { return items[i].Path < items[j].Path })
}
