package archive

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"

	"sortdir/internal/faults"
	"sortdir/internal/fileutil"
	"sortdir/internal/logging"
)

const phase = "expand"

// Options configures an Expander.
type Options struct {
	// MaxBytes caps the total uncompressed size of one archive (0 = unlimited).
	MaxBytes int64
	Logger   *slog.Logger
}

// Expander writes archive entries to disk. One Expander serves one
// relocation pass; it hands out each target folder to a single archive.
type Expander struct {
	maxBytes int64
	logger   *slog.Logger

	mu      sync.Mutex
	claimed map[string]struct{}
}

// New builds an Expander.
func New(opts Options) *Expander {
	return &Expander{
		maxBytes: opts.MaxBytes,
		logger:   logging.NewComponentLogger(opts.Logger, "archive"),
		claimed:  make(map[string]struct{}),
	}
}

// ErrTooLarge reports an archive whose contents exceed MaxBytes.
var ErrTooLarge = errors.New("archive exceeds size limit")

// Expand materializes the regular files and directories of archivePath under
// destDir and returns the number of files written. Unsupported formats fail
// with faults.ErrUnsupportedArchive before anything is created. An entry that
// would overwrite an existing file fails with faults.ErrNameCollision. When
// expansion fails and destDir did not exist beforehand, it is removed. A
// destDir already claimed by another archive in this pass fails with
// faults.ErrNameCollision.
func (x *Expander) Expand(ctx context.Context, archivePath, destDir string) (int, error) {
	format, ok := Detect(archivePath)
	if !ok {
		return 0, faults.Wrap(faults.ErrUnsupportedArchive, phase, "detect format", filepath.Base(archivePath), nil)
	}

	if !x.claim(destDir) {
		return 0, faults.Wrap(faults.ErrNameCollision, phase, "claim target", destDir, os.ErrExist)
	}

	// A fresh cache per archive: folders cached here may be removed below.
	dirs := fileutil.NewDirCache(0)
	_, statErr := os.Lstat(destDir)
	created := errors.Is(statErr, os.ErrNotExist)
	if err := dirs.Ensure(destDir); err != nil {
		x.release(destDir)
		return 0, faults.Wrap(faults.ErrRelocation, phase, "create target", destDir, err)
	}

	w := &writer{ctx: ctx, root: destDir, dirs: dirs, budget: x.maxBytes, logger: logging.WithContext(ctx, x.logger)}
	var err error
	switch format {
	case FormatZip:
		err = w.zip(archivePath)
	case FormatTar:
		err = w.tarFile(archivePath, false)
	case FormatTarGz:
		err = w.tarFile(archivePath, true)
	case FormatGzip:
		err = w.gzip(archivePath)
	}
	if err != nil {
		if created {
			_ = os.RemoveAll(destDir)
		}
		x.release(destDir)
		marker := faults.ErrRelocation
		if errors.Is(err, os.ErrExist) {
			marker = faults.ErrNameCollision
		}
		return w.files, faults.Wrap(marker, phase, string(format), filepath.Base(archivePath), err)
	}
	return w.files, nil
}

func (x *Expander) claim(dir string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	if _, taken := x.claimed[dir]; taken {
		return false
	}
	x.claimed[dir] = struct{}{}
	return true
}

// release returns a target whose expansion failed so a later archive with
// the same base name can use it.
func (x *Expander) release(dir string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.claimed, dir)
}

type writer struct {
	ctx     context.Context
	root    string
	dirs    *fileutil.DirCache
	budget  int64
	written int64
	files   int
	logger  *slog.Logger
}

// target resolves an entry name inside the root, rejecting absolute paths and
// any name that climbs out of it.
func (w *writer) target(name string) (string, error) {
	clean := strings.TrimPrefix(filepath.ToSlash(name), "./")
	clean = strings.TrimSuffix(clean, "/")
	local := filepath.FromSlash(clean)
	if clean == "" || !filepath.IsLocal(local) {
		return "", fmt.Errorf("entry %q escapes target folder", name)
	}
	return filepath.Join(w.root, local), nil
}

func (w *writer) dir(name string) error {
	path, err := w.target(name)
	if err != nil {
		return err
	}
	return w.dirs.Ensure(path)
}

func (w *writer) file(name string, r io.Reader, mode os.FileMode) error {
	if err := w.ctx.Err(); err != nil {
		return err
	}
	path, err := w.target(name)
	if err != nil {
		return err
	}
	if err := w.dirs.Ensure(filepath.Dir(path)); err != nil {
		return err
	}
	if w.budget > 0 {
		r = io.LimitReader(r, w.budget-w.written+1)
	}
	n, err := fileutil.WriteNew(path, r, mode)
	w.written += n
	if err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if w.budget > 0 && w.written > w.budget {
		_ = os.Remove(path)
		return fmt.Errorf("%w (%d bytes)", ErrTooLarge, w.budget)
	}
	w.files++
	return nil
}

func (w *writer) skip(name, kind string) {
	w.logger.Debug("archive entry skipped",
		logging.String("entry", name),
		logging.String("type", kind),
	)
}

func (w *writer) zip(path string) error {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return err
	}
	defer zr.Close()

	for _, f := range zr.File {
		mode := f.Mode()
		switch {
		case mode.IsDir():
			if err := w.dir(f.Name); err != nil {
				return err
			}
		case mode.IsRegular():
			rc, err := f.Open()
			if err != nil {
				return fmt.Errorf("open %s: %w", f.Name, err)
			}
			err = w.file(f.Name, rc, mode)
			_ = rc.Close()
			if err != nil {
				return err
			}
		default:
			w.skip(f.Name, mode.Type().String())
		}
	}
	return nil
}

func (w *writer) tarFile(path string, compressed bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var r io.Reader = f
	if compressed {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return err
		}
		defer zr.Close()
		r = zr
	}
	return w.tar(tar.NewReader(r))
}

func (w *writer) tar(tr *tar.Reader) error {
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := w.dir(hdr.Name); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := w.file(hdr.Name, tr, hdr.FileInfo().Mode()); err != nil {
				return err
			}
		default:
			w.skip(hdr.Name, string(hdr.Typeflag))
		}
	}
}

func (w *writer) gzip(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return err
	}
	defer zr.Close()

	name := filepath.Base(zr.Name)
	if zr.Name == "" || !filepath.IsLocal(name) {
		name = BaseName(path)
	}
	return w.file(name, zr, 0o644)
}
