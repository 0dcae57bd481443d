// Package fileutil holds byte-level copy helpers shared by relocation and
// archive expansion.
package fileutil

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// TempPrefix marks partially written files so they are recognizable after a crash.
const TempPrefix = ".sortdir-tmp-"

// CopyToTemp streams src into a new temporary file inside dir with SHA256 +
// size integrity verification, then syncs it and applies src's permissions.
// The caller owns the returned path and must rename or remove it.
func CopyToTemp(src, dir string) (string, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return "", fmt.Errorf("stat source: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	out, err := os.CreateTemp(dir, TempPrefix+filepath.Base(src)+"-*")
	if err != nil {
		return "", err
	}
	tmp := out.Name()
	fail := func(err error) (string, error) {
		_ = out.Close()
		_ = os.Remove(tmp)
		return "", err
	}

	srcHasher := sha256.New()
	written, err := io.Copy(out, io.TeeReader(in, srcHasher))
	if err != nil {
		return fail(err)
	}
	if written != srcInfo.Size() {
		return fail(fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcInfo.Size(), written))
	}
	if err := out.Chmod(srcInfo.Mode().Perm()); err != nil {
		return fail(err)
	}
	if err := out.Sync(); err != nil {
		return fail(err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	// The hash is taken from what landed on disk, not from the copy stream.
	if err := verifyFile(tmp, srcHasher.Sum(nil)); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	_ = os.Chtimes(tmp, srcInfo.ModTime(), srcInfo.ModTime())
	return tmp, nil
}

// verifyFile re-reads path and compares its SHA256 with want.
func verifyFile(path string, want []byte) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("reopen copy: %w", err)
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return fmt.Errorf("read back copy: %w", err)
	}
	if !bytes.Equal(h.Sum(nil), want) {
		return fmt.Errorf("copy hash mismatch: %s differs from source", filepath.Base(path))
	}
	return nil
}

// WriteNew streams r into path, failing with an os.ErrExist error when path
// already exists. A partially written file is removed on error.
func WriteNew(path string, r io.Reader, mode os.FileMode) (int64, error) {
	if mode == 0 {
		mode = 0o644
	}
	out, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, mode.Perm())
	if err != nil {
		return 0, err
	}
	written, err := io.Copy(out, r)
	if err != nil {
		_ = out.Close()
		_ = os.Remove(path)
		return written, err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(path)
		return written, err
	}
	return written, nil
}
