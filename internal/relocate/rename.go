package relocate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"sortdir/internal/fileutil"
)

// checkedRename is the portable no-overwrite rename. The engine's destination
// reservations keep concurrent moves within one run from racing here.
func checkedRename(src, dst string) error {
	if _, err := os.Lstat(dst); err == nil {
		return &os.LinkError{Op: "rename", Old: src, New: dst, Err: os.ErrExist}
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return os.Rename(src, dst)
}

// move relocates src to dst without overwriting. A rename that crosses
// filesystems becomes copy, verify, rename, remove.
func move(src, dst string) error {
	err := renameNoReplace(src, dst)
	if err == nil || !isCrossDevice(err) {
		return err
	}

	tmp, err := fileutil.CopyToTemp(src, filepath.Dir(dst))
	if err != nil {
		return fmt.Errorf("cross-device copy: %w", err)
	}
	if err := renameNoReplace(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("copied to %s but source not removed: %w", dst, err)
	}
	return nil
}
