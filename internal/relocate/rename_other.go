//go:build !linux

package relocate

import (
	"errors"
	"syscall"
)

func renameNoReplace(src, dst string) error {
	return checkedRename(src, dst)
}

func isCrossDevice(err error) bool {
	return errors.Is(err, syscall.EXDEV)
}
