package faults

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrPrecondition       = errors.New("precondition failed")
	ErrTraversalSkip      = errors.New("traversal skipped")
	ErrNameCollision      = errors.New("name collision")
	ErrRelocation         = errors.New("relocation failed")
	ErrUnsupportedArchive = errors.New("unsupported archive format")
	ErrCanceled           = errors.New("canceled")
)

// Wrap builds an error message that includes phase context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, phase, operation, message string, err error) error {
	detail := buildDetail(phase, operation, message)
	if marker == nil {
		marker = ErrRelocation
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Fatal reports whether err must abort the whole run.
func Fatal(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrPrecondition) ||
		errors.Is(err, ErrCanceled) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// Kind returns the taxonomy label for err.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPrecondition):
		return "PreconditionError"
	case errors.Is(err, ErrTraversalSkip):
		return "TraversalSkip"
	case errors.Is(err, ErrNameCollision):
		return "NameCollision"
	case errors.Is(err, ErrUnsupportedArchive):
		return "UnsupportedArchiveFormat"
	case errors.Is(err, ErrCanceled), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "Canceled"
	default:
		return "RelocationError"
	}
}

func buildDetail(phase, operation, message string) string {
	parts := make([]string, 0, 3)
	if phase = strings.TrimSpace(phase); phase != "" {
		parts = append(parts, phase)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "sortdir failure"
	}
	return strings.Join(parts, ": ")
}
