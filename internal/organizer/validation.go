package organizer

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"sortdir/internal/faults"
	"sortdir/internal/logging"
	"sortdir/internal/relocate"
)

// verify confirms every reported move left the file at its destination and
// nothing at its source. A mismatch means something outside this run touched
// the tree mid-flight; it is recorded as a failure rather than trusted.
func (o *Organizer) verify(logger *slog.Logger, report *Report) {
	if report.DryRun {
		return
	}
	var problems []faults.Failure
	for _, m := range report.Moves {
		if m.Status != relocate.StatusMoved && m.Status != relocate.StatusExpanded {
			continue
		}
		if err := checkMove(m); err != nil {
			wrapped := faults.Wrap(faults.ErrRelocation, "verify", "check move", m.Source, err)
			problems = append(problems, faults.NewFailure("verify", m.Source, wrapped))
			logger.Error("move verification failed",
				logging.String("source", m.Source),
				logging.String("destination", m.Destination),
				logging.Error(err),
				logging.String(logging.FieldEventType, "move_verification_failed"),
				logging.String(logging.FieldErrorHint, "another process may have modified the tree during the run"),
			)
		}
	}
	if len(problems) == 0 {
		logger.Debug("move verification passed", logging.Int("moves", report.Moved))
		return
	}
	report.Failures = append(report.Failures, problems...)
	report.finishStatus()
}

func checkMove(m relocate.Move) error {
	info, err := os.Lstat(m.Destination)
	if err != nil {
		return fmt.Errorf("destination missing: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("destination is not a regular file")
	}
	if info.Size() != m.Size {
		return fmt.Errorf("destination size %d, expected %d", info.Size(), m.Size)
	}
	if _, err := os.Lstat(m.Source); !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("source still present")
	}
	return nil
}
