package journal

import (
	"database/sql"
	"fmt"
	"time"
)

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run         Run
		dryRun      int
		startedRaw  string
		finishedRaw sql.NullString
		errMsg      sql.NullString
	)
	if err := scanner.Scan(
		&run.ID,
		&run.Root,
		&run.Status,
		&dryRun,
		&startedRaw,
		&finishedRaw,
		&run.Discovered,
		&run.Moved,
		&run.Failed,
		&run.Skipped,
		&run.Pruned,
		&run.Bytes,
		&errMsg,
	); err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}
	run.DryRun = dryRun != 0
	run.StartedAt = parseTime(startedRaw)
	if finishedRaw.Valid {
		run.FinishedAt = parseTime(finishedRaw.String)
	}
	run.Error = errMsg.String
	return &run, nil
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
