package organizer

import (
	"encoding/json"
	"time"

	"sortdir/internal/faults"
	"sortdir/internal/journal"
	"sortdir/internal/relocate"
)

// Timings holds per-phase wall time.
type Timings struct {
	Walk     time.Duration
	Relocate time.Duration
	Prune    time.Duration
	Total    time.Duration
}

type timingsJSON struct {
	Walk     string `json:"walk"`
	Relocate string `json:"relocate"`
	Prune    string `json:"prune"`
	Total    string `json:"total"`
}

func (t Timings) MarshalJSON() ([]byte, error) {
	return json.Marshal(timingsJSON{t.Walk.String(), t.Relocate.String(), t.Prune.String(), t.Total.String()})
}

func (t *Timings) UnmarshalJSON(data []byte) error {
	var raw timingsJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	fields := []struct {
		text string
		dst  *time.Duration
	}{{raw.Walk, &t.Walk}, {raw.Relocate, &t.Relocate}, {raw.Prune, &t.Prune}, {raw.Total, &t.Total}}
	for _, f := range fields {
		if f.text == "" {
			continue
		}
		d, err := time.ParseDuration(f.text)
		if err != nil {
			return err
		}
		*f.dst = d
	}
	return nil
}

// Report is the aggregated outcome of one run.
type Report struct {
	RunID     string    `json:"run_id"`
	Root      string    `json:"root"`
	DryRun    bool      `json:"dry_run"`
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`

	Discovered   int            `json:"discovered"`
	CategoryDirs int            `json:"category_dirs"`
	Moved        int            `json:"moved"`
	Unstarted    int            `json:"unstarted,omitempty"`
	Bytes        int64          `json:"bytes"`
	Categories   map[string]int `json:"categories"`

	Moves    []relocate.Move  `json:"moves"`
	Pruned   []string         `json:"pruned"`
	Failures []faults.Failure `json:"failures"`
	Notices  []faults.Failure `json:"notices,omitempty"`
	Timings  Timings          `json:"timings"`
	// Err holds the fatal error, if any, as text.
	Err string `json:"error,omitempty"`
}

func newReport(runID, root string, dryRun bool) *Report {
	return &Report{
		RunID:      runID,
		Root:       root,
		DryRun:     dryRun,
		Status:     journal.StatusRunning,
		StartedAt:  time.Now(),
		Categories: make(map[string]int),
	}
}

// Failed reports whether any per-item failure was recorded.
func (r *Report) Failed() bool {
	return len(r.Failures) > 0
}

// FailuresByKind counts failures per taxonomy label.
func (r *Report) FailuresByKind() map[string]int {
	out := make(map[string]int)
	for _, f := range r.Failures {
		out[f.Kind]++
	}
	return out
}

// finish stamps the final status from err and the recorded failures.
func (r *Report) finish(err error) {
	r.Timings.Total = time.Since(r.StartedAt)
	if err == nil {
		r.finishStatus()
		return
	}
	switch {
	case faults.Kind(err) == "Canceled":
		r.Status = journal.StatusCanceled
		r.Err = err.Error()
	default:
		r.Status = journal.StatusFailed
		r.Err = err.Error()
	}
}

func (r *Report) finishStatus() {
	if r.Failed() {
		r.Status = journal.StatusPartial
		return
	}
	r.Status = journal.StatusCompleted
}

func (r *Report) journalRun() journal.Run {
	return journal.Run{
		ID:         r.RunID,
		Root:       r.Root,
		Status:     r.Status,
		DryRun:     r.DryRun,
		StartedAt:  r.StartedAt,
		FinishedAt: r.StartedAt.Add(r.Timings.Total),
		Discovered: r.Discovered,
		Moved:      r.Moved,
		Failed:     len(r.Failures),
		Skipped:    countPhase(r.Failures, "walk"),
		Pruned:     len(r.Pruned),
		Bytes:      r.Bytes,
		Error:      r.Err,
	}
}

func (r *Report) journalEntries() []journal.Entry {
	entries := make([]journal.Entry, 0, len(r.Moves))
	for _, m := range r.Moves {
		entries = append(entries, journal.Entry{
			Source:      m.Source,
			Destination: m.Destination,
			Category:    m.Category,
			Status:      m.Status,
			Size:        m.Size,
			Error:       m.Error,
		})
	}
	return entries
}

func countPhase(items []faults.Failure, phase string) int {
	n := 0
	for _, f := range items {
		if f.Phase == phase {
			n++
		}
	}
	return n
}
