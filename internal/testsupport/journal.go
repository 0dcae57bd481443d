package testsupport

import (
	"testing"

	"sortdir/internal/config"
	"sortdir/internal/journal"
)

// MustOpenJournal opens the journal for cfg and closes it when the test ends.
func MustOpenJournal(t testing.TB, cfg *config.Config) *journal.Store {
	t.Helper()

	store, err := journal.Open(cfg.JournalPath())
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
