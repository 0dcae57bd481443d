package testsupport

import (
	"path/filepath"
	"testing"

	"sortdir/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Worker pools default to small fixed sizes so tests do not depend on the
// host's CPU count.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "state", "logs")
	cfgVal.Workers.Walk = 4
	cfgVal.Workers.Relocate = 4

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure test directories: %v", err)
	}
	return builder.cfg
}

// WithWorkers overrides both pool sizes.
func WithWorkers(walk, relocate int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workers.Walk = walk
		b.cfg.Workers.Relocate = relocate
	}
}

// WithArchiveExpansion enables archive expansion with the given policy.
func WithArchiveExpansion(policy string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Archives.Expand = true
		if policy != "" {
			b.cfg.Archives.UnsupportedPolicy = policy
		}
	}
}

// WithKeepEmptyCategories protects empty category folders from pruning.
func WithKeepEmptyCategories() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pruning.KeepEmptyCategories = true
	}
}

// WithoutJournal disables the run journal.
func WithoutJournal() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Journal.Enabled = false
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
