package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"sortdir/internal/classify"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration for sortdir's own state.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// Workers sizes the traversal and relocation pools. Zero selects a value
// derived from the CPU count.
type Workers struct {
	Walk     int `toml:"walk"`
	Relocate int `toml:"relocate"`
}

// Pruning controls removal of directories emptied by relocation.
type Pruning struct {
	Enabled             bool `toml:"enabled"`
	KeepEmptyCategories bool `toml:"keep_empty_categories"`
}

// Archives controls expansion of files classified as archives.
type Archives struct {
	Expand            bool   `toml:"expand"`
	UnsupportedPolicy string `toml:"unsupported_policy"`
}

// Journal controls the SQLite run history.
type Journal struct {
	Enabled      bool `toml:"enabled"`
	HistoryLimit int  `toml:"history_limit"`
	KeepRuns     int  `toml:"keep_runs"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for sortdir.
//
// Configuration sections:
//   - Paths: state (locks, journal) and log directories
//   - Workers: walk and relocate pool sizes
//   - Pruning: empty-directory cleanup policy
//   - Archives: archive expansion policy
//   - Journal: run history persistence
//   - Logging: log format, level, and retention
//   - Categories: optional replacement for the built-in extension table
type Config struct {
	Paths      Paths               `toml:"paths"`
	Workers    Workers             `toml:"workers"`
	Pruning    Pruning             `toml:"pruning"`
	Archives   Archives            `toml:"archives"`
	Journal    Journal             `toml:"journal"`
	Logging    Logging             `toml:"logging"`
	Categories map[string][]string `toml:"categories"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load reads the configuration at path, or the first file found among
// $SORTDIR_CONFIG, ~/.config/sortdir/config.toml and ./sortdir.toml when path
// is empty. Defaults apply when no file exists. The returned config is
// normalized and validated; the string is the resolved location and the bool
// reports whether a file was read.
func Load(path string) (*Config, string, bool, error) {
	resolved, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	cfg := Default()
	if exists {
		if err := decodeFile(resolved, &cfg); err != nil {
			return nil, "", false, err
		}
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, exists, nil
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	decoder := toml.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("parse config %s: unknown keys:\n%s", path, strict.String())
		}
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// resolveConfigPath returns the file to load. An explicit path wins even when
// it does not exist yet.
func resolveConfigPath(path string) (string, bool, error) {
	var candidates []string
	explicit := strings.TrimSpace(path)
	if explicit == "" {
		explicit = strings.TrimSpace(os.Getenv("SORTDIR_CONFIG"))
	}
	if explicit != "" {
		candidates = []string{explicit}
	} else {
		candidates = []string{defaultConfigPath, "sortdir.toml"}
	}

	for _, candidate := range candidates {
		expanded, err := expandPath(candidate)
		if err != nil {
			return "", false, err
		}
		info, err := os.Stat(expanded)
		switch {
		case err == nil && !info.IsDir():
			return expanded, true, nil
		case err != nil && !errors.Is(err, fs.ErrNotExist):
			return "", false, fmt.Errorf("stat config: %w", err)
		}
	}

	fallback, err := expandPath(candidates[0])
	if err != nil {
		return "", false, err
	}
	return fallback, false, nil
}

// EnsureDirectories creates the state and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir, c.LockDir()} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LockDir is where per-root run locks are created.
func (c *Config) LockDir() string {
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return ""
	}
	return filepath.Join(c.Paths.StateDir, "locks")
}

// JournalPath is the SQLite database holding run history.
func (c *Config) JournalPath() string {
	return filepath.Join(c.Paths.StateDir, "journal.db")
}

// Table builds the classification table: the configured categories when any
// are set, the built-in taxonomy otherwise.
func (c *Config) Table() (*classify.Table, error) {
	if len(c.Categories) == 0 {
		return classify.Default(), nil
	}
	return classify.FromMap(c.Categories)
}

// WalkWorkers resolves the traversal pool size.
func (c *Config) WalkWorkers() int {
	if c.Workers.Walk > 0 {
		return c.Workers.Walk
	}
	return runtime.NumCPU()
}

// RelocateWorkers resolves the relocation pool size: a small multiple of the
// CPU count, capped so local disks are not flooded.
func (c *Config) RelocateWorkers() int {
	if c.Workers.Relocate > 0 {
		return c.Workers.Relocate
	}
	return min(4*runtime.NumCPU(), maxAutoRelocateWorkers)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultStateDir() string {
	if base, ok := os.LookupEnv("XDG_STATE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "sortdir")
	}
	return "~/.local/state/sortdir"
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the effective configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}
