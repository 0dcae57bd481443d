package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeArchives()
	c.normalizeCategories()
	c.normalizeJournal()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if value, ok := os.LookupEnv("SORTDIR_STATE_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.StateDir = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir()
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = c.Paths.StateDir + "/logs"
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeArchives() {
	c.Archives.UnsupportedPolicy = strings.ToLower(strings.TrimSpace(c.Archives.UnsupportedPolicy))
	if c.Archives.UnsupportedPolicy == "" {
		c.Archives.UnsupportedPolicy = defaultUnsupportedPolicy
	}
}

func (c *Config) normalizeCategories() {
	if len(c.Categories) == 0 {
		c.Categories = nil
		return
	}
	normalized := make(map[string][]string, len(c.Categories))
	for name, exts := range c.Categories {
		name = strings.TrimSpace(name)
		cleaned := make([]string, 0, len(exts))
		for _, ext := range exts {
			ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
			if ext != "" {
				cleaned = append(cleaned, ext)
			}
		}
		normalized[name] = append(normalized[name], cleaned...)
	}
	c.Categories = normalized
}

func (c *Config) normalizeJournal() {
	if c.Journal.HistoryLimit <= 0 {
		c.Journal.HistoryLimit = defaultHistoryLimit
	}
	if c.Journal.KeepRuns <= 0 {
		c.Journal.KeepRuns = defaultKeepRuns
	}
}

func (c *Config) normalizeLogging() {
	if value, ok := os.LookupEnv("SORTDIR_LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
