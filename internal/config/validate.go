package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateWorkers(); err != nil {
		return err
	}
	if err := c.validateArchives(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateCategories(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateWorkers() error {
	if c.Workers.Walk < 0 || c.Workers.Walk > maxWorkers {
		return fmt.Errorf("workers.walk must be between 0 and %d", maxWorkers)
	}
	if c.Workers.Relocate < 0 || c.Workers.Relocate > maxWorkers {
		return fmt.Errorf("workers.relocate must be between 0 and %d", maxWorkers)
	}
	return nil
}

func (c *Config) validateArchives() error {
	switch c.Archives.UnsupportedPolicy {
	case UnsupportedKeep, UnsupportedFail:
		return nil
	default:
		return fmt.Errorf("archives.unsupported_policy must be %q or %q, got %q", UnsupportedKeep, UnsupportedFail, c.Archives.UnsupportedPolicy)
	}
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateCategories() error {
	if len(c.Categories) == 0 {
		return nil
	}
	if _, err := c.Table(); err != nil {
		return fmt.Errorf("categories: %w", err)
	}
	for name, exts := range c.Categories {
		if len(exts) == 0 {
			return errors.New("categories." + name + " must list at least one extension")
		}
	}
	return nil
}
