// Package config loads, normalizes, and validates sortdir configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SORTDIR_LOG_LEVEL. The Config type centralizes every knob the CLI and the
// organizer need: worker pool sizes, pruning and archive policies, the journal
// location, and an optional replacement category table.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, resolved worker counts, and clear validation errors.
package config
