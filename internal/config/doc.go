// Package config loads, normalizes, and validates anitrack configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// ANI_TRACK_ANI_CLI_BIN, ANI_CLI_HIST_DIR and ANI_CLI_MODE. The Config type
// centralizes every knob the CLI and dashboard need, so the database, the
// player's history file and the catalogue endpoint are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
