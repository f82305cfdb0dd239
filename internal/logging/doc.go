// Package logging assembles the structured slog loggers used across anitrack.
//
// Records are written to a size-rotated file in the configured log directory
// so that output never interleaves with the player's terminal UI; verbose runs
// tee the same records to stderr. Console and JSON handlers share field
// conventions, and WithContext tags records with the show, action and run id
// carried on a context.
package logging
