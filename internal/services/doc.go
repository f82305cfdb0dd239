// Package services defines shared utilities consumed by the orchestrator and
// its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp show IDs, action names, and run identifiers
//     for logging.
//   - Structured error markers plus the Wrap helper so callers can classify
//     failures (store, metadata, external tool) with errors.Is.
//
// Metadata failures are advisory: Advisory reports them so the orchestrator can
// downgrade them to warnings rather than failing a session.
package services
