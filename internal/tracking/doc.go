// Package tracking persists the last confirmed episode per show in SQLite.
//
// A Store holds one row per show keyed by the catalogue id, with commit
// timestamps that only ever move forward so "most recent" is well defined even
// when the wall clock does not advance between writes. Schema changes ship as
// embedded, numbered migrations recorded in schema_version; Open never
// migrates implicitly, and data operations report ErrSchemaOutdated until
// Migrate has run under the cross-process lock file.
//
// The store also caches catalogue episode lists so navigation can work offline
// after a successful lookup.
package tracking
