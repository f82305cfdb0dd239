// Package history reads the external player's watch history.
//
// The player appends one line per show to a plain text file, either
// tab-delimited ("episode<TAB>id<TAB>title") or space-delimited with the title
// as the remainder. Snapshots taken before and after a session feed the change
// detector; parsing is tolerant and counts malformed lines instead of failing.
//
// The package also resolves where the player keeps that file, captures a
// cheap size/mtime signature, and offers an fsnotify watcher that records
// whether the file was touched while a session was running.
package history
