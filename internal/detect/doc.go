// Package detect decides which show a player session advanced.
//
// The primary signal is a diff of the history file captured before and after
// the session. When the file did not change (the player sometimes skips the
// write, for example when an episode is replayed) the detector falls back to
// the player's own log lines, matched against known shows within a bounded
// time window. The window, clock skew tolerance and tie-break rule are a
// Policy so callers can tune them and tests can pin them down.
package detect
