// Package workflow runs one user action end to end: find the tracked entry,
// plan the player invocation, run the player, work out what was watched, and
// record it.
//
// Each run is an explicit state machine (see State). Committing is the only
// transition that writes to the store and it is reachable only after the
// player exited successfully, so interrupted or failed sessions never move
// progress. Episode lists and search positions are advisory: lookups are
// bounded by a short wait and failures surface as warnings on the Result.
package workflow
