// Package session launches the player as a child process and reports how it
// exited.
//
// When stdin is the controlling terminal and this process owns it, the player
// runs in its own foreground process group so job-control signals reach it
// directly; the terminal and its modes are handed back once it exits, on every
// path. Without a terminal the player simply inherits the process group.
//
// Seeded runs point the player at a private history directory through
// ANI_CLI_HIST_DIR. The directory is read back after exit and then removed.
package session
