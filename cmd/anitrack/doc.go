// Command anitrack records and resumes ani-cli watch progress.
//
// Running anitrack with no arguments opens the dashboard. The start, next,
// previous, replay and select commands launch the player directly and print a
// one-line summary of what was recorded. list, history and delete inspect and
// edit the tracking database; migrate, doctor and config manage the install.
package main
