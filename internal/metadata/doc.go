// Package metadata looks up catalogue data the player itself does not expose:
// a show's ordered episode labels and the position a title takes in the
// player's search menu.
//
// Every failure here is advisory and carries services.ErrMetadataUnavailable;
// callers fall back to label arithmetic or an interactive menu. The Worker
// runs lookups off the foreground path, and Cache keeps the last good list in
// the tracking database.
package metadata
