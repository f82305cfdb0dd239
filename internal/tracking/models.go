package tracking

import (
	"time"

	"anitrack/internal/episode"
)

// Entry is the last confirmed position for one show.
type Entry struct {
	ShowID  string `json:"show_id" yaml:"show_id"`
	Title   string `json:"title" yaml:"title"`
	Episode string `json:"episode" yaml:"episode"`
	// Ordinal is the numeric form of Episode when it parses.
	Ordinal   *float64  `json:"episode_ordinal,omitempty" yaml:"episode_ordinal,omitempty"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// Position converts the entry into a navigator starting point.
func (e Entry) Position() episode.Position {
	return episode.Position{ShowID: e.ShowID, Title: e.Title, Episode: e.Episode}
}

// MigrationReport summarises a Migrate call.
type MigrationReport struct {
	From    int
	To      int
	Applied []string
}

// Changed reports whether any step ran.
func (r MigrationReport) Changed() bool { return len(r.Applied) > 0 }

// MigrationStatus describes one known schema step.
type MigrationStatus struct {
	Version int
	Name    string
	Applied bool
}
