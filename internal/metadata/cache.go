package metadata

import (
	"context"
	"log/slog"
	"time"

	"anitrack/internal/logging"
)

// EpisodeStore persists fetched episode lists.
type EpisodeStore interface {
	PutEpisodeList(ctx context.Context, showID string, episodes []string) error
	EpisodeList(ctx context.Context, showID string, maxAge time.Duration) ([]string, bool, error)
}

// Cache is a read-through, write-through Fetcher over an EpisodeStore. A
// fresh cached list short-circuits the network; when the network fails an
// expired list is served instead.
type Cache struct {
	store   EpisodeStore
	fetcher Fetcher
	ttl     time.Duration
	logger  *slog.Logger
}

// NewCache wraps fetcher with store. A non-positive ttl disables the fresh
// read so every call goes to fetcher first.
func NewCache(store EpisodeStore, fetcher Fetcher, ttl time.Duration, logger *slog.Logger) *Cache {
	return &Cache{
		store:   store,
		fetcher: fetcher,
		ttl:     ttl,
		logger:  logging.NewComponentLogger(logger, "episode-cache"),
	}
}

// EpisodeList implements Fetcher.
func (c *Cache) EpisodeList(ctx context.Context, showID string, totalHint int) ([]string, error) {
	if c.ttl > 0 {
		episodes, ok, err := c.store.EpisodeList(ctx, showID, c.ttl)
		switch {
		case err != nil:
			c.logger.Debug("episode cache read failed", logging.String(logging.FieldShowID, showID), logging.Error(err))
		case ok && len(episodes) > 0:
			return episodes, nil
		}
	}

	episodes, err := c.fetcher.EpisodeList(ctx, showID, totalHint)
	if err != nil {
		if stale, ok, cacheErr := c.store.EpisodeList(ctx, showID, 0); cacheErr == nil && ok && len(stale) > 0 {
			logging.WarnWithContext(c.logger, "serving expired episode list", "episode_cache_stale",
				logging.String(logging.FieldShowID, showID),
				logging.Error(err),
				logging.String(logging.FieldImpact, "episode list may be missing new releases"),
				logging.String(logging.FieldErrorHint, "check network access to the catalogue"),
			)
			return stale, nil
		}
		return nil, err
	}
	if err := c.store.PutEpisodeList(ctx, showID, episodes); err != nil {
		c.logger.Warn("episode cache write failed", logging.String(logging.FieldShowID, showID), logging.Error(err))
	}
	return episodes, nil
}
