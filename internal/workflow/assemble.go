package workflow

import (
	"log/slog"
	"strings"

	"anitrack/internal/config"
	"anitrack/internal/deps"
	"anitrack/internal/detect"
	"anitrack/internal/metadata"
	"anitrack/internal/services"
	"anitrack/internal/session"
	"anitrack/internal/tracking"
)

// PlayerArgs returns the flags added to every launch for cfg.
func PlayerArgs(cfg *config.Config) []string {
	var args []string
	if strings.EqualFold(cfg.Player.Mode, "dub") {
		args = append(args, "--dub")
	}
	return append(args, cfg.Player.ExtraArgs...)
}

// NewMetadata builds the catalogue client and its cached episode source.
// Both are nil when lookups are disabled.
func NewMetadata(cfg *config.Config, store *tracking.Store, logger *slog.Logger) (*metadata.Client, *metadata.Cache, error) {
	if !cfg.Metadata.Enabled {
		return nil, nil, nil
	}
	client, err := metadata.New(cfg.Metadata.BaseURL,
		metadata.WithTimeout(cfg.MetadataTimeout()),
		metadata.WithRetry(cfg.Metadata.RetryAttempts, cfg.MetadataRetryDelay()),
		metadata.WithReferers(cfg.Metadata.SearchReferer, cfg.Metadata.EpisodesReferer),
		metadata.WithModes(cfg.Player.Mode, "sub", "dub"),
		metadata.WithLogger(logger),
	)
	if err != nil {
		return nil, nil, err
	}
	return client, metadata.NewCache(store, client, cfg.EpisodeCacheTTL(), logger), nil
}

// NewFromConfig wires the production collaborators described by cfg.
func NewFromConfig(cfg *config.Config, store *tracking.Store, logger *slog.Logger, opts ...Option) (*Orchestrator, error) {
	player, err := deps.ResolvePlayer(cfg.Player.Binary)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "resolve player", "", err)
	}
	tieBreak, err := detect.ParseTieBreak(cfg.Detection.TieBreak)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "detection policy", "", err)
	}
	policy := detect.DefaultPolicy()
	policy.TieBreak = tieBreak

	base := []Option{
		WithPlayer(player, PlayerArgs(cfg)...),
		WithHistoryPath(cfg.HistoryPath()),
		WithPolicy(policy),
		WithWindowGrace(cfg.WindowGrace()),
		WithHistoryWatch(cfg.Detection.WatchHistory),
		WithMetadataWait(cfg.MetadataWait()),
		WithLogger(logger),
	}
	if cfg.Detection.LogFallback {
		if src := detect.NewJournal(cfg.Detection.JournalBinary, cfg.Detection.JournalTag); src != nil {
			base = append(base, WithLogSource(src))
		}
	}
	client, cache, err := NewMetadata(cfg, store, logger)
	if err != nil {
		return nil, err
	}
	if client != nil {
		base = append(base, WithEpisodeSource(cache), WithShowSelector(client))
	}

	launcher := session.New(session.WithLogger(logger))
	return New(store, launcher, append(base, opts...)...), nil
}
