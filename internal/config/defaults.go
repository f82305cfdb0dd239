package config

const (
	defaultPlayerBinary       = "ani-cli"
	defaultPlayerMode         = "sub"
	defaultJournalBinary      = "journalctl"
	defaultJournalTag         = "ani-cli"
	defaultWindowGraceSeconds = 5
	defaultTieBreak           = "newest"
	defaultMetadataBaseURL    = "https://api.allanime.day/api"
	defaultSearchReferer      = "https://allmanga.to"
	defaultEpisodesReferer    = "https://allanime.to"
	defaultMetadataTimeout    = 5
	defaultRetryAttempts      = 3
	defaultRetryDelayMS       = 1000
	defaultMetadataWait       = 4
	defaultCacheHours         = 12
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultLogMaxSizeMB       = 5
	defaultLogMaxBackups      = 3
	defaultLogMaxAgeDays      = 30
)

// PlayerBinaryEnv overrides the configured player binary.
const PlayerBinaryEnv = "ANI_TRACK_ANI_CLI_BIN"

// PlayerModeEnv is the player's own translation mode variable.
const PlayerModeEnv = "ANI_CLI_MODE"

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir(),
		},
		Player: Player{
			Binary: defaultPlayerBinary,
			Mode:   defaultPlayerMode,
		},
		Detection: Detection{
			LogFallback:        true,
			JournalBinary:      defaultJournalBinary,
			JournalTag:         defaultJournalTag,
			WindowGraceSeconds: defaultWindowGraceSeconds,
			TieBreak:           defaultTieBreak,
			WatchHistory:       true,
		},
		Metadata: Metadata{
			Enabled:         true,
			BaseURL:         defaultMetadataBaseURL,
			SearchReferer:   defaultSearchReferer,
			EpisodesReferer: defaultEpisodesReferer,
			TimeoutSeconds:  defaultMetadataTimeout,
			RetryAttempts:   defaultRetryAttempts,
			RetryDelayMS:    defaultRetryDelayMS,
			WaitSeconds:     defaultMetadataWait,
			CacheHours:      defaultCacheHours,
		},
		Logging: Logging{
			Format:     defaultLogFormat,
			Level:      defaultLogLevel,
			MaxSizeMB:  defaultLogMaxSizeMB,
			MaxBackups: defaultLogMaxBackups,
			MaxAgeDays: defaultLogMaxAgeDays,
		},
	}
}
