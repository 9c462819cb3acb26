package config

const (
	defaultConfigPath     = "~/.config/tunefetch/config.toml"
	defaultScratchDir     = "~/.cache/tunefetch/scratch"
	defaultLibraryDir     = "~/Music/tunefetch"
	defaultLogDir         = "~/.local/share/tunefetch/logs"
	defaultHistoryDB      = "~/.local/share/tunefetch/history.db"
	defaultYTDLP          = "yt-dlp"
	defaultFFmpeg         = "ffmpeg"
	defaultFFprobe        = "ffprobe"
	defaultMP3Gain        = "mp3gain"
	defaultMetaflac       = "metaflac"
	defaultAudioFormat    = "mp3"
	defaultMP3Quality     = 2
	defaultFormatSelector = "bestaudio/best"
	defaultFetchTimeout   = 30
	defaultFetchUserAgent = "tunefetch/dev"
	defaultNotifyTimeout  = 10
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
	ntfyTopicEnv          = "TUNEFETCH_NTFY_TOPIC"
	audioFormatMP3        = "mp3"
	audioFormatFLAC       = "flac"
	audioFormatAuto       = "auto"
	maxMP3Quality         = 9
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ScratchDir: defaultScratchDir,
			LibraryDir: defaultLibraryDir,
			LogDir:     defaultLogDir,
			HistoryDB:  defaultHistoryDB,
		},
		Tools: Tools{
			YTDLP:    defaultYTDLP,
			FFmpeg:   defaultFFmpeg,
			FFprobe:  defaultFFprobe,
			MP3Gain:  defaultMP3Gain,
			Metaflac: defaultMetaflac,
		},
		Audio: Audio{
			Format:     defaultAudioFormat,
			MP3Quality: defaultMP3Quality,
		},
		Download: Download{
			FormatSelector: defaultFormatSelector,
		},
		Normalize: Normalize{
			Enabled: true,
		},
		Fetch: Fetch{
			TimeoutSeconds: defaultFetchTimeout,
			UserAgent:      defaultFetchUserAgent,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			ItemComplete:   true,
			ItemFailed:     true,
			QueueDrained:   true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
