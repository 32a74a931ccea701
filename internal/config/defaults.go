package config

const (
	defaultStagingDir        = "~/.local/share/pressbox/staging"
	defaultOutputDir         = "~/.local/share/pressbox/output"
	defaultLogDir            = "~/.local/share/pressbox/logs"
	defaultAssetPublicDir    = "~/.local/share/pressbox/public"
	defaultAssetBaseURL      = "file://local"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultWorkers           = 2
	defaultProfile           = "balanced"
	defaultProbeTimeout      = 10
	defaultAudioTimeout      = 10
	defaultQueuePollInterval = 5
	defaultNotifyTimeout     = 10
	defaultThumbnailWidth    = 480

	// defaultReferenceThroughputBytesPerMs approximates a conventional
	// single-threaded software x264 encode moving ~2 MiB of source per
	// second. Used only when reporting the speed factor.
	defaultReferenceThroughputBytesPerMs = 2048.0
)

func defaultCodecPreference() []string {
	return []string{"libx264", "libvpx-vp9", "mpeg4"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			OutputDir:  defaultOutputDir,
			LogDir:     defaultLogDir,
		},
		Pipeline: Pipeline{
			Workers:                       defaultWorkers,
			DefaultProfile:                defaultProfile,
			ProbeTimeoutSeconds:           defaultProbeTimeout,
			AudioTimeoutSeconds:           defaultAudioTimeout,
			ReferenceThroughputBytesPerMs: defaultReferenceThroughputBytesPerMs,
			CodecPreference:               defaultCodecPreference(),
			ThumbnailWidth:                defaultThumbnailWidth,
		},
		AssetStore: AssetStore{
			PublicDir: defaultAssetPublicDir,
			BaseURL:   defaultAssetBaseURL,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Completed:      true,
			Errors:         true,
		},
		Workflow: Workflow{
			QueuePollInterval: defaultQueuePollInterval,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
