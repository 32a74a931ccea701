package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StagingDir string `toml:"staging_dir"`
	OutputDir  string `toml:"output_dir"`
	LogDir     string `toml:"log_dir"`
}

// Tools contains external binary configuration.
type Tools struct {
	FFmpegBinary  string `toml:"ffmpeg_binary"`
	FFprobeBinary string `toml:"ffprobe_binary"`
}

// Pipeline contains compression pipeline tuning.
type Pipeline struct {
	// Workers bounds the number of compression pipelines running
	// concurrently in the worker process.
	Workers int `toml:"workers"`
	// DefaultProfile is used when a request names no profile.
	DefaultProfile      string `toml:"default_profile"`
	ProbeTimeoutSeconds int    `toml:"probe_timeout_seconds"`
	AudioTimeoutSeconds int    `toml:"audio_timeout_seconds"`
	// ReferenceThroughputBytesPerMs calibrates the reported speed factor
	// against a conventional software encoder. Reporting only.
	ReferenceThroughputBytesPerMs float64 `toml:"reference_throughput_bytes_per_ms"`
	// CodecPreference is the ordered encoder candidate list. The first
	// codec supported by the local ffmpeg build wins.
	CodecPreference []string `toml:"codec_preference"`
	ThumbnailWidth  int      `toml:"thumbnail_width"`
}

// AssetStore contains configuration for the local asset sink.
type AssetStore struct {
	PublicDir string `toml:"public_dir"`
	BaseURL   string `toml:"base_url"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Completed      bool   `toml:"completed"`
	Errors         bool   `toml:"errors"`
}

// Workflow contains configuration for worker timing.
type Workflow struct {
	QueuePollInterval int `toml:"queue_poll_interval"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for pressbox.
//
// Configuration sections by subsystem:
//   - Paths: staging, output, and log directories
//   - Tools: ffmpeg/ffprobe binary locations
//   - Pipeline: worker bound, timeouts, codec preference, calibration
//   - AssetStore: local public directory sink and URL prefix
//   - Notifications: ntfy push notification settings
//   - Workflow: worker polling interval
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Tools         Tools         `toml:"tools"`
	Pipeline      Pipeline      `toml:"pipeline"`
	AssetStore    AssetStore    `toml:"asset_store"`
	Notifications Notifications `toml:"notifications"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/pressbox/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("pressbox.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for pipeline operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StagingDir, c.Paths.OutputDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.AssetStore.PublicDir) != "" {
		if err := os.MkdirAll(c.AssetStore.PublicDir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", c.AssetStore.PublicDir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable used for decode and encode.
func (c *Config) FFmpegBinary() string {
	if binary := strings.TrimSpace(c.Tools.FFmpegBinary); binary != "" {
		return binary
	}
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable used for source probing.
func (c *Config) FFprobeBinary() string {
	if binary := strings.TrimSpace(c.Tools.FFprobeBinary); binary != "" {
		return binary
	}
	return "ffprobe"
}

// ProbeTimeout returns the bounded timeout for source probing.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Pipeline.ProbeTimeoutSeconds) * time.Second
}

// AudioTimeout returns the bounded timeout for audio track loading.
func (c *Config) AudioTimeout() time.Duration {
	return time.Duration(c.Pipeline.AudioTimeoutSeconds) * time.Second
}

// SampleConfig returns the embedded sample configuration document.
func SampleConfig() string {
	return sampleConfig
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
