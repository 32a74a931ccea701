package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeAssetStore(); err != nil {
		return err
	}
	c.normalizePipeline()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeAssetStore() error {
	var err error
	if strings.TrimSpace(c.AssetStore.PublicDir) == "" {
		c.AssetStore.PublicDir = defaultAssetPublicDir
	}
	if c.AssetStore.PublicDir, err = expandPath(c.AssetStore.PublicDir); err != nil {
		return fmt.Errorf("asset_store.public_dir: %w", err)
	}
	c.AssetStore.BaseURL = strings.TrimRight(strings.TrimSpace(c.AssetStore.BaseURL), "/")
	if c.AssetStore.BaseURL == "" {
		c.AssetStore.BaseURL = defaultAssetBaseURL
	}
	return nil
}

func (c *Config) normalizePipeline() {
	if c.Pipeline.Workers <= 0 {
		c.Pipeline.Workers = defaultWorkers
	}
	if strings.TrimSpace(c.Pipeline.DefaultProfile) == "" {
		c.Pipeline.DefaultProfile = defaultProfile
	}
	if c.Pipeline.ProbeTimeoutSeconds <= 0 {
		c.Pipeline.ProbeTimeoutSeconds = defaultProbeTimeout
	}
	if c.Pipeline.AudioTimeoutSeconds <= 0 {
		c.Pipeline.AudioTimeoutSeconds = defaultAudioTimeout
	}
	if c.Pipeline.ReferenceThroughputBytesPerMs <= 0 {
		c.Pipeline.ReferenceThroughputBytesPerMs = defaultReferenceThroughputBytesPerMs
	}
	if c.Pipeline.ThumbnailWidth <= 0 {
		c.Pipeline.ThumbnailWidth = defaultThumbnailWidth
	}
	cleaned := make([]string, 0, len(c.Pipeline.CodecPreference))
	for _, codec := range c.Pipeline.CodecPreference {
		if codec = strings.TrimSpace(codec); codec != "" {
			cleaned = append(cleaned, codec)
		}
	}
	if len(cleaned) == 0 {
		cleaned = defaultCodecPreference()
	}
	c.Pipeline.CodecPreference = cleaned
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.QueuePollInterval <= 0 {
		c.Workflow.QueuePollInterval = defaultQueuePollInterval
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}
