package main

import (
	"log/slog"
	"strings"
	"sync"

	"pressbox/internal/assetstore"
	"pressbox/internal/config"
	"pressbox/internal/logging"
	"pressbox/internal/pipeline"
	"pressbox/internal/profile"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// orchestrator wires the production pipeline from config. The asset store is
// attached only when a public directory is configured.
func (c *commandContext) orchestrator(logger *slog.Logger) (*pipeline.Orchestrator, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}

	var store assetstore.Store
	if strings.TrimSpace(cfg.AssetStore.PublicDir) != "" {
		local, err := assetstore.NewLocalStore(cfg.AssetStore.PublicDir, cfg.AssetStore.BaseURL)
		if err != nil {
			return nil, err
		}
		store = local
	}

	return pipeline.New(pipeline.Config{
		FFmpegBinary:                  cfg.FFmpegBinary(),
		FFprobeBinary:                 cfg.FFprobeBinary(),
		StagingDir:                    cfg.Paths.StagingDir,
		OutputDir:                     cfg.Paths.OutputDir,
		ProbeTimeout:                  cfg.ProbeTimeout(),
		AudioTimeout:                  cfg.AudioTimeout(),
		CodecPreference:               cfg.Pipeline.CodecPreference,
		ReferenceThroughputBytesPerMs: cfg.Pipeline.ReferenceThroughputBytesPerMs,
		ThumbnailWidth:                cfg.Pipeline.ThumbnailWidth,
	}, profile.DefaultCatalog(), store, logger), nil
}

func (c *commandContext) logger() *slog.Logger {
	cfg, err := c.ensureConfig()
	if err != nil {
		return logging.NewNop()
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return logging.NewNop()
	}
	return logger
}
