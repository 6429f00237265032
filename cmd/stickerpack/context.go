package main

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/PorunC/telegram-sticker-maker/internal/analyzer"
	"github.com/PorunC/telegram-sticker-maker/internal/config"
	"github.com/PorunC/telegram-sticker-maker/internal/logging"
	"github.com/PorunC/telegram-sticker-maker/internal/pipeline"
	"github.com/PorunC/telegram-sticker-maker/internal/telegram"
	"github.com/PorunC/telegram-sticker-maker/internal/transcode"
	"github.com/PorunC/telegram-sticker-maker/internal/uploader"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
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

// log returns the configured logger, or a no-op logger if it cannot be built.
func (c *commandContext) log() *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg := c.configValue()
		if cfg == nil {
			c.logger = logging.NewNop()
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		c.logger = logger
	})
	return c.logger
}

// orchestrator connects to the Bot API; getMe must succeed.
func (c *commandContext) orchestrator(ctx context.Context) (*uploader.Orchestrator, error) {
	cfg := c.configValue()
	client, err := telegram.NewFromConfig(cfg, c.log())
	if err != nil {
		return nil, err
	}
	return uploader.New(ctx, client, uploader.Options{
		ShareBaseURL: cfg.Telegram.ShareBaseURL,
		DefaultEmoji: cfg.Telegram.DefaultEmoji,
		BackupDir:    cfg.Paths.OutputDir,
		Logger:       c.log(),
	})
}

// pipeline builds the conversion chain. Pass a nil uploader for convert-only
// use.
func (c *commandContext) pipeline(u pipeline.Uploader) *pipeline.Pipeline {
	cfg := c.configValue()
	logger := c.log()
	return pipeline.New(
		cfg,
		analyzer.New(cfg.FFprobeBinary(), logger),
		transcode.New(cfg.FFmpegBinary(), cfg.FFprobeBinary(), logger),
		u,
		logger,
	)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
