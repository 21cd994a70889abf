package main

import (
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/cdaprod/captioner/internal/config"
	"github.com/cdaprod/captioner/internal/cues"
	"github.com/cdaprod/captioner/internal/logging"
	"github.com/cdaprod/captioner/internal/notify"
	"github.com/cdaprod/captioner/internal/pipeline"
	"github.com/cdaprod/captioner/internal/transcription"
)

// commandContext lazily loads configuration shared by every subcommand.
type commandContext struct {
	configFlag       *string
	projectsRootFlag *string
	verboseFlag      *bool

	once   sync.Once
	cfg    config.Config
	logger *zap.Logger
	err    error
}

func newCommandContext(configFlag, projectsRootFlag *string, verboseFlag *bool) *commandContext {
	return &commandContext{
		configFlag:       configFlag,
		projectsRootFlag: projectsRootFlag,
		verboseFlag:      verboseFlag,
	}
}

func (c *commandContext) ensureConfig() (config.Config, error) {
	c.once.Do(func() {
		cfg, err := config.Load(strings.TrimSpace(*c.configFlag))
		if err != nil {
			c.err = err
			return
		}
		if root := strings.TrimSpace(*c.projectsRootFlag); root != "" {
			cfg.Projects.Root = root
		}
		level := "warn"
		if *c.verboseFlag {
			level = "debug"
		}
		logger, err := logging.New(logging.Options{Level: level, Format: "console"})
		if err != nil {
			c.err = err
			return
		}
		c.cfg = cfg
		c.logger = logger
	})
	return c.cfg, c.err
}

func (c *commandContext) service() (*pipeline.Service, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	models := transcription.NewWhisperCache(transcription.WhisperOptions{
		Command:  cfg.Whisper.Command,
		Language: cfg.Whisper.Language,
		Threads:  cfg.Whisper.Threads,
		Device:   cfg.Whisper.Device,
		WorkDir:  cfg.Whisper.WorkDir,
	}, c.logger)
	return pipeline.New(pipeline.Config{
		ProjectsRoot: cfg.Projects.Root,
		Extractor:    transcription.NewFFmpegExtractor(cfg.FFmpeg.Binary, c.logger),
		Models:       models,
		Notifier:     notify.NewMediaSync(cfg.MediaSync.BaseURL, cfg.MediaSync.Timeout, c.logger),
		Logger:       c.logger,
		DefaultModel: cfg.Whisper.Model,
		MaxChars:     cfg.Captions.MaxChars,
	}), nil
}

func (c *commandContext) resolver(modeOverride string) (*cues.Resolver, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	raw := cfg.Captions.MapMode
	if strings.TrimSpace(modeOverride) != "" {
		raw = modeOverride
	}
	mode, err := cues.ParseMapMode(raw)
	if err != nil {
		return nil, err
	}
	return cues.NewResolver(mode, cues.NewHTTPFetcher(cfg.Captions.FetchTimeout).WithFileRoot(string(filepath.Separator)), c.logger), nil
}
