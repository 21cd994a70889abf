package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/cdaprod/captioner/internal/cleanup"
	"github.com/cdaprod/captioner/internal/config"
	"github.com/cdaprod/captioner/internal/cues"
	"github.com/cdaprod/captioner/internal/handlers"
	"github.com/cdaprod/captioner/internal/logging"
	"github.com/cdaprod/captioner/internal/notify"
	"github.com/cdaprod/captioner/internal/pipeline"
	"github.com/cdaprod/captioner/internal/queue"
	"github.com/cdaprod/captioner/internal/transcription"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "captioner: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logBuffer := logging.NewLogBuffer(logging.DefaultBufferLines)
	log, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Buffer: logBuffer,
	})
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	mode, err := cues.ParseMapMode(cfg.Captions.MapMode)
	if err != nil {
		return err
	}

	log.Info("initializing components",
		zap.String("projects_root", cfg.Projects.Root),
		zap.String("srt_map_mode", string(mode)),
		zap.Bool("media_sync", cfg.MediaSync.BaseURL != ""),
	)

	models := transcription.NewWhisperCache(transcription.WhisperOptions{
		Command:  cfg.Whisper.Command,
		Language: cfg.Whisper.Language,
		Threads:  cfg.Whisper.Threads,
		Device:   cfg.Whisper.Device,
		WorkDir:  cfg.Whisper.WorkDir,
	}, log)

	service := pipeline.New(pipeline.Config{
		ProjectsRoot: cfg.Projects.Root,
		Extractor:    transcription.NewFFmpegExtractor(cfg.FFmpeg.Binary, log),
		Models:       models,
		Notifier:     notify.NewMediaSync(cfg.MediaSync.BaseURL, cfg.MediaSync.Timeout, log),
		Logger:       log,
		DefaultModel: cfg.Whisper.Model,
		MaxChars:     cfg.Captions.MaxChars,
	})

	workerPool := queue.NewWorkerPool(cfg.Workers.Count, service, log)
	workerPool.Start()
	defer workerPool.Stop()

	cleanupScheduler := cleanup.NewScheduler(cfg.Projects.Root, cfg.CleanupInterval(), cfg.CleanupMaxAge(), log)
	cleanupScheduler.Start()
	defer cleanupScheduler.Stop()

	resolver := cues.NewResolver(mode, cues.NewHTTPFetcher(cfg.Captions.FetchTimeout).WithFileRoot(cfg.Projects.Root), log)

	app := fiber.New(fiber.Config{
		BodyLimit:             cfg.Server.MaxUploadMB * 1024 * 1024,
		ErrorHandler:          handlers.ErrorHandler,
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{Output: logBuffer}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.Server.CORSOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	handlers.Register(app, handlers.Deps{
		ProjectsRoot: cfg.Projects.Root,
		MaxUploadMB:  cfg.Server.MaxUploadMB,
		Generator:    service,
		Jobs:         workerPool,
		Resolver:     resolver,
		Logs:         logBuffer,
		Logger:       log,
	})

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Info("shutting down gracefully")
		if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
			log.Warn("shutdown", zap.Error(err))
		}
	}()

	log.Info("server starting", zap.String("addr", cfg.Addr()))
	if err := app.Listen(cfg.Addr()); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
