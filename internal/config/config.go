// Package config loads service settings from YAML, an optional .env file and
// the environment, in that order of precedence (later wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/cdaprod/captioner/internal/apperr"
	"github.com/cdaprod/captioner/internal/cues"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		Host        string   `yaml:"host"`
		Port        int      `yaml:"port"`
		MaxUploadMB int      `yaml:"max_upload_mb"`
		CORSOrigins []string `yaml:"cors_origins"`
	} `yaml:"server"`

	Projects struct {
		Root string `yaml:"root"`
	} `yaml:"projects"`

	Whisper struct {
		Model    string `yaml:"model"`
		Command  string `yaml:"command"`
		Language string `yaml:"language"`
		Threads  int    `yaml:"threads"`
		Device   string `yaml:"device"`
		WorkDir  string `yaml:"work_dir"`
	} `yaml:"whisper"`

	FFmpeg struct {
		Binary string `yaml:"binary"`
	} `yaml:"ffmpeg"`

	Captions struct {
		MaxChars     int           `yaml:"max_chars"`
		MapMode      string        `yaml:"map_mode"`
		FetchTimeout time.Duration `yaml:"fetch_timeout"`
	} `yaml:"captions"`

	MediaSync struct {
		BaseURL string        `yaml:"base_url"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"media_sync"`

	Workers struct {
		Count int `yaml:"count"`
	} `yaml:"workers"`

	Cleanup struct {
		IntervalMinutes int `yaml:"interval_minutes"`
		MaxAgeHours     int `yaml:"max_age_hours"`
	} `yaml:"cleanup"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	var cfg Config
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 8791
	cfg.Server.MaxUploadMB = 4096
	cfg.Server.CORSOrigins = []string{"*"}
	cfg.Projects.Root = "/data/projects"
	cfg.Whisper.Model = "small"
	cfg.Whisper.Command = "python"
	cfg.FFmpeg.Binary = "ffmpeg"
	cfg.Captions.MaxChars = 72
	cfg.Captions.MapMode = string(cues.CaptionsDir)
	cfg.Captions.FetchTimeout = 5 * time.Second
	cfg.MediaSync.Timeout = 5 * time.Second
	cfg.Workers.Count = 2
	cfg.Cleanup.MaxAgeHours = 24
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "console"
	return cfg
}

// Load reads path (optional), then .env (optional), then the environment.
// An empty path skips the YAML step.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, apperr.Wrap(apperr.ErrConfiguration, "parse config", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return Config{}, apperr.Wrap(apperr.ErrConfiguration, "read config", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, apperr.Wrap(apperr.ErrConfiguration, "load .env", "", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Projects.Root, "CAPTIONER_PROJECTS_ROOT")
	setString(&c.Server.Host, "CAPTIONER_HOST")
	setString(&c.MediaSync.BaseURL, "MEDIA_SYNC_BASE_URL")
	setString(&c.Captions.MapMode, "SRT_MAP_MODE")
	setString(&c.Logging.Level, "CAPTIONER_LOG_LEVEL")

	if err := setInt(&c.Server.Port, "CAPTIONER_PORT"); err != nil {
		return err
	}
	if err := setInt(&c.Server.MaxUploadMB, "CAPTIONER_MAX_UPLOAD_MB"); err != nil {
		return err
	}
	if raw, ok := lookup("CAPTIONER_CORS_ORIGINS"); ok {
		var origins []string
		for _, origin := range strings.Split(raw, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				origins = append(origins, origin)
			}
		}
		c.Server.CORSOrigins = origins
	}
	if raw, ok := lookup("SRT_FETCH_TIMEOUT"); ok {
		timeout, err := parseSeconds(raw)
		if err != nil {
			return apperr.Wrap(apperr.ErrConfiguration, "SRT_FETCH_TIMEOUT", raw, err)
		}
		c.Captions.FetchTimeout = timeout
	}
	return nil
}

// Validate rejects settings the service cannot start with.
func (c Config) Validate() error {
	if _, err := cues.ParseMapMode(c.Captions.MapMode); err != nil {
		return err
	}
	if strings.TrimSpace(c.Projects.Root) == "" {
		return apperr.Wrap(apperr.ErrConfiguration, "", "projects root is required", nil)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return apperr.Wrap(apperr.ErrConfiguration, "", fmt.Sprintf("invalid port %d", c.Server.Port), nil)
	}
	if c.Workers.Count <= 0 {
		return apperr.Wrap(apperr.ErrConfiguration, "", "workers.count must be positive", nil)
	}
	if c.Captions.FetchTimeout <= 0 {
		return apperr.Wrap(apperr.ErrConfiguration, "", "captions.fetch_timeout must be positive", nil)
	}
	if c.Captions.MaxChars < 1 {
		return apperr.Wrap(apperr.ErrConfiguration, "", "captions.max_chars must be at least 1", nil)
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// CleanupInterval is zero when scratch cleanup is disabled.
func (c Config) CleanupInterval() time.Duration {
	return time.Duration(c.Cleanup.IntervalMinutes) * time.Minute
}

// CleanupMaxAge is how old a scratch file must be before it is removed.
func (c Config) CleanupMaxAge() time.Duration {
	return time.Duration(c.Cleanup.MaxAgeHours) * time.Hour
}

func lookup(key string) (string, bool) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}

func setString(dst *string, key string) {
	if raw, ok := lookup(key); ok {
		*dst = raw
	}
}

func setInt(dst *int, key string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return apperr.Wrap(apperr.ErrConfiguration, key, raw, err)
	}
	*dst = value
	return nil
}

// parseSeconds accepts "7", "2.5" or a Go duration such as "750ms".
func parseSeconds(raw string) (time.Duration, error) {
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return time.ParseDuration(raw)
}
