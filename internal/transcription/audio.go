package transcription

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/cdaprod/captioner/internal/apperr"
)

// SampleRate is the rate of the mono WAV handed to Whisper
const SampleRate = 16000

// CommandRunner executes an external tool and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput() //nolint:gosec
}

// FFmpegExtractor converts a video's audio track to 16kHz mono WAV
type FFmpegExtractor struct {
	binary string
	run    CommandRunner
	logger *zap.Logger
}

// NewFFmpegExtractor creates an extractor calling binary (default "ffmpeg")
func NewFFmpegExtractor(binary string, logger *zap.Logger) *FFmpegExtractor {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FFmpegExtractor{binary: binary, run: execRunner, logger: logger}
}

// WithCommandRunner swaps the process runner (for testing).
func (e *FFmpegExtractor) WithCommandRunner(run CommandRunner) {
	e.run = run
}

// Extract writes the audio of videoPath to audioPath, overwriting it.
// ffmpeg failures usually mean an unsupported or corrupt input, so they are
// reported as ErrExtraction with ffmpeg's stderr attached.
func (e *FFmpegExtractor) Extract(ctx context.Context, videoPath, audioPath string) error {
	if err := os.MkdirAll(filepath.Dir(audioPath), 0755); err != nil {
		return fmt.Errorf("failed to create scratch directory: %w", err)
	}

	args := []string{
		"-y",
		"-i", videoPath,
		"-vn",
		"-ac", "1", // Mono
		"-ar", strconv.Itoa(SampleRate),
		audioPath,
	}
	e.logger.Debug("extracting audio", zap.String("input", filepath.Base(videoPath)), zap.String("output", audioPath))

	output, err := e.run(ctx, e.binary, args...)
	if err != nil {
		detail := strings.TrimSpace(string(output))
		if detail == "" {
			detail = err.Error()
		}
		return apperr.Wrap(apperr.ErrExtraction, "", "ffmpeg failed", fmt.Errorf("%s", detail))
	}
	return nil
}
