package transcription

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cdaprod/captioner/internal/types"
)

// Engine turns an audio file into chronologically ordered timed words.
type Engine interface {
	Transcribe(ctx context.Context, audioPath string) ([]types.Word, error)
}

// WhisperOptions configures the Python Whisper CLI.
type WhisperOptions struct {
	Command  string // interpreter, default "python"
	Language string // empty lets Whisper auto-detect
	Threads  int
	Device   string
	WorkDir  string // parent for per-run output directories
}

// WhisperTranscriber wraps Python's OpenAI Whisper for one model size
type WhisperTranscriber struct {
	modelName string
	opts      WhisperOptions
	run       CommandRunner
	logger    *zap.Logger
	mu        sync.Mutex // one transcription per loaded model at a time
}

// NewWhisperTranscriber verifies the interpreter is available and binds the
// transcriber to modelName.
func NewWhisperTranscriber(modelName string, opts WhisperOptions, logger *zap.Logger) (*WhisperTranscriber, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(modelName) == "" {
		return nil, fmt.Errorf("whisper model name required")
	}
	if opts.Command == "" {
		opts.Command = "python"
	}
	if opts.WorkDir == "" {
		opts.WorkDir = os.TempDir()
	}
	if _, err := exec.LookPath(opts.Command); err != nil {
		return nil, fmt.Errorf("whisper interpreter %q not found: %w", opts.Command, err)
	}

	logger.Info("whisper model ready", zap.String("model", modelName), zap.String("command", opts.Command))
	return newWhisperTranscriber(modelName, opts, execRunner, logger), nil
}

func newWhisperTranscriber(modelName string, opts WhisperOptions, run CommandRunner, logger *zap.Logger) *WhisperTranscriber {
	return &WhisperTranscriber{
		modelName: modelName,
		opts:      opts,
		run:       run,
		logger:    logger,
	}
}

// Model returns the model size this transcriber is bound to
func (wt *WhisperTranscriber) Model() string {
	return wt.modelName
}

// Transcribe runs Whisper with word timestamps and flattens every segment's
// words into one ordered list.
func (wt *WhisperTranscriber) Transcribe(ctx context.Context, audioPath string) ([]types.Word, error) {
	wt.mu.Lock()
	defer wt.mu.Unlock()

	outputDir := filepath.Join(wt.opts.WorkDir, "whisper_"+uuid.NewString())
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create whisper output directory: %w", err)
	}
	defer os.RemoveAll(outputDir)

	absAudioPath, err := filepath.Abs(audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	args := []string{"-m", "whisper",
		absAudioPath,
		"--model", wt.modelName,
		"--output_dir", outputDir,
		"--output_format", "json",
		"--word_timestamps", "True",
		"--fp16", "False", // CPU compatibility
	}
	if wt.opts.Language != "" {
		args = append(args, "--language", wt.opts.Language)
	}
	if wt.opts.Threads > 0 {
		args = append(args, "--threads", fmt.Sprintf("%d", wt.opts.Threads))
	}
	if wt.opts.Device != "" {
		args = append(args, "--device", wt.opts.Device)
	}

	wt.logger.Info("transcribing", zap.String("audio", filepath.Base(audioPath)), zap.String("model", wt.modelName))
	if output, err := wt.run(ctx, wt.opts.Command, args...); err != nil {
		return nil, fmt.Errorf("whisper transcription failed: %w: %s", err, strings.TrimSpace(string(output)))
	}

	baseName := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	jsonData, err := os.ReadFile(filepath.Join(outputDir, baseName+".json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read whisper output: %w", err)
	}

	words, err := ParseWhisperJSON(jsonData)
	if err != nil {
		return nil, err
	}
	wt.logger.Info("transcription completed", zap.Int("words", len(words)), zap.String("model", wt.modelName))
	return words, nil
}

// WhisperOutput matches Python Whisper's JSON output format
type WhisperOutput struct {
	Text     string           `json:"text"`
	Language string           `json:"language"`
	Segments []WhisperSegment `json:"segments"`
}

// WhisperSegment represents a timestamped segment from Whisper
type WhisperSegment struct {
	ID    int           `json:"id"`
	Start float64       `json:"start"`
	End   float64       `json:"end"`
	Text  string        `json:"text"`
	Words []WhisperWord `json:"words"`
}

// WhisperWord is a word-level timestamp inside a segment
type WhisperWord struct {
	Word        string   `json:"word"`
	Start       *float64 `json:"start"`
	End         *float64 `json:"end"`
	Probability float64  `json:"probability"`
}

// ParseWhisperJSON extracts trimmed, timed words from Whisper's JSON output.
// Missing timestamps become zero.
func ParseWhisperJSON(data []byte) ([]types.Word, error) {
	var out WhisperOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse whisper JSON: %w", err)
	}

	var words []types.Word
	for _, seg := range out.Segments {
		for _, w := range seg.Words {
			words = append(words, types.Word{
				Start: deref(w.Start),
				End:   deref(w.End),
				Text:  strings.TrimSpace(w.Word),
			})
		}
	}
	return words, nil
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
