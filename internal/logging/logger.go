// Package logging builds the service's zap logger and keeps the most recent
// lines in memory for the /logs endpoint.
package logging

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultBufferLines is how many lines LogBuffer keeps.
const DefaultBufferLines = 1000

// Options describes logger construction parameters.
type Options struct {
	Level       string
	Format      string // console or json
	Development bool
	Buffer      *LogBuffer // optional in-memory copy of every entry
}

// New constructs a zap logger writing to stderr and, when set, opts.Buffer.
func New(opts Options) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.TrimSpace(strings.ToLower(defaultString(opts.Level, "info"))))
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	if opts.Development {
		encoderCfg = zap.NewDevelopmentEncoderConfig()
	}

	var encoder zapcore.Encoder
	switch format := strings.ToLower(defaultString(opts.Format, "console")); format {
	case "console":
		encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	case "json":
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	cores := []zapcore.Core{zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level)}
	if opts.Buffer != nil {
		cores = append(cores, zapcore.NewCore(encoder.Clone(), opts.Buffer, level))
	}

	zapOpts := []zap.Option{zap.AddStacktrace(zapcore.ErrorLevel)}
	if level <= zapcore.DebugLevel || opts.Development {
		zapOpts = append(zapOpts, zap.AddCaller())
	}
	return zap.New(zapcore.NewTee(cores...), zapOpts...), nil
}

// LogBuffer captures log lines in memory, dropping the oldest once full.
type LogBuffer struct {
	mu    sync.Mutex
	lines []string
	limit int
}

// NewLogBuffer returns a buffer holding at most limit lines.
func NewLogBuffer(limit int) *LogBuffer {
	if limit <= 0 {
		limit = DefaultBufferLines
	}
	return &LogBuffer{lines: make([]string, 0, limit), limit: limit}
}

func (lb *LogBuffer) Write(p []byte) (int, error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		lb.lines = append(lb.lines, line)
	}
	if over := len(lb.lines) - lb.limit; over > 0 {
		lb.lines = append(lb.lines[:0], lb.lines[over:]...)
	}
	return len(p), nil
}

// Sync satisfies zapcore.WriteSyncer.
func (lb *LogBuffer) Sync() error { return nil }

// Lines returns a copy of the buffered lines, oldest first.
func (lb *LogBuffer) Lines() []string {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	logs := make([]string, len(lb.lines))
	copy(logs, lb.lines)
	return logs
}

func defaultString(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
