package logging_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/cdaprod/captioner/internal/logging"
)

func TestLoggerTeesIntoBuffer(t *testing.T) {
	buf := logging.NewLogBuffer(10)
	logger, err := logging.New(logging.Options{Level: "info", Format: "json", Buffer: buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Debug("hidden")
	logger.Info("captions generated")
	logger.Sync() //nolint:errcheck

	lines := buf.Lines()
	if len(lines) != 1 {
		t.Fatalf("expected one buffered line, got %d: %q", len(lines), lines)
	}
	if !strings.Contains(lines[0], `"msg":"captions generated"`) {
		t.Fatalf("unexpected line %q", lines[0])
	}
}

func TestLogBufferKeepsNewestLines(t *testing.T) {
	buf := logging.NewLogBuffer(3)
	for i := 0; i < 5; i++ {
		fmt.Fprintf(buf, "line %d\n", i)
	}
	got := buf.Lines()
	want := []string{"line 2", "line 3", "line 4"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("got %q want %q", got, want)
	}

	got[0] = "mutated"
	if buf.Lines()[0] != "line 2" {
		t.Fatal("Lines must return a copy")
	}
}

func TestNewRejectsBadOptions(t *testing.T) {
	if _, err := logging.New(logging.Options{Level: "loud"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestDefaultBufferSize(t *testing.T) {
	buf := logging.NewLogBuffer(0)
	for i := 0; i < logging.DefaultBufferLines+20; i++ {
		fmt.Fprintf(buf, "entry %d\n", i)
	}
	if n := len(buf.Lines()); n != logging.DefaultBufferLines {
		t.Fatalf("expected %d lines, got %d", logging.DefaultBufferLines, n)
	}
}
