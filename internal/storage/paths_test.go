package storage_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cdaprod/captioner/internal/apperr"
	"github.com/cdaprod/captioner/internal/storage"
)

const testSHA = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func TestEnsureRelativeRejectsUnsafePaths(t *testing.T) {
	bad := []string{
		"",
		"   ",
		"/etc/passwd",
		`\windows\system32`,
		"../etc/passwd",
		"ingest/../../etc",
		"ingest/./demo.mp4",
		"ingest//demo.mp4",
		"ingest/",
		`ingest\..\secret`,
		".",
	}
	for _, input := range bad {
		if _, err := storage.EnsureRelative(input); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("EnsureRelative(%q) = %v, want validation error", input, err)
		}
	}
}

func TestEnsureRelativeAcceptsNestedPaths(t *testing.T) {
	got, err := storage.EnsureRelative("ingest/originals/demo.mp4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ingest/originals/demo.mp4" {
		t.Fatalf("unexpected clean path %q", got)
	}
}

func TestEnsureAllowed(t *testing.T) {
	if _, err := storage.EnsureAllowed("captions/demo.srt"); err != nil {
		t.Fatalf("captions should be allowed: %v", err)
	}
	if _, err := storage.EnsureAllowed("secrets/key.pem"); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := storage.EnsureAllowed("../captions/demo.srt"); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestNamesForIsDeterministic(t *testing.T) {
	for i := 0; i < 3; i++ {
		paths, err := storage.NamesFor("ingest/demo.mp4", testSHA)
		if err != nil {
			t.Fatalf("NamesFor returned error: %v", err)
		}
		if paths.WordsRelPath != "captions/demo__0123456789.words.json" {
			t.Fatalf("unexpected words path %q", paths.WordsRelPath)
		}
		if paths.LinesRelPath != "captions/demo__0123456789.lines.txt" {
			t.Fatalf("unexpected lines path %q", paths.LinesRelPath)
		}
		if paths.SRTRelPath != "captions/demo__0123456789.srt" {
			t.Fatalf("unexpected srt path %q", paths.SRTRelPath)
		}
		if paths.SHA256 != testSHA || paths.VideoRelPath != "ingest/demo.mp4" {
			t.Fatalf("unexpected identity: %+v", paths)
		}
	}
}

func TestNamesForRejectsTraversal(t *testing.T) {
	if _, err := storage.NamesFor("../demo.mp4", testSHA); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestScratchAudioPath(t *testing.T) {
	got, err := storage.ScratchAudioPath("ingest/clip.final.mov", testSHA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "_manifest/tmp/clip.final__0123456789.wav" {
		t.Fatalf("unexpected scratch path %q", got)
	}
}

func TestStem(t *testing.T) {
	cases := map[string]string{
		"ingest/demo.mp4": "demo",
		"a/b.tar.gz":      "b.tar",
		"noext":           "noext",
		"ingest/.hidden":  ".hidden",
		"ingest/DEMO.MOV": "DEMO",
	}
	for in, want := range cases {
		if got := storage.Stem(in); got != want {
			t.Errorf("Stem(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestResolveProjectRoot(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, "ProjectA"), 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := storage.ResolveProjectRoot(root, "/ProjectA/")
	if err != nil {
		t.Fatalf("ResolveProjectRoot returned error: %v", err)
	}
	if filepath.Base(got) != "ProjectA" {
		t.Fatalf("unexpected project root %q", got)
	}

	if _, err := storage.ResolveProjectRoot(root, "Missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
	if _, err := storage.ResolveProjectRoot(root, "../ProjectA"); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestResolveVideo(t *testing.T) {
	project := t.TempDir()
	if err := os.MkdirAll(filepath.Join(project, "ingest"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(project, "ingest", "demo.mp4"), []byte("video"), 0o644); err != nil {
		t.Fatal(err)
	}

	rel, abs, err := storage.ResolveVideo(project, "ingest/demo.mp4")
	if err != nil {
		t.Fatalf("ResolveVideo returned error: %v", err)
	}
	if rel != "ingest/demo.mp4" || abs != filepath.Join(project, "ingest", "demo.mp4") {
		t.Fatalf("unexpected result %q %q", rel, abs)
	}

	if _, _, err := storage.ResolveVideo(project, "ingest/missing.mp4"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
	if _, _, err := storage.ResolveVideo(project, "ingest"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("directory should not count as a video, got %v", err)
	}
}

func TestResolveServedFile(t *testing.T) {
	root := t.TempDir()
	srt := filepath.Join(root, "captions", "demo__0123456789.srt")
	if err := os.MkdirAll(filepath.Dir(srt), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(srt, []byte("1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(root, "secrets"), 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := storage.ResolveServedFile(root, "captions/demo__0123456789.srt")
	if err != nil {
		t.Fatalf("ResolveServedFile returned error: %v", err)
	}
	if filepath.Base(got) != "demo__0123456789.srt" {
		t.Fatalf("unexpected target %s", got)
	}

	outside := filepath.Join(t.TempDir(), "outside.txt")
	if err := os.WriteFile(outside, []byte("nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(outside, filepath.Join(root, "captions", "escape.srt")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	cases := []struct {
		rel    string
		marker error
	}{
		{"secrets/key.txt", apperr.ErrValidation},
		{"../outside.txt", apperr.ErrValidation},
		{"captions/escape.srt", apperr.ErrValidation},
		{"captions/missing.srt", apperr.ErrNotFound},
		{"captions", apperr.ErrNotFound},
	}
	for _, tc := range cases {
		if _, err := storage.ResolveServedFile(root, tc.rel); !errors.Is(err, tc.marker) {
			t.Errorf("%q: expected %v, got %v", tc.rel, tc.marker, err)
		}
	}
}
