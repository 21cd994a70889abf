package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/cdaprod/captioner/internal/captions"
	"github.com/cdaprod/captioner/internal/types"
)

// WordsMeta is the header of the words artifact
type WordsMeta struct {
	SHA256       string `json:"sha256"`
	VideoRelPath string `json:"video_rel_path"`
}

// WordsDocument is the on-disk shape of {stem}__{hash10}.words.json
type WordsDocument struct {
	Meta  WordsMeta    `json:"meta"`
	Words []types.Word `json:"words"`
}

// LocalStorage reads and writes caption artifacts under one project root
type LocalStorage struct {
	projectRoot string
}

// NewLocalStorage creates a new artifact store rooted at projectRoot
func NewLocalStorage(projectRoot string) *LocalStorage {
	return &LocalStorage{
		projectRoot: projectRoot,
	}
}

// Root returns the project directory this store writes into
func (ls *LocalStorage) Root() string {
	return ls.projectRoot
}

// Abs converts a project-relative slash path to an absolute path
func (ls *LocalStorage) Abs(rel string) string {
	return filepath.Join(ls.projectRoot, filepath.FromSlash(rel))
}

// SaveArtifacts writes the words, lines and SRT files for one artifact set.
// The three writes are independent; a failure can leave some of them on disk.
// Lookups only report complete sets, so a partial write stays invisible until
// the next successful generate overwrites it.
func (ls *LocalStorage) SaveArtifacts(paths types.CaptionPaths, words []types.Word, lines []types.Line) error {
	if err := os.MkdirAll(ls.Abs(CaptionsDir), 0755); err != nil {
		return fmt.Errorf("failed to create captions directory: %w", err)
	}

	if words == nil {
		words = []types.Word{}
	}
	doc := WordsDocument{
		Meta:  WordsMeta{SHA256: paths.SHA256, VideoRelPath: paths.VideoRelPath},
		Words: words,
	}

	var g errgroup.Group
	g.Go(func() error {
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal words: %w", err)
		}
		return writeFile(ls.Abs(paths.WordsRelPath), data)
	})
	g.Go(func() error {
		var buf bytes.Buffer
		if err := captions.WriteLines(&buf, lines); err != nil {
			return fmt.Errorf("failed to render lines: %w", err)
		}
		return writeFile(ls.Abs(paths.LinesRelPath), buf.Bytes())
	})
	g.Go(func() error {
		var buf bytes.Buffer
		if err := captions.WriteSRT(&buf, lines); err != nil {
			return fmt.Errorf("failed to render srt: %w", err)
		}
		return writeFile(ls.Abs(paths.SRTRelPath), buf.Bytes())
	})
	return g.Wait()
}

// FindArtifacts returns the artifact set for videoRelPath and sha only when
// all three files exist.
func (ls *LocalStorage) FindArtifacts(videoRelPath, sha string) (types.CaptionPaths, bool, error) {
	paths, err := NamesFor(videoRelPath, sha)
	if err != nil {
		return types.CaptionPaths{}, false, err
	}
	for _, rel := range []string{paths.WordsRelPath, paths.LinesRelPath, paths.SRTRelPath} {
		info, err := os.Stat(ls.Abs(rel))
		if err != nil || info.IsDir() {
			return types.CaptionPaths{}, false, nil
		}
	}
	return paths, true, nil
}

// LoadWords reads a words artifact back from disk
func (ls *LocalStorage) LoadWords(rel string) (WordsDocument, error) {
	var doc WordsDocument
	data, err := os.ReadFile(ls.Abs(rel))
	if err != nil {
		return doc, fmt.Errorf("failed to read words: %w", err)
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("failed to parse words: %w", err)
	}
	return doc, nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to save %s: %w", filepath.Base(path), err)
	}
	return nil
}
