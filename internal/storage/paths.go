package storage

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/cdaprod/captioner/internal/apperr"
	"github.com/cdaprod/captioner/internal/types"
)

const (
	// CaptionsDir holds the artifact triple for every video of a project.
	CaptionsDir = "captions"
	// ScratchDir holds extracted audio. Files there are not removed unless the
	// cleanup scheduler is enabled.
	ScratchDir = "_manifest/tmp"

	hashPrefixLen = 10
)

// AllowedServeRoots lists the top-level project directories files may be
// served from.
var AllowedServeRoots = map[string]bool{
	"captions":     true,
	"ingest":       true,
	"exports":      true,
	"resolve":      true,
	"teleprompter": true,
	"_manifest":    true,
}

// EnsureRelative validates a client-supplied relative path and returns it in
// slash form. Absolute paths and empty, "." or ".." segments are rejected
// before anything touches the filesystem.
func EnsureRelative(rel string) (string, error) {
	if strings.TrimSpace(rel) == "" {
		return "", apperr.Validation("path is required")
	}
	if strings.HasPrefix(rel, "/") || strings.HasPrefix(rel, `\`) || filepath.IsAbs(rel) || filepath.VolumeName(rel) != "" {
		return "", apperr.Validation("absolute paths are not allowed")
	}
	segments := splitSegments(rel)
	for _, seg := range segments {
		switch seg {
		case "", ".", "..":
			return "", apperr.Validation("path traversal is not allowed")
		}
	}
	return strings.Join(segments, "/"), nil
}

// EnsureAllowed is EnsureRelative plus a check that the first segment is one
// of AllowedServeRoots.
func EnsureAllowed(rel string) (string, error) {
	clean, err := EnsureRelative(rel)
	if err != nil {
		return "", err
	}
	top := splitSegments(clean)[0]
	if !AllowedServeRoots[top] {
		return "", apperr.Validation("directory %q not allowed", top)
	}
	return clean, nil
}

func splitSegments(rel string) []string {
	return strings.Split(strings.ReplaceAll(rel, `\`, "/"), "/")
}

// ResolveProjectRoot maps a project name to its directory under projectsRoot.
func ResolveProjectRoot(projectsRoot, project string) (string, error) {
	name, err := EnsureRelative(strings.Trim(project, `/\`))
	if err != nil {
		return "", err
	}
	base, err := filepath.Abs(projectsRoot)
	if err != nil {
		return "", apperr.Wrap(apperr.ErrConfiguration, "resolve projects root", "", err)
	}
	root := filepath.Join(base, filepath.FromSlash(name))
	if !within(base, root) {
		return "", apperr.Validation("project path outside root")
	}
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return "", apperr.NotFound("project not found")
	}
	return root, nil
}

// ResolveVideo validates videoRelPath and returns its cleaned relative form
// and absolute location inside projectRoot. The video must be a regular file.
func ResolveVideo(projectRoot, videoRelPath string) (string, string, error) {
	rel, err := EnsureRelative(videoRelPath)
	if err != nil {
		return "", "", err
	}
	abs := filepath.Join(projectRoot, filepath.FromSlash(rel))
	if !within(projectRoot, abs) || abs == filepath.Clean(projectRoot) {
		return "", "", apperr.Validation("video path outside project")
	}
	info, err := os.Stat(abs)
	if err != nil || !info.Mode().IsRegular() {
		return "", "", apperr.NotFound("video not found")
	}
	return rel, abs, nil
}

// ResolveServedFile validates rel against AllowedServeRoots and returns the
// real location of the file it names. Symlinks that lead outside projectRoot
// are rejected.
func ResolveServedFile(projectRoot, rel string) (string, error) {
	clean, err := EnsureAllowed(rel)
	if err != nil {
		return "", err
	}
	realRoot, err := filepath.EvalSymlinks(projectRoot)
	if err != nil {
		return "", apperr.NotFound("project not found")
	}
	target, err := filepath.EvalSymlinks(filepath.Join(realRoot, filepath.FromSlash(clean)))
	if err != nil {
		return "", apperr.NotFound("file not found")
	}
	if !within(realRoot, target) {
		return "", apperr.Validation("invalid file location")
	}
	info, err := os.Stat(target)
	if err != nil || !info.Mode().IsRegular() {
		return "", apperr.NotFound("file not found")
	}
	return target, nil
}

// ConfineLocalFile returns the real location of the absolute path target
// when it is a regular file inside root, following symlinks on both sides.
func ConfineLocalFile(root, target string) (string, error) {
	if !filepath.IsAbs(target) {
		return "", apperr.Validation("file path must be absolute")
	}
	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return "", apperr.NotFound("file root not found")
	}
	target = filepath.Clean(target)
	if !within(root, target) && !within(realRoot, target) {
		return "", apperr.Validation("file outside allowed root")
	}
	resolved, err := filepath.EvalSymlinks(target)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", apperr.NotFound("file not found")
		}
		return "", fmt.Errorf("resolve %s: %w", target, err)
	}
	if !within(realRoot, resolved) {
		return "", apperr.Validation("file outside allowed root")
	}
	info, err := os.Stat(resolved)
	if err != nil || !info.Mode().IsRegular() {
		return "", apperr.NotFound("file not found")
	}
	return resolved, nil
}

// NamesFor returns the deterministic artifact paths for a video and its
// content hash. The identity key is the video stem plus the first ten hex
// characters of the hash; two videos sharing both collide.
func NamesFor(videoRelPath, sha string) (types.CaptionPaths, error) {
	rel, err := EnsureRelative(videoRelPath)
	if err != nil {
		return types.CaptionPaths{}, err
	}
	base := baseName(rel, sha)
	return types.CaptionPaths{
		SHA256:       sha,
		VideoRelPath: rel,
		WordsRelPath: path.Join(CaptionsDir, base+".words.json"),
		LinesRelPath: path.Join(CaptionsDir, base+".lines.txt"),
		SRTRelPath:   path.Join(CaptionsDir, base+".srt"),
	}, nil
}

// ScratchAudioPath returns the project-relative path of the extracted WAV.
func ScratchAudioPath(videoRelPath, sha string) (string, error) {
	rel, err := EnsureRelative(videoRelPath)
	if err != nil {
		return "", err
	}
	return path.Join(ScratchDir, baseName(rel, sha)+".wav"), nil
}

func baseName(rel, sha string) string {
	prefix := sha
	if len(prefix) > hashPrefixLen {
		prefix = prefix[:hashPrefixLen]
	}
	return fmt.Sprintf("%s__%s", Stem(rel), prefix)
}

// Stem returns the final path element without its last extension.
// Dot-files keep their full name.
func Stem(rel string) string {
	name := path.Base(rel)
	ext := path.Ext(name)
	if ext == name {
		return name
	}
	return strings.TrimSuffix(name, ext)
}

func within(root, target string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(target))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
