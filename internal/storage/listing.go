package storage

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SupportedVideoExts is the allow-list of video containers the pipeline and
// the cue resolver accept.
var SupportedVideoExts = map[string]bool{
	".mp4": true,
	".mov": true,
	".mkv": true,
	".m4v": true,
	".avi": true,
}

// IsSupportedVideo reports whether name carries an allow-listed extension
func IsSupportedVideo(name string) bool {
	return SupportedVideoExts[strings.ToLower(filepath.Ext(name))]
}

// ListProjects returns the non-hidden directories under projectsRoot.
// A missing root yields an empty list.
func ListProjects(projectsRoot string) ([]string, error) {
	entries, err := os.ReadDir(projectsRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}
	projects := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") {
			projects = append(projects, entry.Name())
		}
	}
	sort.Strings(projects)
	return projects, nil
}

// ListProjectVideos returns slash-separated, project-relative paths of every
// supported video below the project's ingest directory, sorted.
func ListProjectVideos(projectRoot string) ([]string, error) {
	ingest := filepath.Join(projectRoot, "ingest")
	videos := []string{}
	err := filepath.WalkDir(ingest, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == ingest && os.IsNotExist(err) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !IsSupportedVideo(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(projectRoot, path)
		if err != nil {
			return nil
		}
		videos = append(videos, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(videos)
	return videos, nil
}
