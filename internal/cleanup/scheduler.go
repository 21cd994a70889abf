package cleanup

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cdaprod/captioner/internal/storage"
)

// Scheduler prunes extracted scratch audio from every project's
// _manifest/tmp directory.
type Scheduler struct {
	projectsRoot string
	interval     time.Duration
	maxAge       time.Duration
	logger       *zap.Logger
	now          func() time.Time

	stopOnce sync.Once
	stopChan chan struct{}
	done     chan struct{}
}

// NewScheduler creates a new cleanup scheduler. An interval of zero or less
// disables it.
func NewScheduler(projectsRoot string, interval, maxAge time.Duration, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		projectsRoot: projectsRoot,
		interval:     interval,
		maxAge:       maxAge,
		logger:       logger.With(zap.String("component", "cleanup")),
		now:          time.Now,
		stopChan:     make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// Enabled reports whether Start will schedule anything.
func (s *Scheduler) Enabled() bool {
	return s.interval > 0
}

// Start runs one sweep immediately, then one per interval until Stop.
func (s *Scheduler) Start() {
	if !s.Enabled() {
		close(s.done)
		s.logger.Info("scratch cleanup disabled")
		return
	}

	s.Sweep()
	ticker := time.NewTicker(s.interval)
	go func() {
		defer close(s.done)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Sweep()
			case <-s.stopChan:
				return
			}
		}
	}()

	s.logger.Info("scratch cleanup started",
		zap.Duration("interval", s.interval),
		zap.Duration("max_age", s.maxAge),
	)
}

// Stop stops the cleanup scheduler
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		<-s.done
		s.logger.Info("scratch cleanup stopped")
	})
}

// Sweep deletes scratch WAV files older than maxAge and returns how many were
// removed.
func (s *Scheduler) Sweep() int {
	projects, err := storage.ListProjects(s.projectsRoot)
	if err != nil {
		s.logger.Warn("listing projects for cleanup failed", zap.Error(err))
		return 0
	}

	now := s.now()
	var deletedCount int
	var deletedSize int64
	for _, project := range projects {
		dir := filepath.Join(s.projectsRoot, project, filepath.FromSlash(storage.ScratchDir))
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".wav") {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			age := now.Sub(info.ModTime())
			if age <= s.maxAge {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			if err := os.Remove(path); err != nil {
				s.logger.Warn("failed to delete scratch audio", zap.String("path", path), zap.Error(err))
				continue
			}
			deletedCount++
			deletedSize += info.Size()
			s.logger.Debug("deleted scratch audio",
				zap.String("project", project),
				zap.String("file", entry.Name()),
				zap.Duration("age", age.Round(time.Minute)),
			)
		}
	}

	if deletedCount > 0 {
		s.logger.Info("cleanup complete",
			zap.Int("files", deletedCount),
			zap.Float64("freed_mb", float64(deletedSize)/(1024*1024)),
		)
	}
	return deletedCount
}
