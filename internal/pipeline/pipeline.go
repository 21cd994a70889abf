// Package pipeline turns a project video into its caption artifact set.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cdaprod/captioner/internal/apperr"
	"github.com/cdaprod/captioner/internal/captions"
	"github.com/cdaprod/captioner/internal/contenthash"
	"github.com/cdaprod/captioner/internal/notify"
	"github.com/cdaprod/captioner/internal/storage"
	"github.com/cdaprod/captioner/internal/transcription"
	"github.com/cdaprod/captioner/internal/types"
)

// Extractor writes a mono 16 kHz WAV for a video.
type Extractor interface {
	Extract(ctx context.Context, videoPath, audioPath string) error
}

// Models hands out a transcription engine per model size.
type Models interface {
	Get(modelSize string) (transcription.Engine, error)
}

// Config carries the collaborators and defaults of a Service.
type Config struct {
	ProjectsRoot string
	Extractor    Extractor
	Models       Models
	Notifier     notify.Notifier
	Logger       *zap.Logger
	DefaultModel string
	MaxChars     int
}

// Request names the video to caption. Zero ModelSize and MaxChars fall back
// to the service defaults.
type Request struct {
	Project      string `json:"project"`
	VideoRelPath string `json:"video_rel_path"`
	ModelSize    string `json:"model_size,omitempty"`
	MaxChars     int    `json:"max_chars,omitempty"`
}

// Service runs generate and lookup requests. It holds no per-request state and
// is safe for concurrent use.
type Service struct {
	projectsRoot string
	extractor    Extractor
	models       Models
	notifier     notify.Notifier
	logger       *zap.Logger
	defaultModel string
	maxChars     int
}

// New builds a Service from cfg.
func New(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = notify.NewMediaSync("", 0, nil)
	}
	model := strings.TrimSpace(cfg.DefaultModel)
	if model == "" {
		model = "small"
	}
	maxChars := cfg.MaxChars
	if maxChars <= 0 {
		maxChars = captions.DefaultMaxChars
	}
	return &Service{
		projectsRoot: cfg.ProjectsRoot,
		extractor:    cfg.Extractor,
		models:       cfg.Models,
		notifier:     notifier,
		logger:       logger.With(zap.String("component", "pipeline")),
		defaultModel: model,
		maxChars:     maxChars,
	}
}

// ProjectsRoot returns the directory holding every project.
func (s *Service) ProjectsRoot() string {
	return s.projectsRoot
}

type resolvedRequest struct {
	projectRoot string
	rel         string
	videoPath   string
	maxChars    int
}

// Validate checks req the way Generate would before any work starts, so
// callers that defer the work can reject bad input up front.
func (s *Service) Validate(req Request) error {
	_, err := s.resolve(req)
	return err
}

func (s *Service) resolve(req Request) (resolvedRequest, error) {
	maxChars := req.MaxChars
	if maxChars == 0 {
		maxChars = s.maxChars
	}
	if maxChars < 1 {
		return resolvedRequest{}, apperr.Validation("max_chars must be at least 1")
	}
	projectRoot, err := storage.ResolveProjectRoot(s.projectsRoot, req.Project)
	if err != nil {
		return resolvedRequest{}, err
	}
	rel, videoPath, err := storage.ResolveVideo(projectRoot, req.VideoRelPath)
	if err != nil {
		return resolvedRequest{}, err
	}
	return resolvedRequest{projectRoot: projectRoot, rel: rel, videoPath: videoPath, maxChars: maxChars}, nil
}

// Generate hashes, extracts, transcribes and writes the artifact set for one
// video. Nothing is written unless transcription produced words. The work is
// not cancelled when ctx is; a dropped client does not abort a running job.
func (s *Service) Generate(ctx context.Context, req Request) (types.CaptionPaths, error) {
	ctx = context.WithoutCancel(ctx)
	started := time.Now()

	target, err := s.resolve(req)
	if err != nil {
		return types.CaptionPaths{}, err
	}
	projectRoot, rel, videoPath, maxChars := target.projectRoot, target.rel, target.videoPath, target.maxChars
	modelSize := strings.TrimSpace(req.ModelSize)
	if modelSize == "" {
		modelSize = s.defaultModel
	}
	log := s.logger.With(zap.String("project", req.Project), zap.String("video", rel))

	sha, err := contenthash.File(videoPath)
	if err != nil {
		return types.CaptionPaths{}, fmt.Errorf("hash video: %w", err)
	}
	log.Debug("hash computed", zap.String("sha256", sha))

	scratchRel, err := storage.ScratchAudioPath(rel, sha)
	if err != nil {
		return types.CaptionPaths{}, err
	}
	audioPath := filepath.Join(projectRoot, filepath.FromSlash(scratchRel))
	if err := s.extractor.Extract(ctx, videoPath, audioPath); err != nil {
		log.Warn("audio extraction failed", zap.Error(err))
		return types.CaptionPaths{}, err
	}

	engine, err := s.models.Get(modelSize)
	if err != nil {
		return types.CaptionPaths{}, apperr.Wrap(apperr.ErrUpstream, "load model", "failed to load model "+modelSize, err)
	}
	words, err := engine.Transcribe(ctx, audioPath)
	if err != nil {
		return types.CaptionPaths{}, apperr.Wrap(apperr.ErrUpstream, "transcribe", "transcription failed", err)
	}
	if len(words) == 0 {
		return types.CaptionPaths{}, apperr.Validation("no words produced")
	}

	lines := captions.BuildLines(words, maxChars)
	paths, err := storage.NamesFor(rel, sha)
	if err != nil {
		return types.CaptionPaths{}, err
	}
	if err := storage.NewLocalStorage(projectRoot).SaveArtifacts(paths, words, lines); err != nil {
		return types.CaptionPaths{}, fmt.Errorf("write artifacts: %w", err)
	}

	s.notifier.CaptionsReady(ctx, req.Project, notify.ImportPayload{
		SHA256:     sha,
		SRTRelPath: paths.SRTRelPath,
	})

	log.Info("captions generated",
		zap.String("srt", paths.SRTRelPath),
		zap.Int("words", len(words)),
		zap.Int("lines", len(lines)),
		zap.String("model", modelSize),
		zap.Duration("elapsed", time.Since(started)),
	)
	return paths, nil
}

// Lookup rehashes the video and reports its artifact set when all three
// files exist.
func (s *Service) Lookup(ctx context.Context, project, videoRelPath string) (types.CaptionPaths, error) {
	projectRoot, err := storage.ResolveProjectRoot(s.projectsRoot, project)
	if err != nil {
		return types.CaptionPaths{}, err
	}
	rel, videoPath, err := storage.ResolveVideo(projectRoot, videoRelPath)
	if err != nil {
		return types.CaptionPaths{}, err
	}
	if err := ctx.Err(); err != nil {
		return types.CaptionPaths{}, err
	}
	sha, err := contenthash.File(videoPath)
	if err != nil {
		return types.CaptionPaths{}, fmt.Errorf("hash video: %w", err)
	}
	paths, ok, err := storage.NewLocalStorage(projectRoot).FindArtifacts(rel, sha)
	if err != nil {
		return types.CaptionPaths{}, err
	}
	if !ok {
		return types.CaptionPaths{}, apperr.NotFound("captions not found")
	}
	return paths, nil
}
