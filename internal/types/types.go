package types

import "time"

// Job status constants
const (
	StatusQueued     = "QUEUED"
	StatusProcessing = "PROCESSING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
)

// Word is the smallest timed unit produced by the transcription engine.
// Start and End are seconds from the beginning of the media.
type Word struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Line is a display-ready caption built from one or more words
type Line struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Cue is a decoded subtitle entry with integer millisecond timing.
// Text may contain embedded newlines.
type Cue struct {
	StartMs int64  `json:"startMs"`
	EndMs   int64  `json:"endMs"`
	Text    string `json:"text"`
}

// CaptionPaths identifies the artifact set generated for one video.
// All paths are slash-separated and relative to the project root.
type CaptionPaths struct {
	SHA256       string `json:"sha256"`
	VideoRelPath string `json:"video_rel_path"`
	WordsRelPath string `json:"words_rel_path"`
	LinesRelPath string `json:"lines_rel_path"`
	SRTRelPath   string `json:"srt_rel_path"`
}

// JobSnapshot is a point-in-time view of a generate job
type JobSnapshot struct {
	ID           string        `json:"job_id"`
	Project      string        `json:"project"`
	VideoRelPath string        `json:"video_rel_path"`
	Status       string        `json:"status"`
	Error        string        `json:"error,omitempty"`
	Result       *CaptionPaths `json:"result,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	FinishedAt   *time.Time    `json:"finished_at,omitempty"`
}
