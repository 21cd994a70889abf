package queue

import (
	"time"

	"github.com/cdaprod/captioner/internal/pipeline"
	"github.com/cdaprod/captioner/internal/types"
)

// Job represents a caption generation job
type Job struct {
	ID         string
	Request    pipeline.Request
	Status     string
	Error      error
	Result     *types.CaptionPaths
	CreatedAt  time.Time
	FinishedAt time.Time
}

// NewJob creates a new job with default values
func NewJob(id string, req pipeline.Request) *Job {
	return &Job{
		ID:        id,
		Request:   req,
		Status:    types.StatusQueued,
		CreatedAt: time.Now(),
	}
}

// snapshot copies the job for readers outside the pool. Callers hold the
// pool lock.
func (j *Job) snapshot() types.JobSnapshot {
	snap := types.JobSnapshot{
		ID:           j.ID,
		Project:      j.Request.Project,
		VideoRelPath: j.Request.VideoRelPath,
		Status:       j.Status,
		CreatedAt:    j.CreatedAt,
	}
	if j.Error != nil {
		snap.Error = j.Error.Error()
	}
	if j.Result != nil {
		result := *j.Result
		snap.Result = &result
	}
	if !j.FinishedAt.IsZero() {
		finished := j.FinishedAt
		snap.FinishedAt = &finished
	}
	return snap
}
