// Package job runs report generation asynchronously: submitted
// configurations are rendered by a bounded worker pool while callers
// poll job status. Finished jobs and their files are swept after a
// retention period.
package job

import "time"

// Status is the lifecycle state of a report job. Transitions only move
// forward: pending -> processing -> completed or failed.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// statusRank orders statuses so a stale update can never move a job
// backwards.
func statusRank(s Status) int {
	switch s {
	case StatusPending:
		return 0
	case StatusProcessing:
		return 1
	case StatusCompleted, StatusFailed:
		return 2
	default:
		return -1
	}
}

// terminal reports whether the status admits no further transitions.
func (s Status) terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is the tracked state of one report generation request. Filename
// is the caller-facing display name; the file on disk is keyed by the
// job id so concurrent jobs can never collide.
type Job struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id,omitempty"`
	Filename    string     `json:"filename"`
	Status      Status     `json:"status"`
	Progress    int        `json:"progress"`
	Message     string     `json:"message,omitempty"`
	Error       string     `json:"error,omitempty"`
	OutputPath  string     `json:"output_path,omitempty"`
	Warnings    []string   `json:"warnings,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// clone returns an independent copy so callers can never mutate the
// tracked state.
func (j *Job) clone() *Job {
	out := *j
	if j.Warnings != nil {
		out.Warnings = append([]string(nil), j.Warnings...)
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		out.CompletedAt = &t
	}
	return &out
}
