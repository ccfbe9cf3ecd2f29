package domain

import (
	"fmt"
	"strings"
	"time"
)

type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// Terminal reports whether no further transitions can happen.
func (s JobStatus) Terminal() bool {
	return s == JobStatusSucceeded || s == JobStatusFailed
}

func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusQueued, JobStatusRunning, JobStatusSucceeded, JobStatusFailed:
		return true
	default:
		return false
	}
}

// UnknownErrorMessage is shown when a failed job carries no error text.
const UnknownErrorMessage = "unknown error"

// Job is one observed snapshot of a server-side job. Every poll response
// replaces the whole value; nothing here is mutated by the client.
type Job struct {
	ID          string    `json:"id"`
	Status      JobStatus `json:"status"`
	CurrentStep *string   `json:"current_step,omitempty"`
	Percent     int       `json:"percent"`
	JobPath     string    `json:"job_path"`
	Error       *string   `json:"error,omitempty"`
	Client      string    `json:"client,omitempty"`
	Title       string    `json:"title,omitempty"`
	CreatedAt   string    `json:"created_at,omitempty"`
}

// Step returns the current step label, or "" when the server sent none.
func (j Job) Step() string {
	if j.CurrentStep == nil {
		return ""
	}
	return strings.TrimSpace(*j.CurrentStep)
}

// ClampedPercent bounds the reported percent to [0,100].
func (j Job) ClampedPercent() int {
	switch {
	case j.Percent < 0:
		return 0
	case j.Percent > 100:
		return 100
	default:
		return j.Percent
	}
}

// FailureMessage returns the job's error text or UnknownErrorMessage.
func (j Job) FailureMessage() string {
	if j.Error == nil || strings.TrimSpace(*j.Error) == "" {
		return UnknownErrorMessage
	}
	return strings.TrimSpace(*j.Error)
}

// JobCreated is the upload acknowledgement returned by the job API.
type JobCreated struct {
	ID        string    `json:"id"`
	Status    JobStatus `json:"status,omitempty"`
	Client    string    `json:"client,omitempty"`
	Title     string    `json:"title,omitempty"`
	CreatedAt string    `json:"created_at,omitempty"`
}

// JobFailure describes a job that reached the failed state. It is a normal
// terminal outcome and is reported, not returned as an error.
type JobFailure struct {
	JobID   string
	Message string
}

func (f JobFailure) Error() string {
	return fmt.Sprintf("job %s failed: %s", f.JobID, f.Message)
}

// TrackedJob is the local history record of a job this client submitted or
// watched.
type TrackedJob struct {
	ID          string
	FileName    string
	Client      string
	Title       string
	Status      JobStatus
	Percent     int
	JobPath     string
	Error       string
	SubmittedAt time.Time
	UpdatedAt   time.Time
}
