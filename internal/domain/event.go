package domain

import "time"

type JobEventKind string

const (
	JobEventSubmitted      JobEventKind = "submitted"
	JobEventStatus         JobEventKind = "status"
	JobEventSucceeded      JobEventKind = "succeeded"
	JobEventFailed         JobEventKind = "failed"
	JobEventUploadFailed   JobEventKind = "upload_failed"
	JobEventUploadCanceled JobEventKind = "upload_canceled"
)

// JobEvent is the transport format sent to event backends.
type JobEvent struct {
	EventID    string       `json:"event_id"`
	Kind       JobEventKind `json:"kind"`
	JobID      string       `json:"job_id,omitempty"`
	Status     JobStatus    `json:"status,omitempty"`
	Percent    int          `json:"percent"`
	Step       string       `json:"step,omitempty"`
	Message    string       `json:"message,omitempty"`
	OccurredAt time.Time    `json:"occurred_at"`
}
