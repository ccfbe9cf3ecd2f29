package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/iago/atomize-client/internal/domain"
)

// Publisher sends job lifecycle events to an event backend.
type Publisher interface {
	Publish(ctx context.Context, event domain.JobEvent) error
}

// Subscriber delivers published events to a handler until ctx ends.
type Subscriber interface {
	Subscribe(ctx context.Context, handler func(context.Context, domain.JobEvent) error) error
}

// NewEvent stamps a fresh event id and timestamp.
func NewEvent(kind domain.JobEventKind, jobID string) domain.JobEvent {
	return domain.JobEvent{
		EventID:    uuid.NewString(),
		Kind:       kind,
		JobID:      jobID,
		OccurredAt: time.Now().UTC(),
	}
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, domain.JobEvent) error { return nil }
