package service

import (
	"context"
	"errors"
	"time"

	"github.com/iago/atomize-client/internal/domain"
	"github.com/iago/atomize-client/internal/events"
	"github.com/iago/atomize-client/internal/poller"
	"github.com/iago/atomize-client/internal/repository"
	"github.com/rs/zerolog"
)

const recordTimeout = 5 * time.Second

// statusBoard sits between the poller and the user-facing display. It
// forwards every snapshot unchanged and records it as history and events.
type statusBoard struct {
	display   poller.Display
	repo      repository.JobsRepository
	publisher events.Publisher
	logger    zerolog.Logger

	last domain.Job
}

func (b *statusBoard) ShowJob(snapshot poller.Snapshot) {
	if b.display != nil {
		b.display.ShowJob(snapshot)
	}

	job := snapshot.Job
	if snapshot.Tick == 1 || job.ID != b.last.ID {
		b.last = domain.Job{}
	}
	changed := b.last.Status == "" || job.Status != b.last.Status || job.Percent != b.last.Percent || job.Step() != b.last.Step()
	b.last = job
	// A failed snapshot is recorded once, by ShowFailure.
	if !changed || job.Status == domain.JobStatusFailed {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	b.record(ctx, job, "")

	kind := domain.JobEventStatus
	if job.Status == domain.JobStatusSucceeded {
		kind = domain.JobEventSucceeded
	}
	event := events.NewEvent(kind, job.ID)
	event.Status = job.Status
	event.Percent = job.ClampedPercent()
	event.Step = job.Step()
	b.publish(ctx, event)
}

func (b *statusBoard) ShowFailure(job domain.Job, failure domain.JobFailure) {
	if b.display != nil {
		b.display.ShowFailure(job, failure)
	}

	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	b.record(ctx, job, failure.Message)

	event := events.NewEvent(domain.JobEventFailed, failure.JobID)
	event.Status = domain.JobStatusFailed
	event.Message = failure.Message
	b.publish(ctx, event)
}

func (b *statusBoard) record(ctx context.Context, job domain.Job, failure string) {
	if b.repo == nil {
		return
	}

	tracked, err := b.repo.GetJob(ctx, job.ID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			b.logger.Warn().Str("job_id", job.ID).Err(err).Msg("history lookup failed")
			return
		}
		tracked = &domain.TrackedJob{ID: job.ID}
	}

	tracked.Status = job.Status
	tracked.Percent = job.ClampedPercent()
	tracked.JobPath = job.JobPath
	tracked.Error = failure
	if job.Client != "" {
		tracked.Client = job.Client
	}
	if job.Title != "" {
		tracked.Title = job.Title
	}
	tracked.UpdatedAt = time.Now().UTC()
	if tracked.SubmittedAt.IsZero() {
		tracked.SubmittedAt = tracked.UpdatedAt
	}

	if err := b.repo.SaveJob(ctx, tracked); err != nil {
		b.logger.Warn().Str("job_id", job.ID).Err(err).Msg("history save failed")
	}
}

func (b *statusBoard) publish(ctx context.Context, event domain.JobEvent) {
	if err := b.publisher.Publish(ctx, event); err != nil {
		b.logger.Warn().Str("job_id", event.JobID).Str("kind", string(event.Kind)).Err(err).Msg("event publish failed")
	}
}
