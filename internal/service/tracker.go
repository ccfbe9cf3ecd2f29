package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/iago/atomize-client/internal/api"
	"github.com/iago/atomize-client/internal/domain"
	"github.com/iago/atomize-client/internal/events"
	"github.com/iago/atomize-client/internal/poller"
	"github.com/iago/atomize-client/internal/repository"
	"github.com/iago/atomize-client/internal/upload"
	"github.com/rs/zerolog"
)

// JobAPI is the subset of the job API client the tracker drives.
type JobAPI interface {
	upload.Transport
	poller.Source
}

type TrackerConfig struct {
	Poll           poller.Config
	MaxUploadBytes int64
	UploadListener upload.Listener
}

// Tracker runs the job lifecycle: upload, poll until terminal, render. Every
// observed state is recorded in the history repository and published as a
// lifecycle event.
type Tracker struct {
	repo      repository.JobsRepository
	publisher events.Publisher
	logger    zerolog.Logger

	uploads *upload.Controller
	poller  *poller.Poller
}

func NewTracker(
	client JobAPI,
	repo repository.JobsRepository,
	publisher events.Publisher,
	display poller.Display,
	renderer poller.Renderer,
	logger zerolog.Logger,
	config TrackerConfig,
) *Tracker {
	if publisher == nil {
		publisher = events.Discard{}
	}
	board := &statusBoard{
		display:   display,
		repo:      repo,
		publisher: publisher,
		logger:    logger,
	}
	return &Tracker{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		uploads: upload.NewController(client, config.UploadListener, logger, upload.Config{
			MaxBytes: config.MaxUploadBytes,
		}),
		poller: poller.New(client, board, renderer, logger, config.Poll),
	}
}

// Submit uploads the file at path and records the created job.
func (t *Tracker) Submit(ctx context.Context, path string, options domain.JobOptions) (upload.Result, error) {
	form, err := api.NewJobForm(path, options)
	if err != nil {
		return upload.Result{}, err
	}

	result, err := t.uploads.Submit(ctx, form)
	if err != nil {
		kind := domain.JobEventUploadFailed
		if errors.Is(err, upload.ErrCanceled) {
			kind = domain.JobEventUploadCanceled
		}
		event := events.NewEvent(kind, "")
		event.Message = err.Error()
		t.publish(ctx, event)
		return upload.Result{}, err
	}

	now := time.Now().UTC()
	status := result.Created.Status
	if !status.Valid() {
		status = domain.JobStatusQueued
	}
	tracked := &domain.TrackedJob{
		ID:          result.JobID,
		FileName:    filepath.Base(path),
		Client:      firstNonEmpty(result.Created.Client, options.Client),
		Title:       firstNonEmpty(result.Created.Title, options.Title),
		Status:      status,
		SubmittedAt: now,
		UpdatedAt:   now,
	}
	if err := t.repo.SaveJob(ctx, tracked); err != nil {
		t.logger.Warn().Str("job_id", result.JobID).Err(err).Msg("history save failed")
	}

	event := events.NewEvent(domain.JobEventSubmitted, result.JobID)
	event.Status = status
	t.publish(ctx, event)
	return result, nil
}

// Cancel aborts the upload in flight, if any.
func (t *Tracker) Cancel() bool {
	return t.uploads.Cancel()
}

func (t *Tracker) UploadState() upload.State {
	return t.uploads.State()
}

// Watch polls jobID until it reaches a terminal status.
func (t *Tracker) Watch(ctx context.Context, jobID string) (poller.Outcome, error) {
	outcome, err := t.poller.Start(ctx, jobID)
	if err != nil {
		return outcome, fmt.Errorf("watch job %s: %w", jobID, err)
	}
	return outcome, nil
}

// Run submits the file and watches the created job.
func (t *Tracker) Run(ctx context.Context, path string, options domain.JobOptions) (poller.Outcome, error) {
	result, err := t.Submit(ctx, path, options)
	if err != nil {
		return poller.Outcome{}, err
	}
	return t.Watch(ctx, result.JobID)
}

func (t *Tracker) History(ctx context.Context, filter repository.HistoryFilter) ([]domain.TrackedJob, int, error) {
	return t.repo.ListJobs(ctx, filter)
}

func (t *Tracker) publish(ctx context.Context, event domain.JobEvent) {
	if err := t.publisher.Publish(ctx, event); err != nil {
		t.logger.Warn().Str("job_id", event.JobID).Str("kind", string(event.Kind)).Err(err).Msg("event publish failed")
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
