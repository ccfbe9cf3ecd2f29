package poller

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/iago/atomize-client/internal/api"
	"github.com/iago/atomize-client/internal/domain"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

var ErrAlreadyRunning = errors.New("poller is already running")

// Source fetches job state from the job API.
type Source interface {
	GetJob(ctx context.Context, jobID string) (domain.Job, error)
	GetResults(ctx context.Context, jobID string) (domain.ResultSet, error)
	DownloadURL(jobID string) string
}

// Snapshot is everything the status display shows for one completed fetch.
// It is handed over in a single call so fields from different fetches never
// mix.
type Snapshot struct {
	Job         domain.Job
	DownloadURL string
	Tick        int
}

type Display interface {
	ShowJob(snapshot Snapshot)
	ShowFailure(job domain.Job, failure domain.JobFailure)
}

type Renderer interface {
	Render(results domain.ResultSet)
}

type Config struct {
	BaseInterval time.Duration
	MaxInterval  time.Duration
	// MinInterval is a floor between two status requests, enforced with a
	// token bucket in addition to the backoff schedule.
	MinInterval time.Duration
	Sleeper     Sleeper
}

// Outcome summarizes one polling run.
type Outcome struct {
	Job        domain.Job
	Ticks      int
	Skipped    int
	Results    *domain.ResultSet
	ResultsErr error
	Failure    *domain.JobFailure
}

// Poller drives one job's status loop at a time.
type Poller struct {
	source   Source
	display  Display
	renderer Renderer
	logger   zerolog.Logger
	config   Config
	running  atomic.Bool
}

func New(source Source, display Display, renderer Renderer, logger zerolog.Logger, config Config) *Poller {
	if config.BaseInterval <= 0 {
		config.BaseInterval = DefaultBaseInterval
	}
	if config.MaxInterval <= 0 {
		config.MaxInterval = DefaultMaxInterval
	}
	if config.Sleeper == nil {
		config.Sleeper = timerSleeper{}
	}
	return &Poller{
		source:   source,
		display:  display,
		renderer: renderer,
		logger:   logger,
		config:   config,
	}
}

// Start polls jobID until it reaches a terminal status or ctx ends. Failed
// fetches are skipped and retried on the normal schedule without limit; the
// status display is best effort and availability wins over strictness.
func (p *Poller) Start(ctx context.Context, jobID string) (Outcome, error) {
	if !p.running.CompareAndSwap(false, true) {
		return Outcome{}, ErrAlreadyRunning
	}
	defer p.running.Store(false)

	logger := p.logger.With().Str("job_id", jobID).Logger()
	backoff := NewBackoff(p.config.BaseInterval, p.config.MaxInterval)
	limiter := rate.NewLimiter(rate.Inf, 1)
	if p.config.MinInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(p.config.MinInterval), 1)
	}

	var outcome Outcome
	for {
		if err := limiter.Wait(ctx); err != nil {
			return outcome, err
		}
		outcome.Ticks++

		job, err := p.source.GetJob(ctx, jobID)
		if err != nil {
			if ctx.Err() != nil {
				return outcome, ctx.Err()
			}
			outcome.Skipped++
			if api.IsStatusError(err) {
				logger.Debug().Err(err).Int("tick", outcome.Ticks).Msg("status tick dropped")
			} else {
				logger.Warn().Err(err).Int("tick", outcome.Ticks).Msg("status tick skipped")
			}
		} else {
			outcome.Job = job
			p.display.ShowJob(Snapshot{
				Job:         job,
				DownloadURL: p.source.DownloadURL(jobID),
				Tick:        outcome.Ticks,
			})

			switch job.Status {
			case domain.JobStatusSucceeded:
				p.finish(ctx, logger, jobID, &outcome)
				return outcome, nil
			case domain.JobStatusFailed:
				failure := domain.JobFailure{JobID: jobID, Message: job.FailureMessage()}
				p.display.ShowFailure(job, failure)
				outcome.Failure = &failure
				logger.Info().Str("error", failure.Message).Msg("job failed")
				return outcome, nil
			}
		}

		delay := backoff.Next()
		logger.Debug().Int64("delay_ms", delay.Milliseconds()).Msg("next status tick scheduled")
		if err := p.config.Sleeper.Sleep(ctx, delay); err != nil {
			return outcome, err
		}
	}
}

func (p *Poller) finish(ctx context.Context, logger zerolog.Logger, jobID string, outcome *Outcome) {
	results, err := p.source.GetResults(ctx, jobID)
	if err != nil {
		outcome.ResultsErr = err
		logger.Error().Err(err).Msg("results fetch failed")
		return
	}
	p.renderer.Render(results)
	outcome.Results = &results
	logger.Info().Int("ticks", outcome.Ticks).Msg("job succeeded")
}

// Running reports whether a loop is active.
func (p *Poller) Running() bool {
	return p.running.Load()
}
