package upload

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/iago/atomize-client/internal/api"
	"github.com/iago/atomize-client/internal/domain"
	"github.com/rs/zerolog"
)

var (
	// ErrCanceled reports a user cancellation. It is not a failure and must
	// not be routed to an error display.
	ErrCanceled = errors.New("upload canceled")

	ErrUnsupportedFile = errors.New("unsupported file type")
	ErrTooLarge        = errors.New("upload too large")
	ErrNoFile          = errors.New("upload requires a file")
)

// Transport creates a job from a multipart form.
type Transport interface {
	CreateJob(ctx context.Context, form api.Form, onProgress api.ProgressFunc) (domain.JobCreated, error)
}

// Listener observes the controller's UI-facing state. Calls for one session
// are serialized; exactly one of OnSucceeded, OnFailed or OnCanceled is called
// per submission.
type Listener interface {
	OnBusy(session *Session)
	OnProgress(session *Session, percent int)
	OnSucceeded(session *Session, created domain.JobCreated)
	OnFailed(session *Session, err error)
	OnCanceled(session *Session)
}

type Config struct {
	MaxBytes int64
}

// Controller owns the current upload session slot.
type Controller struct {
	transport Transport
	listener  Listener
	logger    zerolog.Logger
	maxBytes  int64

	mu      sync.Mutex
	current *Session
	nextSeq uint64
}

func NewController(transport Transport, listener Listener, logger zerolog.Logger, config Config) *Controller {
	if listener == nil {
		listener = NopListener{}
	}
	return &Controller{
		transport: transport,
		listener:  listener,
		logger:    logger,
		maxBytes:  config.MaxBytes,
	}
}

// Result is the successful outcome of a submission.
type Result struct {
	JobID   string
	Created domain.JobCreated
}

// Submit starts a new session and blocks until it settles. A previous session
// is replaced in the slot but not aborted; it keeps running to its own outcome
// and can no longer be reached through Cancel.
func (c *Controller) Submit(ctx context.Context, form api.Form) (Result, error) {
	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	c.nextSeq++
	session := newSession(c.nextSeq, cancel, c.listener)
	c.current = session
	c.mu.Unlock()

	session.begin()
	c.logger.Info().Uint64("session", session.seq).Msg("upload started")

	if err := c.validate(form); err != nil {
		session.settle(outcomeFailed, domain.JobCreated{}, err)
		c.logger.Warn().Uint64("session", session.seq).Err(err).Msg("upload rejected locally")
		return Result{}, err
	}

	created, err := c.transport.CreateJob(sessionCtx, form, session.reportProgress)
	switch {
	case err == nil:
		if session.settle(outcomeSucceeded, created, nil) {
			c.logger.Info().Uint64("session", session.seq).Str("job_id", created.ID).Msg("upload succeeded")
			return Result{JobID: created.ID, Created: created}, nil
		}
	default:
		if session.canceledByUser() {
			break
		}
		if session.settle(outcomeFailed, domain.JobCreated{}, err) {
			c.logger.Warn().Uint64("session", session.seq).Err(err).Msg("upload failed")
			return Result{}, err
		}
	}

	// Cancel won the race against the transport outcome.
	c.logger.Info().Uint64("session", session.seq).Msg("upload canceled")
	return Result{}, ErrCanceled
}

// Cancel aborts the current session if it has not settled yet. It reports
// whether a cancellation actually happened.
func (c *Controller) Cancel() bool {
	c.mu.Lock()
	session := c.current
	c.mu.Unlock()

	if session == nil {
		return false
	}
	return session.abort()
}

// Current returns the session occupying the slot, or nil.
func (c *Controller) Current() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// State returns the state of the current session, or StateIdle.
func (c *Controller) State() State {
	session := c.Current()
	if session == nil {
		return StateIdle
	}
	return session.State()
}

func (c *Controller) validate(form api.Form) error {
	if len(form.Files) == 0 {
		return ErrNoFile
	}
	for _, file := range form.Files {
		if !domain.AllowedUpload(file.FileName) {
			return fmt.Errorf("%w: %s", ErrUnsupportedFile, file.FileName)
		}
	}
	if c.maxBytes > 0 {
		if total := form.TotalFileBytes(); total > c.maxBytes {
			return fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, total, c.maxBytes)
		}
	}
	return nil
}

// Percent converts transport progress into a display percent. ok is false
// when the total is not computable.
func Percent(loaded, total int64) (int, bool) {
	if total <= 0 {
		return 0, false
	}
	value := int(math.Round(float64(loaded) / float64(total) * 100))
	if value < 0 {
		value = 0
	}
	if value > 100 {
		value = 100
	}
	return value, true
}

// NopListener ignores every notification.
type NopListener struct{}

func (NopListener) OnBusy(*Session)                         {}
func (NopListener) OnProgress(*Session, int)                {}
func (NopListener) OnSucceeded(*Session, domain.JobCreated) {}
func (NopListener) OnFailed(*Session, error)                {}
func (NopListener) OnCanceled(*Session)                     {}
