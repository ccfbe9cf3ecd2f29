package events

import (
	"context"
	"errors"
	"sync"

	"github.com/iago/atomize-client/internal/domain"
	"github.com/rs/zerolog"
)

// ErrBusFull is returned when the local buffer has no room. Publishing never
// blocks the caller's job flow.
var ErrBusFull = errors.New("local event bus is full")

type delivery struct {
	event   domain.JobEvent
	attempt int
}

// LocalBus is the in-process event backend used when Redis is not
// configured.
type LocalBus struct {
	ch          chan delivery
	maxAttempts int
	logger      zerolog.Logger

	deadMu sync.Mutex
	dead   []domain.JobEvent
}

func NewLocalBus(bufferSize, maxAttempts int, logger zerolog.Logger) *LocalBus {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &LocalBus{
		ch:          make(chan delivery, bufferSize),
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

func (b *LocalBus) Publish(ctx context.Context, event domain.JobEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case b.ch <- delivery{event: event}:
		return nil
	default:
		return ErrBusFull
	}
}

// Subscribe runs handler for each event. Failed deliveries are retried in
// place and moved to the dead letter list after maxAttempts.
func (b *LocalBus) Subscribe(ctx context.Context, handler func(context.Context, domain.JobEvent) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case item := <-b.ch:
			for {
				err := handler(ctx, item.event)
				if err == nil {
					break
				}
				item.attempt++
				if item.attempt >= b.maxAttempts || ctx.Err() != nil {
					b.deadMu.Lock()
					b.dead = append(b.dead, item.event)
					b.deadMu.Unlock()
					b.logger.Warn().
						Str("event_id", item.event.EventID).
						Str("job_id", item.event.JobID).
						Err(err).
						Msg("event moved to dead letters")
					break
				}
			}
		}
	}
}

// Drain delivers buffered events without waiting for new ones.
func (b *LocalBus) Drain(ctx context.Context, handler func(context.Context, domain.JobEvent) error) int {
	delivered := 0
	for {
		select {
		case item := <-b.ch:
			if err := handler(ctx, item.event); err != nil {
				b.deadMu.Lock()
				b.dead = append(b.dead, item.event)
				b.deadMu.Unlock()
				continue
			}
			delivered++
		default:
			return delivered
		}
	}
}

func (b *LocalBus) Pending() int {
	return len(b.ch)
}

func (b *LocalBus) DeadLetters() []domain.JobEvent {
	b.deadMu.Lock()
	defer b.deadMu.Unlock()
	return append([]domain.JobEvent(nil), b.dead...)
}
