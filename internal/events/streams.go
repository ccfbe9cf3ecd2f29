package events

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/iago/atomize-client/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type StreamsConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
	Group    string
	Consumer string
	MaxLen   int64
}

// StreamsBus publishes and reads job events on a Redis Stream.
type StreamsBus struct {
	client   *redis.Client
	stream   string
	group    string
	consumer string
	maxLen   int64
	logger   zerolog.Logger
}

func NewStreamsBus(ctx context.Context, cfg StreamsConfig, logger zerolog.Logger) (*StreamsBus, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}
	if cfg.Stream == "" {
		cfg.Stream = "atomize_job_events"
	}
	if cfg.Group == "" {
		cfg.Group = "atomize_watchers"
	}
	if cfg.Consumer == "" {
		cfg.Consumer = "cli-1"
	}
	if cfg.MaxLen <= 0 {
		cfg.MaxLen = 10000
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &StreamsBus{
		client:   client,
		stream:   cfg.Stream,
		group:    cfg.Group,
		consumer: cfg.Consumer,
		maxLen:   cfg.MaxLen,
		logger:   logger,
	}, nil
}

func (b *StreamsBus) Close() error {
	return b.client.Close()
}

func (b *StreamsBus) Publish(ctx context.Context, event domain.JobEvent) error {
	_, err := b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: b.stream,
		MaxLen: b.maxLen,
		Approx: true,
		Values: encodeEvent(event),
	}).Result()
	if err != nil {
		return fmt.Errorf("publish to stream: %w", err)
	}
	return nil
}

// Subscribe reads the stream through a consumer group. Entries are
// acknowledged after the handler runs; a handler error is logged and the
// entry is still acknowledged.
func (b *StreamsBus) Subscribe(ctx context.Context, handler func(context.Context, domain.JobEvent) error) error {
	if err := b.ensureGroup(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		streams, err := b.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    b.group,
			Consumer: b.consumer,
			Streams:  []string{b.stream, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return fmt.Errorf("xreadgroup: %w", err)
		}

		for _, stream := range streams {
			for _, item := range stream.Messages {
				event, parseErr := decodeEvent(item.Values)
				if parseErr != nil {
					b.logger.Warn().Str("stream_id", item.ID).Err(parseErr).Msg("skipping malformed event")
				} else if handleErr := handler(ctx, event); handleErr != nil {
					b.logger.Warn().Str("stream_id", item.ID).Str("job_id", event.JobID).Err(handleErr).Msg("event handler failed")
				}
				if err := b.client.XAck(ctx, b.stream, b.group, item.ID).Err(); err != nil {
					return fmt.Errorf("xack: %w", err)
				}
			}
		}
	}
}

func (b *StreamsBus) ensureGroup(ctx context.Context) error {
	err := b.client.XGroupCreateMkStream(ctx, b.stream, b.group, "$").Err()
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "BUSYGROUP") {
		return nil
	}
	return fmt.Errorf("ensure stream group: %w", err)
}

func encodeEvent(event domain.JobEvent) map[string]any {
	return map[string]any{
		"event_id":    event.EventID,
		"kind":        string(event.Kind),
		"job_id":      event.JobID,
		"status":      string(event.Status),
		"percent":     event.Percent,
		"step":        event.Step,
		"message":     event.Message,
		"occurred_at": event.OccurredAt.UTC().Format(time.RFC3339Nano),
	}
}

func decodeEvent(values map[string]any) (domain.JobEvent, error) {
	getString := func(key string, required bool) (string, error) {
		value, ok := values[key]
		if !ok {
			if required {
				return "", fmt.Errorf("missing field %s", key)
			}
			return "", nil
		}
		switch casted := value.(type) {
		case string:
			return casted, nil
		case []byte:
			return string(casted), nil
		default:
			return fmt.Sprintf("%v", casted), nil
		}
	}

	eventID, err := getString("event_id", true)
	if err != nil {
		return domain.JobEvent{}, err
	}
	kind, err := getString("kind", true)
	if err != nil {
		return domain.JobEvent{}, err
	}
	occurredAtString, err := getString("occurred_at", true)
	if err != nil {
		return domain.JobEvent{}, err
	}
	occurredAt, err := time.Parse(time.RFC3339Nano, occurredAtString)
	if err != nil {
		return domain.JobEvent{}, fmt.Errorf("invalid occurred_at: %w", err)
	}

	percent := 0
	if percentString, _ := getString("percent", false); percentString != "" {
		percent, err = strconv.Atoi(percentString)
		if err != nil {
			return domain.JobEvent{}, fmt.Errorf("invalid percent: %w", err)
		}
	}

	jobID, _ := getString("job_id", false)
	status, _ := getString("status", false)
	step, _ := getString("step", false)
	message, _ := getString("message", false)

	return domain.JobEvent{
		EventID:    eventID,
		Kind:       domain.JobEventKind(kind),
		JobID:      jobID,
		Status:     domain.JobStatus(status),
		Percent:    percent,
		Step:       step,
		Message:    message,
		OccurredAt: occurredAt,
	}, nil
}
