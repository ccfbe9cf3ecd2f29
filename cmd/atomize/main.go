package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/iago/atomize-client/internal/api"
	"github.com/iago/atomize-client/internal/config"
	"github.com/iago/atomize-client/internal/domain"
	"github.com/iago/atomize-client/internal/events"
	"github.com/iago/atomize-client/internal/logging"
	"github.com/iago/atomize-client/internal/repository"
	"github.com/rs/zerolog"
)

const usage = `usage: atomize <command> [flags] [args]

commands:
  submit   upload a file, then follow the job until it finishes
  watch    follow an existing job
  results  print the results of a finished job
  logs     print the tail of a job's log
  download save a job's delivery archive
  history  list jobs tracked by this client (needs DATABASE_URL to persist)
  health   check the job API
  events   tail lifecycle events from Redis
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	if err := config.LoadDotEnv(".env", ".env.local"); err != nil {
		fmt.Fprintf(stderr, "failed loading .env files: %v\n", err)
	}
	cfg := config.Load()
	logger := logging.New(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := &app{cfg: cfg, logger: logger, stdout: stdout, stderr: stderr}

	var err error
	switch args[0] {
	case "submit":
		err = app.submit(ctx, args[1:])
	case "watch":
		err = app.watch(ctx, args[1:])
	case "results":
		err = app.results(ctx, args[1:])
	case "logs":
		err = app.logs(ctx, args[1:])
	case "download":
		err = app.download(ctx, args[1:])
	case "history":
		err = app.history(ctx, args[1:])
	case "health":
		err = app.health(ctx)
	case "events":
		err = app.tailEvents(ctx)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}

	if err != nil {
		fmt.Fprintf(stderr, "atomize %s: %v\n", args[0], err)
		return 1
	}
	return 0
}

type app struct {
	cfg    config.Config
	logger zerolog.Logger
	stdout io.Writer
	stderr io.Writer
}

func (a *app) client() (*api.Client, error) {
	return api.NewClient(api.ClientConfig{
		BaseURL: a.cfg.BaseURL,
		Token:   a.cfg.APIToken,
		Timeout: a.cfg.RequestTimeout,
		Logger:  a.logger,
	})
}

func setupRepository(
	ctx context.Context,
	cfg config.Config,
	logger zerolog.Logger,
) (repository.JobsRepository, func()) {
	if cfg.DatabaseURL == "" {
		logger.Debug().Msg("DATABASE_URL not configured, using in-memory history")
		return repository.NewMemoryJobsRepository(), func() {}
	}

	pgRepo, err := repository.NewPostgresJobsRepository(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to initialize postgres history, fallback to memory")
		return repository.NewMemoryJobsRepository(), func() {}
	}
	if err := pgRepo.EnsureSchema(ctx); err != nil {
		logger.Warn().Err(err).Msg("failed to prepare postgres history, fallback to memory")
		pgRepo.Close()
		return repository.NewMemoryJobsRepository(), func() {}
	}
	logger.Debug().Msg("postgres history initialized")
	return pgRepo, pgRepo.Close
}

// setupEvents picks the Redis Streams backend when configured and the local
// bus otherwise. The local bus is drained by a logging sink.
func setupEvents(
	ctx context.Context,
	cfg config.Config,
	logger zerolog.Logger,
) (events.Publisher, func()) {
	if cfg.RedisAddr != "" {
		streams, err := events.NewStreamsBus(ctx, streamsConfig(cfg), logger)
		if err == nil {
			logger.Debug().Str("stream", cfg.RedisStream).Msg("redis streams events initialized")
			return streams, func() { _ = streams.Close() }
		}
		logger.Warn().Err(err).Msg("failed to initialize redis streams events, fallback to local")
	}

	local := events.NewLocalBus(256, 1, logger)
	sinkCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = local.Subscribe(sinkCtx, logEvent(logger))
	}()
	return local, func() {
		cancel()
		<-done
		local.Drain(context.Background(), logEvent(logger))
	}
}

func streamsConfig(cfg config.Config) events.StreamsConfig {
	return events.StreamsConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Stream:   cfg.RedisStream,
		Group:    cfg.RedisGroup,
		Consumer: cfg.RedisConsumer,
	}
}

func logEvent(logger zerolog.Logger) func(context.Context, domain.JobEvent) error {
	return func(_ context.Context, event domain.JobEvent) error {
		logger.Debug().
			Str("event_id", event.EventID).
			Str("kind", string(event.Kind)).
			Str("job_id", event.JobID).
			Str("status", string(event.Status)).
			Int("percent", event.Percent).
			Msg("job event")
		return nil
	}
}
