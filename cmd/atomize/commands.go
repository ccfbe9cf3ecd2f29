package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/iago/atomize-client/internal/domain"
	"github.com/iago/atomize-client/internal/events"
	"github.com/iago/atomize-client/internal/export"
	"github.com/iago/atomize-client/internal/poller"
	"github.com/iago/atomize-client/internal/render"
	"github.com/iago/atomize-client/internal/repository"
	"github.com/iago/atomize-client/internal/service"
	"github.com/iago/atomize-client/internal/upload"
)

// session wires one tracker with its history, events and terminal output.
type session struct {
	tracker  *service.Tracker
	renderer *render.Renderer
	closers  []func()
}

func (s *session) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func (a *app) newSession(ctx context.Context) (*session, error) {
	client, err := a.client()
	if err != nil {
		return nil, err
	}
	repo, repoCloser := setupRepository(ctx, a.cfg, a.logger)
	publisher, eventsCloser := setupEvents(ctx, a.cfg, a.logger)

	renderer := render.NewRenderer(render.NewTextSurface(a.stdout))
	tracker := service.NewTracker(
		client,
		repo,
		publisher,
		newTerminalDisplay(a.stdout),
		renderer,
		a.logger,
		service.TrackerConfig{
			Poll: poller.Config{
				BaseInterval: a.cfg.PollBaseInterval,
				MaxInterval:  a.cfg.PollMaxInterval,
				MinInterval:  a.cfg.PollMinInterval,
			},
			MaxUploadBytes: a.cfg.MaxUploadBytes(),
			UploadListener: newProgressPrinter(a.stdout),
		},
	)
	return &session{
		tracker:  tracker,
		renderer: renderer,
		closers:  []func(){repoCloser, eventsCloser},
	}, nil
}

func (a *app) submit(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("submit", flag.ContinueOnError)
	flags.SetOutput(a.stderr)
	options := domain.DefaultJobOptions()
	bindJobOptions(flags, &options)
	follow := flags.Bool("watch", true, "follow the job until it finishes")
	exportPath := flags.String("export", "", "write the results to this XLSX file")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return errors.New("submit requires exactly one file")
	}

	s, err := a.newSession(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	// The upload runs on its own context so an interrupt goes through Cancel
	// and is reported as a cancellation, not a transport failure.
	uploadDone := make(chan struct{})
	defer close(uploadDone)
	go func() {
		select {
		case <-ctx.Done():
			s.tracker.Cancel()
		case <-uploadDone:
		}
	}()

	result, err := s.tracker.Submit(context.Background(), flags.Arg(0), options)
	if err != nil {
		if errors.Is(err, upload.ErrCanceled) {
			return nil
		}
		return err
	}
	if !*follow {
		fmt.Fprintln(a.stdout, result.JobID)
		return nil
	}

	outcome, err := s.tracker.Watch(ctx, result.JobID)
	if err != nil {
		return interrupted(err)
	}
	return a.finish(result.JobID, outcome, s.renderer, *exportPath)
}

func (a *app) watch(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("watch", flag.ContinueOnError)
	flags.SetOutput(a.stderr)
	exportPath := flags.String("export", "", "write the results to this XLSX file")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return errors.New("watch requires a job id")
	}

	s, err := a.newSession(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	outcome, err := s.tracker.Watch(ctx, flags.Arg(0))
	if err != nil {
		return interrupted(err)
	}
	return a.finish(flags.Arg(0), outcome, s.renderer, *exportPath)
}

// interrupted treats a signal-driven stop as a clean exit.
func interrupted(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *app) finish(jobID string, outcome poller.Outcome, renderer *render.Renderer, exportPath string) error {
	if outcome.Failure != nil {
		return outcome.Failure
	}
	if outcome.ResultsErr != nil {
		return fmt.Errorf("job %s succeeded but results are unavailable: %w", jobID, outcome.ResultsErr)
	}
	if exportPath == "" {
		return nil
	}
	view, ok := renderer.View()
	if !ok {
		return nil
	}
	return a.writeWorkbook(jobID, view, exportPath)
}

func (a *app) results(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("results", flag.ContinueOnError)
	flags.SetOutput(a.stderr)
	tab := flags.String("tab", "", "channel tab to show: linkedin, x, ig or blog")
	exportPath := flags.String("export", "", "write the results to this XLSX file")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return errors.New("results requires a job id")
	}
	jobID := flags.Arg(0)

	client, err := a.client()
	if err != nil {
		return err
	}
	results, err := client.GetResults(ctx, jobID)
	if err != nil {
		return err
	}

	surface := render.NewTextSurface(nil)
	renderer := render.NewRenderer(surface)
	renderer.Render(results)
	if *tab != "" {
		info, ok := domain.LookupChannel(*tab)
		if !ok {
			return fmt.Errorf("%w: %s", render.ErrUnknownChannel, *tab)
		}
		if err := renderer.SelectTab(info.Key); err != nil {
			return err
		}
	}
	fmt.Fprint(a.stdout, surface.String())

	if *exportPath != "" {
		view, _ := renderer.View()
		return a.writeWorkbook(jobID, view, *exportPath)
	}
	return nil
}

func (a *app) writeWorkbook(jobID string, view render.View, path string) error {
	data, err := export.WorkbookBytes(jobID, view)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	fmt.Fprintf(a.stdout, "results exported to %s\n", path)
	return nil
}

func (a *app) logs(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("logs requires a job id")
	}
	client, err := a.client()
	if err != nil {
		return err
	}
	lines, err := client.GetLogs(ctx, args[0])
	if err != nil {
		return err
	}
	for _, line := range lines {
		fmt.Fprintln(a.stdout, line)
	}
	return nil
}

func (a *app) download(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("download", flag.ContinueOnError)
	flags.SetOutput(a.stderr)
	dir := flags.String("o", ".", "directory to save the archive in")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return errors.New("download requires a job id")
	}

	client, err := a.client()
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(*dir, ".atomize-download-*")
	if err != nil {
		return fmt.Errorf("create download file: %w", err)
	}
	defer os.Remove(tmp.Name())

	fileName, written, err := client.Download(ctx, flags.Arg(0), tmp)
	closeErr := tmp.Close()
	if err != nil {
		return err
	}
	if closeErr != nil {
		return fmt.Errorf("close download file: %w", closeErr)
	}

	target := filepath.Join(*dir, filepath.Base(fileName))
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("save download: %w", err)
	}
	fmt.Fprintf(a.stdout, "saved %s (%d bytes)\n", target, written)
	return nil
}

// Memory history lives only as long as the process that recorded it.
const memoryHistoryHint = "history is kept in memory for a single run; set DATABASE_URL to keep it across runs"

func (a *app) history(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("history", flag.ContinueOnError)
	flags.SetOutput(a.stderr)
	status := flags.String("status", "", "only jobs with this status")
	clientName := flags.String("client", "", "only jobs for this client")
	since := flags.String("since", "", "only jobs updated after this RFC 3339 time")
	page := flags.Int("page", 1, "page number")
	size := flags.Int("size", 20, "page size")
	if err := flags.Parse(args); err != nil {
		return err
	}

	filter := repository.HistoryFilter{
		Status:   domain.JobStatus(strings.ToLower(*status)),
		Client:   *clientName,
		Page:     *page,
		PageSize: *size,
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return fmt.Errorf("unknown status %q", *status)
	}
	sinceTime, err := repository.ParseDateTime(*since)
	if err != nil {
		return fmt.Errorf("invalid -since: %w", err)
	}
	filter.Since = sinceTime

	repo, closeRepo := setupRepository(ctx, a.cfg, a.logger)
	defer closeRepo()
	if _, inMemory := repo.(*repository.MemoryJobsRepository); inMemory {
		fmt.Fprintln(a.stderr, memoryHistoryHint)
	}

	items, total, err := repo.ListJobs(ctx, filter)
	if err != nil {
		return err
	}

	writer := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tSTATUS\tPERCENT\tCLIENT\tTITLE\tFILE\tUPDATED")
	for _, job := range items {
		fmt.Fprintf(writer, "%s\t%s\t%d%%\t%s\t%s\t%s\t%s\n",
			job.ID, job.Status, job.Percent, job.Client, job.Title, job.FileName,
			job.UpdatedAt.Local().Format(time.DateTime))
	}
	if err := writer.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "%d of %d jobs\n", len(items), total)
	return nil
}

func (a *app) health(ctx context.Context) error {
	client, err := a.client()
	if err != nil {
		return err
	}
	if err := client.Health(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, "ok")
	return nil
}

func (a *app) tailEvents(ctx context.Context) error {
	if a.cfg.RedisAddr == "" {
		return errors.New("REDIS_ADDR is required to tail events")
	}
	bus, err := events.NewStreamsBus(ctx, streamsConfig(a.cfg), a.logger)
	if err != nil {
		return err
	}
	defer bus.Close()

	err = bus.Subscribe(ctx, func(_ context.Context, event domain.JobEvent) error {
		fmt.Fprintln(a.stdout, formatEvent(event))
		return nil
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func bindJobOptions(flags *flag.FlagSet, options *domain.JobOptions) {
	flags.StringVar(&options.Client, "client", options.Client, "client name")
	flags.StringVar(&options.Title, "title", options.Title, "job title")
	flags.StringVar(&options.Lang, "lang", options.Lang, "output language")
	flags.StringVar(&options.Tone, "tone", options.Tone, "writing tone")
	flags.StringVar(&options.WhisperModel, "whisper-model", options.WhisperModel, "transcription model")
	flags.StringVar(&options.Language, "language", options.Language, "spoken language")
	flags.StringVar(&options.Device, "device", options.Device, "transcription device")
	flags.StringVar(&options.Model, "model", options.Model, "generation model")
	flags.Float64Var(&options.Temperature, "temperature", options.Temperature, "generation temperature")
	flags.IntVar(&options.MaxInputChars, "max-input-chars", options.MaxInputChars, "transcript character cap")
	flags.IntVar(&options.LinkedInCount, "linkedin-count", options.LinkedInCount, "LinkedIn drafts")
	flags.IntVar(&options.XCount, "x-count", options.XCount, "X drafts")
	flags.IntVar(&options.BlogCount, "blog-count", options.BlogCount, "blog drafts")
	flags.IntVar(&options.IGCount, "ig-count", options.IGCount, "Instagram drafts")
	flags.BoolVar(&options.AIPosters, "ai-posters", options.AIPosters, "generate AI posters")
	flags.IntVar(&options.AIPosterCount, "ai-poster-count", options.AIPosterCount, "AI posters")
	flags.BoolVar(&options.StructuredPosters, "structured-posters", options.StructuredPosters, "generate structured posters")
	flags.IntVar(&options.StructuredCount, "structured-count", options.StructuredCount, "structured posters")
	flags.StringVar(&options.StructuredTheme, "structured-theme", options.StructuredTheme, "structured poster theme")
	flags.BoolVar(&options.StructuredPremium, "structured-premium", options.StructuredPremium, "premium structured posters")
}
