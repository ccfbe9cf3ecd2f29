package repository

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/iago/atomize-client/internal/domain"
)

func TestMemorySaveJobUpserts(t *testing.T) {
	repo := NewMemoryJobsRepository()
	ctx := context.Background()
	submitted := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	err := repo.SaveJob(ctx, &domain.TrackedJob{
		ID:          "abc",
		FileName:    "talk.mp4",
		Status:      domain.JobStatusQueued,
		SubmittedAt: submitted,
		UpdatedAt:   submitted,
	})
	if err != nil {
		t.Fatalf("expected save, got %v", err)
	}

	err = repo.SaveJob(ctx, &domain.TrackedJob{
		ID:        "abc",
		FileName:  "talk.mp4",
		Status:    domain.JobStatusRunning,
		Percent:   40,
		UpdatedAt: submitted.Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("expected update, got %v", err)
	}

	job, err := repo.GetJob(ctx, "abc")
	if err != nil {
		t.Fatalf("expected job, got %v", err)
	}
	if job.Status != domain.JobStatusRunning || job.Percent != 40 {
		t.Fatalf("expected running 40%%, got %s %d", job.Status, job.Percent)
	}
	if !job.SubmittedAt.Equal(submitted) {
		t.Fatalf("expected submitted_at kept, got %s", job.SubmittedAt)
	}
}

func TestMemoryGetJobNotFound(t *testing.T) {
	repo := NewMemoryJobsRepository()
	if _, err := repo.GetJob(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.SaveJob(context.Background(), &domain.TrackedJob{}); err == nil {
		t.Fatalf("expected missing id error")
	}
}

func TestMemoryListJobsFiltersAndPages(t *testing.T) {
	repo := NewMemoryJobsRepository()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	fixtures := []domain.TrackedJob{
		{ID: "a", Client: "Acme", Status: domain.JobStatusSucceeded, UpdatedAt: base},
		{ID: "b", Client: "acme", Status: domain.JobStatusFailed, UpdatedAt: base.Add(time.Hour)},
		{ID: "c", Client: "Other", Status: domain.JobStatusSucceeded, UpdatedAt: base.Add(2 * time.Hour)},
	}
	for i := range fixtures {
		if err := repo.SaveJob(ctx, &fixtures[i]); err != nil {
			t.Fatalf("seed %s: %v", fixtures[i].ID, err)
		}
	}

	items, total, err := repo.ListJobs(ctx, HistoryFilter{})
	if err != nil {
		t.Fatalf("expected list, got %v", err)
	}
	if total != 3 || items[0].ID != "c" || items[2].ID != "a" {
		t.Fatalf("expected newest first, got total=%d %+v", total, items)
	}

	items, total, _ = repo.ListJobs(ctx, HistoryFilter{Client: "ACME"})
	if total != 2 {
		t.Fatalf("expected 2 acme jobs, got %d", total)
	}

	items, _, _ = repo.ListJobs(ctx, HistoryFilter{Status: domain.JobStatusSucceeded, PageSize: 1, Page: 2})
	if len(items) != 1 || items[0].ID != "a" {
		t.Fatalf("expected second page with job a, got %+v", items)
	}

	since := base.Add(30 * time.Minute)
	items, total, _ = repo.ListJobs(ctx, HistoryFilter{Since: &since})
	if total != 2 || len(items) != 2 {
		t.Fatalf("expected 2 jobs since %s, got %d", since, total)
	}

	items, total, _ = repo.ListJobs(ctx, HistoryFilter{Page: 5})
	if len(items) != 0 || total != 3 {
		t.Fatalf("expected empty page past the end, got %d items", len(items))
	}
}

func TestBuildHistoryFilters(t *testing.T) {
	since := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	query, args := buildHistoryFilters(HistoryFilter{Status: domain.JobStatusFailed, Client: "acme", Since: &since})

	for _, fragment := range []string{"status = $1", "lower(client) = lower($2)", "updated_at >= $3"} {
		if !strings.Contains(query, fragment) {
			t.Fatalf("expected %q in %q", fragment, query)
		}
	}
	if len(args) != 3 {
		t.Fatalf("expected 3 args, got %d", len(args))
	}
}

func TestParseDateTime(t *testing.T) {
	parsed, err := ParseDateTime("")
	if err != nil || parsed != nil {
		t.Fatalf("expected nil for empty input, got %v %v", parsed, err)
	}
	if _, err := ParseDateTime("yesterday"); err == nil {
		t.Fatalf("expected parse error")
	}
	parsed, err = ParseDateTime("2026-03-01T10:00:00Z")
	if err != nil || parsed.Hour() != 10 {
		t.Fatalf("expected parsed timestamp, got %v %v", parsed, err)
	}
}
