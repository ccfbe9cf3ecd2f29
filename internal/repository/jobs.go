package repository

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iago/atomize-client/internal/domain"
)

var ErrNotFound = errors.New("resource not found")

// HistoryFilter narrows a history listing. Zero values mean no filter.
type HistoryFilter struct {
	Status   domain.JobStatus
	Client   string
	Since    *time.Time
	Page     int
	PageSize int
}

// JobsRepository stores the local history of jobs this client tracked.
type JobsRepository interface {
	SaveJob(ctx context.Context, job *domain.TrackedJob) error
	GetJob(ctx context.Context, jobID string) (*domain.TrackedJob, error)
	ListJobs(ctx context.Context, filter HistoryFilter) ([]domain.TrackedJob, int, error)
}

// MemoryJobsRepository keeps history in process memory.
type MemoryJobsRepository struct {
	mu   sync.RWMutex
	jobs map[string]*domain.TrackedJob
}

func NewMemoryJobsRepository() *MemoryJobsRepository {
	return &MemoryJobsRepository{
		jobs: make(map[string]*domain.TrackedJob),
	}
}

// SaveJob inserts or replaces a record. SubmittedAt of an existing record is
// kept when the new value is zero.
func (r *MemoryJobsRepository) SaveJob(_ context.Context, job *domain.TrackedJob) error {
	if job == nil || strings.TrimSpace(job.ID) == "" {
		return errors.New("save job: missing id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *job
	if existing, ok := r.jobs[job.ID]; ok && clone.SubmittedAt.IsZero() {
		clone.SubmittedAt = existing.SubmittedAt
	}
	r.jobs[job.ID] = &clone
	return nil
}

func (r *MemoryJobsRepository) GetJob(_ context.Context, jobID string) (*domain.TrackedJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *job
	return &clone, nil
}

func (r *MemoryJobsRepository) ListJobs(_ context.Context, filter HistoryFilter) ([]domain.TrackedJob, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	filter = normalizeFilter(filter)

	items := make([]domain.TrackedJob, 0)
	for _, job := range r.jobs {
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		if filter.Client != "" && !strings.EqualFold(job.Client, filter.Client) {
			continue
		}
		if filter.Since != nil && job.UpdatedAt.Before(*filter.Since) {
			continue
		}
		items = append(items, *job)
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].UpdatedAt.After(items[j].UpdatedAt)
	})

	total := len(items)
	start := (filter.Page - 1) * filter.PageSize
	if start >= total {
		return []domain.TrackedJob{}, total, nil
	}
	end := start + filter.PageSize
	if end > total {
		end = total
	}

	return items[start:end], total, nil
}

func normalizeFilter(filter HistoryFilter) HistoryFilter {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	filter.Client = strings.TrimSpace(filter.Client)
	return filter
}

// ParseDateTime parses an RFC 3339 timestamp; empty input yields nil.
func ParseDateTime(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
