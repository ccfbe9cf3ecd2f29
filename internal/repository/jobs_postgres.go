package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iago/atomize-client/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const trackedJobsSchema = `
CREATE TABLE IF NOT EXISTS tracked_jobs (
	id            TEXT PRIMARY KEY,
	file_name     TEXT NOT NULL DEFAULT '',
	client        TEXT NOT NULL DEFAULT '',
	title         TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL,
	percent       INTEGER NOT NULL DEFAULT 0,
	job_path      TEXT NOT NULL DEFAULT '',
	error_message TEXT NOT NULL DEFAULT '',
	submitted_at  TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS tracked_jobs_updated_at_idx ON tracked_jobs (updated_at DESC);
`

type PostgresJobsRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresJobsRepository(ctx context.Context, databaseURL string) (*PostgresJobsRepository, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pg pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping pg: %w", err)
	}
	return &PostgresJobsRepository{pool: pool}, nil
}

func (r *PostgresJobsRepository) Close() {
	r.pool.Close()
}

// EnsureSchema creates the history table when it does not exist.
func (r *PostgresJobsRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, trackedJobsSchema); err != nil {
		return fmt.Errorf("ensure tracked_jobs schema: %w", err)
	}
	return nil
}

func (r *PostgresJobsRepository) SaveJob(ctx context.Context, job *domain.TrackedJob) error {
	if job == nil || strings.TrimSpace(job.ID) == "" {
		return errors.New("save job: missing id")
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO tracked_jobs (
			id,
			file_name,
			client,
			title,
			status,
			percent,
			job_path,
			error_message,
			submitted_at,
			updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,COALESCE($9::timestamptz, $10::timestamptz),$10)
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status,
			percent = EXCLUDED.percent,
			job_path = EXCLUDED.job_path,
			error_message = EXCLUDED.error_message,
			file_name = COALESCE(NULLIF(EXCLUDED.file_name, ''), tracked_jobs.file_name),
			client = COALESCE(NULLIF(EXCLUDED.client, ''), tracked_jobs.client),
			title = COALESCE(NULLIF(EXCLUDED.title, ''), tracked_jobs.title),
			updated_at = EXCLUDED.updated_at
	`,
		job.ID,
		job.FileName,
		job.Client,
		job.Title,
		string(job.Status),
		job.Percent,
		job.JobPath,
		job.Error,
		nullableTime(job),
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert tracked job: %w", err)
	}
	return nil
}

func (r *PostgresJobsRepository) GetJob(ctx context.Context, jobID string) (*domain.TrackedJob, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, file_name, client, title, status, percent, job_path, error_message, submitted_at, updated_at
		FROM tracked_jobs
		WHERE id = $1
	`, jobID)

	job, err := scanTrackedJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query tracked job: %w", err)
	}
	return &job, nil
}

func (r *PostgresJobsRepository) ListJobs(ctx context.Context, filter HistoryFilter) ([]domain.TrackedJob, int, error) {
	filter = normalizeFilter(filter)
	baseQuery, args := buildHistoryFilters(filter)

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) "+baseQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tracked jobs: %w", err)
	}

	listQuery := fmt.Sprintf(
		`SELECT id, file_name, client, title, status, percent, job_path, error_message, submitted_at, updated_at
		%s
		ORDER BY updated_at DESC
		LIMIT $%d OFFSET $%d`,
		baseQuery,
		len(args)+1,
		len(args)+2,
	)
	listArgs := append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)
	rows, err := r.pool.Query(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list tracked jobs: %w", err)
	}
	defer rows.Close()

	items := make([]domain.TrackedJob, 0)
	for rows.Next() {
		job, err := scanTrackedJob(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan tracked job: %w", err)
		}
		items = append(items, job)
	}
	if rows.Err() != nil {
		return nil, 0, fmt.Errorf("iterate tracked jobs: %w", rows.Err())
	}

	return items, total, nil
}

func scanTrackedJob(row pgx.Row) (domain.TrackedJob, error) {
	var (
		job    domain.TrackedJob
		status string
	)
	err := row.Scan(
		&job.ID,
		&job.FileName,
		&job.Client,
		&job.Title,
		&status,
		&job.Percent,
		&job.JobPath,
		&job.Error,
		&job.SubmittedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return domain.TrackedJob{}, err
	}
	job.Status = domain.JobStatus(status)
	return job, nil
}

func nullableTime(job *domain.TrackedJob) any {
	if job.SubmittedAt.IsZero() {
		return nil
	}
	return job.SubmittedAt
}

func buildHistoryFilters(filter HistoryFilter) (string, []any) {
	query := strings.Builder{}
	query.WriteString("FROM tracked_jobs WHERE TRUE")

	args := make([]any, 0, 3)
	argIndex := 1

	if filter.Status != "" {
		query.WriteString(fmt.Sprintf(" AND status = $%d", argIndex))
		args = append(args, string(filter.Status))
		argIndex++
	}

	if filter.Client != "" {
		query.WriteString(fmt.Sprintf(" AND lower(client) = lower($%d)", argIndex))
		args = append(args, filter.Client)
		argIndex++
	}

	if filter.Since != nil {
		query.WriteString(fmt.Sprintf(" AND updated_at >= $%d", argIndex))
		args = append(args, *filter.Since)
		argIndex++
	}

	return query.String(), args
}
