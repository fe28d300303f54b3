package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iago/youtube-agent-back/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

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
	repo := &PostgresJobsRepository{pool: pool}
	if err := repo.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return repo, nil
}

func (r *PostgresJobsRepository) Close() {
	r.pool.Close()
}

func (r *PostgresJobsRepository) ensureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS scheduled_jobs (
			id             TEXT PRIMARY KEY,
			user_id        TEXT NOT NULL,
			query_spec     JSONB NOT NULL,
			frequency      TEXT NOT NULL,
			preferred_time TEXT NOT NULL,
			next_run       TIMESTAMPTZ NOT NULL,
			last_run       TIMESTAMPTZ,
			is_active      BOOLEAN NOT NULL DEFAULT TRUE,
			retry_count    INTEGER NOT NULL DEFAULT 0,
			status         TEXT NOT NULL DEFAULT 'pending',
			created_at     TIMESTAMPTZ NOT NULL,
			updated_at     TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_scheduled_jobs_due
			ON scheduled_jobs (next_run) WHERE is_active;
		CREATE INDEX IF NOT EXISTS idx_scheduled_jobs_user
			ON scheduled_jobs (user_id, created_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (r *PostgresJobsRepository) CreateJob(ctx context.Context, job *domain.ScheduledJob) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO scheduled_jobs (
			id,
			user_id,
			query_spec,
			frequency,
			preferred_time,
			next_run,
			last_run,
			is_active,
			retry_count,
			status,
			created_at,
			updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`,
		job.ID,
		job.UserID,
		job.QuerySpec,
		string(job.Frequency),
		job.PreferredTime,
		job.NextRun,
		job.LastRun,
		job.IsActive,
		job.RetryCount,
		string(job.Status),
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert scheduled job: %w", err)
	}
	return nil
}

func (r *PostgresJobsRepository) GetJob(ctx context.Context, jobID string) (*domain.ScheduledJob, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, query_spec, frequency, preferred_time, next_run,
			last_run, is_active, retry_count, status, created_at, updated_at
		FROM scheduled_jobs
		WHERE id = $1
	`, jobID)
	return scanJob(row)
}

// MutateJob loads the job under a row lock, applies the mutation and writes
// the result back, all inside one transaction. A mutation error rolls the
// transaction back and is returned unchanged.
func (r *PostgresJobsRepository) MutateJob(
	ctx context.Context,
	jobID string,
	mutate func(job *domain.ScheduledJob) error,
) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin job mutation: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		SELECT id, user_id, query_spec, frequency, preferred_time, next_run,
			last_run, is_active, retry_count, status, created_at, updated_at
		FROM scheduled_jobs
		WHERE id = $1
		FOR UPDATE
	`, jobID)
	job, err := scanJob(row)
	if err != nil {
		return err
	}

	if err := mutate(job); err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		UPDATE scheduled_jobs
		SET next_run = $2,
			last_run = $3,
			is_active = $4,
			retry_count = $5,
			status = $6,
			updated_at = $7
		WHERE id = $1
	`, job.ID, job.NextRun, job.LastRun, job.IsActive, job.RetryCount, string(job.Status), job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update scheduled job: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit job mutation: %w", err)
	}
	return nil
}

func (r *PostgresJobsRepository) ListDueJobs(
	ctx context.Context,
	from, to, failedCutoff time.Time,
) ([]*domain.ScheduledJob, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, query_spec, frequency, preferred_time, next_run,
			last_run, is_active, retry_count, status, created_at, updated_at
		FROM scheduled_jobs
		WHERE is_active
			AND next_run BETWEEN $1 AND $2
			AND (status = 'pending' OR (status = 'failed' AND updated_at <= $3))
		ORDER BY next_run ASC
	`, from, to, failedCutoff)
	if err != nil {
		return nil, fmt.Errorf("list due jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]*domain.ScheduledJob, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate due jobs: %w", rows.Err())
	}
	return jobs, nil
}

func (r *PostgresJobsRepository) ListSchedules(
	ctx context.Context,
	filter domain.ScheduleListFilter,
) ([]domain.ScheduleListItem, int, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	baseQuery, args := buildScheduleFilters(filter)

	var total int
	countQuery := "SELECT COUNT(*) " + baseQuery
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count schedules: %w", err)
	}

	listQuery := fmt.Sprintf(
		`SELECT id, frequency, preferred_time, next_run, is_active, status, created_at
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		baseQuery,
		len(args)+1,
		len(args)+2,
	)
	listArgs := append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)
	rows, err := r.pool.Query(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list schedules: %w", err)
	}
	defer rows.Close()

	items := make([]domain.ScheduleListItem, 0)
	for rows.Next() {
		var (
			item      domain.ScheduleListItem
			frequency string
			status    string
		)
		if err := rows.Scan(
			&item.JobID,
			&frequency,
			&item.PreferredTime,
			&item.NextRun,
			&item.IsActive,
			&status,
			&item.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan schedule item: %w", err)
		}
		item.Frequency = domain.Frequency(frequency)
		item.Status = domain.JobStatus(status)
		items = append(items, item)
	}
	if rows.Err() != nil {
		return nil, 0, fmt.Errorf("iterate schedule items: %w", rows.Err())
	}

	return items, total, nil
}

func buildScheduleFilters(filter domain.ScheduleListFilter) (string, []any) {
	query := strings.Builder{}
	query.WriteString("FROM scheduled_jobs WHERE TRUE")

	args := make([]any, 0, 2)
	argIndex := 1

	if userID := strings.TrimSpace(filter.UserID); userID != "" {
		query.WriteString(fmt.Sprintf(" AND user_id = $%d", argIndex))
		args = append(args, userID)
		argIndex++
	}
	if filter.ActiveOnly {
		query.WriteString(" AND is_active")
	}

	return query.String(), args
}

func scanJob(row pgx.Row) (*domain.ScheduledJob, error) {
	var (
		job       domain.ScheduledJob
		querySpec []byte
		frequency string
		status    string
		lastRun   *time.Time
	)
	err := row.Scan(
		&job.ID,
		&job.UserID,
		&querySpec,
		&frequency,
		&job.PreferredTime,
		&job.NextRun,
		&lastRun,
		&job.IsActive,
		&job.RetryCount,
		&status,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan scheduled job: %w", err)
	}
	job.QuerySpec = json.RawMessage(querySpec)
	job.Frequency = domain.Frequency(frequency)
	job.Status = domain.JobStatus(status)
	job.LastRun = lastRun
	return &job, nil
}
