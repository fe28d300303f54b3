package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/iago/youtube-agent-back/internal/domain"
)

var ErrNotFound = errors.New("resource not found")

// JobsRepository abstracts scheduled-job persistence. MutateJob applies a
// read-modify-write of a single job atomically; implementations must either
// commit the whole mutation or none of it.
type JobsRepository interface {
	CreateJob(ctx context.Context, job *domain.ScheduledJob) error
	GetJob(ctx context.Context, jobID string) (*domain.ScheduledJob, error)
	MutateJob(ctx context.Context, jobID string, mutate func(job *domain.ScheduledJob) error) error
	ListDueJobs(ctx context.Context, from, to, failedCutoff time.Time) ([]*domain.ScheduledJob, error)
	ListSchedules(ctx context.Context, filter domain.ScheduleListFilter) ([]domain.ScheduleListItem, int, error)
}

// MemoryJobsRepository stores jobs in memory for local development and tests.
type MemoryJobsRepository struct {
	mu   sync.RWMutex
	jobs map[string]*domain.ScheduledJob
}

func NewMemoryJobsRepository() *MemoryJobsRepository {
	return &MemoryJobsRepository{
		jobs: make(map[string]*domain.ScheduledJob),
	}
}

func (r *MemoryJobsRepository) CreateJob(_ context.Context, job *domain.ScheduledJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.jobs[job.ID] = cloneJob(job)
	return nil
}

func (r *MemoryJobsRepository) GetJob(_ context.Context, jobID string) (*domain.ScheduledJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneJob(job), nil
}

func (r *MemoryJobsRepository) MutateJob(
	_ context.Context,
	jobID string,
	mutate func(job *domain.ScheduledJob) error,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.jobs[jobID]
	if !ok {
		return ErrNotFound
	}

	// Mutate a clone so a rejected mutation leaves the stored job untouched.
	candidate := cloneJob(stored)
	if err := mutate(candidate); err != nil {
		return err
	}
	r.jobs[jobID] = candidate
	return nil
}

func (r *MemoryJobsRepository) ListDueJobs(
	_ context.Context,
	from, to, failedCutoff time.Time,
) ([]*domain.ScheduledJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	due := make([]*domain.ScheduledJob, 0)
	for _, job := range r.jobs {
		if !job.IsActive {
			continue
		}
		switch job.Status {
		case domain.JobStatusPending:
		case domain.JobStatusFailed:
			if job.UpdatedAt.After(failedCutoff) {
				continue
			}
		default:
			continue
		}
		if job.NextRun.Before(from) || job.NextRun.After(to) {
			continue
		}
		due = append(due, cloneJob(job))
	}

	sort.Slice(due, func(i, j int) bool {
		return due[i].NextRun.Before(due[j].NextRun)
	})
	return due, nil
}

func (r *MemoryJobsRepository) ListSchedules(
	_ context.Context,
	filter domain.ScheduleListFilter,
) ([]domain.ScheduleListItem, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	items := make([]domain.ScheduleListItem, 0)
	for _, job := range r.jobs {
		if filter.UserID != "" && job.UserID != filter.UserID {
			continue
		}
		if filter.ActiveOnly && !job.IsActive {
			continue
		}
		items = append(items, domain.ScheduleListItem{
			JobID:         job.ID,
			Frequency:     job.Frequency,
			PreferredTime: job.PreferredTime,
			NextRun:       job.NextRun,
			IsActive:      job.IsActive,
			Status:        job.Status,
			CreatedAt:     job.CreatedAt,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})

	total := len(items)
	start := (filter.Page - 1) * filter.PageSize
	if start >= total {
		return []domain.ScheduleListItem{}, total, nil
	}
	end := start + filter.PageSize
	if end > total {
		end = total
	}
	return items[start:end], total, nil
}

func cloneJob(job *domain.ScheduledJob) *domain.ScheduledJob {
	if job == nil {
		return nil
	}
	clone := *job
	clone.QuerySpec = append([]byte(nil), job.QuerySpec...)
	if job.LastRun != nil {
		lastRun := *job.LastRun
		clone.LastRun = &lastRun
	}
	return &clone
}
