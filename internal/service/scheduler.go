package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/iago/youtube-agent-back/internal/domain"
	"github.com/iago/youtube-agent-back/internal/repository"
)

var (
	// ErrInvalidFrequency rejects job creation with a frequency outside
	// daily/weekly/monthly.
	ErrInvalidFrequency = errors.New("frequency must be one of daily, weekly, monthly")

	// ErrInvalidTimeFormat rejects preferred times that are not HH:MM.
	ErrInvalidTimeFormat = errors.New("preferred time must be in HH:MM format")

	// ErrPersistence marks infrastructure failures from the job store.
	// Callers may retry the whole operation; no partial state is left behind.
	ErrPersistence = errors.New("job store failure")
)

// errNotClaimable aborts a running transition when the job is no longer in a
// claimable state (another tick already took it, or it was deactivated).
var errNotClaimable = errors.New("job not claimable")

// DeactivationNotifier is the side channel informed when a job exhausts its
// retries. Delivery guarantees are the notifier's problem, not the scheduler's.
type DeactivationNotifier interface {
	JobDeactivated(ctx context.Context, job *domain.ScheduledJob)
}

// SchedulerService owns scheduled-job records: creation, due-job queries and
// the retry/deactivation state machine. It holds no timers of its own; an
// external trigger drives it.
type SchedulerService struct {
	repo       repository.JobsRepository
	logger     *log.Logger
	notifier   DeactivationNotifier
	retryDelay time.Duration
	now        func() time.Time
}

type SchedulerConfig struct {
	// RetryDelay gates how soon a failed (but still active) job becomes
	// admissible as due again. Zero means the very next due-check pass.
	RetryDelay time.Duration
	Notifier   DeactivationNotifier
}

func NewSchedulerService(repo repository.JobsRepository, logger *log.Logger, cfg SchedulerConfig) *SchedulerService {
	return &SchedulerService{
		repo:       repo,
		logger:     logger,
		notifier:   cfg.Notifier,
		retryDelay: cfg.RetryDelay,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// CreateJobOptions carries the optional query-spec fields stored verbatim
// alongside the job.
type CreateJobOptions struct {
	URL          string
	AnalysisType string
	DateFilter   string
	ViewsFilter  int
}

// CreateJob validates and persists a new recurring analysis request. The
// preferred time is normalized to the hour, never rejected for off-hour
// minutes.
func (s *SchedulerService) CreateJob(
	ctx context.Context,
	userID string,
	query string,
	frequency string,
	preferredTime string,
	opts CreateJobOptions,
) (*domain.ScheduledJob, error) {
	jobFrequency := domain.Frequency(frequency)
	if !jobFrequency.Valid() {
		return nil, ErrInvalidFrequency
	}

	normalizedTime, err := normalizePreferredTime(preferredTime)
	if err != nil {
		return nil, err
	}

	if opts.AnalysisType == "" {
		opts.AnalysisType = domain.AnalysisTypeReport
	}
	if opts.ViewsFilter <= 0 {
		opts.ViewsFilter = 5000
	}

	spec := domain.QuerySpec{
		Query:             query,
		URL:               opts.URL,
		DateFilter:        opts.DateFilter,
		ViewsFilter:       opts.ViewsFilter,
		AnalysisType:      opts.AnalysisType,
		IsScheduled:       true,
		ScheduleFrequency: string(jobFrequency),
		PreferredTime:     normalizedTime,
	}
	encodedSpec, err := json.Marshal(spec)
	if err != nil {
		return nil, fmt.Errorf("encode query spec: %w", err)
	}

	now := s.now()
	job := &domain.ScheduledJob{
		ID:            uuid.NewString(),
		UserID:        userID,
		QuerySpec:     encodedSpec,
		Frequency:     jobFrequency,
		PreferredTime: normalizedTime,
		NextRun:       nextOccurrence(jobFrequency, normalizedTime, now),
		IsActive:      true,
		RetryCount:    0,
		Status:        domain.JobStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("%w: create job: %v", ErrPersistence, err)
	}
	return job, nil
}

// GetDueJobs returns active jobs whose next_run falls inside the admission
// window [floor_to_hour(now)-1h, floor_to_hour(now)+1h], earliest first.
// Jobs more than an hour overdue are considered missed and are not returned.
// The read path is best effort: a store failure yields an empty slice.
func (s *SchedulerService) GetDueJobs(ctx context.Context, now time.Time) []*domain.ScheduledJob {
	currentHour := now.UTC().Truncate(time.Hour)
	from := currentHour.Add(-time.Hour)
	to := currentHour.Add(time.Hour)
	failedCutoff := now.UTC().Add(-s.retryDelay)

	jobs, err := s.repo.ListDueJobs(ctx, from, to, failedCutoff)
	if err != nil {
		if s.logger != nil {
			s.logger.Printf("due-job scan failed, skipping cycle: %v", err)
		}
		return []*domain.ScheduledJob{}
	}
	return jobs
}

// UpdateJobStatus applies one state-machine transition atomically.
//
//   - running: claims the job; only succeeds from pending or failed.
//   - completed: records last_run, recomputes next_run one period ahead,
//     resets retry_count and leaves the job pending for the next cycle.
//   - failed: bumps retry_count; the third consecutive failure deactivates
//     the job permanently. Otherwise next_run is left untouched so the job
//     is picked up again on a later pass.
//
// An unknown job id is a soft condition: logged, returns false. Only
// infrastructure failures return an error (wrapping ErrPersistence).
func (s *SchedulerService) UpdateJobStatus(
	ctx context.Context,
	jobID string,
	outcome domain.JobStatus,
) (bool, error) {
	switch outcome {
	case domain.JobStatusRunning, domain.JobStatusCompleted, domain.JobStatusFailed:
	default:
		if s.logger != nil {
			s.logger.Printf("ignoring unsupported job outcome %q job_id=%s", outcome, jobID)
		}
		return false, nil
	}

	var deactivated *domain.ScheduledJob
	err := s.repo.MutateJob(ctx, jobID, func(job *domain.ScheduledJob) error {
		now := s.now()
		switch outcome {
		case domain.JobStatusRunning:
			if !job.IsActive {
				return errNotClaimable
			}
			if job.Status != domain.JobStatusPending && job.Status != domain.JobStatusFailed {
				return errNotClaimable
			}
			job.Status = domain.JobStatusRunning

		case domain.JobStatusCompleted:
			lastRun := now
			job.LastRun = &lastRun
			job.NextRun = nextOccurrence(job.Frequency, job.PreferredTime, now)
			job.RetryCount = 0
			// completed is transient bookkeeping: the job immediately
			// becomes eligible again through the recomputed next_run.
			job.Status = domain.JobStatusPending

		case domain.JobStatusFailed:
			job.RetryCount++
			if job.RetryCount >= domain.MaxRetries {
				job.IsActive = false
				job.Status = domain.JobStatusDeactivated
				snapshot := *job
				deactivated = &snapshot
			} else {
				job.Status = domain.JobStatusFailed
			}
		}
		job.UpdatedAt = now
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			if s.logger != nil {
				s.logger.Printf("status update for unknown job_id=%s outcome=%s", jobID, outcome)
			}
			return false, nil
		}
		if errors.Is(err, errNotClaimable) {
			if s.logger != nil {
				s.logger.Printf("job_id=%s not claimable, skipping", jobID)
			}
			return false, nil
		}
		return false, fmt.Errorf("%w: update job %s: %v", ErrPersistence, jobID, err)
	}

	if deactivated != nil {
		if s.logger != nil {
			s.logger.Printf("job deactivated after %d failures job_id=%s user_id=%s",
				deactivated.RetryCount, jobID, deactivated.UserID)
		}
		if s.notifier != nil {
			s.notifier.JobDeactivated(ctx, deactivated)
		}
	}
	return true, nil
}

func (s *SchedulerService) GetJob(ctx context.Context, jobID string) (*domain.ScheduledJob, error) {
	return s.repo.GetJob(ctx, jobID)
}

func (s *SchedulerService) ListSchedules(
	ctx context.Context,
	filter domain.ScheduleListFilter,
) ([]domain.ScheduleListItem, int, error) {
	return s.repo.ListSchedules(ctx, filter)
}

// normalizePreferredTime forces any valid HH:MM input onto the hour.
func normalizePreferredTime(value string) (string, error) {
	hourPart, minutePart, ok := strings.Cut(strings.TrimSpace(value), ":")
	if !ok {
		return "", ErrInvalidTimeFormat
	}
	hour, err := strconv.Atoi(hourPart)
	if err != nil || hour < 0 || hour > 23 {
		return "", ErrInvalidTimeFormat
	}
	minute, err := strconv.Atoi(minutePart)
	if err != nil || minute < 0 || minute > 59 || len(minutePart) != 2 {
		return "", ErrInvalidTimeFormat
	}
	return fmt.Sprintf("%02d:00", hour), nil
}

// nextOccurrence computes the next hour-aligned run strictly in the future.
// A candidate equal to now counts as already passed and is pushed a full
// period ahead.
func nextOccurrence(frequency domain.Frequency, preferredTime string, now time.Time) time.Time {
	hour, _ := strconv.Atoi(strings.SplitN(preferredTime, ":", 2)[0])

	candidate := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if candidate.After(now) {
		return candidate
	}

	switch frequency {
	case domain.FrequencyDaily:
		return candidate.AddDate(0, 0, 1)
	case domain.FrequencyWeekly:
		return candidate.AddDate(0, 0, 7)
	case domain.FrequencyMonthly:
		if candidate.Month() == time.December {
			return time.Date(candidate.Year()+1, time.January, candidate.Day(), hour, 0, 0, 0, candidate.Location())
		}
		return time.Date(candidate.Year(), candidate.Month()+1, candidate.Day(), hour, 0, 0, 0, candidate.Location())
	}
	return candidate
}
