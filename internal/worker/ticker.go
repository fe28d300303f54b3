package worker

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/iago/youtube-agent-back/internal/domain"
	"github.com/iago/youtube-agent-back/internal/queue"
	"github.com/iago/youtube-agent-back/internal/service"
)

const defaultTickSpec = "0 * * * *"

// Ticker wakes up once an hour, claims every due scheduled job and enqueues
// one analysis message per claim.
type Ticker struct {
	scheduler *service.SchedulerService
	producer  queue.Producer
	logger    *log.Logger
	spec      string
	now       func() time.Time
}

type TickerConfig struct {
	// Spec is a cron expression. Defaults to the top of every hour.
	Spec string
}

func NewTicker(
	scheduler *service.SchedulerService,
	producer queue.Producer,
	logger *log.Logger,
	cfg TickerConfig,
) *Ticker {
	spec := cfg.Spec
	if spec == "" {
		spec = defaultTickSpec
	}
	return &Ticker{
		scheduler: scheduler,
		producer:  producer,
		logger:    logger,
		spec:      spec,
		now:       time.Now,
	}
}

// Start blocks until ctx is cancelled, firing RunPass on the cron schedule.
func (t *Ticker) Start(ctx context.Context) error {
	scheduler := cron.New()
	_, err := scheduler.AddFunc(t.spec, func() {
		t.RunPass(ctx)
	})
	if err != nil {
		return err
	}

	scheduler.Start()
	<-ctx.Done()

	stopCtx := scheduler.Stop()
	<-stopCtx.Done()
	return nil
}

// RunPass executes one trigger cycle: scan, claim, enqueue. Claim races and
// enqueue failures affect only the individual job.
func (t *Ticker) RunPass(ctx context.Context) {
	now := t.now().UTC()
	jobs := t.scheduler.GetDueJobs(ctx, now)
	if len(jobs) == 0 {
		return
	}
	if t.logger != nil {
		t.logger.Printf("trigger pass at %s: %d due job(s)", now.Format(time.RFC3339), len(jobs))
	}

	for _, job := range jobs {
		claimed, err := t.scheduler.UpdateJobStatus(ctx, job.ID, domain.JobStatusRunning)
		if err != nil {
			if t.logger != nil {
				t.logger.Printf("claim failed job_id=%s: %v", job.ID, err)
			}
			continue
		}
		if !claimed {
			continue
		}

		message := domain.AnalysisMessage{
			TaskID:      uuid.NewString(),
			JobID:       job.ID,
			UserID:      job.UserID,
			QuerySpec:   job.QuerySpec,
			ReplyTo:     job.UserID,
			Attempt:     job.RetryCount,
			RequestedAt: now,
		}
		if err := t.producer.Enqueue(ctx, message); err != nil {
			if t.logger != nil {
				t.logger.Printf("enqueue failed job_id=%s: %v", job.ID, err)
			}
			// Release the claim so a later pass can retry the job.
			if _, failErr := t.scheduler.UpdateJobStatus(ctx, job.ID, domain.JobStatusFailed); failErr != nil && t.logger != nil {
				t.logger.Printf("failed releasing claim job_id=%s: %v", job.ID, failErr)
			}
			continue
		}
	}
}
