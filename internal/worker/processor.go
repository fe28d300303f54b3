package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/iago/youtube-agent-back/internal/domain"
	"github.com/iago/youtube-agent-back/internal/queue"
	"github.com/iago/youtube-agent-back/internal/service"
	"github.com/iago/youtube-agent-back/internal/whatsapp"
)

// Processor consumes queued analysis requests, runs them and delivers the
// outcome to the requesting WhatsApp number.
type Processor struct {
	consumer  queue.Consumer
	analysis  *service.AnalysisService
	scheduler *service.SchedulerService
	sender    whatsapp.Sender
	logger    *log.Logger
}

func NewProcessor(
	consumer queue.Consumer,
	analysis *service.AnalysisService,
	scheduler *service.SchedulerService,
	sender whatsapp.Sender,
	logger *log.Logger,
) *Processor {
	return &Processor{
		consumer:  consumer,
		analysis:  analysis,
		scheduler: scheduler,
		sender:    sender,
		logger:    logger,
	}
}

func (p *Processor) Start(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		err := p.consumer.Consume(ctx, p.processMessage)
		if err == nil || ctx.Err() != nil {
			return
		}
		if p.logger != nil {
			p.logger.Printf("worker consume loop error: %v", err)
		}

		timer := time.NewTimer(2 * time.Second)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (p *Processor) processMessage(ctx context.Context, message domain.AnalysisMessage) error {
	var spec domain.QuerySpec
	if err := json.Unmarshal(message.QuerySpec, &spec); err != nil {
		// A malformed payload never recovers on retry.
		if p.logger != nil {
			p.logger.Printf("dropping malformed analysis payload task_id=%s: %v", message.TaskID, err)
		}
		return nil
	}

	result, execErr := p.analysis.Execute(ctx, spec)
	if execErr != nil {
		return p.handleFailure(ctx, message, execErr)
	}

	if message.JobID != "" {
		if _, err := p.scheduler.UpdateJobStatus(ctx, message.JobID, domain.JobStatusCompleted); err != nil {
			return fmt.Errorf("record completion for job %s: %w", message.JobID, err)
		}
		result.Type = domain.ResultTypeScheduled
		if job, err := p.scheduler.GetJob(ctx, message.JobID); err == nil {
			nextRun := job.NextRun
			result.NextRun = &nextRun
		}
	}

	p.reply(ctx, message, whatsapp.FormatResult(result))
	if p.logger != nil {
		p.logger.Printf("analysis processed task_id=%s job_id=%s user=%s",
			message.TaskID, message.JobID, whatsapp.MaskNumber(message.UserID))
	}
	return nil
}

// handleFailure routes the failure to the owner of the retry budget. A
// scheduled job's retries belong to its job record, so the message is acked
// and the next trigger pass re-admits the job. One-shot requests lean on the
// queue's redelivery instead.
func (p *Processor) handleFailure(ctx context.Context, message domain.AnalysisMessage, execErr error) error {
	if p.logger != nil {
		p.logger.Printf("analysis failed task_id=%s job_id=%s: %v", message.TaskID, message.JobID, execErr)
	}

	if message.JobID == "" {
		return execErr
	}

	if _, err := p.scheduler.UpdateJobStatus(ctx, message.JobID, domain.JobStatusFailed); err != nil {
		return fmt.Errorf("record failure for job %s: %w", message.JobID, err)
	}
	p.reply(ctx, message, whatsapp.FormatFailure(execErr.Error()))
	return nil
}

func (p *Processor) reply(ctx context.Context, message domain.AnalysisMessage, body string) {
	to := message.ReplyTo
	if to == "" {
		to = message.UserID
	}
	if p.sender == nil || to == "" {
		return
	}
	if err := p.sender.SendMessage(ctx, to, body); err != nil && p.logger != nil {
		p.logger.Printf("reply delivery failed task_id=%s user=%s: %v",
			message.TaskID, whatsapp.MaskNumber(to), err)
	}
}
