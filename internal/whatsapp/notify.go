package whatsapp

import (
	"context"
	"log"

	"github.com/iago/youtube-agent-back/internal/domain"
)

// ScheduleNotifier pushes schedule lifecycle notices to the job owner's
// WhatsApp number.
type ScheduleNotifier struct {
	sender Sender
	logger *log.Logger
}

func NewScheduleNotifier(sender Sender, logger *log.Logger) *ScheduleNotifier {
	return &ScheduleNotifier{sender: sender, logger: logger}
}

func (n *ScheduleNotifier) JobDeactivated(ctx context.Context, job *domain.ScheduledJob) {
	if n.sender == nil || job == nil {
		return
	}
	if err := n.sender.SendMessage(ctx, job.UserID, FormatDeactivated(job)); err != nil && n.logger != nil {
		n.logger.Printf("deactivation notice failed job_id=%s user=%s: %v", job.ID, MaskNumber(job.UserID), err)
	}
}
