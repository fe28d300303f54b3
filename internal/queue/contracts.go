package queue

import (
	"context"

	"github.com/iago/youtube-agent-back/internal/domain"
)

// Producer sends analysis requests to a queue backend.
type Producer interface {
	Enqueue(ctx context.Context, message domain.AnalysisMessage) error
}

// Consumer receives analysis requests and executes handlers.
type Consumer interface {
	Consume(ctx context.Context, handler func(context.Context, domain.AnalysisMessage) error) error
}
