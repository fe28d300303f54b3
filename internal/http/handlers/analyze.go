package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iago/youtube-agent-back/internal/domain"
	"github.com/iago/youtube-agent-back/internal/service"
	"github.com/iago/youtube-agent-back/internal/whatsapp"
)

type analyzeRequest struct {
	UserID string `json:"user_id"`
	// Text is the natural-language request. When empty, Spec must carry a
	// fully structured query.
	Text string            `json:"text,omitempty"`
	Spec *domain.QuerySpec `json:"spec,omitempty"`
}

// Analyze accepts an analysis request, parses it into a query spec and
// either schedules it or enqueues it for immediate execution.
func (api *API) Analyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	var request analyzeRequest
	if err := decodeJSON(r, &request); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON payload")
		return
	}
	userID := whatsapp.NormalizeNumber(request.UserID)
	if userID == "" {
		userID = strings.TrimSpace(request.UserID)
	}
	if userID == "" {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "user_id is required")
		return
	}

	idempotencyKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	payloadHash := hashPayload(request)
	if idempotencyKey != "" {
		if entry, ok := api.idempotency.Get(idempotencyKey); ok {
			if entry.PayloadHash != payloadHash {
				writeError(w, r, http.StatusConflict, "idempotency_conflict", "idempotency key reused with a different payload")
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"task_id": entry.ResourceID, "deduplicated": true})
			return
		}
	}

	var spec domain.QuerySpec
	if request.Spec != nil {
		spec = *request.Spec
		if spec.AnalysisType == "" {
			spec.AnalysisType = domain.AnalysisTypeReport
		}
	} else {
		parsed, err := api.parser.Parse(r.Context(), request.Text)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid_request", "text could not be interpreted")
			return
		}
		spec = parsed
	}
	if spec.Query == "" && spec.URL == "" {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "either a query or a video url is required")
		return
	}

	response, statusCode, err := api.dispatchSpec(r.Context(), userID, spec)
	if err != nil {
		if errors.Is(err, service.ErrInvalidFrequency) || errors.Is(err, service.ErrInvalidTimeFormat) {
			writeError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to dispatch analysis")
		return
	}

	if idempotencyKey != "" {
		if resourceID, ok := response["task_id"].(string); ok {
			api.idempotency.Put(idempotencyKey, payloadHash, resourceID)
		} else if resourceID, ok := response["job_id"].(string); ok {
			api.idempotency.Put(idempotencyKey, payloadHash, resourceID)
		}
	}
	writeJSON(w, statusCode, response)
}

// dispatchSpec routes a parsed query spec: scheduled requests become job
// records, everything else goes straight to the analysis queue.
func (api *API) dispatchSpec(ctx context.Context, userID string, spec domain.QuerySpec) (map[string]any, int, error) {
	if spec.IsScheduled {
		job, err := api.scheduler.CreateJob(ctx, userID, spec.Query, spec.ScheduleFrequency, spec.PreferredTime, service.CreateJobOptions{
			URL:          spec.URL,
			AnalysisType: spec.AnalysisType,
			DateFilter:   spec.DateFilter,
			ViewsFilter:  spec.ViewsFilter,
		})
		if err != nil {
			return nil, 0, err
		}
		return map[string]any{
			"job_id":         job.ID,
			"frequency":      job.Frequency,
			"preferred_time": job.PreferredTime,
			"next_run":       job.NextRun.Format(time.RFC3339),
		}, http.StatusCreated, nil
	}

	encoded, err := json.Marshal(spec)
	if err != nil {
		return nil, 0, err
	}
	message := domain.AnalysisMessage{
		TaskID:      uuid.NewString(),
		UserID:      userID,
		QuerySpec:   encoded,
		ReplyTo:     userID,
		RequestedAt: time.Now().UTC(),
	}
	if err := api.producer.Enqueue(ctx, message); err != nil {
		return nil, 0, err
	}
	return map[string]any{
		"task_id": message.TaskID,
		"status":  "accepted",
	}, http.StatusAccepted, nil
}
