package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/iago/youtube-agent-back/internal/repository"
)

func (api *API) JobStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	jobID := strings.TrimPrefix(r.URL.Path, "/v1/jobs/")
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "job_id is required")
		return
	}

	job, err := api.scheduler.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "not_found", "job not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to load job")
		return
	}

	response := map[string]any{
		"job_id":         job.ID,
		"status":         job.Status,
		"frequency":      job.Frequency,
		"preferred_time": job.PreferredTime,
		"next_run":       job.NextRun.Format(time.RFC3339),
		"is_active":      job.IsActive,
		"retry_count":    job.RetryCount,
		"updated_at":     job.UpdatedAt.Format(time.RFC3339),
	}
	if job.LastRun != nil {
		response["last_run"] = job.LastRun.Format(time.RFC3339)
	}

	writeJSON(w, http.StatusOK, response)
}
