package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/iago/youtube-agent-back/internal/domain"
	"github.com/iago/youtube-agent-back/internal/service"
	"github.com/iago/youtube-agent-back/internal/whatsapp"
)

type createScheduleRequest struct {
	UserID        string `json:"user_id"`
	Query         string `json:"query,omitempty"`
	URL           string `json:"url,omitempty"`
	Frequency     string `json:"frequency"`
	PreferredTime string `json:"preferred_time"`
	AnalysisType  string `json:"analysis_type,omitempty"`
	DateFilter    string `json:"date_filter,omitempty"`
	ViewsFilter   int    `json:"views_filter,omitempty"`
}

func (api *API) Schedules(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		api.createSchedule(w, r)
	case http.MethodGet:
		api.listSchedules(w, r)
	default:
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	}
}

func (api *API) createSchedule(w http.ResponseWriter, r *http.Request) {
	var request createScheduleRequest
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
	if strings.TrimSpace(request.Query) == "" && strings.TrimSpace(request.URL) == "" {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "either a query or a video url is required")
		return
	}

	job, err := api.scheduler.CreateJob(r.Context(), userID, request.Query, request.Frequency, request.PreferredTime, service.CreateJobOptions{
		URL:          request.URL,
		AnalysisType: request.AnalysisType,
		DateFilter:   request.DateFilter,
		ViewsFilter:  request.ViewsFilter,
	})
	if err != nil {
		switch err {
		case service.ErrInvalidFrequency:
			writeError(w, r, http.StatusBadRequest, "invalid_request", "frequency must be daily, weekly or monthly")
		case service.ErrInvalidTimeFormat:
			writeError(w, r, http.StatusBadRequest, "invalid_request", "preferred_time must be HH:MM")
		default:
			writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to create schedule")
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"job_id":         job.ID,
		"frequency":      job.Frequency,
		"preferred_time": job.PreferredTime,
		"next_run":       job.NextRun.Format(time.RFC3339),
		"is_active":      job.IsActive,
		"status":         job.Status,
	})
}

func (api *API) listSchedules(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	userID := whatsapp.NormalizeNumber(query.Get("user_id"))
	if userID == "" {
		userID = strings.TrimSpace(query.Get("user_id"))
	}
	if userID == "" {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "user_id is required")
		return
	}

	filter := domain.ScheduleListFilter{
		UserID:     userID,
		ActiveOnly: query.Get("active_only") == "true",
		Page:       parsePositiveInt(query.Get("page"), 1),
		PageSize:   parsePositiveInt(query.Get("page_size"), 20),
	}

	items, total, err := api.scheduler.ListSchedules(r.Context(), filter)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to list schedules")
		return
	}

	schedules := make([]map[string]any, 0, len(items))
	for _, item := range items {
		schedules = append(schedules, map[string]any{
			"job_id":         item.JobID,
			"frequency":      item.Frequency,
			"preferred_time": item.PreferredTime,
			"next_run":       item.NextRun.Format(time.RFC3339),
			"is_active":      item.IsActive,
			"status":         item.Status,
			"created_at":     item.CreatedAt.Format(time.RFC3339),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"schedules": schedules,
		"total":     total,
		"page":      filter.Page,
		"page_size": filter.PageSize,
	})
}

func parsePositiveInt(value string, fallback int) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
