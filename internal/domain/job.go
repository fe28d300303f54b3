package domain

import (
	"encoding/json"
	"time"
)

type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// Valid reports whether the frequency is one of the supported intervals.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	}
	return false
}

type JobStatus string

const (
	JobStatusPending     JobStatus = "pending"
	JobStatusRunning     JobStatus = "running"
	JobStatusCompleted   JobStatus = "completed"
	JobStatusFailed      JobStatus = "failed"
	JobStatusDeactivated JobStatus = "deactivated"
)

// MaxRetries is the consecutive-failure count at which a job is
// permanently deactivated.
const MaxRetries = 3

// ScheduledJob is a persisted recurring analysis request. The query spec
// payload is stored verbatim and replayed unmodified on every execution.
type ScheduledJob struct {
	ID            string
	UserID        string
	QuerySpec     json.RawMessage
	Frequency     Frequency
	PreferredTime string // always "HH:00"
	NextRun       time.Time
	LastRun       *time.Time
	IsActive      bool
	RetryCount    int
	Status        JobStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// QuerySpec carries the structured parameters extracted from a user's
// natural-language request. Either Query or URL is set, never both.
type QuerySpec struct {
	Query             string `json:"query,omitempty"`
	URL               string `json:"url,omitempty"`
	DateFilter        string `json:"date_filter,omitempty"`
	ViewsFilter       int    `json:"views_filter,omitempty"`
	AnalysisType      string `json:"analysis_type"`
	IsScheduled       bool   `json:"is_scheduled,omitempty"`
	ScheduleFrequency string `json:"schedule_frequency,omitempty"`
	PreferredTime     string `json:"preferred_time,omitempty"`
}

const (
	AnalysisTypeReport  = "report"
	AnalysisTypeSummary = "summary"
)

// AnalysisMessage is the transport format sent to queue backends. JobID is
// empty for one-shot analyses triggered directly by a user message.
type AnalysisMessage struct {
	TaskID      string          `json:"task_id"`
	JobID       string          `json:"job_id,omitempty"`
	UserID      string          `json:"user_id"`
	QuerySpec   json.RawMessage `json:"query_spec"`
	ReplyTo     string          `json:"reply_to,omitempty"`
	Attempt     int             `json:"attempt"`
	RequestedAt time.Time       `json:"requested_at"`
}

// ScheduleListItem is the per-user listing projection of a scheduled job.
type ScheduleListItem struct {
	JobID         string
	Frequency     Frequency
	PreferredTime string
	NextRun       time.Time
	IsActive      bool
	Status        JobStatus
	CreatedAt     time.Time
}

type ScheduleListFilter struct {
	UserID     string
	ActiveOnly bool
	Page       int
	PageSize   int
}
