package domain

import "time"

const (
	ResultTypeSingle    = "single"
	ResultTypeBatch     = "batch"
	ResultTypeScheduled = "scheduled"
)

// BatchStatistics summarizes one multi-video analysis batch.
type BatchStatistics struct {
	BatchID         string  `json:"batch_id"`
	Query           string  `json:"query,omitempty"`
	TotalVideos     int     `json:"total_videos"`
	Successful      int     `json:"successful"`
	Failed          int     `json:"failed"`
	SuccessRate     float64 `json:"success_rate"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// AnalysisResult is what an executed analysis hands back for delivery to the
// user.
type AnalysisResult struct {
	Type            string           `json:"type"`
	Title           string           `json:"title,omitempty"`
	Preview         string           `json:"preview,omitempty"`
	SummaryLinks    []string         `json:"summary_links,omitempty"`
	ReportLinks     []string         `json:"report_links,omitempty"`
	FinalReportLink string           `json:"final_report_link,omitempty"`
	Statistics      *BatchStatistics `json:"statistics,omitempty"`
	NextRun         *time.Time       `json:"next_run,omitempty"`
}
