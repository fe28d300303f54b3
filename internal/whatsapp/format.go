package whatsapp

import (
	"fmt"
	"strings"
	"time"

	"github.com/iago/youtube-agent-back/internal/domain"
)

// FormatResult renders an analysis result as a WhatsApp message with bold
// titles and artifact links.
func FormatResult(result domain.AnalysisResult) string {
	lines := make([]string, 0, 8)

	switch result.Type {
	case domain.ResultTypeSingle:
		title := result.Title
		if title == "" {
			title = "Video Analysis"
		}
		lines = append(lines, "*"+title+"*")
		lines = append(lines, formatLinks(result)...)

	case domain.ResultTypeBatch:
		lines = append(lines, "*Batch Analysis Results*")
		lines = append(lines, formatLinks(result)...)
		if result.Statistics != nil {
			stats := result.Statistics
			lines = append(lines, fmt.Sprintf("📊 %d videos analyzed, %d successful (%.0f%%)",
				stats.TotalVideos, stats.Successful, stats.SuccessRate*100))
		}

	case domain.ResultTypeScheduled:
		lines = append(lines, "✅ Analysis scheduled")
		if result.NextRun != nil {
			lines = append(lines, "⏰ Next run: "+result.NextRun.Format(time.RFC1123))
		}

	default:
		lines = append(lines, "✅ Analysis complete")
	}

	if result.Preview != "" {
		lines = append(lines, "", result.Preview)
	}
	return strings.Join(lines, "\n")
}

// FormatFailure is the user-facing failure notice for one analysis attempt.
func FormatFailure(reason string) string {
	if strings.TrimSpace(reason) == "" {
		reason = "unknown error"
	}
	return "❌ Analysis failed: " + reason
}

// FormatDeactivated tells the user a recurring analysis was switched off
// after repeated failures.
func FormatDeactivated(job *domain.ScheduledJob) string {
	return fmt.Sprintf(
		"⚠️ Your %s analysis schedule was deactivated after %d consecutive failures. Send a new request to schedule it again.",
		job.Frequency, job.RetryCount)
}

func formatLinks(result domain.AnalysisResult) []string {
	lines := make([]string, 0, 4)
	for _, link := range result.SummaryLinks {
		lines = append(lines, "📄 Summary: "+link)
	}
	for _, link := range result.ReportLinks {
		lines = append(lines, "📄 Report: "+link)
	}
	if result.FinalReportLink != "" {
		lines = append(lines, "📎 Final report: "+result.FinalReportLink)
	}
	return lines
}
