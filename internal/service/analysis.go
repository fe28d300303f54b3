package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/iago/youtube-agent-back/internal/ai"
	"github.com/iago/youtube-agent-back/internal/artifact"
	"github.com/iago/youtube-agent-back/internal/domain"
	"github.com/iago/youtube-agent-back/internal/quality"
	"github.com/iago/youtube-agent-back/internal/search"
)

const summaryInstructions = `You summarize YouTube videos for busy readers.
Given a video's metadata and description, produce a concise summary in
Markdown: what the video covers, the key takeaways and who should watch it.`

const reportInstructions = `You write analyst reports about YouTube videos.
Given a video's metadata and description, produce a structured Markdown
report with sections: Overview, Key Points, Audience Reception Signals and
Verdict.`

const finalReportInstructions = `You consolidate several per-video analyses
into one final Markdown report for the topic. Open with an executive summary,
then compare the videos and close with recommendations on which to watch.`

// AnalysisService executes one analysis request end to end: video discovery,
// per-video content generation, artifact storage and final report assembly.
type AnalysisService struct {
	search    search.Provider
	generator ai.TextGenerator
	router    *ai.ModelRouter
	artifacts artifact.Store
	validator *quality.ContentValidator
	logger    *log.Logger
	maxVideos int
}

type AnalysisDependencies struct {
	Search    search.Provider
	Generator ai.TextGenerator
	Router    *ai.ModelRouter
	Artifacts artifact.Store
	Validator *quality.ContentValidator
	Logger    *log.Logger
	MaxVideos int
}

func NewAnalysisService(deps AnalysisDependencies) *AnalysisService {
	if deps.MaxVideos <= 0 {
		deps.MaxVideos = 3
	}
	if deps.Validator == nil {
		deps.Validator = quality.NewContentValidator(0)
	}
	return &AnalysisService{
		search:    deps.Search,
		generator: deps.Generator,
		router:    deps.Router,
		artifacts: deps.Artifacts,
		validator: deps.Validator,
		logger:    deps.Logger,
		maxVideos: deps.MaxVideos,
	}
}

// Execute runs the stored query spec unchanged, exactly as it was captured at
// request time.
func (s *AnalysisService) Execute(ctx context.Context, spec domain.QuerySpec) (domain.AnalysisResult, error) {
	if spec.URL != "" {
		return s.analyzeSingle(ctx, spec)
	}
	return s.analyzeBatch(ctx, spec)
}

func (s *AnalysisService) analyzeSingle(ctx context.Context, spec domain.QuerySpec) (domain.AnalysisResult, error) {
	video, err := s.search.GetVideoByURL(ctx, spec.URL)
	if err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("load video %s: %w", spec.URL, err)
	}

	batchID := time.Now().UTC().Format("20060102_150405")
	content := s.generateContent(ctx, spec.AnalysisType, *video)

	file, err := s.artifacts.SaveAnalysis(ctx, batchID, spec.AnalysisType, video.Title, []byte(content))
	if err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("store analysis: %w", err)
	}

	result := domain.AnalysisResult{
		Type:    domain.ResultTypeSingle,
		Title:   video.Title,
		Preview: preview(content),
	}
	if spec.AnalysisType == domain.AnalysisTypeSummary {
		result.SummaryLinks = []string{file.Link}
	} else {
		result.ReportLinks = []string{file.Link}
	}
	return result, nil
}

func (s *AnalysisService) analyzeBatch(ctx context.Context, spec domain.QuerySpec) (domain.AnalysisResult, error) {
	videos, err := s.search.SearchAndFilter(ctx, spec.Query, spec.DateFilter, spec.ViewsFilter, s.maxVideos)
	if err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("search videos: %w", err)
	}
	if len(videos) == 0 {
		return domain.AnalysisResult{}, fmt.Errorf("no videos found for query %q", spec.Query)
	}

	start := time.Now().UTC()
	batchID := start.Format("20060102_150405")
	result := domain.AnalysisResult{Type: domain.ResultTypeBatch}
	sections := make([]string, 0, len(videos))
	failed := 0

	for _, video := range videos {
		content := s.generateContent(ctx, spec.AnalysisType, video)
		file, saveErr := s.artifacts.SaveAnalysis(ctx, batchID, spec.AnalysisType, video.Title, []byte(content))
		if saveErr != nil {
			failed++
			if s.logger != nil {
				s.logger.Printf("failed storing analysis for %s: %v", video.ID, saveErr)
			}
			continue
		}
		if spec.AnalysisType == domain.AnalysisTypeSummary {
			result.SummaryLinks = append(result.SummaryLinks, file.Link)
		} else {
			result.ReportLinks = append(result.ReportLinks, file.Link)
		}
		sections = append(sections, fmt.Sprintf("## %s\n\n%s", video.Title, content))
	}
	if len(sections) == 0 {
		return domain.AnalysisResult{}, fmt.Errorf("all %d analyses failed for query %q", len(videos), spec.Query)
	}

	finalContent := s.generateFinalReport(ctx, spec.Query, sections)
	finalFile, err := s.artifacts.SaveFinalReport(ctx, batchID, []byte(finalContent))
	if err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("store final report: %w", err)
	}
	result.FinalReportLink = finalFile.Link
	result.Preview = preview(finalContent)

	successful := len(videos) - failed
	result.Statistics = &domain.BatchStatistics{
		BatchID:         batchID,
		Query:           spec.Query,
		TotalVideos:     len(videos),
		Successful:      successful,
		Failed:          failed,
		SuccessRate:     float64(successful) / float64(len(videos)),
		DurationSeconds: time.Since(start).Seconds(),
	}
	if err := s.artifacts.SaveMetadata(ctx, batchID, result.Statistics); err != nil && s.logger != nil {
		s.logger.Printf("failed storing batch metadata: %v", err)
	}
	return result, nil
}

func (s *AnalysisService) generateContent(ctx context.Context, analysisType string, video search.Video) string {
	task := ai.TaskReport
	instructions := reportInstructions
	if analysisType == domain.AnalysisTypeSummary {
		task = ai.TaskSummary
		instructions = summaryInstructions
	}

	input := fmt.Sprintf("Title: %s\nChannel: %s\nPublished: %s\nViews: %d\nDescription:\n%s",
		video.Title, video.ChannelTitle, video.PublishedAt.Format(time.RFC3339), video.ViewCount, video.Description)

	if text, err := s.generate(ctx, task, instructions, input); err == nil {
		if cleaned, _, validationErr := s.validator.ValidateAnalysis(text); validationErr == nil {
			return cleaned
		} else if s.logger != nil {
			s.logger.Printf("generated content rejected for %s, using metadata fallback: %v", video.ID, validationErr)
		}
	} else if s.logger != nil {
		s.logger.Printf("content generation failed for %s, using metadata fallback: %v", video.ID, err)
	}

	// Metadata-only fallback keeps the pipeline producing output when no
	// model is reachable.
	return fmt.Sprintf("# %s\n\nChannel: %s\nViews: %d\nPublished: %s\n\n%s\n\nWatch: %s\n",
		video.Title, video.ChannelTitle, video.ViewCount,
		video.PublishedAt.Format(time.RFC3339), video.Description, video.URL)
}

func (s *AnalysisService) generateFinalReport(ctx context.Context, query string, sections []string) string {
	input := fmt.Sprintf("Topic: %s\n\n%s", query, strings.Join(sections, "\n\n"))
	if text, err := s.generate(ctx, ai.TaskReport, finalReportInstructions, input); err == nil {
		if cleaned, _, validationErr := s.validator.ValidateAnalysis(text); validationErr == nil {
			return cleaned
		} else if s.logger != nil {
			s.logger.Printf("final report rejected, concatenating sections: %v", validationErr)
		}
	} else if s.logger != nil {
		s.logger.Printf("final report generation failed, concatenating sections: %v", err)
	}
	return fmt.Sprintf("# Analysis: %s\n\n%s", query, strings.Join(sections, "\n\n"))
}

func (s *AnalysisService) generate(ctx context.Context, task ai.TaskKind, instructions, input string) (string, error) {
	if s.generator == nil || !s.generator.Available() {
		return "", ai.ErrUnavailable
	}

	profile := s.router.Select(task)
	request := ai.GenerateRequest{
		Model:        profile.PrimaryModel,
		Instructions: instructions,
		Input:        input,
		Temperature:  profile.Temperature,
		MaxTokens:    profile.MaxTokens,
	}
	result, err := s.generator.Generate(ctx, request)
	if err != nil && profile.FallbackModel != "" && profile.FallbackModel != profile.PrimaryModel {
		request.Model = profile.FallbackModel
		result, err = s.generator.Generate(ctx, request)
	}
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

func preview(content string) string {
	const limit = 500
	content = strings.TrimSpace(content)
	if len(content) <= limit {
		return content
	}
	return content[:limit] + "..."
}
