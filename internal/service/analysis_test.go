package service

import (
	"context"
	"errors"
	"log"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/iago/youtube-agent-back/internal/ai"
	"github.com/iago/youtube-agent-back/internal/artifact"
	"github.com/iago/youtube-agent-back/internal/domain"
	"github.com/iago/youtube-agent-back/internal/search"
)

type stubSearchProvider struct {
	videos  []search.Video
	byURL   map[string]search.Video
	lastMax int
}

func (s *stubSearchProvider) SearchAndFilter(_ context.Context, _, _ string, _ int, maxResults int) ([]search.Video, error) {
	s.lastMax = maxResults
	return s.videos, nil
}

func (s *stubSearchProvider) GetVideoByURL(_ context.Context, rawURL string) (*search.Video, error) {
	video, ok := s.byURL[rawURL]
	if !ok {
		return nil, search.ErrVideoNotFound
	}
	return &video, nil
}

type scriptedGenerator struct {
	text      string
	available bool
	calls     int
	err       error
}

func (g *scriptedGenerator) Generate(_ context.Context, _ ai.GenerateRequest) (ai.GenerateResult, error) {
	g.calls++
	if g.err != nil {
		return ai.GenerateResult{}, g.err
	}
	return ai.GenerateResult{Text: g.text, ModelID: "test-model"}, nil
}

func (g *scriptedGenerator) Available() bool { return g.available }

func testVideo(id, title string) search.Video {
	return search.Video{
		ID:           id,
		URL:          "https://www.youtube.com/watch?v=" + id,
		Title:        title,
		ChannelTitle: "Test Channel",
		Description:  "A video about Go.",
		PublishedAt:  time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		ViewCount:    12000,
		Duration:     25 * time.Minute,
	}
}

func newTestAnalysisService(t *testing.T, provider search.Provider, generator ai.TextGenerator) *AnalysisService {
	t.Helper()
	return NewAnalysisService(AnalysisDependencies{
		Search:    provider,
		Generator: generator,
		Router:    ai.NewModelRouter(ai.ModelRouterConfig{}),
		Artifacts: artifact.NewLocalStore(t.TempDir()),
		Logger:    log.New(os.Stderr, "[test] ", log.LstdFlags),
	})
}

func TestExecuteSingleURLStoresOneSummary(t *testing.T) {
	video := testVideo("abc123def45", "Go Concurrency Deep Dive")
	provider := &stubSearchProvider{byURL: map[string]search.Video{video.URL: video}}
	generator := &scriptedGenerator{text: "A thorough walkthrough of goroutines.", available: true}
	svc := newTestAnalysisService(t, provider, generator)

	result, err := svc.Execute(context.Background(), domain.QuerySpec{
		URL:          video.URL,
		AnalysisType: domain.AnalysisTypeSummary,
	})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if result.Type != domain.ResultTypeSingle {
		t.Fatalf("expected single result, got %q", result.Type)
	}
	if len(result.SummaryLinks) != 1 || len(result.ReportLinks) != 0 {
		t.Fatalf("expected exactly one summary link, got %+v", result)
	}
	if !strings.Contains(result.Preview, "goroutines") {
		t.Fatalf("expected generated preview, got %q", result.Preview)
	}
}

func TestExecuteBatchProducesFinalReportAndStats(t *testing.T) {
	provider := &stubSearchProvider{videos: []search.Video{
		testVideo("vid00000001", "First Video"),
		testVideo("vid00000002", "Second Video"),
	}}
	generator := &scriptedGenerator{text: "Detailed report content.", available: true}
	svc := newTestAnalysisService(t, provider, generator)

	result, err := svc.Execute(context.Background(), domain.QuerySpec{
		Query:        "golang tutorials",
		AnalysisType: domain.AnalysisTypeReport,
	})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if result.Type != domain.ResultTypeBatch {
		t.Fatalf("expected batch result, got %q", result.Type)
	}
	if len(result.ReportLinks) != 2 {
		t.Fatalf("expected two report links, got %d", len(result.ReportLinks))
	}
	if result.FinalReportLink == "" {
		t.Fatal("expected a final report link")
	}
	if result.Statistics == nil {
		t.Fatal("expected batch statistics")
	}
	if result.Statistics.TotalVideos != 2 || result.Statistics.Successful != 2 || result.Statistics.Failed != 0 {
		t.Fatalf("unexpected statistics %+v", result.Statistics)
	}
	if provider.lastMax != 3 {
		t.Fatalf("expected default max of 3 videos, searched for %d", provider.lastMax)
	}
}

func TestExecuteFallsBackToMetadataWithoutModel(t *testing.T) {
	video := testVideo("vid00000003", "Offline Video")
	provider := &stubSearchProvider{videos: []search.Video{video}}
	generator := &scriptedGenerator{available: false}
	svc := newTestAnalysisService(t, provider, generator)

	result, err := svc.Execute(context.Background(), domain.QuerySpec{
		Query:        "anything",
		AnalysisType: domain.AnalysisTypeReport,
	})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if generator.calls != 0 {
		t.Fatalf("expected no model calls, got %d", generator.calls)
	}
	if len(result.ReportLinks) != 1 {
		t.Fatalf("expected fallback report, got %+v", result)
	}
	if !strings.Contains(result.Preview, "Offline Video") {
		t.Fatalf("expected metadata fallback in preview, got %q", result.Preview)
	}
}

func TestExecuteBatchWithNoVideosFails(t *testing.T) {
	provider := &stubSearchProvider{}
	svc := newTestAnalysisService(t, provider, &scriptedGenerator{available: true})

	_, err := svc.Execute(context.Background(), domain.QuerySpec{Query: "empty topic"})
	if err == nil {
		t.Fatal("expected an error for an empty search result")
	}
}

func TestExecuteSingleUnknownVideoSurfacesError(t *testing.T) {
	provider := &stubSearchProvider{byURL: map[string]search.Video{}}
	svc := newTestAnalysisService(t, provider, &scriptedGenerator{available: true})

	_, err := svc.Execute(context.Background(), domain.QuerySpec{URL: "https://youtu.be/missing00001"})
	if !errors.Is(err, search.ErrVideoNotFound) {
		t.Fatalf("expected ErrVideoNotFound, got %v", err)
	}
}
