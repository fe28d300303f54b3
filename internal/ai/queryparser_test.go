package ai

import (
	"context"
	"testing"

	"github.com/iago/youtube-agent-back/internal/cache"
	"github.com/iago/youtube-agent-back/internal/domain"
)

type fakeGenerator struct {
	text  string
	calls int
}

func (g *fakeGenerator) Generate(_ context.Context, _ GenerateRequest) (GenerateResult, error) {
	g.calls++
	return GenerateResult{Text: g.text, ModelID: "fake-model"}, nil
}

func (g *fakeGenerator) Available() bool { return true }

func TestParseUsesModelOutput(t *testing.T) {
	generator := &fakeGenerator{
		text: `{"query":"AI news","analysis_type":"summary","is_scheduled":true,"schedule_frequency":"weekly","preferred_time":"09:00"}`,
	}
	parser := NewQueryParser(generator, NewModelRouter(ModelRouterConfig{}), nil, nil)

	spec, err := parser.Parse(context.Background(), "Analyze AI news every week at 9am")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if spec.Query != "AI news" || !spec.IsScheduled || spec.ScheduleFrequency != "weekly" {
		t.Fatalf("unexpected spec: %+v", spec)
	}
	if spec.PreferredTime != "09:00" {
		t.Fatalf("expected preferred time 09:00, got %q", spec.PreferredTime)
	}
	if spec.ViewsFilter != 5000 || spec.DateFilter != "24 hours" {
		t.Fatalf("expected defaults applied, got %+v", spec)
	}
}

func TestParseToleratesFencedJSON(t *testing.T) {
	generator := &fakeGenerator{
		text: "```json\n{\"query\":\"robotics\",\"analysis_type\":\"report\"}\n```",
	}
	parser := NewQueryParser(generator, NewModelRouter(ModelRouterConfig{}), nil, nil)

	spec, err := parser.Parse(context.Background(), "find robotics videos")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if spec.Query != "robotics" {
		t.Fatalf("expected query extracted from fenced output, got %+v", spec)
	}
}

func TestParseCachesByNormalizedText(t *testing.T) {
	generator := &fakeGenerator{text: `{"query":"AI news","analysis_type":"report"}`}
	parseCache := cache.NewParseCache(cache.Config{})
	parser := NewQueryParser(generator, NewModelRouter(ModelRouterConfig{}), parseCache, nil)

	if _, err := parser.Parse(context.Background(), "Find AI news"); err != nil {
		t.Fatalf("first parse failed: %v", err)
	}
	if _, err := parser.Parse(context.Background(), "  find   ai NEWS "); err != nil {
		t.Fatalf("second parse failed: %v", err)
	}
	if generator.calls != 1 {
		t.Fatalf("expected one model call, got %d", generator.calls)
	}
}

func TestHeuristicParseSchedulingRequest(t *testing.T) {
	spec := HeuristicParse("Schedule AI news analysis every week at 9am")
	if !spec.IsScheduled {
		t.Fatalf("expected scheduling request detected: %+v", spec)
	}
	if spec.ScheduleFrequency != string(domain.FrequencyWeekly) {
		t.Fatalf("expected weekly frequency, got %q", spec.ScheduleFrequency)
	}
	if spec.PreferredTime != "09:00" {
		t.Fatalf("expected 09:00 preferred time, got %q", spec.PreferredTime)
	}
}

func TestHeuristicParsePMConversion(t *testing.T) {
	spec := HeuristicParse("analyze machine learning daily at 5pm")
	if spec.PreferredTime != "17:00" {
		t.Fatalf("expected 17:00, got %q", spec.PreferredTime)
	}
	if spec.ScheduleFrequency != string(domain.FrequencyDaily) {
		t.Fatalf("expected daily, got %q", spec.ScheduleFrequency)
	}
}

func TestHeuristicParseDirectURL(t *testing.T) {
	spec := HeuristicParse("Analyze this video: https://youtube.com/watch?v=abc123")
	if spec.URL != "https://youtube.com/watch?v=abc123" {
		t.Fatalf("expected URL extracted, got %q", spec.URL)
	}
	if spec.Query != "" {
		t.Fatalf("expected no search query for URL request, got %q", spec.Query)
	}
	if spec.IsScheduled {
		t.Fatalf("URL analysis should not be scheduled: %+v", spec)
	}
}
