package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"

	"github.com/iago/youtube-agent-back/internal/cache"
	"github.com/iago/youtube-agent-back/internal/domain"
)

const parseInstructions = `You extract YouTube search parameters from user messages.
First decide whether the message is a scheduling request (keywords like
"schedule", "every day", "every week", "daily", "weekly", "monthly", or a
time of day such as "at 9am"). If it is, extract the frequency
(daily/weekly/monthly) and the preferred time in 24h HH:MM format (default
"14:00" when not given). For every message extract: the search query, a
specific video URL if one is present, the search time frame (default
"24 hours"), the minimum view count (default 5000) and the analysis type
("report" or "summary", default "report").
Respond with a single JSON object using exactly these keys:
query, url, date_filter, views_filter, analysis_type, is_scheduled,
schedule_frequency, preferred_time.`

// QueryParser turns raw user text into a structured QuerySpec. Model output
// is cached by normalized message text; when no model is reachable a keyword
// heuristic keeps the bot usable.
type QueryParser struct {
	generator TextGenerator
	router    *ModelRouter
	cache     *cache.ParseCache
	logger    *log.Logger
}

func NewQueryParser(generator TextGenerator, router *ModelRouter, parseCache *cache.ParseCache, logger *log.Logger) *QueryParser {
	return &QueryParser{
		generator: generator,
		router:    router,
		cache:     parseCache,
		logger:    logger,
	}
}

func (p *QueryParser) Parse(ctx context.Context, userText string) (domain.QuerySpec, error) {
	userText = strings.TrimSpace(userText)
	if userText == "" {
		return domain.QuerySpec{}, fmt.Errorf("empty user text")
	}

	var signature string
	if p.cache != nil {
		signature = p.cache.BuildSignature("query_parse", userText)
		if entry, ok := p.cache.Get(signature); ok {
			return entry.Spec, nil
		}
	}

	spec, modelID, err := p.parseWithModel(ctx, userText)
	if err != nil {
		if p.logger != nil {
			p.logger.Printf("model parse failed, using heuristic parse: %v", err)
		}
		spec = HeuristicParse(userText)
		modelID = "heuristic"
	}
	spec = normalizeSpec(spec)

	if p.cache != nil {
		p.cache.Set(signature, cache.Entry{Spec: spec, ModelID: modelID})
	}
	return spec, nil
}

func (p *QueryParser) parseWithModel(ctx context.Context, userText string) (domain.QuerySpec, string, error) {
	if p.generator == nil || !p.generator.Available() {
		return domain.QuerySpec{}, "", ErrUnavailable
	}

	profile := p.router.Select(TaskQueryParse)
	result, err := p.generate(ctx, profile, userText)
	if err != nil {
		return domain.QuerySpec{}, "", err
	}

	var spec domain.QuerySpec
	if err := json.Unmarshal([]byte(extractJSONObject(result.Text)), &spec); err != nil {
		return domain.QuerySpec{}, "", fmt.Errorf("decode parsed spec: %w", err)
	}
	return spec, result.ModelID, nil
}

func (p *QueryParser) generate(ctx context.Context, profile ModelProfile, userText string) (GenerateResult, error) {
	request := GenerateRequest{
		Model:        profile.PrimaryModel,
		Instructions: parseInstructions,
		Input:        userText,
		Temperature:  profile.Temperature,
		MaxTokens:    profile.MaxTokens,
		JSONOutput:   true,
	}

	result, err := p.generator.Generate(ctx, request)
	if err == nil {
		return result, nil
	}
	if profile.FallbackModel == "" || profile.FallbackModel == profile.PrimaryModel {
		return GenerateResult{}, err
	}

	request.Model = profile.FallbackModel
	return p.generator.Generate(ctx, request)
}

var (
	urlPattern  = regexp.MustCompile(`https?://(?:www\.)?(?:youtube\.com/watch\?\S+|youtu\.be/\S+)`)
	timePattern = regexp.MustCompile(`\bat\s+(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\b`)
)

// HeuristicParse is the no-model fallback: keyword detection good enough to
// answer simple requests and every scheduling phrasing the original bot
// understood.
func HeuristicParse(userText string) domain.QuerySpec {
	lower := strings.ToLower(userText)
	spec := domain.QuerySpec{}

	if url := urlPattern.FindString(userText); url != "" {
		spec.URL = strings.TrimRight(url, ".,;!?")
	}

	switch {
	case strings.Contains(lower, "every day") || strings.Contains(lower, "daily"):
		spec.IsScheduled = true
		spec.ScheduleFrequency = string(domain.FrequencyDaily)
	case strings.Contains(lower, "every week") || strings.Contains(lower, "weekly"):
		spec.IsScheduled = true
		spec.ScheduleFrequency = string(domain.FrequencyWeekly)
	case strings.Contains(lower, "every month") || strings.Contains(lower, "monthly"):
		spec.IsScheduled = true
		spec.ScheduleFrequency = string(domain.FrequencyMonthly)
	}

	if match := timePattern.FindStringSubmatch(lower); match != nil {
		hour, _ := strconv.Atoi(match[1])
		if match[3] == "pm" && hour < 12 {
			hour += 12
		}
		if match[3] == "am" && hour == 12 {
			hour = 0
		}
		if hour >= 0 && hour <= 23 {
			spec.PreferredTime = fmt.Sprintf("%02d:00", hour)
			if !spec.IsScheduled && (strings.Contains(lower, "schedule") || strings.Contains(lower, "every")) {
				spec.IsScheduled = true
			}
		}
	}

	if strings.Contains(lower, "summary") || strings.Contains(lower, "summarize") {
		spec.AnalysisType = domain.AnalysisTypeSummary
	}

	if spec.URL == "" {
		spec.Query = cleanHeuristicQuery(userText)
	}
	return spec
}

func cleanHeuristicQuery(userText string) string {
	cleaned := urlPattern.ReplaceAllString(userText, "")
	cleaned = timePattern.ReplaceAllString(strings.ToLower(cleaned), "")
	for _, noise := range []string{
		"schedule", "analyze", "analyse", "find", "videos about", "videos on",
		"every day", "every week", "every month", "daily", "weekly", "monthly",
		"please", "me",
	} {
		cleaned = strings.ReplaceAll(cleaned, noise, " ")
	}
	return strings.Join(strings.Fields(cleaned), " ")
}

func normalizeSpec(spec domain.QuerySpec) domain.QuerySpec {
	if spec.DateFilter == "" {
		spec.DateFilter = "24 hours"
	}
	if spec.ViewsFilter <= 0 {
		spec.ViewsFilter = 5000
	}
	if spec.AnalysisType != domain.AnalysisTypeSummary {
		spec.AnalysisType = domain.AnalysisTypeReport
	}
	if spec.IsScheduled && spec.PreferredTime == "" {
		spec.PreferredTime = "14:00"
	}
	if !spec.IsScheduled {
		spec.ScheduleFrequency = ""
		spec.PreferredTime = ""
	}
	return spec
}

// extractJSONObject tolerates models wrapping the object in code fences or
// prose.
func extractJSONObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return text
}
