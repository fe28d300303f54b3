package ai

import "strings"

type TaskKind string

const (
	TaskQueryParse TaskKind = "query_parse"
	TaskSummary    TaskKind = "summary"
	TaskReport     TaskKind = "report"
)

type ModelProfile struct {
	PrimaryModel  string
	FallbackModel string
	Temperature   float64
	MaxTokens     int
}

type ModelRouterConfig struct {
	QueryParsePrimary  string
	QueryParseFallback string

	SummaryPrimary  string
	SummaryFallback string

	ReportPrimary  string
	ReportFallback string
}

type ModelRouter struct {
	config ModelRouterConfig
}

func NewModelRouter(config ModelRouterConfig) *ModelRouter {
	if strings.TrimSpace(config.QueryParsePrimary) == "" {
		config.QueryParsePrimary = "gpt-4o-mini"
	}
	if strings.TrimSpace(config.QueryParseFallback) == "" {
		config.QueryParseFallback = "gpt-4o-mini"
	}
	if strings.TrimSpace(config.SummaryPrimary) == "" {
		config.SummaryPrimary = "gpt-4o-mini"
	}
	if strings.TrimSpace(config.SummaryFallback) == "" {
		config.SummaryFallback = "gpt-4o-mini"
	}
	if strings.TrimSpace(config.ReportPrimary) == "" {
		config.ReportPrimary = "gpt-4o"
	}
	if strings.TrimSpace(config.ReportFallback) == "" {
		config.ReportFallback = "gpt-4o-mini"
	}

	return &ModelRouter{config: config}
}

func (r *ModelRouter) Select(task TaskKind) ModelProfile {
	switch task {
	case TaskQueryParse:
		return ModelProfile{
			PrimaryModel:  r.config.QueryParsePrimary,
			FallbackModel: r.config.QueryParseFallback,
			Temperature:   0,
			MaxTokens:     400,
		}
	case TaskSummary:
		return ModelProfile{
			PrimaryModel:  r.config.SummaryPrimary,
			FallbackModel: r.config.SummaryFallback,
			Temperature:   0.2,
			MaxTokens:     900,
		}
	case TaskReport:
		return ModelProfile{
			PrimaryModel:  r.config.ReportPrimary,
			FallbackModel: r.config.ReportFallback,
			Temperature:   0.2,
			MaxTokens:     1800,
		}
	}
	return ModelProfile{
		PrimaryModel: r.config.QueryParsePrimary,
		Temperature:  0,
		MaxTokens:    400,
	}
}
