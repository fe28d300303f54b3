package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config centralizes runtime settings for the API, the analysis worker and
// the schedule trigger.
type Config struct {
	Port string

	AuthToken string

	DatabaseURL string

	OpenAIAPIKey            string
	OpenAIBaseURL           string
	OpenAITimeoutMS         int
	OpenAIMaxRetries        int
	ModelQueryParsePrimary  string
	ModelQueryParseFallback string
	ModelSummaryPrimary     string
	ModelSummaryFallback    string
	ModelReportPrimary      string
	ModelReportFallback     string

	ParseCacheTTLSeconds int
	ParseCacheMaxEntries int

	YouTubeAPIKey         string
	YouTubeBaseURL        string
	YouTubeMaxVideos      int
	YouTubeMinDurationMin int
	YouTubeMaxDurationMin int
	YouTubeTimeoutMS      int

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string
	TwilioBaseURL    string
	TwilioWebhookURL string

	ArtifactDir string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisStream   string
	RedisDLQ      string
	RedisGroup    string
	RedisConsumer string

	CORSAllowedOrigins []string

	RateLimitRPS   float64
	RateLimitBurst int

	SchedulerRetryDelay time.Duration
	SchedulerCronSpec   string
	SchedulerEnabled    bool

	WorkerEnabled bool
}

func Load() Config {
	return Config{
		Port: getEnv("PORT", "8080"),

		AuthToken: getEnv("API_AUTH_TOKEN", ""),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		OpenAIAPIKey:            getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:           getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAITimeoutMS:         getEnvInt("OPENAI_TIMEOUT_MS", 30000),
		OpenAIMaxRetries:        getEnvInt("OPENAI_MAX_RETRIES", 2),
		ModelQueryParsePrimary:  getEnv("MODEL_QUERY_PARSE_PRIMARY", "gpt-4o-mini"),
		ModelQueryParseFallback: getEnv("MODEL_QUERY_PARSE_FALLBACK", "gpt-4o-mini"),
		ModelSummaryPrimary:     getEnv("MODEL_SUMMARY_PRIMARY", "gpt-4o-mini"),
		ModelSummaryFallback:    getEnv("MODEL_SUMMARY_FALLBACK", "gpt-4o-mini"),
		ModelReportPrimary:      getEnv("MODEL_REPORT_PRIMARY", "gpt-4o"),
		ModelReportFallback:     getEnv("MODEL_REPORT_FALLBACK", "gpt-4o-mini"),

		ParseCacheTTLSeconds: getEnvInt("PARSE_CACHE_TTL_SECONDS", 900),
		ParseCacheMaxEntries: getEnvInt("PARSE_CACHE_MAX_ENTRIES", 2000),

		YouTubeAPIKey:         getEnv("YOUTUBE_API_KEY", ""),
		YouTubeBaseURL:        getEnv("YOUTUBE_BASE_URL", "https://www.googleapis.com/youtube/v3"),
		YouTubeMaxVideos:      getEnvInt("YOUTUBE_MAX_VIDEOS", 3),
		YouTubeMinDurationMin: getEnvInt("YOUTUBE_MIN_DURATION_MIN", 10),
		YouTubeMaxDurationMin: getEnvInt("YOUTUBE_MAX_DURATION_MIN", 150),
		YouTubeTimeoutMS:      getEnvInt("YOUTUBE_TIMEOUT_MS", 15000),

		TwilioAccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioFromNumber: getEnv("TWILIO_FROM_NUMBER", ""),
		TwilioBaseURL:    getEnv("TWILIO_BASE_URL", "https://api.twilio.com"),
		TwilioWebhookURL: getEnv("TWILIO_WEBHOOK_URL", ""),

		ArtifactDir: getEnv("ARTIFACT_DIR", "docs"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisStream:   getEnv("REDIS_STREAM", "yt_analyses"),
		RedisDLQ:      getEnv("REDIS_DLQ_STREAM", "yt_analyses_dlq"),
		RedisGroup:    getEnv("REDIS_GROUP", "yt_workers"),
		RedisConsumer: getEnv("REDIS_CONSUMER", "api-1"),

		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS"),

		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 40),

		SchedulerRetryDelay: time.Duration(getEnvInt("SCHEDULER_RETRY_DELAY_SECONDS", 0)) * time.Second,
		SchedulerCronSpec:   getEnv("SCHEDULER_CRON_SPEC", "0 * * * *"),
		SchedulerEnabled:    getEnvBool("SCHEDULER_ENABLED", true),

		WorkerEnabled: getEnvBool("WORKER_ENABLED", true),
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	list := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			list = append(list, trimmed)
		}
	}
	return list
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
