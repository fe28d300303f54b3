package httpserver

import (
	"log"
	"net/http"

	"github.com/iago/youtube-agent-back/internal/http/handlers"
	"github.com/iago/youtube-agent-back/internal/http/middleware"
)

type RouterDependencies struct {
	API              *handlers.API
	Logger           *log.Logger
	AuthToken        string
	TwilioAuthToken  string
	TwilioWebhookURL string
	CORSOrigins      []string
	RateLimitRPS     float64
	RateLimitBurst   int
}

func NewRouter(deps RouterDependencies) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", deps.API.Health)
	mux.HandleFunc("/v1/analyze", deps.API.Analyze)
	mux.HandleFunc("/v1/schedules", deps.API.Schedules)
	mux.HandleFunc("/v1/jobs/", deps.API.JobStatus)
	mux.HandleFunc("/webhooks/twilio", deps.API.TwilioWebhook)

	handler := http.Handler(mux)
	handler = middleware.TwilioSignature(deps.TwilioAuthToken, deps.TwilioWebhookURL)(handler)
	handler = middleware.Auth(deps.AuthToken)(handler)
	handler = middleware.RateLimit(deps.RateLimitRPS, deps.RateLimitBurst)(handler)
	handler = middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: deps.CORSOrigins,
	})(handler)
	handler = middleware.Trace(deps.Logger)(handler)
	handler = middleware.RequestID(handler)

	return handler
}
