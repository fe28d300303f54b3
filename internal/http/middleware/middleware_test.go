package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestCORSPreflightAllowedOrigin(t *testing.T) {
	nextCalled := false
	handler := CORS(CORSConfig{
		AllowedOrigins: []string{"https://dashboard.example.com"},
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		w.WriteHeader(http.StatusTeapot)
	}))

	request := httptest.NewRequest(http.MethodOptions, "/v1/analyze", nil)
	request.Header.Set("Origin", "https://dashboard.example.com")
	request.Header.Set("Access-Control-Request-Method", http.MethodPost)
	request.Header.Set("Access-Control-Request-Headers", "authorization,content-type")
	recorder := httptest.NewRecorder()

	handler.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, recorder.Code)
	}
	if nextCalled {
		t.Fatalf("expected preflight to short-circuit chain")
	}
	if got := recorder.Header().Get("Access-Control-Allow-Origin"); got != "https://dashboard.example.com" {
		t.Fatalf("expected allow origin header, got %q", got)
	}
	if got := recorder.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, http.MethodPost) {
		t.Fatalf("expected POST in allow methods, got %q", got)
	}
	if got := recorder.Header().Get("Access-Control-Allow-Headers"); !strings.Contains(strings.ToLower(got), "idempotency-key") {
		t.Fatalf("expected idempotency-key in allow headers, got %q", got)
	}
}

func TestCORSIgnoresDisallowedOrigin(t *testing.T) {
	nextCalled := false
	handler := CORS(CORSConfig{
		AllowedOrigins: []string{"https://dashboard.example.com"},
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		w.WriteHeader(http.StatusOK)
	}))

	request := httptest.NewRequest(http.MethodOptions, "/v1/analyze", nil)
	request.Header.Set("Origin", "https://evil.example")
	request.Header.Set("Access-Control-Request-Method", http.MethodPost)
	recorder := httptest.NewRecorder()

	handler.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected passthrough status %d, got %d", http.StatusOK, recorder.Code)
	}
	if !nextCalled {
		t.Fatalf("expected disallowed origin preflight to pass through")
	}
	if got := recorder.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected no allow-origin header for disallowed origin, got %q", got)
	}
}

func TestAuthRejectsBadTokenOnAPIRoutes(t *testing.T) {
	handler := Auth("secret-token")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	request := httptest.NewRequest(http.MethodPost, "/v1/schedules", nil)
	request.Header.Set("Authorization", "Bearer wrong-token")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", recorder.Code)
	}
}

func TestAuthAcceptsValidTokenAndSkipsWebhooks(t *testing.T) {
	handler := Auth("secret-token")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	authorized := httptest.NewRequest(http.MethodPost, "/v1/schedules", nil)
	authorized.Header.Set("Authorization", "Bearer secret-token")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, authorized)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200 for valid token, got %d", recorder.Code)
	}

	webhook := httptest.NewRequest(http.MethodPost, "/webhooks/twilio", nil)
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, webhook)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected webhook path to bypass bearer auth, got %d", recorder.Code)
	}
}

func TestRateLimitExemptsHealthEndpoint(t *testing.T) {
	handler := RateLimit(1, 1)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// Exhaust the per-IP budget on an API path.
	for i := 0; i < 3; i++ {
		request := httptest.NewRequest(http.MethodGet, "/v1/schedules", nil)
		request.RemoteAddr = "203.0.113.9:5000"
		handler.ServeHTTP(httptest.NewRecorder(), request)
	}
	limited := httptest.NewRequest(http.MethodGet, "/v1/schedules", nil)
	limited.RemoteAddr = "203.0.113.9:5000"
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, limited)
	if recorder.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after budget exhausted, got %d", recorder.Code)
	}

	health := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	health.RemoteAddr = "203.0.113.9:5000"
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, health)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected health probe to bypass limiter, got %d", recorder.Code)
	}
}

func TestTwilioSignatureValidation(t *testing.T) {
	const authToken = "twilio-auth-token"
	const webhookURL = "https://bot.example.com/webhooks/twilio"
	handler := TwilioSignature(authToken, webhookURL)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	form := "Body=daily+report&From=whatsapp%3A%2B5511999990000"
	signed := httptest.NewRequest(http.MethodPost, "/webhooks/twilio", strings.NewReader(form))
	signed.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	signed.Header.Set("X-Twilio-Signature", computeTwilioSignature(authToken, webhookURL, map[string][]string{
		"Body": {"daily report"},
		"From": {"whatsapp:+5511999990000"},
	}))
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, signed)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected signed webhook accepted, got %d", recorder.Code)
	}

	forged := httptest.NewRequest(http.MethodPost, "/webhooks/twilio", strings.NewReader(form))
	forged.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	forged.Header.Set("X-Twilio-Signature", "bm90LXRoZS1yZWFsLXNpZ25hdHVyZQ==")
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, forged)
	if recorder.Code != http.StatusForbidden {
		t.Fatalf("expected forged webhook rejected, got %d", recorder.Code)
	}

	apiRequest := httptest.NewRequest(http.MethodGet, "/v1/schedules", nil)
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, apiRequest)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected non-webhook path untouched, got %d", recorder.Code)
	}
}

func TestRequestIDRejectsNonUUIDHeader(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	request := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	request.Header.Set("X-Request-Id", "not-a-uuid")
	handler.ServeHTTP(httptest.NewRecorder(), request)

	if seen == "not-a-uuid" || uuid.Validate(seen) != nil {
		t.Fatalf("expected generated uuid request id, got %q", seen)
	}

	supplied := uuid.NewString()
	request = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	request.Header.Set("X-Request-Id", supplied)
	handler.ServeHTTP(httptest.NewRecorder(), request)
	if seen != supplied {
		t.Fatalf("expected valid uuid to be propagated, got %q", seen)
	}
}
