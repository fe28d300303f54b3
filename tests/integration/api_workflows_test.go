package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/iago/youtube-agent-back/internal/ai"
	"github.com/iago/youtube-agent-back/internal/artifact"
	"github.com/iago/youtube-agent-back/internal/cache"
	"github.com/iago/youtube-agent-back/internal/domain"
	httpserver "github.com/iago/youtube-agent-back/internal/http"
	"github.com/iago/youtube-agent-back/internal/http/handlers"
	"github.com/iago/youtube-agent-back/internal/queue"
	"github.com/iago/youtube-agent-back/internal/repository"
	"github.com/iago/youtube-agent-back/internal/search"
	"github.com/iago/youtube-agent-back/internal/service"
	"github.com/iago/youtube-agent-back/internal/whatsapp"
	"github.com/iago/youtube-agent-back/internal/worker"
)

type stubVideoProvider struct{}

func (stubVideoProvider) SearchAndFilter(_ context.Context, query, _ string, _ int, maxResults int) ([]search.Video, error) {
	videos := make([]search.Video, 0, maxResults)
	for i := 0; i < maxResults; i++ {
		videos = append(videos, search.Video{
			ID:           fmt.Sprintf("vid%08d", i),
			URL:          fmt.Sprintf("https://www.youtube.com/watch?v=vid%08d", i),
			Title:        fmt.Sprintf("%s video %d", query, i+1),
			ChannelTitle: "Integration Channel",
			Description:  "Stub description for integration flows.",
			PublishedAt:  time.Now().UTC().Add(-2 * time.Hour),
			ViewCount:    50000,
			Duration:     30 * time.Minute,
		})
	}
	return videos, nil
}

func (stubVideoProvider) GetVideoByURL(_ context.Context, videoURL string) (*search.Video, error) {
	return &search.Video{
		ID:          "single00001",
		URL:         videoURL,
		Title:       "Single Integration Video",
		PublishedAt: time.Now().UTC().Add(-time.Hour),
		ViewCount:   80000,
		Duration:    20 * time.Minute,
	}, nil
}

type memorySender struct {
	mu       sync.Mutex
	messages []string
}

func (s *memorySender) SendMessage(_ context.Context, _, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, body)
	return nil
}

func (s *memorySender) snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.messages...)
}

type integrationRuntime struct {
	server    *httptest.Server
	scheduler *service.SchedulerService
	ticker    *worker.Ticker
	repo      *repository.MemoryJobsRepository
	sender    *memorySender
	cancel    context.CancelFunc
}

func startIntegrationRuntime(t *testing.T) integrationRuntime {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	logger := log.New(io.Discard, "", 0)
	repo := repository.NewMemoryJobsRepository()
	localQueue := queue.NewLocalQueue(2048, 3, logger)
	sender := &memorySender{}

	scheduler := service.NewSchedulerService(repo, logger, service.SchedulerConfig{
		Notifier: whatsapp.NewScheduleNotifier(sender, logger),
	})
	modelRouter := ai.NewModelRouter(ai.ModelRouterConfig{})
	parser := ai.NewQueryParser(nil, modelRouter, cache.NewParseCache(cache.Config{}), logger)
	analysis := service.NewAnalysisService(service.AnalysisDependencies{
		Search:    stubVideoProvider{},
		Generator: nil, // heuristic parsing + metadata analyses keep the run deterministic.
		Router:    modelRouter,
		Artifacts: artifact.NewLocalStore(t.TempDir()),
		Logger:    logger,
	})

	api := handlers.NewAPI(handlers.APIDependencies{
		Scheduler: scheduler,
		Parser:    parser,
		Producer:  localQueue,
		Sender:    sender,
		Logger:    logger,
	})
	router := httpserver.NewRouter(httpserver.RouterDependencies{
		API:            api,
		Logger:         logger,
		AuthToken:      "",
		RateLimitRPS:   20000,
		RateLimitBurst: 20000,
	})

	processor := worker.NewProcessor(localQueue, analysis, scheduler, sender, logger)
	go processor.Start(ctx)
	ticker := worker.NewTicker(scheduler, localQueue, logger, worker.TickerConfig{})

	server := httptest.NewServer(router)
	return integrationRuntime{
		server:    server,
		scheduler: scheduler,
		ticker:    ticker,
		repo:      repo,
		sender:    sender,
		cancel: func() {
			cancel()
			server.Close()
		},
	}
}

func postJSON(
	t *testing.T,
	client *http.Client,
	target string,
	payload any,
	headers map[string]string,
) (int, map[string]any) {
	t.Helper()

	encoded, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	request, err := http.NewRequest(http.MethodPost, target, bytes.NewReader(encoded))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	request.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		request.Header.Set(key, value)
	}

	response, err := client.Do(request)
	if err != nil {
		t.Fatalf("execute request: %v", err)
	}
	defer response.Body.Close()

	raw, _ := io.ReadAll(response.Body)
	if len(raw) == 0 {
		return response.StatusCode, map[string]any{}
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decode response body (%d): %s", response.StatusCode, string(raw))
	}
	return response.StatusCode, decoded
}

func getJSON(t *testing.T, client *http.Client, target string) (int, map[string]any) {
	t.Helper()
	response, err := client.Get(target)
	if err != nil {
		t.Fatalf("execute get request: %v", err)
	}
	defer response.Body.Close()

	raw, _ := io.ReadAll(response.Body)
	if len(raw) == 0 {
		return response.StatusCode, map[string]any{}
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decode get response body (%d): %s", response.StatusCode, string(raw))
	}
	return response.StatusCode, decoded
}

func waitForMessage(t *testing.T, sender *memorySender, fragment string, timeout time.Duration) string {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		for _, message := range sender.snapshot() {
			if strings.Contains(message, fragment) {
				return message
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for message containing %q, got %+v", fragment, sender.snapshot())
	return ""
}

func TestOneShotAnalysisDeliversResult(t *testing.T) {
	runtime := startIntegrationRuntime(t)
	defer runtime.cancel()

	client := runtime.server.Client()
	status, body := postJSON(t, client, runtime.server.URL+"/v1/analyze", map[string]any{
		"user_id": "+5511999990000",
		"text":    "analyze the latest videos about distributed systems",
	}, nil)
	if status != http.StatusAccepted {
		t.Fatalf("expected 202 from analyze, got %d body=%+v", status, body)
	}
	if taskID, _ := body["task_id"].(string); taskID == "" {
		t.Fatalf("expected task_id, got %+v", body)
	}

	delivered := waitForMessage(t, runtime.sender, "Batch Analysis Results", 4*time.Second)
	if !strings.Contains(delivered, "Final report") {
		t.Fatalf("expected final report link in delivery, got %q", delivered)
	}
}

func TestScheduledLifecycleAcrossTriggerPasses(t *testing.T) {
	runtime := startIntegrationRuntime(t)
	defer runtime.cancel()

	client := runtime.server.Client()
	status, body := postJSON(t, client, runtime.server.URL+"/v1/schedules", map[string]any{
		"user_id":        "+5511999990000",
		"query":          "site reliability talks",
		"frequency":      "daily",
		"preferred_time": "09:00",
	}, nil)
	if status != http.StatusCreated {
		t.Fatalf("expected 201 from schedules, got %d body=%+v", status, body)
	}
	jobID, _ := body["job_id"].(string)
	if jobID == "" {
		t.Fatalf("expected job_id, got %+v", body)
	}

	listStatus, listBody := getJSON(t, client, runtime.server.URL+"/v1/schedules?user_id="+url.QueryEscape("+5511999990000"))
	if listStatus != http.StatusOK {
		t.Fatalf("expected 200 from schedule list, got %d body=%+v", listStatus, listBody)
	}
	if total, _ := listBody["total"].(float64); total != 1 {
		t.Fatalf("expected one schedule listed, got %+v", listBody)
	}

	// Move the job into the trigger's admission window and run one pass.
	nextRun := time.Now().UTC().Truncate(time.Hour)
	err := runtime.repo.MutateJob(context.Background(), jobID, func(job *domain.ScheduledJob) error {
		job.NextRun = nextRun
		return nil
	})
	if err != nil {
		t.Fatalf("pin next_run: %v", err)
	}
	runtime.ticker.RunPass(context.Background())

	waitForMessage(t, runtime.sender, "Next run", 4*time.Second)

	jobStatus, jobBody := getJSON(t, client, runtime.server.URL+"/v1/jobs/"+jobID)
	if jobStatus != http.StatusOK {
		t.Fatalf("expected 200 from job status, got %d body=%+v", jobStatus, jobBody)
	}
	if jobBody["status"] != "pending" {
		t.Fatalf("expected pending after completed run, got %+v", jobBody)
	}
	if jobBody["last_run"] == nil {
		t.Fatalf("expected last_run recorded, got %+v", jobBody)
	}
}

func TestTwilioWebhookToScheduleRoundTrip(t *testing.T) {
	runtime := startIntegrationRuntime(t)
	defer runtime.cancel()

	form := url.Values{}
	form.Set("From", "whatsapp:+5511999990000")
	form.Set("Body", "send me a daily report about platform engineering at 7am")

	response, err := runtime.server.Client().Post(
		runtime.server.URL+"/webhooks/twilio",
		"application/x-www-form-urlencoded",
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		t.Fatalf("post webhook: %v", err)
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from webhook, got %d", response.StatusCode)
	}

	waitForMessage(t, runtime.sender, "Analysis scheduled", 2*time.Second)

	listStatus, listBody := getJSON(
		t,
		runtime.server.Client(),
		runtime.server.URL+"/v1/schedules?user_id="+url.QueryEscape("+5511999990000"),
	)
	if listStatus != http.StatusOK {
		t.Fatalf("expected 200 from schedule list, got %d body=%+v", listStatus, listBody)
	}
	if total, _ := listBody["total"].(float64); total != 1 {
		t.Fatalf("expected one schedule after webhook, got %+v", listBody)
	}
}
