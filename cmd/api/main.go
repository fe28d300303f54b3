package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iago/youtube-agent-back/internal/ai"
	"github.com/iago/youtube-agent-back/internal/artifact"
	"github.com/iago/youtube-agent-back/internal/cache"
	"github.com/iago/youtube-agent-back/internal/config"
	httpserver "github.com/iago/youtube-agent-back/internal/http"
	"github.com/iago/youtube-agent-back/internal/http/handlers"
	"github.com/iago/youtube-agent-back/internal/queue"
	"github.com/iago/youtube-agent-back/internal/repository"
	"github.com/iago/youtube-agent-back/internal/search"
	"github.com/iago/youtube-agent-back/internal/service"
	"github.com/iago/youtube-agent-back/internal/whatsapp"
	"github.com/iago/youtube-agent-back/internal/worker"
)

func main() {
	logger := log.New(os.Stdout, "[yt-agent] ", log.LstdFlags|log.LUTC|log.Lmicroseconds)
	if err := config.LoadDotEnv(".env", ".env.local"); err != nil {
		logger.Printf("failed loading .env files: %v", err)
	}
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, repoCloser := setupRepository(ctx, cfg, logger)
	defer repoCloser()

	producer, consumer, queueCloser := setupQueue(ctx, cfg, logger)
	defer queueCloser()

	sender := whatsapp.NewTwilioClient(whatsapp.TwilioConfig{
		AccountSID: cfg.TwilioAccountSID,
		AuthToken:  cfg.TwilioAuthToken,
		FromNumber: cfg.TwilioFromNumber,
		BaseURL:    cfg.TwilioBaseURL,
	})
	if !sender.Available() {
		logger.Printf("twilio credentials not configured, outbound messages disabled")
	}

	scheduler := service.NewSchedulerService(repo, logger, service.SchedulerConfig{
		RetryDelay: cfg.SchedulerRetryDelay,
		Notifier:   whatsapp.NewScheduleNotifier(sender, logger),
	})

	modelRouter := ai.NewModelRouter(ai.ModelRouterConfig{
		QueryParsePrimary:  cfg.ModelQueryParsePrimary,
		QueryParseFallback: cfg.ModelQueryParseFallback,
		SummaryPrimary:     cfg.ModelSummaryPrimary,
		SummaryFallback:    cfg.ModelSummaryFallback,
		ReportPrimary:      cfg.ModelReportPrimary,
		ReportFallback:     cfg.ModelReportFallback,
	})
	aiClient := ai.NewClient(ai.ClientConfig{
		APIKey:     cfg.OpenAIAPIKey,
		BaseURL:    cfg.OpenAIBaseURL,
		Timeout:    time.Duration(cfg.OpenAITimeoutMS) * time.Millisecond,
		MaxRetries: cfg.OpenAIMaxRetries,
	})
	if !aiClient.Available() {
		logger.Printf("OPENAI_API_KEY not configured, using heuristic parsing and metadata-only analyses")
	}
	parseCache := cache.NewParseCache(cache.Config{
		TTL:        time.Duration(cfg.ParseCacheTTLSeconds) * time.Second,
		MaxEntries: cfg.ParseCacheMaxEntries,
	})
	parser := ai.NewQueryParser(aiClient, modelRouter, parseCache, logger)

	searchClient := search.NewClient(search.ClientConfig{
		APIKey:             cfg.YouTubeAPIKey,
		BaseURL:            cfg.YouTubeBaseURL,
		Timeout:            time.Duration(cfg.YouTubeTimeoutMS) * time.Millisecond,
		MinDurationMinutes: cfg.YouTubeMinDurationMin,
		MaxDurationMinutes: cfg.YouTubeMaxDurationMin,
	})
	if !searchClient.Available() {
		logger.Printf("YOUTUBE_API_KEY not configured, video discovery will fail")
	}

	analysis := service.NewAnalysisService(service.AnalysisDependencies{
		Search:    searchClient,
		Generator: aiClient,
		Router:    modelRouter,
		Artifacts: artifact.NewLocalStore(cfg.ArtifactDir),
		Logger:    logger,
		MaxVideos: cfg.YouTubeMaxVideos,
	})

	api := handlers.NewAPI(handlers.APIDependencies{
		Scheduler: scheduler,
		Parser:    parser,
		Producer:  producer,
		Sender:    sender,
		Logger:    logger,
	})

	handler := httpserver.NewRouter(httpserver.RouterDependencies{
		API:              api,
		Logger:           logger,
		AuthToken:        cfg.AuthToken,
		TwilioAuthToken:  cfg.TwilioAuthToken,
		TwilioWebhookURL: cfg.TwilioWebhookURL,
		CORSOrigins:      cfg.CORSAllowedOrigins,
		RateLimitRPS:     cfg.RateLimitRPS,
		RateLimitBurst:   cfg.RateLimitBurst,
	})

	if cfg.WorkerEnabled {
		processor := worker.NewProcessor(consumer, analysis, scheduler, sender, logger)
		go processor.Start(ctx)
		logger.Printf("worker enabled and started")
	} else {
		logger.Printf("worker disabled by configuration")
	}

	if cfg.SchedulerEnabled {
		ticker := worker.NewTicker(scheduler, producer, logger, worker.TickerConfig{Spec: cfg.SchedulerCronSpec})
		go func() {
			if err := ticker.Start(ctx); err != nil {
				logger.Printf("schedule trigger failed to start: %v", err)
			}
		}()
		logger.Printf("schedule trigger started spec=%q", cfg.SchedulerCronSpec)
	} else {
		logger.Printf("schedule trigger disabled by configuration")
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Printf("api listening on :%s", cfg.Port)
		errChan <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Printf("shutdown signal received")
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("server failed: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	}
}

func setupRepository(
	ctx context.Context,
	cfg config.Config,
	logger *log.Logger,
) (repository.JobsRepository, func()) {
	if cfg.DatabaseURL == "" {
		logger.Printf("DATABASE_URL not configured, using in-memory repository")
		return repository.NewMemoryJobsRepository(), func() {}
	}

	pgRepo, err := repository.NewPostgresJobsRepository(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Printf("failed to initialize postgres repository, fallback to memory: %v", err)
		return repository.NewMemoryJobsRepository(), func() {}
	}
	logger.Printf("postgres repository initialized")
	return pgRepo, func() {
		pgRepo.Close()
	}
}

func setupQueue(
	ctx context.Context,
	cfg config.Config,
	logger *log.Logger,
) (queue.Producer, queue.Consumer, func()) {
	if cfg.RedisAddr == "" {
		logger.Printf("REDIS_ADDR not configured, using local queue fallback")
		local := queue.NewLocalQueue(512, 3, logger)
		return local, local, func() {}
	}

	streams, err := queue.NewStreamsQueue(ctx, queue.StreamsConfig{
		Addr:        cfg.RedisAddr,
		Password:    cfg.RedisPassword,
		DB:          cfg.RedisDB,
		Stream:      cfg.RedisStream,
		DLQStream:   cfg.RedisDLQ,
		Group:       cfg.RedisGroup,
		Consumer:    cfg.RedisConsumer,
		MaxAttempts: 3,
	})
	if err != nil {
		logger.Printf("failed to initialize redis streams queue, fallback to local: %v", err)
		local := queue.NewLocalQueue(512, 3, logger)
		return local, local, func() {}
	}

	logger.Printf("redis streams queue initialized")
	return streams, streams, func() {
		_ = streams.Close()
	}
}
