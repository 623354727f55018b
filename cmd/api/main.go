package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/user/change-analysis-service/internal/adapter/bedrock_summarizer"
	"github.com/user/change-analysis-service/internal/adapter/chromedp_capturer"
	"github.com/user/change-analysis-service/internal/adapter/goquery_extractor"
	"github.com/user/change-analysis-service/internal/adapter/image_decoder"
	redis_adapter "github.com/user/change-analysis-service/internal/adapter/redis"
	"github.com/user/change-analysis-service/internal/delivery/http/handler"
	"github.com/user/change-analysis-service/internal/delivery/http/router"
	"github.com/user/change-analysis-service/internal/repository"
	"github.com/user/change-analysis-service/internal/usecase"
	"github.com/user/change-analysis-service/pkg/config"
	"github.com/user/change-analysis-service/pkg/logger"
)

const (
	maxImageFileBytes = 25 << 20
	idlePollInterval  = time.Second
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	engine, err := usecase.EngineConfigFrom(cfg)
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	// --- Logger ---
	logLevel, _ := cfg.SlogLevel()
	closeLog, err := logger.InitWithFile(os.Stdout, logLevel, cfg.LogFile)
	if err != nil {
		slog.Warn("Log file unavailable, logging to stdout only", "path", cfg.LogFile, "error", err)
	}
	defer closeLog()
	slog.Info("Logger initialized", "level", logLevel.String())

	// stopPolling ends the worker loops; cancelJobs aborts in-flight analyses
	// and only runs once the workers have drained.
	ctx, stopPolling := context.WithCancel(context.Background())
	defer stopPolling()
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()

	// --- Summarizer ---
	var summarizer repository.Summarizer
	if cfg.UseBedrock {
		bedrock, err := bedrock_summarizer.NewBedrockSummarizer(ctx, cfg.AWSRegion, cfg.BedrockModelID, cfg.IncludeImagesForLLM)
		if err != nil {
			slog.Warn("Bedrock unavailable, using local summaries", "error", err)
		} else {
			summarizer = bedrock
			slog.Info("Bedrock summarizer enabled", "model_id", cfg.BedrockModelID, "region", cfg.AWSRegion)
		}
	}

	// --- Use Cases ---
	extractor := goquery_extractor.NewGoqueryExtractor()
	analyzer := usecase.NewChangeAnalyzer(
		extractor,
		image_decoder.NewStdDecoder(maxImageFileBytes),
		summarizer,
		engine,
	)

	// Redis
	var (
		jobs    usecase.JobManager
		workers sync.WaitGroup
	)
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		slog.Warn("Unable to connect to Redis, job endpoints disabled", "addr", cfg.RedisAddr, "error", err)
	} else {
		slog.Info("Redis connection established")

		queueRepo := redis_adapter.NewQueueRepo(rdb)
		payloadRepo := redis_adapter.NewJobPayloadRepo(rdb)
		resultRepo := redis_adapter.NewResultCacheRepo(rdb)
		failedRepo := redis_adapter.NewFailedJobRepo(rdb)

		jobs = usecase.NewJobManager(queueRepo, payloadRepo, resultRepo, failedRepo, cfg.CacheTTL())
		worker := usecase.NewJobWorker(queueRepo, payloadRepo, resultRepo, failedRepo, analyzer, cfg.CacheTTL())

		for i := 0; i < cfg.MaxConcurrency; i++ {
			workers.Add(1)
			go func(id int) {
				defer workers.Done()
				runWorker(ctx, jobCtx, id, queueRepo, worker)
			}(i)
		}
		slog.Info("Job workers started", "count", cfg.MaxConcurrency)
	}

	// --- Page capture ---
	var capturer repository.SnapshotCapturer
	if cfg.CaptureEnabled {
		browserLog, err := logger.Browser(logLevel)
		if err != nil {
			slog.Error("Failed to build browser logger", "error", err)
			os.Exit(1)
		}
		defer browserLog.Sync()
		chrome := chromedp_capturer.NewChromedpCapturer(cfg.MaxConcurrency, cfg.PageLoadTimeout(), browserLog)
		defer chrome.Close()
		capturer = chrome
		slog.Info("Page capture enabled", "page_load_timeout", cfg.PageLoadTimeout().String())
	}

	// --- HTTP Server ---
	apiHandler := handler.NewHandler(analyzer, extractor, jobs, capturer)
	httpRouter := router.New(apiHandler)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      httpRouter,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("Starting server", "port", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Could not listen on port", "port", cfg.ServerPort, "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stopPolling()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
	workers.Wait()
	cancelJobs()

	slog.Info("Server exiting")
}

// runWorker drains the queue until ctx is cancelled, sleeping while it is
// empty. Jobs run under jobCtx so a job already popped finishes on shutdown.
func runWorker(ctx, jobCtx context.Context, id int, queue repository.QueueRepository, worker usecase.JobWorker) {
	for {
		if ctx.Err() != nil {
			return
		}
		size, err := queue.Size(ctx)
		if err == nil && size > 0 {
			if err := worker.ProcessJobFromQueue(jobCtx); err != nil {
				slog.Error("Worker failed to process job", "worker", id, "error", err)
			} else {
				continue
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(idlePollInterval):
		}
	}
}
