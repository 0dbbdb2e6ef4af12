package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sentinelstack/risk-engine/internal/api"
	"github.com/sentinelstack/risk-engine/internal/cache"
	"github.com/sentinelstack/risk-engine/internal/config"
	"github.com/sentinelstack/risk-engine/internal/engine"
	"github.com/sentinelstack/risk-engine/internal/llm"
	"github.com/sentinelstack/risk-engine/internal/metrics"
	"github.com/sentinelstack/risk-engine/internal/notify"
	"github.com/sentinelstack/risk-engine/internal/repo"
	"github.com/sentinelstack/risk-engine/internal/retrieval"
	"github.com/sentinelstack/risk-engine/internal/scoring"
	"github.com/sentinelstack/risk-engine/internal/semantics"
	"github.com/sentinelstack/risk-engine/internal/services"
	"github.com/sentinelstack/risk-engine/internal/synthesis"
	"github.com/sentinelstack/risk-engine/internal/taxonomy"
	"github.com/sentinelstack/risk-engine/internal/utils"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting risk-engine", slog.String("address", cfg.Server.Address))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	tax, err := taxonomy.Load(cfg.Taxonomy.Path)
	if err != nil {
		logger.Error("failed to load taxonomy", slog.String("path", cfg.Taxonomy.Path), slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("taxonomy loaded", slog.Int("categories", tax.Len()))

	var cacheProvider cache.Provider = cache.NoopProvider{}
	var valkeyCloser cache.Provider
	if cfg.Cache.Enabled && cfg.Cache.Addr != "" {
		provider, err := cache.NewValkeyProvider(cache.ValkeyConfig{
			Addr:         cfg.Cache.Addr,
			Username:     cfg.Cache.Username,
			Password:     cfg.Cache.Password,
			DB:           cfg.Cache.DB,
			DialTimeout:  cfg.Cache.DialTimeout,
			ReadTimeout:  cfg.Cache.ReadTimeout,
			WriteTimeout: cfg.Cache.WriteTimeout,
			MaxRetries:   cfg.Cache.MaxRetries,
			TLS:          cfg.Cache.TLS,
		})
		if err != nil {
			logger.Warn("valkey cache unavailable", slog.Any("error", err))
		} else {
			cacheProvider = provider
			valkeyCloser = provider
		}
	}
	if valkeyCloser != nil {
		defer valkeyCloser.Close()
	}

	llmClient := llm.NewClient(
		cfg.LLM.BaseURL,
		cfg.LLM.APIKey,
		cfg.LLM.CompletionModel,
		cfg.LLM.EmbeddingModel,
		cfg.LLM.Timeout,
	)
	if !llmClient.Enabled() {
		logger.Info("llm backend disabled, running on deterministic fallbacks")
	}

	storeClient := repo.NewEventStoreClient(
		cfg.Store.BaseURL,
		cfg.Store.PoolPath,
		cfg.Store.EventsPath,
		cfg.Store.ReviewsPath,
		cfg.Store.Timeout,
		cacheProvider,
		cfg.Cache.PoolTTL,
	)

	scorer := scoring.NewScorer(cfg.Scoring.MaxContentLength, nil, nil, nil)
	classifier := semantics.NewClassifier(tax)
	retriever := retrieval.NewRetriever(llmClient, logger)
	synthesizer := synthesis.NewSynthesizer(llmClient, tax, logger)

	pipeline := engine.NewPipeline(logger, tax, scorer, classifier, retriever, synthesizer, cfg.Retrieval.TopK)

	notifier := notify.NewWebhookNotifier(cfg.Alerts.WebhookURL, cfg.Alerts.Threshold, cfg.Alerts.Timeout, logger)

	analysisService := services.NewAnalysisService(logger, storeClient, pipeline, classifier, notifier, cfg.Store.PoolLimit)

	handler := api.NewHandler(logger, analysisService)
	server := api.NewServer(logger, cfg.Server.Address, handler.Routes())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		if serveErr := server.Start(); serveErr != nil {
			logger.Error("http server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown", slog.Any("error", err))
	}

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	// Give remaining goroutines time to finish logging
	time.Sleep(100 * time.Millisecond)
	logger.Info("risk-engine stopped")
}
