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

	"github.com/inquestlabs/inquest-engine/internal/api"
	"github.com/inquestlabs/inquest-engine/internal/cache"
	"github.com/inquestlabs/inquest-engine/internal/config"
	"github.com/inquestlabs/inquest-engine/internal/engine"
	"github.com/inquestlabs/inquest-engine/internal/labeler"
	"github.com/inquestlabs/inquest-engine/internal/metrics"
	"github.com/inquestlabs/inquest-engine/internal/patterns"
	"github.com/inquestlabs/inquest-engine/internal/repo"
	"github.com/inquestlabs/inquest-engine/internal/services"
	"github.com/inquestlabs/inquest-engine/internal/store"
	"github.com/inquestlabs/inquest-engine/internal/utils"
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
	logger.Info("starting inquest-engine", slog.String("address", cfg.Server.Address))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	var cacheProvider cache.Provider = cache.NoopProvider{}
	if cfg.Cache.Enabled && cfg.Cache.Addr != "" {
		provider, err := cache.NewValkeyProvider(cache.ValkeyConfig{
			Addr:         cfg.Cache.Addr,
			Username:     cfg.Cache.Username,
			Password:     cfg.Cache.Password,
			DB:           cfg.Cache.DB,
			DialTimeout:  cfg.Cache.DialTimeout,
			ReadTimeout:  cfg.Cache.ReadTimeout,
			WriteTimeout: cfg.Cache.WriteTimeout,
			TLS:          cfg.Cache.TLS,
		})
		if err != nil {
			logger.Warn("valkey cache unavailable, falling back to in-process cache", slog.Any("error", err))
			cacheProvider = cache.NewMemoryProvider()
		} else {
			cacheProvider = provider
		}
	} else if cfg.Cache.Enabled {
		cacheProvider = cache.NewMemoryProvider()
	}
	defer cacheProvider.Close()

	db, err := store.Open(cfg.Storage.Path)
	if err != nil {
		logger.Error("failed to open store", slog.String("path", cfg.Storage.Path), slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	rules, err := engine.LoadCredibilityRules(cfg.Credibility.Path, logger)
	if err != nil {
		logger.Error("failed to load credibility rules", slog.Any("error", err))
		os.Exit(1)
	}

	ingestor := engine.NewIngestor(logger, rules)
	pathEngine := engine.NewPathEngine(logger, engine.PathConfig{
		MaxPathLength:           cfg.Engine.MaxPathLength,
		DecisiveWeakenThreshold: cfg.Engine.DecisiveWeakenThreshold,
		WeakEdgeThreshold:       cfg.Engine.WeakEdgeThreshold,
		RecencyDecay:            cfg.Engine.RecencyDecay,
		ActiveThreshold:         cfg.Engine.ActiveThreshold,
		WeakThreshold:           cfg.Engine.WeakThreshold,
	})

	var pathLabeler engine.Labeler
	if cfg.Labeler.Enabled {
		l, err := labeler.NewOllamaLabeler(cfg.Labeler.Host, cfg.Labeler.Model)
		if err != nil {
			logger.Warn("hypothesis labeler unavailable", slog.Any("error", err))
		} else {
			pathLabeler = l
		}
	}

	service := services.NewInvestigationService(
		logger,
		db,
		ingestor,
		pathEngine,
		pathLabeler,
		cacheProvider,
		cfg.Cache.BriefingTTL,
		cfg.Engine.WeakEdgeThreshold,
	)

	var extractor *repo.ExtractionClient
	if cfg.Extraction.BaseURL != "" {
		extractor = repo.NewExtractionClient(
			cfg.Extraction.BaseURL,
			cfg.Extraction.SignalsPath,
			cfg.Extraction.Timeout,
			cacheProvider,
			cfg.Extraction.CacheTTL,
		)
	}

	handler := api.NewHandler(logger, service, patterns.NewMiner(logger), extractor)
	server := api.NewServer(cfg.Server, handler, logger)

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
		if serveErr := server.Start(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.Error("http server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown", slog.Any("error", err))
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
	logger.Info("inquest-engine stopped", slog.Duration("recompute_p95", service.RecomputeP95()))
}
