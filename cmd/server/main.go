package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"honeypot/internal/config"
	"honeypot/internal/gemini"
	"honeypot/internal/handler"
	"honeypot/internal/honeypot"
	"honeypot/internal/persona"
	"honeypot/internal/report"
	"honeypot/internal/repository"
	"honeypot/internal/session"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("Starting Honeypot Service...")

	cfgPath := "configs/config.yml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Gemini backs both the classifier and the generator capabilities.
	if cfg.Gemini.APIKey == "" {
		logger.Fatal("Gemini API key not configured. Set it in configs/config.yml or via environment variable")
	}
	llmClient, err := gemini.NewClient(ctx, gemini.Config{
		APIKey:     cfg.Gemini.APIKey,
		ModelName:  cfg.Gemini.ModelName,
		MaxRetries: cfg.Gemini.MaxRetries,
		RetryDelay: time.Duration(cfg.Gemini.RetryDelaySeconds) * time.Second,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize Gemini client", zap.Error(err))
	}
	defer llmClient.Close()

	dispatcher := report.NewDispatcher(
		cfg.Sink.URL,
		time.Duration(cfg.Sink.TimeoutSeconds)*time.Second,
		cfg.Sink.MaxAttempts,
		time.Duration(cfg.Sink.BackoffSeconds)*time.Second,
		logger,
	)

	// Report archive is optional supporting infrastructure: a failure to
	// open it does not block the service.
	var archive *repository.ReportArchive
	if cfg.Archive.Path != "" {
		os.MkdirAll(filepath.Dir(cfg.Archive.Path), 0755)
		archive, err = repository.NewReportArchive(cfg.Archive.Path, logger)
		if err != nil {
			logger.Warn("Failed to open report archive, continuing without it", zap.Error(err))
			archive = nil
		} else {
			defer archive.Close()
		}
	}

	store := session.NewStore(logger)

	var archiver honeypot.Archiver
	if archive != nil {
		archiver = archive
	}
	engine := honeypot.NewEngine(store, persona.NewRegistry(), llmClient, llmClient, dispatcher, archiver,
		logger, 10*time.Second, 20*time.Second)

	if cfg.Session.IdleTimeoutSeconds > 0 {
		watcher := honeypot.NewIdleWatcher(engine, store,
			time.Duration(cfg.Session.IdleTimeoutSeconds)*time.Second,
			time.Duration(cfg.Session.SweepIntervalSeconds)*time.Second,
			logger)
		go watcher.Run(ctx)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()
	handler.NewHandler(engine, logger).RegisterRoutes(router, cfg.Server.APIKey)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	logger.Info("Honeypot Service is running",
		zap.String("port", cfg.Server.Port),
		zap.String("model", cfg.Gemini.ModelName))

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
