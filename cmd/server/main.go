package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"jenkins2ado/internal/config"
	"jenkins2ado/internal/conversion"
	"jenkins2ado/internal/core"
	"jenkins2ado/internal/evaluation"
	"jenkins2ado/internal/ledger"
	"jenkins2ado/internal/llm"
	"jenkins2ado/internal/logging"
	"jenkins2ado/internal/security"
	"jenkins2ado/internal/server"
	"jenkins2ado/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	keys, created, err := security.EnsureKeyPair(cfg.Keys.Dir)
	if err != nil {
		return fmt.Errorf("approval keys: %w", err)
	}
	if created {
		logger.Info("generated new approval keys", zap.String("dir", cfg.Keys.Dir))
	} else {
		logger.Info("loaded approval keys", zap.String("dir", cfg.Keys.Dir))
	}

	l, err := ledger.Open(cfg.Ledger.Path, keys)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	if err := l.Verify(); err != nil {
		logger.Warn("ledger verification failed at startup", zap.Error(err))
	}

	temp := cfg.LLM.Temperature
	client, err := llm.New(ctx, llm.Config{
		Provider:    cfg.LLM.Provider,
		Model:       cfg.LLM.Model,
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Timeout:     cfg.LLM.Timeout,
		Temperature: &temp,
	}, logger)
	if err != nil {
		return err
	}

	runner := core.NewRunner(core.NewStore(), core.Options{
		Converter:   conversion.NewConverter(client, logger),
		Evaluator:   evaluation.NewEvaluator(client, logger),
		Artifacts:   storage.NewArtifactStorage(cfg.Storage.ArtifactDir),
		Ledger:      l,
		Scheduler:   core.NewScheduler(cfg.Approval.RequirePassingEvaluation),
		StepTimeout: cfg.LLM.StepTimeout,
		Logger:      logger,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      server.New(runner, l, cfg.Server.MaxUploadBytes, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("j2ado server listening",
			zap.String("addr", httpServer.Addr),
			zap.String("llm", client.Name()),
			zap.Int("ledger_records", len(l.Records())))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
