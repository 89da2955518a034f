package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/geminibot/internal/config"
	"github.com/kailas-cloud/geminibot/internal/metrics"
	usagerepo "github.com/kailas-cloud/geminibot/internal/repository/usage"
	chiTransport "github.com/kailas-cloud/geminibot/internal/transport/chi"
	lambdaTransport "github.com/kailas-cloud/geminibot/internal/transport/lambda"
	slackTransport "github.com/kailas-cloud/geminibot/internal/transport/slack"
	healthuc "github.com/kailas-cloud/geminibot/internal/usecase/health"
	usageuc "github.com/kailas-cloud/geminibot/internal/usecase/usage"
)

// SocketCmd answers mentions over Socket Mode until interrupted.
type SocketCmd struct{}

func (c *SocketCmd) Run(cli *CLI) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := bootstrap(ctx, cli, config.ModeSocket)
	if err != nil {
		return err
	}
	defer b.Close()

	runner := slackTransport.NewSocketRunner(b.slack, b.dispatcher, b.logger)
	if err := runner.Run(ctx); err != nil {
		return err
	}
	b.logger.Info("Socket mode stopped")
	return nil
}

// LambdaCmd serves function URL invocations. It does not return.
type LambdaCmd struct{}

func (c *LambdaCmd) Run(cli *CLI) error {
	b, err := bootstrap(context.Background(), cli, config.ModeLambda)
	if err != nil {
		return err
	}
	defer b.Close()

	lambdaTransport.Start(lambdaTransport.NewHandler(b.eventsAdapter(), b.logger))
	return nil
}

// ServeCmd serves the Events API endpoint plus health, usage and metrics routes.
type ServeCmd struct {
	Port int `help:"HTTP port (overrides http.port)."`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx := context.Background()

	b, err := bootstrap(ctx, cli, config.ModeServe)
	if err != nil {
		return err
	}
	defer b.Close()

	cfg := b.cfg
	logger := b.logger
	if c.Port > 0 {
		cfg.HTTP.Port = c.Port
	}

	usageSvc := usageuc.New(b.usage, cfg.Quota.DailyLimit, b.loc)
	healthSvc := healthuc.New(b.store, b.slack)
	server := chiTransport.NewServer(b.eventsAdapter(), usageSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-quit:
		logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
	return nil
}

// UsageCmd prints today's usage report as JSON. Reading does not consume quota.
type UsageCmd struct{}

func (c *UsageCmd) Run(cli *CLI) error {
	ctx := context.Background()

	cfg, err := loadConfig(cli)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("create quota store: %w", err)
	}
	defer store.Close()

	svc := usageuc.New(usagerepo.New(store, cfg.Storage.KeyPrefix), cfg.Quota.DailyLimit, loc)
	report, err := svc.GetReport(ctx)
	if err != nil {
		return err
	}

	b := report.Budget()
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"date":         report.Date(),
		"used":         report.Used(),
		"limit":        b.Limit(),
		"remaining":    b.Remaining(),
		"is_exhausted": b.IsExhausted(),
		"resets_at":    time.Unix(b.ResetsAt(), 0).In(loc).Format(time.RFC3339),
	})
}
