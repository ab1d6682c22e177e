package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/httplog/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cheetahbyte/licensor/internal/api"
	"github.com/cheetahbyte/licensor/internal/config"
	"github.com/cheetahbyte/licensor/internal/handlers"
	"github.com/cheetahbyte/licensor/internal/licensecrypto"
	"github.com/cheetahbyte/licensor/internal/metrics"
	"github.com/cheetahbyte/licensor/internal/services"
	"github.com/cheetahbyte/licensor/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := run(cfg); err != nil {
		slog.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	level, err := cfg.SlogLevel()
	if err != nil {
		return err
	}
	httpLogger := httplog.NewLogger("licensor", httplog.Options{
		LogLevel:         level,
		JSON:             cfg.LogFormat == "json",
		Concise:          true,
		MessageFieldName: "msg",
	})
	logger := httpLogger.Logger
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	licenses, err := store.Open(connectCtx, cfg, logger)
	cancel()
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := licenses.Close(closeCtx); err != nil {
			logger.Error("failed to close license store", "err", err)
		}
	}()

	issuer, err := licensecrypto.NewIssuer(cfg.JWTSecret, cfg.JWTPrivateKey)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	stack := services.InitServices(services.Deps{
		Store:   licenses,
		Issuer:  issuer,
		Metrics: metrics.New(reg),
		Logger:  logger,
	})

	r := api.NewRouter(handlers.New(stack, logger), api.Options{
		RequestLogger:  httpLogger,
		AllowedOrigins: cfg.AllowedOrigins,
		Timeout:        cfg.RequestTimeout,
		AdminGate:      api.NewAdminGate(cfg.AdminKeyHash, logger),
		Metrics:        promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server running", "addr", srv.Addr, "store", cfg.StoreDriver, "alg", issuer.Algorithm())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
