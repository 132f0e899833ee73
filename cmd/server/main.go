package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/igotools/coursevault/internal/client"
	"github.com/igotools/coursevault/internal/config"
	"github.com/igotools/coursevault/internal/metrics"
	"github.com/igotools/coursevault/internal/notify"
	"github.com/igotools/coursevault/internal/runner"
	"github.com/igotools/coursevault/internal/web"
)

func main() {
	cfg := config.GetConfig()
	logger := config.GetLogger()

	logger.Info().
		Str("base_url", cfg.BaseURL).
		Str("download_dir", cfg.DownloadDir).
		Str("server_address", cfg.Server.Address).
		Int("server_port", cfg.Server.Port).
		Msg("Application started with configuration")

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN}); err != nil {
			logger.Warn().Err(err).Msg("Sentry initialization failed, continuing without it")
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	httpClient := client.NewClient(cfg)
	defer func() {
		if err := httpClient.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close HTTP client")
		}
	}()

	runSupervisor := runner.New(httpClient, cfg, notify.New(cfg))
	server := web.NewHTTPServer(web.New(runSupervisor, cfg))

	// Start Prometheus metrics HTTP server
	if cfg.Metrics.Enabled {
		metricsServer := metrics.NewHTTPServer(cfg.Server.Address, cfg.Metrics.Port)
		go func() {
			logger.Info().Str("address", metricsServer.Addr).Msg("Starting Prometheus metrics HTTP server")
			if err := metricsServer.ListenAndServe(); err != nil && err.Error() != "http: Server closed" {
				logger.Fatal().Err(err).Msg("Failed to serve metrics")
			}
		}()
		defer func() {
			if err := metricsServer.Shutdown(context.Background()); err != nil {
				logger.Error().Err(err).Msg("Failed to shutdown metrics server")
			}
		}()
	}

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		runSupervisor.Shutdown()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("Failed to shutdown web server")
		}
	}()

	logger.Info().Str("address", server.Addr).Msg("Starting web server")
	if err := server.ListenAndServe(); err != nil && err.Error() != "http: Server closed" {
		logger.Fatal().Err(err).Msg("Failed to serve")
	}

	logger.Info().Msg("Server stopped gracefully")
}
