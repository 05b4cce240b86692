package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/paperpulse/internal/bootstrap"
	"github.com/kirillkom/paperpulse/internal/config"
	"github.com/kirillkom/paperpulse/internal/core/domain"
	"github.com/kirillkom/paperpulse/internal/observability/logging"
)

const (
	serviceName    = "paperpulse-worker"
	processTimeout = 5 * time.Minute
)

func main() {
	if err := run(); err != nil {
		slog.Error("worker_exit", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if !cfg.QueueEnabled {
		return errors.New("worker requires QUEUE_ENABLED=true")
	}
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger, bootstrap.Options{WithQueue: true, MetricsService: serviceName})
	if err != nil {
		return err
	}
	defer app.Close()

	mux := http.NewServeMux()
	mux.Handle("/metrics", app.WorkerMetrics.Handler())
	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("worker_metrics_listening", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		logger.Info("worker_subscribed", "subject", cfg.NATSSubject, "recognizer", cfg.RecognizerBackend)
		return app.Queue.SubscribeDocumentUploaded(gctx, func(handlerCtx context.Context, event domain.UploadEvent) error {
			processCtx, cancel := context.WithTimeout(handlerCtx, processTimeout)
			defer cancel()

			start := time.Now()
			app.WorkerMetrics.StartDocument()
			meta, err := app.TriggerUC.HandleUpload(processCtx, event)
			app.WorkerMetrics.FinishDocument(time.Since(start), err)
			if err != nil {
				if !domain.UploadSettled(meta, err) {
					return err
				}
				logger.Warn("document_processing_failed",
					"document_id", meta.ID,
					"blob_name", event.BlobName,
					"error", err,
				)
				return nil
			}
			logger.Info("document_processed",
				"document_id", meta.ID,
				"blob_name", event.BlobName,
				"document_type", string(meta.DocumentType),
				"duration_ms", time.Since(start).Milliseconds(),
			)
			return nil
		})
	})
	return g.Wait()
}
