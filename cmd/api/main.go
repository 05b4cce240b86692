package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"

	httpadapter "github.com/kirillkom/paperpulse/internal/adapters/http"
	"github.com/kirillkom/paperpulse/internal/bootstrap"
	"github.com/kirillkom/paperpulse/internal/config"
	"github.com/kirillkom/paperpulse/internal/observability/logging"
	"github.com/kirillkom/paperpulse/internal/observability/metrics"
)

const serviceName = "paperpulse-api"

func main() {
	if err := run(); err != nil {
		slog.Error("api_exit", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger, bootstrap.Options{WithQueue: true})
	if err != nil {
		return err
	}
	defer app.Close()

	doc, err := httpadapter.LoadOpenAPI(ctx)
	if err != nil {
		return err
	}
	router := httpadapter.NewRouter(cfg, app.IngestUC, app.CatalogUC, app.ExportUC,
		httpadapter.WithMetrics(metrics.NewHTTPServerMetrics(serviceName)),
		httpadapter.WithOpenAPI(doc),
		httpadapter.WithLogger(logger),
	).Handler()

	server := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	listener, err := net.Listen("tcp", ":"+cfg.APIPort)
	if err != nil {
		return err
	}
	if cfg.APIMaxConnections > 0 {
		listener = netutil.LimitListener(listener, cfg.APIMaxConnections)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("api_listening", "addr", listener.Addr().String(), "recognizer", cfg.RecognizerBackend)
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
