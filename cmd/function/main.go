// Command function serves the storage-triggered processing entry point
// through the Functions Framework.
package main

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/funcframework"
	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/kirillkom/paperpulse/internal/adapters/cloudevent"
	"github.com/kirillkom/paperpulse/internal/bootstrap"
	"github.com/kirillkom/paperpulse/internal/config"
	"github.com/kirillkom/paperpulse/internal/observability/logging"
)

const serviceName = "paperpulse-function"

var (
	handler *cloudevent.Handler
	once    sync.Once
	initErr error
)

func init() {
	functions.CloudEvent("ProcessUpload", processUpload)
}

func setup() {
	cfg, err := config.Load()
	if err != nil {
		initErr = err
		return
	}
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)
	slog.SetDefault(logger)

	app, err := bootstrap.New(context.Background(), cfg, logger, bootstrap.Options{})
	if err != nil {
		initErr = err
		return
	}
	handler = cloudevent.NewHandler(app.TriggerUC, cfg.GCSBucket, logger)
}

func processUpload(ctx context.Context, e cloudevents.Event) error {
	once.Do(setup)
	if initErr != nil {
		slog.Error("function_init_failed", "error", initErr)
		return initErr
	}
	return handler.Handle(ctx, e)
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := funcframework.Start(port); err != nil {
		slog.Error("function_exit", "error", err)
		os.Exit(1)
	}
}
