package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/kirillkom/paperpulse/internal/config"
	"github.com/kirillkom/paperpulse/internal/core/ports"
	"github.com/kirillkom/paperpulse/internal/core/usecase"
	"github.com/kirillkom/paperpulse/internal/infrastructure/queue/nats"
	"github.com/kirillkom/paperpulse/internal/infrastructure/recognizer/formrecognizer"
	"github.com/kirillkom/paperpulse/internal/infrastructure/recognizer/local"
	"github.com/kirillkom/paperpulse/internal/infrastructure/recognizer/vertex"
	"github.com/kirillkom/paperpulse/internal/infrastructure/repository/firestore"
	"github.com/kirillkom/paperpulse/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/paperpulse/internal/infrastructure/repository/rediscache"
	"github.com/kirillkom/paperpulse/internal/infrastructure/resilience"
	"github.com/kirillkom/paperpulse/internal/infrastructure/storage/gcs"
	"github.com/kirillkom/paperpulse/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/paperpulse/internal/observability/metrics"
)

type Options struct {
	// WithQueue connects to NATS when the configuration enables it.
	WithQueue bool
	// MetricsService labels worker metrics; empty disables them.
	MetricsService string
}

type App struct {
	Config config.Config
	Logger *slog.Logger

	Storage    ports.BlobStorage
	Repo       ports.MetadataRepository
	Queue      ports.MessageQueue
	Recognizer ports.Recognizer

	WorkerMetrics *metrics.WorkerMetrics

	IngestUC  *usecase.IngestDocumentUseCase
	ProcessUC *usecase.ProcessDocumentUseCase
	TriggerUC *usecase.UploadTriggerUseCase
	CatalogUC *usecase.CatalogUseCase
	ExportUC  *usecase.ExportUseCase

	closers []func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger, opts Options) (_ *App, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	app := &App{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			app.Close()
		}
	}()

	if app.Storage, err = app.openStorage(ctx); err != nil {
		return nil, fmt.Errorf("init blob storage: %w", err)
	}
	if app.Repo, err = app.openRepository(ctx); err != nil {
		return nil, fmt.Errorf("init metadata repository: %w", err)
	}
	if opts.WithQueue && cfg.QueueEnabled {
		queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			ResilienceExecutor: resilience.NewExecutorWithLogger(resilienceConfig(cfg, resilience.DefaultConfig()), logger),
			Logger:             logger,
		})
		if err != nil {
			return nil, fmt.Errorf("init message queue: %w", err)
		}
		app.closers = append(app.closers, queue.Close)
		app.Queue = queue
	}
	rec, closeRecognizer, err := NewRecognizer(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init recognizer: %w", err)
	}
	app.closers = append(app.closers, closeRecognizer)
	app.Recognizer = rec

	var observer ports.ProcessingObserver
	if opts.MetricsService != "" {
		app.WorkerMetrics = metrics.NewWorkerMetrics(opts.MetricsService)
		observer = app.WorkerMetrics
	}

	app.ProcessUC = NewProcessor(app.Recognizer, observer, logger)
	app.IngestUC = usecase.NewIngestDocumentUseCase(app.Storage, app.Queue, cfg.MaxUploadBytes, logger)
	app.TriggerUC = usecase.NewUploadTriggerUseCase(app.Storage, app.ProcessUC, app.Repo, logger)
	app.CatalogUC = usecase.NewCatalogUseCase(app.Repo, app.Storage, logger)
	app.ExportUC = usecase.NewExportUseCase(app.Repo)
	return app, nil
}

func (a *App) openStorage(ctx context.Context) (ports.BlobStorage, error) {
	switch a.Config.StorageBackend {
	case config.StorageGCS:
		store, err := gcs.New(ctx, a.Config.GCSBucket)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = store.Close() })
		return store, nil
	default:
		return localfs.New(a.Config.StoragePath)
	}
}

func (a *App) openRepository(ctx context.Context) (ports.MetadataRepository, error) {
	var repo ports.MetadataRepository
	switch a.Config.MetadataBackend {
	case config.MetadataFirestore:
		fs, err := firestore.New(ctx, a.Config.FirestoreProject, a.Config.FirestoreCollection)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = fs.Close() })
		repo = fs
	default:
		db, err := postgres.OpenDB(a.Config.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		a.closers = append(a.closers, func() { _ = db.Close() })
		pg := postgres.NewDocumentRepository(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		repo = pg
	}

	if a.Config.RedisURL == "" {
		return repo, nil
	}
	redisOpts, err := redis.ParseURL(a.Config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(redisOpts)
	a.closers = append(a.closers, func() { _ = rdb.Close() })
	if err := rdb.Ping(ctx).Err(); err != nil {
		// The cache is optional; a dead redis only costs latency.
		a.Logger.Warn("redis_unavailable", "error", err)
	}
	return rediscache.New(repo, rdb, a.Config.RedisCacheTTL, a.Logger), nil
}

// NewRecognizer builds the recognizer selected by RECOGNIZER_BACKEND. The
// returned close func is never nil.
func NewRecognizer(ctx context.Context, cfg config.Config, logger *slog.Logger) (ports.Recognizer, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}
	executor := resilience.NewExecutorWithLogger(resilienceConfig(cfg, resilience.SingleAttemptConfig()), logger)
	switch cfg.RecognizerBackend {
	case config.RecognizerFormRecognizer:
		client, err := formrecognizer.New(formrecognizer.Options{
			Endpoint:     cfg.FormRecognizerEndpoint,
			APIKey:       cfg.FormRecognizerAPIKey,
			PollInterval: cfg.FormRecognizerPollInterval,
			PollTimeout:  cfg.FormRecognizerPollTimeout,
			Executor:     executor,
			Logger:       logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return client, func() {}, nil
	case config.RecognizerVertex:
		rec, err := vertex.New(ctx, cfg.VertexProject, cfg.VertexRegion, cfg.VertexModel, executor, logger)
		if err != nil {
			return nil, nil, err
		}
		return rec, func() { _ = rec.Close() }, nil
	default:
		return local.New(), func() {}, nil
	}
}

// NewProcessor wires the classification and extraction pipeline around rec.
func NewProcessor(rec ports.Recognizer, observer ports.ProcessingObserver, logger *slog.Logger) *usecase.ProcessDocumentUseCase {
	classifier := usecase.NewClassifier(rec, observer, logger)
	return usecase.NewProcessDocumentUseCase(classifier, usecase.DefaultExtractors(rec), observer, logger)
}

func resilienceConfig(cfg config.Config, base resilience.Config) resilience.Config {
	return base.WithBreaker(cfg.ResilienceBreakerEnabled, cfg.ResilienceBreakerMinRequests, cfg.ResilienceBreakerOpenTimeout)
}

// Close releases clients in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
