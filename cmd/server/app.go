package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/phrazzld/scry-reader/internal/api"
	"github.com/phrazzld/scry-reader/internal/auth"
	"github.com/phrazzld/scry-reader/internal/chapters"
	"github.com/phrazzld/scry-reader/internal/clock"
	"github.com/phrazzld/scry-reader/internal/config"
	"github.com/phrazzld/scry-reader/internal/dispatch"
	"github.com/phrazzld/scry-reader/internal/domain/srs"
	"github.com/phrazzld/scry-reader/internal/events"
	"github.com/phrazzld/scry-reader/internal/extract"
	"github.com/phrazzld/scry-reader/internal/generation"
	"github.com/phrazzld/scry-reader/internal/messaging"
	"github.com/phrazzld/scry-reader/internal/platform/blob"
	"github.com/phrazzld/scry-reader/internal/platform/gemini"
	"github.com/phrazzld/scry-reader/internal/platform/openai"
	"github.com/phrazzld/scry-reader/internal/platform/postgres"
	redisoutbox "github.com/phrazzld/scry-reader/internal/platform/redis"
	"github.com/phrazzld/scry-reader/internal/service"
	"github.com/phrazzld/scry-reader/internal/store"
	"github.com/phrazzld/scry-reader/internal/task"
)

// reminderScanJob is the scheduler name of the periodic dispatch scan.
const reminderScanJob = "reminder_scan"

// application holds the shared dependencies of every subcommand and
// releases them in cleanup.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB
	clock  clock.Clock

	stores    store.Stores
	uow       store.UnitOfWork
	taskStore task.TaskStore

	jwtService auth.JWTService
	generator  generation.TextGenerator
	tutor      *generation.Tutor
	extractors *extract.Registry
	blobs      blob.Store
	messenger  messaging.Messenger

	trackedItems *service.TrackedItemService
	ingestion    *service.IngestionService
	dispatcher   *dispatch.Dispatcher

	eventEmitter *events.InMemoryEventEmitter
	taskRunner   *task.TaskRunner
	scheduler    *task.Scheduler

	closers []func() error
}

// newApplication builds every component from cfg. Nothing is started; the
// serve command starts the task runner and the scheduler.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (_ *application, err error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
		clock:  clock.Real{},
	}
	defer func() {
		if err != nil {
			app.cleanup()
		}
	}()

	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}

	app.stores = postgres.NewStores(db, logger)
	app.uow = postgres.NewUnitOfWork(db, logger)
	app.taskStore = postgres.NewPostgresTaskStore(db, logger)

	intervals, err := srs.IntervalsFromConfig(cfg.Reminders.Intervals)
	if err != nil {
		return nil, fmt.Errorf("invalid reminder intervals: %w", err)
	}

	app.generator, err = newGenerator(ctx, cfg.LLM, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("LLM generator initialized", "provider", cfg.LLM.Provider, "model", cfg.LLM.ModelName)

	prompts, err := generation.NewPrompts(generation.Limits{
		Sample:  cfg.Chunking.SampleSize,
		Content: cfg.Chunking.ContentLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load prompts: %w", err)
	}
	app.tutor, err = generation.NewTutor(app.generator, prompts, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tutor: %w", err)
	}
	resolver, err := chapters.NewResolver(app.generator, prompts, chapters.Config{
		WindowSize: cfg.Chunking.WindowSize,
		Semantic:   cfg.Chunking.SemanticWindows,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chapter resolver: %w", err)
	}

	app.extractors = extract.NewRegistry(cfg.Ingestion.MinTextLength)

	app.blobs, err = newBlobStore(ctx, cfg.Ingestion.Blob)
	if err != nil {
		return nil, err
	}

	app.messenger, err = app.newMessenger(ctx)
	if err != nil {
		return nil, err
	}

	planner, err := srs.NewServiceWithIntervals(intervals)
	if err != nil {
		return nil, fmt.Errorf("invalid reminder intervals: %w", err)
	}
	scheduler, err := service.NewSchedulerService(planner, app.clock, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize reminder scheduler: %w", err)
	}
	logger.Info("reminder scheduler initialized", "stages", scheduler.Intervals().TotalStages())
	app.trackedItems, err = service.NewTrackedItemService(
		app.stores, app.uow, scheduler, app.tutor, app.clock, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracked item service: %w", err)
	}
	app.ingestion, err = service.NewIngestionService(
		app.extractors, resolver, app.tutor, app.uow, scheduler, app.blobs,
		service.IngestionConfig{QuizQuestions: cfg.Ingestion.QuizQuestions},
		logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ingestion service: %w", err)
	}

	renderer, err := dispatch.NewRenderer(app.tutor)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize reminder renderer: %w", err)
	}
	app.dispatcher, err = dispatch.NewDispatcher(app.stores, renderer, app.messenger, app.clock, dispatch.Config{
		BatchSize:   cfg.Reminders.BatchSize,
		MaxAttempts: cfg.Reminders.MaxAttempts,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize reminder dispatcher: %w", err)
	}

	app.setupTasks()

	app.scheduler = task.NewScheduler(logger)
	if err := app.scheduler.Every(reminderScanJob, cfg.Reminders.ScanInterval(), app.scanReminders); err != nil {
		return nil, fmt.Errorf("failed to schedule reminder scan: %w", err)
	}

	return app, nil
}

// setupTasks wires uploads to the task runner: the emitter hands upload
// events to the factory handler, which submits ingestion tasks.
func (app *application) setupTasks() {
	app.taskRunner = task.NewTaskRunner(app.taskStore, task.TaskRunnerConfig{
		WorkerCount:  app.config.Task.WorkerCount,
		QueueSize:    app.config.Task.QueueSize,
		StuckTaskAge: app.config.Task.StuckTaskAge(),
	}, app.logger)

	factory := task.NewDocumentIngestionTaskFactory(app.ingestion, app.logger)
	app.taskRunner.RegisterFactory(task.TaskTypeDocumentIngestion, factory.FromRecord)

	app.eventEmitter = events.NewInMemoryEventEmitter(app.logger)
	app.eventEmitter.Subscribe(events.EventTypeDocumentUploaded,
		task.NewTaskFactoryEventHandler(factory, app.taskRunner, app.logger))
}

// scanReminders runs one dispatch scan for the scheduler.
func (app *application) scanReminders(ctx context.Context) error {
	report, err := app.dispatcher.Scan(ctx)
	if errors.Is(err, dispatch.ErrScanInProgress) {
		app.logger.Debug("skipping reminder scan; previous scan still running")
		return nil
	}
	if err != nil {
		return err
	}
	if report.Due > 0 {
		app.logger.Info("reminder scan finished",
			"due", report.Due,
			"sent", report.Sent,
			"failed", report.Failed)
	}
	return nil
}

// router builds the HTTP handler over the application's services.
func (app *application) router() (http.Handler, error) {
	items, err := api.NewTrackedItemHandler(app.trackedItems, app.logger)
	if err != nil {
		return nil, err
	}
	maxUpload := int64(app.config.Ingestion.MaxUploadMB) << 20
	documents, err := api.NewDocumentHandler(
		app.trackedItems, app.blobs, app.extractors, app.eventEmitter, maxUpload, app.logger)
	if err != nil {
		return nil, err
	}
	return api.NewRouter(api.RouterConfig{
		JWTService:   app.jwtService,
		TrackedItems: items,
		Documents:    documents,
		Health:       app.db.PingContext,
		Logger:       app.logger,
	}), nil
}

// cleanup releases resources in reverse order of acquisition.
func (app *application) cleanup() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			app.logger.Error("failed to release resource", "error", err)
		}
	}
	app.closers = nil
}

func newGenerator(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (generation.TextGenerator, error) {
	logger = logger.With("component", "llm_generator")
	switch cfg.Provider {
	case "openai":
		gen, err := openai.NewGenerator(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OpenAI generator: %w", err)
		}
		return gen, nil
	case "gemini":
		gen, err := gemini.NewGenerator(ctx, cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Gemini generator: %w", err)
		}
		return gen, nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}

func newBlobStore(ctx context.Context, cfg config.BlobConfig) (blob.Store, error) {
	switch cfg.Backend {
	case "minio":
		s, err := blob.NewMinioStore(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize MinIO blob store: %w", err)
		}
		return s, nil
	case "local":
		s, err := blob.NewLocalStore(cfg.Dir)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize local blob store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.Backend)
	}
}

func (app *application) newMessenger(ctx context.Context) (messaging.Messenger, error) {
	switch app.config.Messaging.Backend {
	case "redis":
		outbox, err := redisoutbox.NewOutbox(ctx, app.config.Messaging, app.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis outbox: %w", err)
		}
		app.closers = append(app.closers, outbox.Close)
		return outbox, nil
	case "log":
		return messaging.NewLogMessenger(app.logger), nil
	default:
		return nil, fmt.Errorf("unknown messaging backend %q", app.config.Messaging.Backend)
	}
}
