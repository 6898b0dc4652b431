package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"ArticlesEvaluator/internal/config"
	"ArticlesEvaluator/internal/domain"
	"ArticlesEvaluator/internal/infrastructure/llm"
	"ArticlesEvaluator/internal/infrastructure/parser"
	"ArticlesEvaluator/internal/infrastructure/storage"
	"ArticlesEvaluator/internal/infrastructure/telegram"
	"ArticlesEvaluator/internal/logging"
	"ArticlesEvaluator/internal/metrics"
	"ArticlesEvaluator/internal/ports"
	"ArticlesEvaluator/internal/prompts"
	"ArticlesEvaluator/internal/server"
	"ArticlesEvaluator/internal/table"
	"ArticlesEvaluator/internal/usecase"
)

var (
	// ErrMissingCredential is returned when neither the caller nor config supplies an API key.
	ErrMissingCredential = errors.New("api key is required")
	// ErrIncompleteArticle is returned when a single article is missing a field.
	ErrIncompleteArticle = errors.New("article is incomplete")
	// ErrNoDatabase is returned for history lookups without a configured database.
	ErrNoDatabase = errors.New("durable storage is not configured")
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	source   *parser.FileSource
	pipeline *usecase.Pipeline
	runner   *usecase.BatchRunner
	notifier ports.Notifier

	dbMu sync.Mutex
	db   *sql.DB
}

// EvaluateOptions drive a single CLI run. Negative End means the last row.
type EvaluateOptions struct {
	Input      string
	Output     string
	Course     string
	Credential string
	Start      int
	End        int
	// Pause receives one value per cooperative stop request.
	Pause <-chan struct{}
}

// New builds the dispatcher chain, pipeline and runner from cfg.
func New(cfg config.Config, baseLogger *slog.Logger) *Application {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	registry := prometheus.NewRegistry()
	collector := metrics.MustNewCollector(registry)

	var dispatcher ports.Dispatcher = llm.NewAnthropicClient(cfg.Anthropic, nil)
	dispatcher = llm.WrapWithRateLimit(dispatcher, cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	dispatcher = llm.WrapWithRetry(dispatcher, cfg.Retry.MaxRetries, cfg.Retry.InitialInterval(), cfg.Retry.MaxInterval(),
		baseLogger.With("component", "llm.retry"))
	dispatcher = metrics.InstrumentDispatcher(dispatcher, collector)

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Prompts:        prompts.MustNewProvider(),
		Dispatcher:     dispatcher,
		MaxConcurrency: cfg.Evaluation.MaxConcurrency,
		Logger:         baseLogger.With("component", "pipeline"),
	})

	var notifier ports.Notifier
	if tg := cfg.Notifications.Telegram; tg.BotToken != "" && tg.ChatID != "" {
		notifier = telegram.NewNotifier(tg.BotToken, tg.ChatID)
	}

	return &Application{
		cfg:      cfg,
		logger:   baseLogger,
		registry: registry,
		source:   parser.NewFileSource(parser.DefaultRegistry(), baseLogger.With("component", "source")),
		pipeline: pipeline,
		runner:   usecase.NewBatchRunner(pipeline, collector, baseLogger.With("component", "batch")),
		notifier: notifier,
	}
}

// Validate loads input and reports how many rows it holds.
func (a *Application) Validate(ctx context.Context, input string) (int, error) {
	t, err := a.source.Load(ctx, input)
	if err != nil {
		return 0, err
	}
	return t.Len(), nil
}

// EvaluateArticle runs the pipeline once for a record entered by hand.
// Every field is required.
func (a *Application) EvaluateArticle(ctx context.Context, record domain.ArticleRecord, course, credential string) (domain.Results, error) {
	if missing := record.MissingFields(); len(missing) > 0 {
		return domain.Results{}, fmt.Errorf("%w: missing %s", ErrIncompleteArticle, strings.Join(missing, ", "))
	}
	credential = a.credential(credential)
	if credential == "" {
		return domain.Results{}, ErrMissingCredential
	}

	results := a.pipeline.Evaluate(ctx, record, a.course(course), credential)
	if results.Failed() {
		a.logger.Warn("article evaluation failed", "topic", record.Topic)
	}
	return results, nil
}

// LoadRun reads the stored slots of a past run from the database.
func (a *Application) LoadRun(ctx context.Context, runID string) (map[int]domain.Results, error) {
	if a.cfg.Database.DSN == "" {
		return nil, ErrNoDatabase
	}
	db, err := a.database(ctx)
	if err != nil {
		return nil, err
	}
	sink, err := storage.NewSQLSink(db, a.cfg.Database.Driver, runID)
	if err != nil {
		return nil, err
	}
	return sink.LoadRun(ctx)
}

// Evaluate runs one batch over input and keeps output in sync after every row.
func (a *Application) Evaluate(ctx context.Context, opts EvaluateOptions) (usecase.Status, error) {
	credential := a.credential(opts.Credential)
	if credential == "" {
		return usecase.Status{}, ErrMissingCredential
	}

	controller, sink, err := a.controller(ctx, opts.Input)
	if err != nil {
		return usecase.Status{}, err
	}
	if opts.Output != "" {
		sink.OnSnapshot(table.FileExporter(opts.Output))
	}

	end := opts.End
	if end < 0 {
		end = controller.Records() - 1
	}
	if _, err := controller.Start(ctx, usecase.RunParams{
		Course:     a.course(opts.Course),
		Credential: credential,
		Start:      opts.Start,
		End:        end,
	}); err != nil {
		return usecase.Status{}, err
	}

	stop := make(chan struct{})
	go func() {
		for {
			select {
			case <-opts.Pause:
				if controller.Cancel() {
					a.logger.Info("pause requested, finishing current row")
				}
			case <-stop:
				return
			}
		}
	}()

	// ctx cancellation reaches the runner directly, so wait without it.
	status, _ := controller.Wait(context.WithoutCancel(ctx))
	close(stop)

	if opts.Output != "" {
		if err := sink.ExportFile(opts.Output); err != nil {
			return status, fmt.Errorf("export %s: %w", opts.Output, err)
		}
	}
	if status.Error != "" {
		return status, errors.New(status.Error)
	}
	return status, nil
}

// Serve exposes the control API for input until ctx is done.
func (a *Application) Serve(ctx context.Context, input, addr string) error {
	controller, _, err := a.controller(ctx, input)
	if err != nil {
		return err
	}
	if addr == "" {
		addr = a.cfg.Server.Addr
	}

	opts := server.Options{
		Addr:       addr,
		Course:     a.cfg.Evaluation.Course,
		Credential: a.cfg.Anthropic.APIKey,
		Gatherer:   a.registry,
		Logger:     a.logger.With("component", "server"),
	}
	if a.cfg.Database.DSN != "" {
		opts.History = a
	}
	return server.New(ctx, controller, opts).ListenAndServe(ctx)
}

// Close releases the database handle if one was opened.
func (a *Application) Close() error {
	a.dbMu.Lock()
	defer a.dbMu.Unlock()
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}

func (a *Application) controller(ctx context.Context, input string) (*usecase.Controller, *table.Sink, error) {
	t, err := a.source.Load(ctx, input)
	if err != nil {
		return nil, nil, err
	}
	records, err := t.Records()
	if err != nil {
		return nil, nil, err
	}

	sink := table.NewSink(t)
	deps := usecase.ControllerDeps{
		Runner:   a.runner,
		Records:  records,
		Table:    sink,
		Notifier: a.notifier,
		Logger:   a.logger.With("component", "controller"),
	}
	if a.cfg.Database.DSN != "" {
		deps.Durable = a.durableSink
	}
	return usecase.NewController(deps), sink, nil
}

func (a *Application) durableSink(ctx context.Context, runID string) (ports.ResultSink, error) {
	db, err := a.database(ctx)
	if err != nil {
		return nil, err
	}
	return storage.NewSQLSink(db, a.cfg.Database.Driver, runID)
}

// database opens and migrates the result database on first use.
func (a *Application) database(ctx context.Context) (*sql.DB, error) {
	a.dbMu.Lock()
	defer a.dbMu.Unlock()

	if a.db != nil {
		return a.db, nil
	}
	db, err := storage.Open(ctx, a.cfg.Database.Driver, a.cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	if err := storage.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	a.db = db
	return db, nil
}

func (a *Application) credential(explicit string) string {
	if explicit != "" {
		return explicit
	}
	return a.cfg.Anthropic.APIKey
}

func (a *Application) course(explicit string) string {
	course := explicit
	if course == "" {
		course = a.cfg.Evaluation.Course
	}
	if !prompts.KnownCourse(course) {
		a.logger.Warn("course is not in the supported list", "course", course)
	}
	return course
}
