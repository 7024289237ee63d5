package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/ai"
	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/auth"
	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/config"
	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/platform/aiservice"
	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/platform/gemini"
	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/platform/postgres"
	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/processing"
	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/store"
	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/task"
)

// application holds the fully wired dependency graph.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	questionStore    store.QuestionStore
	translationStore store.TranslationStore
	reviewStore      store.ReviewStore
	taskStore        store.TaskStore

	verifier     *auth.Verifier
	registry     processing.Registry
	orchestrator *task.Orchestrator
}

// newApplication wires every component: database, stores, the AI completer,
// the executor registry, and the task orchestrator. Tasks left active by a
// previous process are finalized before the server starts accepting work.
func newApplication(cfg *config.Config, logger *slog.Logger) (*application, error) {
	db, err := setupDatabase(cfg, logger)
	if err != nil {
		return nil, err
	}

	verifier, err := auth.NewVerifier(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to set up auth verifier: %w", err)
	}

	questionStore := postgres.NewPostgresQuestionStore(db, logger)
	translationStore := postgres.NewPostgresTranslationStore(db, logger)
	reviewStore := postgres.NewPostgresReviewStore(db, logger)
	taskStore := postgres.NewPostgresTaskStore(db, logger)

	completer, err := setupCompleter(cfg, logger)
	if err != nil {
		return nil, err
	}

	registry, err := processing.NewRegistry(
		processing.NewTranslateExecutor(completer, translationStore, logger),
		processing.NewPolishExecutor(completer, translationStore, reviewStore, logger),
		processing.NewFillMissingExecutor(completer, questionStore, logger),
		processing.NewCategoryTagsExecutor(completer, questionStore, logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build executor registry: %w", err)
	}

	orchestrator := task.NewOrchestrator(taskStore, questionStore, registry,
		task.OrchestratorConfig{}, logger)

	if err := orchestrator.RecoverInterrupted(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to recover interrupted tasks: %w", err)
	}

	return &application{
		config:           cfg,
		logger:           logger,
		db:               db,
		questionStore:    questionStore,
		translationStore: translationStore,
		reviewStore:      reviewStore,
		taskStore:        taskStore,
		verifier:         verifier,
		registry:         registry,
		orchestrator:     orchestrator,
	}, nil
}

// setupCompleter selects the AI backend from configuration.
func setupCompleter(cfg *config.Config, logger *slog.Logger) (ai.Completer, error) {
	switch cfg.AI.Provider {
	case "gemini":
		completer, err := gemini.NewCompleter(context.Background(), logger, cfg.AI)
		if err != nil {
			return nil, fmt.Errorf("failed to set up gemini completer: %w", err)
		}
		return completer, nil
	default:
		client, err := aiservice.NewClient(cfg.AI, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to set up ai-service client: %w", err)
		}
		return client, nil
	}
}

// cleanup releases application resources during shutdown. The orchestrator
// stops first so no task goroutine touches the pool after it closes.
func (app *application) cleanup() {
	app.orchestrator.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("failed to close database connection", "error", err)
	}
}

// run starts the HTTP server and blocks until shutdown completes.
func (app *application) run() error {
	return app.startHTTPServer(context.Background(), app.setupRouter())
}
