package main

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/api"
	apiMiddleware "github.com/yzsnstotz/drivequiz20251102-sub000/internal/api/middleware"
	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/store"
)

// setupRouter configures the application router with all routes and
// middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	authMiddleware := apiMiddleware.NewAuthMiddleware(app.verifier)

	batchHandler := api.NewBatchHandler(app.orchestrator, app.taskStore, app.logger)
	processHandler := api.NewProcessHandler(app.questionStore, app.translationStore,
		app.registry, app.logger)
	reviewHandler := api.NewReviewHandler(app.txRunner(), app.reviewStore,
		app.translationStore, app.questionStore, app.logger)

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		r.Post("/batch-process", batchHandler.Create)
		r.Post("/batch-process/retry", batchHandler.Retry)
		r.Get("/batch-process", batchHandler.List)
		r.Get("/batch-process/{taskID}", batchHandler.Get)
		r.Delete("/batch-process", batchHandler.Delete)

		r.Post("/translate", processHandler.Translate)
		r.Post("/polish", processHandler.Polish)

		r.Get("/reviews", reviewHandler.List)
		r.Post("/reviews/{id}/approve", reviewHandler.Approve)
		r.Post("/reviews/{id}/reject", reviewHandler.Reject)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}

// txRunner backs the review handler's transactional writes with the
// application pool.
func (app *application) txRunner() api.TxRunner {
	return func(ctx context.Context, fn store.TxFn) error {
		return store.RunInTransaction(ctx, app.db, fn)
	}
}
