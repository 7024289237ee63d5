package api

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/api/shared"
	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/domain"
	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/processing"
	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/store"
)

// ProcessHandler handles the synchronous single-question endpoints. They run
// the same executors as batch tasks but inline, within the request.
type ProcessHandler struct {
	questions    store.QuestionStore
	translations store.TranslationStore
	registry     processing.Registry
	validator    *validator.Validate
	logger       *slog.Logger
}

// NewProcessHandler creates a new ProcessHandler with the given dependencies.
func NewProcessHandler(
	questions store.QuestionStore,
	translations store.TranslationStore,
	registry processing.Registry,
	logger *slog.Logger,
) *ProcessHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessHandler{
		questions:    questions,
		translations: translations,
		registry:     registry,
		validator:    validator.New(),
		logger:       logger.With(slog.String("component", "process_handler")),
	}
}

// Translate handles POST /translate.
func (h *ProcessHandler) Translate(w http.ResponseWriter, r *http.Request) {
	var req TranslateRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	op := domain.Operation{
		Name:      domain.OperationTranslate,
		Translate: &domain.TranslateParams{From: req.From, To: req.To},
	}

	question, err := h.execute(w, r, req.QuestionID, op)
	if err != nil {
		return
	}

	translations, err := h.translations.ListByHash(r.Context(), question.ContentHash)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load translations")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, TranslateResponse{
		QuestionID:   question.ID,
		Translations: translations,
	})
}

// Polish handles POST /polish. The proposal lands in the review queue; the
// question itself is not modified.
func (h *ProcessHandler) Polish(w http.ResponseWriter, r *http.Request) {
	var req PolishRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	op := domain.Operation{
		Name:   domain.OperationPolish,
		Polish: &domain.PolishParams{Locale: req.Locale},
	}

	question, err := h.execute(w, r, req.QuestionID, op)
	if err != nil {
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, PolishResponse{
		QuestionID: question.ID,
		Locale:     req.Locale,
		Status:     string(domain.ReviewStatusPending),
	})
}

// execute loads the question and runs one operation against it. On failure
// it writes the error response and returns a non-nil error.
func (h *ProcessHandler) execute(w http.ResponseWriter, r *http.Request, questionID int64, op domain.Operation) (*domain.Question, error) {
	question, err := h.questions.GetByID(r.Context(), questionID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return nil, err
	}

	executor, err := h.registry.Get(op.Name)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return nil, err
	}

	if err := executor.Execute(r.Context(), question, op); err != nil {
		h.logger.WarnContext(r.Context(), "single-record operation failed",
			slog.Int64("question_id", questionID),
			slog.String("operation", string(op.Name)),
			slog.String("error", err.Error()))
		HandleAPIError(w, r, err, "")
		return nil, err
	}

	return question, nil
}
