package api

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/api/shared"
	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/domain"
	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/store"
)

// TxRunner executes a function within a database transaction. Production
// wiring backs it with store.RunInTransaction.
type TxRunner func(ctx context.Context, fn store.TxFn) error

// ReviewHandler handles the polish review queue: listing pending proposals
// and deciding them. An approved proposal is written through to the locale
// rendering it targets; the write and the decision record commit together.
type ReviewHandler struct {
	runTx        TxRunner
	reviews      store.ReviewStore
	translations store.TranslationStore
	questions    store.QuestionStore
	logger       *slog.Logger
}

// NewReviewHandler creates a new ReviewHandler with the given dependencies.
func NewReviewHandler(
	runTx TxRunner,
	reviews store.ReviewStore,
	translations store.TranslationStore,
	questions store.QuestionStore,
	logger *slog.Logger,
) *ReviewHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReviewHandler{
		runTx:        runTx,
		reviews:      reviews,
		translations: translations,
		questions:    questions,
		logger:       logger.With(slog.String("component", "review_handler")),
	}
}

// List handles GET /reviews.
func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	status := domain.ReviewStatus(r.URL.Query().Get("status"))
	if status != "" {
		switch status {
		case domain.ReviewStatusPending, domain.ReviewStatusApproved, domain.ReviewStatusRejected:
		default:
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid review status")
			return
		}
	}

	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid limit")
			return
		}
		if parsed > maxListLimit {
			parsed = maxListLimit
		}
		limit = parsed
	}

	offset := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid offset")
			return
		}
		offset = parsed
	}

	reviews, err := h.reviews.ListByStatus(r.Context(), status, limit, offset)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list reviews")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, ReviewListResponse{Reviews: reviews})
}

// Approve handles POST /reviews/{id}/approve.
func (h *ReviewHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, domain.ReviewStatusApproved)
}

// Reject handles POST /reviews/{id}/reject.
func (h *ReviewHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, domain.ReviewStatusRejected)
}

func (h *ReviewHandler) decide(w http.ResponseWriter, r *http.Request, decision domain.ReviewStatus) {
	reviewID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid review ID")
		return
	}

	reviewerID, ok := shared.GetAdminID(r.Context())
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Reviewer identity required")
		return
	}

	review, err := h.reviews.GetByID(r.Context(), reviewID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	txErr := h.runTx(r.Context(), func(ctx context.Context, tx *sql.Tx) error {
		reviews := h.reviews.WithTx(tx)

		if err := reviews.UpdateStatus(ctx, review.ID, decision); err != nil {
			return err
		}

		var oldContent string
		if decision == domain.ReviewStatusApproved {
			oldContent, err = h.applyProposal(ctx, tx, review)
			if err != nil {
				return err
			}
		}

		record, err := domain.NewReviewDecision(review.ID, decision, reviewerID,
			oldContent, review.ProposedContent)
		if err != nil {
			return err
		}
		return reviews.RecordDecision(ctx, record)
	})
	if txErr != nil {
		if errors.Is(txErr, store.ErrUpdateFailed) {
			shared.RespondWithError(w, r, http.StatusConflict, "Review already decided")
			return
		}
		HandleAPIError(w, r, txErr, "")
		return
	}

	h.logger.InfoContext(r.Context(), "review decided",
		slog.String("review_id", review.ID.String()),
		slog.String("decision", string(decision)),
		slog.String("reviewer", reviewerID))

	shared.RespondWithJSON(w, r, http.StatusOK, DecisionResponse{
		ReviewID: review.ID.String(),
		Status:   string(decision),
	})
}

// applyProposal writes an approved proposal through to the locale rendering
// it targets: the translation row when one exists for the pair, the question
// body otherwise. Returns the content that was replaced.
func (h *ReviewHandler) applyProposal(ctx context.Context, tx *sql.Tx, review *domain.PolishReview) (string, error) {
	translations := h.translations.WithTx(tx)

	existing, err := translations.GetByHashAndLocale(ctx, review.ContentHash, review.Locale)
	switch {
	case err == nil:
		oldContent := existing.Content
		existing.Content = review.ProposedContent
		if len(review.ProposedOptions) > 0 {
			existing.Options = review.ProposedOptions
		}
		if review.ProposedExplanation != "" {
			existing.Explanation = review.ProposedExplanation
		}
		existing.Source = domain.TranslationSourceHuman
		existing.UpdatedAt = time.Now().UTC()
		return oldContent, translations.Upsert(ctx, existing)

	case errors.Is(err, store.ErrTranslationNotFound):
		questions := h.questions.WithTx(tx)
		question, err := questions.GetByHash(ctx, review.ContentHash)
		if err != nil {
			return "", err
		}

		patch := store.QuestionPatch{Content: &review.ProposedContent}
		if len(review.ProposedOptions) > 0 {
			patch.Options = &review.ProposedOptions
		}
		if review.ProposedExplanation != "" {
			patch.Explanation = &review.ProposedExplanation
		}
		return question.Content, questions.ApplyPatch(ctx, question.ID, patch)

	default:
		return "", err
	}
}
