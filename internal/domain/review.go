package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ReviewStatus represents the moderation state of a polish proposal.
type ReviewStatus string

// Possible review status values
const (
	ReviewStatusPending  ReviewStatus = "pending"
	ReviewStatusApproved ReviewStatus = "approved"
	ReviewStatusRejected ReviewStatus = "rejected"
)

// Common validation errors for PolishReview
var (
	ErrEmptyReviewID      = errors.New("review ID cannot be empty")
	ErrEmptyProposedBody  = errors.New("proposed content cannot be empty")
	ErrReviewNotPending   = errors.New("review is not pending")
	ErrEmptyReviewerID    = errors.New("reviewer identity cannot be empty")
)

// PolishReview is a pending editorial proposal produced by the polish
// executor. Polish output is never applied directly; it sits here until a
// human approves or rejects it.
type PolishReview struct {
	ID                  uuid.UUID    `json:"id"`
	ContentHash         string       `json:"content_hash"`
	Locale              string       `json:"locale"`
	ProposedContent     string       `json:"proposed_content"`
	ProposedOptions     []string     `json:"proposed_options,omitempty"`
	ProposedExplanation string       `json:"proposed_explanation,omitempty"`
	Status              ReviewStatus `json:"status"`
	CreatedAt           time.Time    `json:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at"`
}

// NewPolishReview creates a pending PolishReview for the given question and
// locale. Returns an error if validation fails.
func NewPolishReview(contentHash, locale, content string, options []string, explanation string) (*PolishReview, error) {
	r := &PolishReview{
		ID:                  uuid.New(),
		ContentHash:         contentHash,
		Locale:              locale,
		ProposedContent:     content,
		ProposedOptions:     options,
		ProposedExplanation: explanation,
		Status:              ReviewStatusPending,
		CreatedAt:           time.Now().UTC(),
		UpdatedAt:           time.Now().UTC(),
	}

	if err := r.Validate(); err != nil {
		return nil, err
	}

	return r, nil
}

// Validate checks if the PolishReview has valid data.
func (r *PolishReview) Validate() error {
	if r.ID == uuid.Nil {
		return ErrEmptyReviewID
	}

	if r.ContentHash == "" {
		return ErrEmptyContentHash
	}

	if r.Locale == "" {
		return ErrEmptyTranslationLocale
	}

	if r.ProposedContent == "" {
		return ErrEmptyProposedBody
	}

	if !isValidReviewStatus(r.Status) {
		return ErrInvalidReviewStatus
	}

	return nil
}

func isValidReviewStatus(status ReviewStatus) bool {
	switch status {
	case ReviewStatusPending, ReviewStatusApproved, ReviewStatusRejected:
		return true
	default:
		return false
	}
}

// ReviewDecision records the outcome of a human review of a polish proposal,
// including the values that were replaced so the change can be audited.
type ReviewDecision struct {
	ID         uuid.UUID    `json:"id"`
	ReviewID   uuid.UUID    `json:"review_id"`
	Decision   ReviewStatus `json:"decision"`
	ReviewerID string       `json:"reviewer_id"`
	OldContent string       `json:"old_content,omitempty"`
	NewContent string       `json:"new_content,omitempty"`
	DecidedAt  time.Time    `json:"decided_at"`
}

// NewReviewDecision creates a decision record for a review. The decision must
// be approved or rejected; pending is not a decision.
func NewReviewDecision(reviewID uuid.UUID, decision ReviewStatus, reviewerID, oldContent, newContent string) (*ReviewDecision, error) {
	if reviewID == uuid.Nil {
		return nil, ErrEmptyReviewID
	}

	if decision != ReviewStatusApproved && decision != ReviewStatusRejected {
		return nil, ErrInvalidReviewStatus
	}

	if reviewerID == "" {
		return nil, ErrEmptyReviewerID
	}

	return &ReviewDecision{
		ID:         uuid.New(),
		ReviewID:   reviewID,
		Decision:   decision,
		ReviewerID: reviewerID,
		OldContent: oldContent,
		NewContent: newContent,
		DecidedAt:  time.Now().UTC(),
	}, nil
}
