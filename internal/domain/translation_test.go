package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAITranslation(t *testing.T) {
	t.Parallel()

	t.Run("creates valid translation", func(t *testing.T) {
		tr, err := NewAITranslation("abc123", "ja", "内容", []string{"はい", "いいえ"}, "説明")

		require.NoError(t, err)
		assert.Equal(t, TranslationSourceAI, tr.Source)
		assert.Equal(t, "abc123", tr.ContentHash)
		assert.Equal(t, "ja", tr.Locale)
	})

	t.Run("fails with empty content hash", func(t *testing.T) {
		_, err := NewAITranslation("", "ja", "内容", nil, "")
		assert.ErrorIs(t, err, ErrEmptyContentHash)
	})

	t.Run("fails with empty locale", func(t *testing.T) {
		_, err := NewAITranslation("abc123", "", "内容", nil, "")
		assert.ErrorIs(t, err, ErrEmptyTranslationLocale)
	})

	t.Run("fails with empty content", func(t *testing.T) {
		_, err := NewAITranslation("abc123", "ja", "", nil, "")
		assert.ErrorIs(t, err, ErrEmptyTranslationBody)
	})
}

func TestNewPolishReview(t *testing.T) {
	t.Parallel()

	t.Run("creates pending review", func(t *testing.T) {
		r, err := NewPolishReview("abc123", "zh", "润色后的内容", nil, "")

		require.NoError(t, err)
		assert.Equal(t, ReviewStatusPending, r.Status)
	})

	t.Run("fails with empty proposed content", func(t *testing.T) {
		_, err := NewPolishReview("abc123", "zh", "", nil, "")
		assert.ErrorIs(t, err, ErrEmptyProposedBody)
	})
}

func TestNewReviewDecision(t *testing.T) {
	t.Parallel()

	review, err := NewPolishReview("abc123", "zh", "内容", nil, "")
	require.NoError(t, err)

	t.Run("records approval", func(t *testing.T) {
		d, err := NewReviewDecision(review.ID, ReviewStatusApproved, "admin-1", "old", "new")

		require.NoError(t, err)
		assert.Equal(t, ReviewStatusApproved, d.Decision)
		assert.Equal(t, review.ID, d.ReviewID)
	})

	t.Run("rejects pending as a decision", func(t *testing.T) {
		_, err := NewReviewDecision(review.ID, ReviewStatusPending, "admin-1", "", "")
		assert.ErrorIs(t, err, ErrInvalidReviewStatus)
	})

	t.Run("requires reviewer identity", func(t *testing.T) {
		_, err := NewReviewDecision(review.ID, ReviewStatusRejected, "", "", "")
		assert.ErrorIs(t, err, ErrEmptyReviewerID)
	})
}
