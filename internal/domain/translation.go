package domain

import (
	"errors"
	"time"
)

// TranslationSource identifies who produced a translation.
type TranslationSource string

// Possible translation source values
const (
	TranslationSourceAI    TranslationSource = "ai"
	TranslationSourceHuman TranslationSource = "human"
)

// Common validation errors for Translation
var (
	ErrEmptyTranslationLocale = errors.New("translation locale cannot be empty")
	ErrEmptyTranslationBody   = errors.New("translation content cannot be empty")
	ErrInvalidSource          = errors.New("invalid translation source")
)

// Translation is the rendering of a Question in one locale. At most one row
// exists per (content hash, locale) pair; writers upsert rather than insert.
type Translation struct {
	ContentHash string            `json:"content_hash"`
	Locale      string            `json:"locale"`
	Content     string            `json:"content"`
	Options     []string          `json:"options,omitempty"`
	Explanation string            `json:"explanation,omitempty"`
	Source      TranslationSource `json:"source"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// NewAITranslation creates a Translation produced by the AI pipeline for the
// given question and locale. Returns an error if validation fails.
func NewAITranslation(contentHash, locale, content string, options []string, explanation string) (*Translation, error) {
	t := &Translation{
		ContentHash: contentHash,
		Locale:      locale,
		Content:     content,
		Options:     options,
		Explanation: explanation,
		Source:      TranslationSourceAI,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}

	return t, nil
}

// Validate checks if the Translation has valid data.
func (t *Translation) Validate() error {
	if t.ContentHash == "" {
		return ErrEmptyContentHash
	}

	if t.Locale == "" {
		return ErrEmptyTranslationLocale
	}

	if t.Content == "" {
		return ErrEmptyTranslationBody
	}

	if t.Source != TranslationSourceAI && t.Source != TranslationSourceHuman {
		return ErrInvalidSource
	}

	return nil
}
