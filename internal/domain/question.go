package domain

import (
	"errors"
	"time"
)

// StageTag classifies which license stage a question applies to.
type StageTag string

// Possible stage tag values
const (
	StageTagProvisional StageTag = "provisional"
	StageTagFull        StageTag = "full"
	StageTagBoth        StageTag = "both"
	StageTagNone        StageTag = "none"
)

// Common validation errors for Question
var (
	ErrEmptyContentHash = errors.New("question content hash cannot be empty")
)

// Question represents a canonical, locale-agnostic quiz question. Its
// identity is the content hash, which is derived from the canonical content
// and never changes after import. The body fields hold the primary-locale
// rendering; per-locale renderings live in Translation rows.
type Question struct {
	ID           int64     `json:"id"`
	ContentHash  string    `json:"content_hash"`
	Content      string    `json:"content"`
	Options      []string  `json:"options,omitempty"`
	Explanation  string    `json:"explanation,omitempty"`
	Category     string    `json:"category,omitempty"`
	StageTag     StageTag  `json:"stage_tag,omitempty"`
	TopicTags    []string  `json:"topic_tags,omitempty"`
	LicenseTypes []string  `json:"license_types,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Validate checks if the Question has valid data.
// Returns an error if any field fails validation.
func (q *Question) Validate() error {
	if q.ContentHash == "" {
		return ErrEmptyContentHash
	}

	if q.StageTag != "" && !IsValidStageTag(q.StageTag) {
		return ErrInvalidStageTag
	}

	return nil
}

// IsValidStageTag checks if the given tag is a valid StageTag.
func IsValidStageTag(tag StageTag) bool {
	switch tag {
	case StageTagProvisional, StageTagFull, StageTagBoth, StageTagNone:
		return true
	default:
		return false
	}
}
