package models

import (
	"time"
)

// SessionStatus is the lifecycle state of a practice session. Sessions are
// always created in progress and transitioned exactly once to a terminal
// state by a separate call.
type SessionStatus string

const (
	StatusInProgress SessionStatus = "in_progress"
	StatusCompleted  SessionStatus = "completed"
	StatusAbandoned  SessionStatus = "abandoned"
)

// FeedbackTypeAIGenerated is the feedback type assigned to every migrated
// feedback row; the legacy schema had no type discrimination.
const FeedbackTypeAIGenerated = "ai_generated"

// LegacyRecord is one row of the pre-migration flat practice_history
// table. Read-only source of truth for the migration.
type LegacyRecord struct {
	ID              int64          `json:"id"`
	PracticeType    string         `json:"practice_type"`
	Date            string         `json:"date"`
	DurationSeconds int            `json:"duration_seconds"`
	Inputs          map[string]any `json:"inputs"`
	Scores          map[string]any `json:"scores"`
	Feedback        string         `json:"feedback"`
	CreatedAt       string         `json:"created_at"`
}

type User struct {
	ID            string         `json:"id"`
	CreatedAt     string         `json:"created_at,omitempty"`
	LastActiveAt  string         `json:"last_active_at,omitempty"`
	SessionMethod string         `json:"session_method,omitempty"`
	Email         string         `json:"email,omitempty"`
	Preferences   map[string]any `json:"preferences,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

type PracticeCategory struct {
	ID          string `json:"id"`
	CategoryKey string `json:"category_key"`
	DisplayName string `json:"display_name,omitempty"`
}

// PracticeType is keyed by a stable type_key and belongs to exactly one
// category. The display name carries the human label the key replaced.
type PracticeType struct {
	ID          string `json:"id"`
	TypeKey     string `json:"type_key"`
	DisplayName string `json:"display_name"`
	CategoryID  string `json:"category_id"`
	Description string `json:"description,omitempty"`
	IsActive    bool   `json:"is_active"`
	CreatedAt   string `json:"created_at,omitempty"`
}

type PracticeSession struct {
	ID                   string         `json:"id"`
	UserID               string         `json:"user_id"`
	PracticeTypeID       string         `json:"practice_type_id"`
	StartedAt            string         `json:"started_at"`
	CompletedAt          string         `json:"completed_at,omitempty"`
	DurationSeconds      int            `json:"duration_seconds"`
	Status               SessionStatus  `json:"status"`
	CompletionPercentage float64        `json:"completion_percentage"`
	Metadata             map[string]any `json:"metadata,omitempty"`
}

type PracticeInput struct {
	ID         string `json:"id,omitempty"`
	SessionID  string `json:"session_id"`
	FieldName  string `json:"field_name"`
	FieldValue string `json:"field_value"`
	CreatedAt  string `json:"created_at,omitempty"`
}

type PracticeScore struct {
	ID            string  `json:"id,omitempty"`
	SessionID     string  `json:"session_id"`
	ScoreCategory string  `json:"score_category"`
	ScoreValue    float64 `json:"score_value"`
	MaxScore      float64 `json:"max_score"`
	CreatedAt     string  `json:"created_at,omitempty"`
}

// Percentage is the score as a share of its maximum. A zero or negative
// max yields 0 rather than a division error.
func (s PracticeScore) Percentage() float64 {
	if s.MaxScore <= 0 {
		return 0
	}
	return s.ScoreValue / s.MaxScore * 100
}

type PracticeFeedback struct {
	ID           string `json:"id,omitempty"`
	SessionID    string `json:"session_id"`
	FeedbackText string `json:"feedback_text"`
	FeedbackType string `json:"feedback_type"`
	CreatedAt    string `json:"created_at,omitempty"`
}

// ParseTime reads a stored timestamp. The store returns both Z-suffixed
// RFC 3339 strings and timezone-naive encodings depending on the column
// type; naive values are taken as UTC.
func ParseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02T15:04:05.999999999", s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02 15:04:05.999999999", s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
