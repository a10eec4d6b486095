package migration

import (
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/Kanata-T/exam-prep-backend/internal/models"
	"github.com/Kanata-T/exam-prep-backend/internal/store"
)

// defaultMaxScore is the ceiling assigned to every migrated score; the
// legacy schema stored raw values without a maximum.
const defaultMaxScore = 10.0

// FanOutWriter splits one legacy record into a session row plus its
// input/score/feedback children. The session is always written first so
// no child row can exist without its parent.
type FanOutWriter struct {
	client        *store.Client
	stats         *Stats
	defaultTypeID string
}

func NewFanOutWriter(client *store.Client, stats *Stats, defaultTypeID string) *FanOutWriter {
	return &FanOutWriter{client: client, stats: stats, defaultTypeID: defaultTypeID}
}

// MigrateRecord writes one legacy record into the normalized schema. An
// error fails only this record; the caller counts it and moves on.
func (w *FanOutWriter) MigrateRecord(record models.LegacyRecord, userID string, typeIDs map[string]string) error {
	practiceTypeID, ok := typeIDs[record.PracticeType]
	if !ok || practiceTypeID == "" {
		log.Printf("Unknown practice type %q on record %d, using default", record.PracticeType, record.ID)
		practiceTypeID = w.defaultTypeID
	}

	sessionID, err := w.createSession(record, userID, practiceTypeID)
	if err != nil {
		return err
	}

	if len(record.Inputs) > 0 {
		if err := w.migrateInputs(sessionID, record.Inputs); err != nil {
			return err
		}
	}
	if len(record.Scores) > 0 {
		if err := w.migrateScores(sessionID, record.Scores); err != nil {
			return err
		}
	}
	if record.Feedback != "" {
		if err := w.migrateFeedback(sessionID, record.Feedback); err != nil {
			return err
		}
	}

	return nil
}

func (w *FanOutWriter) createSession(record models.LegacyRecord, userID, practiceTypeID string) (string, error) {
	timestamp := record.Date
	if timestamp == "" {
		timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	// The legacy schema had no separate start and end; both collapse to
	// the single legacy date.
	session := models.PracticeSession{
		UserID:          userID,
		PracticeTypeID:  practiceTypeID,
		StartedAt:       timestamp,
		CompletedAt:     timestamp,
		DurationSeconds: record.DurationSeconds,
		Status:          models.StatusCompleted,
		Metadata: map[string]any{
			"migrated_from":       "practice_history",
			"original_id":         record.ID,
			"migration_timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	}

	var created []models.PracticeSession
	if err := w.client.From("practice_sessions").Insert([]models.PracticeSession{session}, &created); err != nil {
		return "", fmt.Errorf("failed to create session for record %d: %w", record.ID, err)
	}
	if len(created) == 0 {
		return "", fmt.Errorf("session insert returned no row for record %d", record.ID)
	}

	w.stats.SessionsCreated++
	return created[0].ID, nil
}

func (w *FanOutWriter) migrateInputs(sessionID string, inputs map[string]any) error {
	now := time.Now().UTC().Format(time.RFC3339)
	var rows []models.PracticeInput
	for fieldName, fieldValue := range inputs {
		value := stringify(fieldValue)
		if strings.TrimSpace(value) == "" {
			continue
		}
		rows = append(rows, models.PracticeInput{
			SessionID:  sessionID,
			FieldName:  fieldName,
			FieldValue: value,
			CreatedAt:  now,
		})
	}
	if len(rows) == 0 {
		return nil
	}
	if err := w.client.From("practice_inputs").Insert(rows, nil); err != nil {
		return fmt.Errorf("failed to migrate inputs: %w", err)
	}
	return nil
}

// migrateScores writes one score row per coercible entry. A value that
// cannot be coerced to float skips that single score with a warning; a
// store insert failure fails the whole record.
func (w *FanOutWriter) migrateScores(sessionID string, scores map[string]any) error {
	now := time.Now().UTC().Format(time.RFC3339)
	for category, rawValue := range scores {
		value, err := coerceFloat(rawValue)
		if err != nil {
			log.Printf("Skipping score %s=%v: %v", category, rawValue, err)
			continue
		}

		row := models.PracticeScore{
			SessionID:     sessionID,
			ScoreCategory: category,
			ScoreValue:    value,
			MaxScore:      defaultMaxScore,
			CreatedAt:     now,
		}
		if err := w.client.From("practice_scores").Insert(row, nil); err != nil {
			return fmt.Errorf("failed to migrate score %s: %w", category, err)
		}
	}
	return nil
}

func (w *FanOutWriter) migrateFeedback(sessionID, feedback string) error {
	row := models.PracticeFeedback{
		SessionID:    sessionID,
		FeedbackText: feedback,
		FeedbackType: models.FeedbackTypeAIGenerated,
		CreatedAt:    time.Now().UTC().Format(time.RFC3339),
	}
	if err := w.client.From("practice_feedback").Insert(row, nil); err != nil {
		return fmt.Errorf("failed to migrate feedback: %w", err)
	}
	return nil
}

func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", val)
	}
}

// coerceFloat converts a decoded JSON score value to float64. Legacy
// rows held numbers, numeric strings, and the occasional garbage.
func coerceFloat(v any) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case int:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case json.Number:
		return val.Float64()
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", val)
		}
		return f, nil
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("unsupported score type %T", v)
	}
}
