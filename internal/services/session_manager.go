package services

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/Kanata-T/exam-prep-backend/internal/models"
	"github.com/Kanata-T/exam-prep-backend/internal/store"
)

// SessionManager owns the practice-session lifecycle. A session is
// created in_progress and moved exactly once to completed or abandoned;
// at most one in_progress session may exist per user, enforced by a
// best-effort cleanup at start rather than a database constraint.
type SessionManager struct {
	client *store.Client
	now    func() time.Time
}

func NewSessionManager(client *store.Client) *SessionManager {
	return &SessionManager{client: client, now: time.Now}
}

// StartSession force-cleans any of the user's sessions still marked
// in_progress, then inserts a fresh one and returns its id.
func (m *SessionManager) StartSession(userID, practiceTypeID string) (string, error) {
	m.cleanupUserSessions(userID)

	session := models.PracticeSession{
		UserID:               userID,
		PracticeTypeID:       practiceTypeID,
		StartedAt:            m.now().UTC().Format(time.RFC3339),
		Status:               models.StatusInProgress,
		CompletionPercentage: 0,
		Metadata:             map[string]any{},
	}

	var created []models.PracticeSession
	if err := m.client.From("practice_sessions").Insert(session, &created); err != nil {
		return "", fmt.Errorf("failed to create practice session: %w", err)
	}
	if len(created) == 0 {
		return "", fmt.Errorf("session insert returned no row")
	}

	log.Printf("Started practice session: %s", created[0].ID)
	return created[0].ID, nil
}

// cleanupUserSessions deletes the user's in_progress sessions. When the
// store rejects the delete it degrades to marking them abandoned.
func (m *SessionManager) cleanupUserSessions(userID string) bool {
	var deleted []models.PracticeSession
	err := m.client.From("practice_sessions").
		Eq("user_id", userID).
		Eq("status", string(models.StatusInProgress)).
		Delete(&deleted)
	if err == nil {
		if len(deleted) > 0 {
			log.Printf("Deleted %d active sessions for user %s", len(deleted), userID)
		}
		return true
	}

	log.Printf("Error cleaning up sessions for user %s: %v, marking abandoned instead", userID, err)

	values := map[string]any{"status": string(models.StatusAbandoned)}
	var updated []models.PracticeSession
	err = m.client.From("practice_sessions").
		Eq("user_id", userID).
		Eq("status", string(models.StatusInProgress)).
		Update(values, &updated)
	if err != nil {
		log.Printf("Fallback cleanup also failed for user %s: %v", userID, err)
		return false
	}
	if len(updated) > 0 {
		log.Printf("Marked %d sessions as abandoned for user %s", len(updated), userID)
	}
	return true
}

// CompleteSession transitions a session to completed, computing its
// duration from the stored start time to now.
func (m *SessionManager) CompleteSession(sessionID string, completionPercentage float64) error {
	var rows []models.PracticeSession
	err := m.client.From("practice_sessions").Select("started_at").Eq("id", sessionID).Get(&rows)
	if err != nil {
		return fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("session not found: %s", sessionID)
	}

	startedAt, err := models.ParseTime(rows[0].StartedAt)
	if err != nil {
		return fmt.Errorf("bad started_at on session %s: %w", sessionID, err)
	}

	endTime := m.now().UTC()
	durationSeconds := int(endTime.Sub(startedAt).Seconds())
	if durationSeconds < 0 {
		durationSeconds = 0
	}

	values := map[string]any{
		"completed_at":          endTime.Format(time.RFC3339),
		"duration_seconds":      durationSeconds,
		"status":                string(models.StatusCompleted),
		"completion_percentage": completionPercentage,
	}

	var updated []models.PracticeSession
	if err := m.client.From("practice_sessions").Eq("id", sessionID).Update(values, &updated); err != nil {
		return fmt.Errorf("failed to complete session %s: %w", sessionID, err)
	}
	if len(updated) == 0 {
		return fmt.Errorf("session not found: %s", sessionID)
	}

	log.Printf("Completed practice session: %s, duration: %ds", sessionID, durationSeconds)
	return nil
}

// AbandonSession transitions a session to abandoned.
func (m *SessionManager) AbandonSession(sessionID string) error {
	values := map[string]any{
		"status":       string(models.StatusAbandoned),
		"completed_at": m.now().UTC().Format(time.RFC3339),
	}

	var updated []models.PracticeSession
	if err := m.client.From("practice_sessions").Eq("id", sessionID).Update(values, &updated); err != nil {
		return fmt.Errorf("failed to abandon session %s: %w", sessionID, err)
	}
	if len(updated) == 0 {
		return fmt.Errorf("session not found: %s", sessionID)
	}
	return nil
}

// SaveInputs batch-inserts the given input rows for a session.
func (m *SessionManager) SaveInputs(sessionID string, inputs []models.PracticeInput) error {
	if len(inputs) == 0 {
		return nil
	}
	rows := make([]models.PracticeInput, len(inputs))
	for i, in := range inputs {
		in.ID = uuid.NewString()
		in.SessionID = sessionID
		rows[i] = in
	}
	if err := m.client.From("practice_inputs").Insert(rows, nil); err != nil {
		return fmt.Errorf("failed to save practice inputs: %w", err)
	}
	log.Printf("Saved %d practice inputs for session %s", len(rows), sessionID)
	return nil
}

// SaveScores batch-inserts the given score rows for a session.
func (m *SessionManager) SaveScores(sessionID string, scores []models.PracticeScore) error {
	if len(scores) == 0 {
		return nil
	}
	rows := make([]models.PracticeScore, len(scores))
	for i, sc := range scores {
		sc.ID = uuid.NewString()
		sc.SessionID = sessionID
		rows[i] = sc
	}
	if err := m.client.From("practice_scores").Insert(rows, nil); err != nil {
		return fmt.Errorf("failed to save practice scores: %w", err)
	}
	log.Printf("Saved %d practice scores for session %s", len(rows), sessionID)
	return nil
}

// SaveFeedback inserts a single feedback row for a session.
func (m *SessionManager) SaveFeedback(sessionID, feedbackText, feedbackType string) error {
	row := models.PracticeFeedback{
		ID:           uuid.NewString(),
		SessionID:    sessionID,
		FeedbackText: feedbackText,
		FeedbackType: feedbackType,
	}
	if err := m.client.From("practice_feedback").Insert(row, nil); err != nil {
		return fmt.Errorf("failed to save practice feedback: %w", err)
	}
	return nil
}
