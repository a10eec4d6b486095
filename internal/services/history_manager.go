package services

import (
	"fmt"
	"log"
	"math"
	"time"

	"github.com/Kanata-T/exam-prep-backend/internal/models"
	"github.com/Kanata-T/exam-prep-backend/internal/store"
)

// HistoryManager reads a user's completed sessions together with their
// child rows. Read operations return empty values on store failure so a
// downstream outage surfaces to callers as "no data", never as a crash.
type HistoryManager struct {
	client *store.Client
	now    func() time.Time
}

func NewHistoryManager(client *store.Client) *HistoryManager {
	return &HistoryManager{client: client, now: time.Now}
}

// ScoreDetail is a score row annotated with its derived percentage.
type ScoreDetail struct {
	models.PracticeScore
	ScorePercentage float64 `json:"score_percentage"`
}

type HistoryItem struct {
	SessionID            string                    `json:"session_id"`
	PracticeTypeID       string                    `json:"practice_type_id"`
	PracticeTypeName     string                    `json:"practice_type_name"`
	CategoryName         string                    `json:"category_name"`
	StartedAt            string                    `json:"started_at"`
	CompletedAt          string                    `json:"completed_at"`
	DurationSeconds      int                       `json:"duration_seconds"`
	Status               models.SessionStatus      `json:"status"`
	CompletionPercentage float64                   `json:"completion_percentage"`
	Inputs               []models.PracticeInput    `json:"inputs"`
	Scores               []ScoreDetail             `json:"scores"`
	Feedback             []models.PracticeFeedback `json:"feedback"`
}

// sessionWithType carries the embedded type/category display names the
// store joins into the session select.
type sessionWithType struct {
	models.PracticeSession
	PracticeTypes struct {
		DisplayName        string `json:"display_name"`
		CategoryID         string `json:"category_id"`
		PracticeCategories struct {
			DisplayName string `json:"display_name"`
		} `json:"practice_categories"`
	} `json:"practice_types"`
}

const historySessionSelect = "id,user_id,practice_type_id,started_at,completed_at," +
	"duration_seconds,status,completion_percentage," +
	"practice_types(display_name,category_id,practice_categories(display_name))"

// GetUserHistory returns one page of the user's completed sessions in
// descending start order. Child rows are fetched with one in-set query
// per table across the whole page, not per session.
func (m *HistoryManager) GetUserHistory(userID, practiceTypeID string, limit, offset int) []HistoryItem {
	if limit <= 0 {
		limit = 50
	}

	query := m.client.From("practice_sessions").
		Select(historySessionSelect).
		Eq("user_id", userID).
		Eq("status", string(models.StatusCompleted))
	if practiceTypeID != "" {
		query = query.Eq("practice_type_id", practiceTypeID)
	}

	var sessions []sessionWithType
	err := query.Order("started_at", false).Range(offset, offset+limit-1).Get(&sessions)
	if err != nil {
		log.Printf("Error getting practice history for user %s: %v", userID, err)
		return []HistoryItem{}
	}
	if len(sessions) == 0 {
		return []HistoryItem{}
	}

	sessionIDs := make([]string, len(sessions))
	for i, s := range sessions {
		sessionIDs[i] = s.ID
	}

	inputsBySession := m.getInputsBatch(sessionIDs)
	scoresBySession := m.getScoresBatch(sessionIDs)
	feedbackBySession := m.getFeedbackBatch(sessionIDs)

	history := make([]HistoryItem, 0, len(sessions))
	for _, s := range sessions {
		history = append(history, HistoryItem{
			SessionID:            s.ID,
			PracticeTypeID:       s.PracticeTypeID,
			PracticeTypeName:     s.PracticeTypes.DisplayName,
			CategoryName:         s.PracticeTypes.PracticeCategories.DisplayName,
			StartedAt:            s.StartedAt,
			CompletedAt:          s.CompletedAt,
			DurationSeconds:      s.DurationSeconds,
			Status:               s.Status,
			CompletionPercentage: s.CompletionPercentage,
			Inputs:               inputsBySession[s.ID],
			Scores:               scoresBySession[s.ID],
			Feedback:             feedbackBySession[s.ID],
		})
	}

	return history
}

func (m *HistoryManager) getInputsBatch(sessionIDs []string) map[string][]models.PracticeInput {
	bySession := make(map[string][]models.PracticeInput)
	if len(sessionIDs) == 0 {
		return bySession
	}

	var inputs []models.PracticeInput
	err := m.client.From("practice_inputs").
		In("session_id", sessionIDs).
		Order("created_at", true).
		Get(&inputs)
	if err != nil {
		log.Printf("Error getting session inputs: %v", err)
		return bySession
	}

	for _, in := range inputs {
		bySession[in.SessionID] = append(bySession[in.SessionID], in)
	}
	return bySession
}

func (m *HistoryManager) getScoresBatch(sessionIDs []string) map[string][]ScoreDetail {
	bySession := make(map[string][]ScoreDetail)
	if len(sessionIDs) == 0 {
		return bySession
	}

	var scores []models.PracticeScore
	err := m.client.From("practice_scores").In("session_id", sessionIDs).Get(&scores)
	if err != nil {
		log.Printf("Error getting session scores: %v", err)
		return bySession
	}

	for _, sc := range scores {
		bySession[sc.SessionID] = append(bySession[sc.SessionID], ScoreDetail{
			PracticeScore:   sc,
			ScorePercentage: sc.Percentage(),
		})
	}
	return bySession
}

func (m *HistoryManager) getFeedbackBatch(sessionIDs []string) map[string][]models.PracticeFeedback {
	bySession := make(map[string][]models.PracticeFeedback)
	if len(sessionIDs) == 0 {
		return bySession
	}

	var feedback []models.PracticeFeedback
	err := m.client.From("practice_feedback").
		In("session_id", sessionIDs).
		Order("created_at", true).
		Get(&feedback)
	if err != nil {
		log.Printf("Error getting session feedback: %v", err)
		return bySession
	}

	for _, fb := range feedback {
		bySession[fb.SessionID] = append(bySession[fb.SessionID], fb)
	}
	return bySession
}

type Statistics struct {
	TotalSessions        int            `json:"total_sessions"`
	TotalDurationMinutes float64        `json:"total_duration_minutes"`
	AverageCompletion    float64        `json:"average_completion"`
	AverageScore         float64        `json:"average_score"`
	SessionsByDay        map[string]int `json:"sessions_by_day"`
	ScoreTrends          []float64      `json:"score_trends"`
}

func emptyStatistics() Statistics {
	return Statistics{SessionsByDay: map[string]int{}, ScoreTrends: []float64{}}
}

// GetStatistics aggregates the user's completed sessions over the last
// daysBack days. The average score is the mean of per-session score
// means, each score taken as a percentage of its maximum.
func (m *HistoryManager) GetStatistics(userID, practiceTypeID string, daysBack int) Statistics {
	if daysBack <= 0 {
		daysBack = 30
	}
	windowStart := m.now().UTC().AddDate(0, 0, -daysBack).Format(time.RFC3339)

	query := m.client.From("practice_sessions").
		Select("id,started_at,duration_seconds,completion_percentage").
		Eq("user_id", userID).
		Eq("status", string(models.StatusCompleted)).
		Gte("started_at", windowStart)
	if practiceTypeID != "" {
		query = query.Eq("practice_type_id", practiceTypeID)
	}

	var sessions []models.PracticeSession
	if err := query.Get(&sessions); err != nil {
		log.Printf("Error getting practice statistics for user %s: %v", userID, err)
		return emptyStatistics()
	}
	if len(sessions) == 0 {
		return emptyStatistics()
	}

	sessionIDs := make([]string, len(sessions))
	totalDuration := 0
	totalCompletion := 0.0
	sessionsByDay := make(map[string]int)
	for i, s := range sessions {
		sessionIDs[i] = s.ID
		totalDuration += s.DurationSeconds
		totalCompletion += s.CompletionPercentage
		if len(s.StartedAt) >= 10 {
			sessionsByDay[s.StartedAt[:10]]++
		}
	}

	var scores []models.PracticeScore
	err := m.client.From("practice_scores").
		Select("session_id,score_value,max_score").
		In("session_id", sessionIDs).
		Get(&scores)
	if err != nil {
		log.Printf("Error getting scores for statistics: %v", err)
		scores = nil
	}

	percentagesBySession := make(map[string][]float64)
	for _, sc := range scores {
		percentagesBySession[sc.SessionID] = append(percentagesBySession[sc.SessionID], sc.Percentage())
	}

	var sessionMeans []float64
	for _, id := range sessionIDs {
		if pcts := percentagesBySession[id]; len(pcts) > 0 {
			sessionMeans = append(sessionMeans, mean(pcts))
		}
	}

	averageScore := 0.0
	if len(sessionMeans) > 0 {
		averageScore = mean(sessionMeans)
	}

	return Statistics{
		TotalSessions:        len(sessions),
		TotalDurationMinutes: round1(float64(totalDuration) / 60),
		AverageCompletion:    round1(totalCompletion / float64(len(sessions))),
		AverageScore:         round1(averageScore),
		SessionsByDay:        sessionsByDay,
		ScoreTrends:          sessionMeans,
	}
}

// DeleteUserHistoryByType removes all of the user's sessions of the
// given type and their child rows, children first to respect foreign
// keys. Returns the number of sessions removed; no match is 0, not an
// error.
func (m *HistoryManager) DeleteUserHistoryByType(userID, practiceTypeID string) (int, error) {
	var sessions []models.PracticeSession
	err := m.client.From("practice_sessions").
		Select("id").
		Eq("user_id", userID).
		Eq("practice_type_id", practiceTypeID).
		Get(&sessions)
	if err != nil {
		return 0, fmt.Errorf("failed to list sessions for deletion: %w", err)
	}
	if len(sessions) == 0 {
		return 0, nil
	}

	sessionIDs := make([]string, len(sessions))
	for i, s := range sessions {
		sessionIDs[i] = s.ID
	}

	for _, table := range []string{"practice_feedback", "practice_scores", "practice_inputs"} {
		if err := m.client.From(table).In("session_id", sessionIDs).Delete(nil); err != nil {
			return 0, fmt.Errorf("failed to delete %s: %w", table, err)
		}
	}

	if err := m.client.From("practice_sessions").In("id", sessionIDs).Delete(nil); err != nil {
		return 0, fmt.Errorf("failed to delete practice_sessions: %w", err)
	}

	log.Printf("Deleted %d sessions for user %s, type %s", len(sessionIDs), userID, practiceTypeID)
	return len(sessionIDs), nil
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
