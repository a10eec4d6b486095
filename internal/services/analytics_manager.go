package services

import (
	"log"
	"sort"
	"time"

	"github.com/Kanata-T/exam-prep-backend/internal/models"
	"github.com/Kanata-T/exam-prep-backend/internal/store"
)

// AnalyticsManager computes score trends and category rollups by
// grouping already-fetched rows in memory. Like the other read paths it
// returns empty results on store failure.
type AnalyticsManager struct {
	client *store.Client
	now    func() time.Time
}

func NewAnalyticsManager(client *store.Client) *AnalyticsManager {
	return &AnalyticsManager{client: client, now: time.Now}
}

type ScoreTrendPoint struct {
	Date            string  `json:"date"`
	ScoreCategory   string  `json:"score_category"`
	ScorePercentage float64 `json:"score_percentage"`
	ScoreValue      float64 `json:"score_value"`
	MaxScore        float64 `json:"max_score"`
}

// scoreWithSession carries the inner-joined session columns used only
// for filtering.
type scoreWithSession struct {
	models.PracticeScore
	PracticeSessions struct {
		UserID         string `json:"user_id"`
		PracticeTypeID string `json:"practice_type_id"`
		StartedAt      string `json:"started_at"`
	} `json:"practice_sessions"`
}

// GetScoreTrends lists score rows for the user's sessions in the last
// daysBack days, oldest first, each annotated with its percentage.
func (m *AnalyticsManager) GetScoreTrends(userID, practiceTypeID, scoreCategory string, daysBack int) []ScoreTrendPoint {
	if daysBack <= 0 {
		daysBack = 30
	}
	windowStart := m.now().UTC().AddDate(0, 0, -daysBack).Format(time.RFC3339)

	query := m.client.From("practice_scores").
		Select("score_category,score_value,max_score,created_at,"+
			"practice_sessions!inner(user_id,practice_type_id,started_at)").
		Eq("practice_sessions.user_id", userID).
		Gte("practice_sessions.started_at", windowStart)
	if practiceTypeID != "" {
		query = query.Eq("practice_sessions.practice_type_id", practiceTypeID)
	}
	if scoreCategory != "" {
		query = query.Eq("score_category", scoreCategory)
	}

	var scores []scoreWithSession
	if err := query.Order("created_at", true).Get(&scores); err != nil {
		log.Printf("Error getting score trends for user %s: %v", userID, err)
		return []ScoreTrendPoint{}
	}

	trends := make([]ScoreTrendPoint, 0, len(scores))
	for _, sc := range scores {
		date := sc.CreatedAt
		if len(date) >= 10 {
			date = date[:10]
		}
		trends = append(trends, ScoreTrendPoint{
			Date:            date,
			ScoreCategory:   sc.ScoreCategory,
			ScorePercentage: round1(sc.Percentage()),
			ScoreValue:      sc.ScoreValue,
			MaxScore:        sc.MaxScore,
		})
	}
	return trends
}

type CategoryPerformance struct {
	TotalSessions          int      `json:"total_sessions"`
	AverageDurationMinutes float64  `json:"average_duration_minutes"`
	AverageCompletion      float64  `json:"average_completion"`
	PracticeTypes          []string `json:"practice_types"`
}

// GetCategoryPerformance rolls the user's completed sessions of the last
// daysBack days up per category: session count, average duration,
// average completion and the distinct type names touched.
func (m *AnalyticsManager) GetCategoryPerformance(userID string, daysBack int) map[string]CategoryPerformance {
	if daysBack <= 0 {
		daysBack = 30
	}
	windowStart := m.now().UTC().AddDate(0, 0, -daysBack).Format(time.RFC3339)

	var sessions []sessionWithType
	err := m.client.From("practice_sessions").
		Select("id,practice_type_id,duration_seconds,completion_percentage,started_at,"+
			"practice_types(display_name,category_id,practice_categories(display_name))").
		Eq("user_id", userID).
		Eq("status", string(models.StatusCompleted)).
		Gte("started_at", windowStart).
		Get(&sessions)
	if err != nil {
		log.Printf("Error getting category performance for user %s: %v", userID, err)
		return map[string]CategoryPerformance{}
	}

	type accumulator struct {
		sessions    int
		duration    int
		completion  float64
		typesByName map[string]struct{}
	}
	byCategory := make(map[string]*accumulator)

	for _, s := range sessions {
		categoryName := s.PracticeTypes.PracticeCategories.DisplayName
		acc, ok := byCategory[categoryName]
		if !ok {
			acc = &accumulator{typesByName: make(map[string]struct{})}
			byCategory[categoryName] = acc
		}
		acc.sessions++
		acc.duration += s.DurationSeconds
		acc.completion += s.CompletionPercentage
		acc.typesByName[s.PracticeTypes.DisplayName] = struct{}{}
	}

	result := make(map[string]CategoryPerformance, len(byCategory))
	for name, acc := range byCategory {
		typeNames := make([]string, 0, len(acc.typesByName))
		for t := range acc.typesByName {
			typeNames = append(typeNames, t)
		}
		sort.Strings(typeNames)

		result[name] = CategoryPerformance{
			TotalSessions:          acc.sessions,
			AverageDurationMinutes: round1(float64(acc.duration) / float64(acc.sessions) / 60),
			AverageCompletion:      round1(acc.completion / float64(acc.sessions)),
			PracticeTypes:          typeNames,
		}
	}
	return result
}
