package migration

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Kanata-T/exam-prep-backend/internal/models"
	"github.com/Kanata-T/exam-prep-backend/internal/store"
)

// practiceTypeMapping translates the legacy free-text practice-type
// labels to stable type keys. This is the full set of labels the old
// practice_history table ever held.
var practiceTypeMapping = map[string]string{
	"採用試験": "medical_exam_comprehensive",
	"過去問スタイル採用試験 - Letter形式（翻訳 + 意見）":   "medical_exam_letter_style",
	"過去問スタイル採用試験 - 論文コメント形式（コメント翻訳 + 意見）": "medical_exam_comment_style",
	"小論文対策":        "essay_practice",
	"面接対策":         "interview_practice_general",
	"面接対策(単発)":     "interview_practice_single",
	"面接対策(セッション)":  "interview_practice_session",
	"医学部採用試験 自由記述": "medical_knowledge_check",
	"英語読解":         "english_reading_standard",
	"過去問スタイル英語読解 - Letter形式（翻訳 + 意見）":   "english_reading_letter_style",
	"過去問スタイル英語読解 - 論文コメント形式（コメント翻訳 + 意見）": "english_reading_comment_style",
}

// categoryPrefixes maps a type key to its category by prefix. Order
// matters: the first matching prefix wins.
var categoryPrefixes = []struct {
	prefix      string
	categoryKey string
}{
	{"medical_exam_", "comprehensive_exam"},
	{"essay_", "essay_writing"},
	{"interview_", "interview_prep"},
	{"medical_knowledge_", "knowledge_check"},
	{"english_reading_", "english_reading"},
}

const (
	defaultCategoryKey = "comprehensive_exam"
	defaultTypeKey     = "medical_exam_comprehensive"

	// fallbackID is used when even the default rows cannot be resolved,
	// so a single bad label never aborts the whole run.
	fallbackID = "00000000-0000-0000-0000-000000000001"
)

// TaxonomyMapper resolves legacy labels to practice-type ids, creating
// missing category and type rows on demand. Lookup-or-create is
// idempotent by key, so a second run against the same target does not
// duplicate rows.
type TaxonomyMapper struct {
	client *store.Client
	stats  *Stats
}

func NewTaxonomyMapper(client *store.Client, stats *Stats) *TaxonomyMapper {
	return &TaxonomyMapper{client: client, stats: stats}
}

// EnsureTypes makes sure a practice-type row exists for every known
// legacy label and returns the label-to-id mapping. A write failure for
// one label falls back to the default type id rather than aborting.
func (m *TaxonomyMapper) EnsureTypes() map[string]string {
	log.Printf("Ensuring practice types...")

	typeIDs := make(map[string]string, len(practiceTypeMapping))
	for oldLabel, typeKey := range practiceTypeMapping {
		id, created, err := m.lookupOrCreateType(typeKey, oldLabel)
		if err != nil {
			log.Printf("Error ensuring practice type %q (%s): %v, using default", oldLabel, typeKey, err)
			typeIDs[oldLabel] = m.DefaultTypeID()
			continue
		}
		if created {
			log.Printf("Created practice type %q (%q)", typeKey, oldLabel)
			m.stats.TypesCreated++
		}
		typeIDs[oldLabel] = id
	}
	return typeIDs
}

func (m *TaxonomyMapper) lookupOrCreateType(typeKey, displayName string) (string, bool, error) {
	var existing []models.PracticeType
	err := m.client.From("practice_types").Select("id").Eq("type_key", typeKey).Get(&existing)
	if err != nil {
		return "", false, fmt.Errorf("failed to look up type %s: %w", typeKey, err)
	}
	if len(existing) > 0 {
		return existing[0].ID, false, nil
	}

	categoryID, err := m.categoryIDForType(typeKey)
	if err != nil {
		return "", false, err
	}

	row := models.PracticeType{
		TypeKey:     typeKey,
		DisplayName: displayName,
		CategoryID:  categoryID,
		Description: "Migrated from: " + displayName,
		IsActive:    true,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
	}

	var created []models.PracticeType
	if err := m.client.From("practice_types").Insert(row, &created); err != nil {
		return "", false, fmt.Errorf("failed to create type %s: %w", typeKey, err)
	}
	if len(created) == 0 {
		return "", false, fmt.Errorf("type insert returned no row for %s", typeKey)
	}
	return created[0].ID, true, nil
}

// categoryIDForType derives the category from the type key's prefix,
// first match wins, and resolves it to a row id, creating the category
// if it does not exist yet.
func (m *TaxonomyMapper) categoryIDForType(typeKey string) (string, error) {
	categoryKey := defaultCategoryKey
	for _, cp := range categoryPrefixes {
		if strings.HasPrefix(typeKey, cp.prefix) {
			categoryKey = cp.categoryKey
			break
		}
	}
	return m.lookupOrCreateCategory(categoryKey)
}

func (m *TaxonomyMapper) lookupOrCreateCategory(categoryKey string) (string, error) {
	var existing []models.PracticeCategory
	err := m.client.From("practice_categories").Select("id").Eq("category_key", categoryKey).Get(&existing)
	if err != nil {
		return "", fmt.Errorf("failed to look up category %s: %w", categoryKey, err)
	}
	if len(existing) > 0 {
		return existing[0].ID, nil
	}

	row := models.PracticeCategory{
		CategoryKey: categoryKey,
		DisplayName: categoryKey,
	}
	var created []models.PracticeCategory
	if err := m.client.From("practice_categories").Insert(row, &created); err != nil {
		return "", fmt.Errorf("failed to create category %s: %w", categoryKey, err)
	}
	if len(created) == 0 {
		return "", fmt.Errorf("category insert returned no row for %s", categoryKey)
	}
	return created[0].ID, nil
}

// DefaultTypeID resolves the well-known default practice type, falling
// back to a fixed id when even that lookup fails.
func (m *TaxonomyMapper) DefaultTypeID() string {
	var rows []models.PracticeType
	err := m.client.From("practice_types").Select("id").Eq("type_key", defaultTypeKey).Get(&rows)
	if err != nil || len(rows) == 0 {
		return fallbackID
	}
	return rows[0].ID
}

// TypeMapping returns the static label-to-key table for reporting.
func TypeMapping() map[string]string {
	return practiceTypeMapping
}
