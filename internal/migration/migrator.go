package migration

import (
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/Kanata-T/exam-prep-backend/internal/models"
	"github.com/Kanata-T/exam-prep-backend/internal/store"
)

const (
	defaultBatchSize = 100

	// defaultUserID owns every migrated legacy session; the old table
	// had no user dimension.
	defaultUserID = "legacy_user_001"
)

// requiredTables are the target-schema tables that must be reachable
// before any write happens.
var requiredTables = []string{
	"users",
	"practice_categories",
	"practice_types",
	"practice_sessions",
	"practice_inputs",
	"practice_scores",
	"practice_feedback",
}

// Stats accumulates migration counters for the final report.
type Stats struct {
	TotalRecords    int
	MigratedRecords int
	SkippedRecords  int
	ErrorRecords    int
	UsersCreated    int
	SessionsCreated int
	TypesCreated    int
}

// SuccessRate is migrated/total as a percentage. An empty legacy table
// yields 0, not a division error.
func (s *Stats) SuccessRate() float64 {
	total := s.TotalRecords
	if total < 1 {
		total = 1
	}
	return float64(s.MigratedRecords) / float64(total) * 100
}

// Migrator sequences the migration: validate environment, bootstrap the
// default user, prepare the taxonomy, migrate batches, emit a report.
// There is no resumption checkpoint; a failed run restarts from the top.
type Migrator struct {
	client    *store.Client
	source    LegacySource
	batchSize int

	Stats       Stats
	legacyFound bool
}

func New(client *store.Client, source LegacySource) *Migrator {
	return &Migrator{
		client:    client,
		source:    source,
		batchSize: defaultBatchSize,
	}
}

// Run executes the full migration. On success a report has been written
// to reportPath.
func (m *Migrator) Run(reportPath string) error {
	log.Printf("Starting data migration...")

	if err := m.ValidateEnvironment(); err != nil {
		return fmt.Errorf("environment validation failed: %w", err)
	}

	userID, err := m.createDefaultUser()
	if err != nil {
		return fmt.Errorf("failed to bootstrap default user: %w", err)
	}

	taxonomy := NewTaxonomyMapper(m.client, &m.Stats)
	typeIDs := taxonomy.EnsureTypes()
	writer := NewFanOutWriter(m.client, &m.Stats, taxonomy.DefaultTypeID())

	if m.legacyFound {
		if err := m.migrateBatches(writer, userID, typeIDs); err != nil {
			return fmt.Errorf("data migration failed: %w", err)
		}
	} else {
		log.Printf("No legacy table found, nothing to migrate")
	}

	report := m.GenerateReport()
	log.Printf("%s", report)
	if err := os.WriteFile(reportPath, []byte(report), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	log.Printf("Migration completed successfully")
	return nil
}

// ValidateEnvironment confirms every required target table is reachable
// and records the legacy row count. An absent legacy table means a fresh
// install and is not an error.
func (m *Migrator) ValidateEnvironment() error {
	log.Printf("Validating environment...")

	for _, table := range requiredTables {
		if _, err := m.client.From(table).Count(); err != nil {
			return fmt.Errorf("required table %q is not reachable: %w", table, err)
		}
		log.Printf("Table %q OK", table)
	}

	count, err := m.source.Count()
	if err != nil {
		log.Printf("Legacy table 'practice_history' not found (%v); assuming fresh install", err)
		m.legacyFound = false
		return nil
	}

	log.Printf("Legacy table 'practice_history' holds %d records", count)
	m.Stats.TotalRecords = count
	m.legacyFound = true
	return nil
}

// createDefaultUser inserts the synthetic owner of all migrated
// sessions, or returns the existing one.
func (m *Migrator) createDefaultUser() (string, error) {
	var existing []models.User
	err := m.client.From("users").Select("id").Eq("id", defaultUserID).Get(&existing)
	if err != nil {
		return "", fmt.Errorf("failed to look up default user: %w", err)
	}
	if len(existing) > 0 {
		log.Printf("Default user %q already exists", defaultUserID)
		return defaultUserID, nil
	}

	now := time.Now().UTC().Format(time.RFC3339)
	user := models.User{
		ID:            defaultUserID,
		CreatedAt:     now,
		LastActiveAt:  now,
		SessionMethod: "legacy_migration",
		Metadata: map[string]any{
			"migration_source": "old_practice_history",
			"migration_date":   now,
		},
	}

	if err := m.client.From("users").Insert(user, nil); err != nil {
		return "", fmt.Errorf("failed to create default user: %w", err)
	}

	log.Printf("Created default user %q", defaultUserID)
	m.Stats.UsersCreated++
	return defaultUserID, nil
}

// migrateBatches walks the legacy table in fixed-size pages. A batch
// fetch failure aborts the run; a single record failure is counted and
// logged with the legacy id, and the loop continues.
func (m *Migrator) migrateBatches(writer *FanOutWriter, userID string, typeIDs map[string]string) error {
	offset := 0
	for {
		log.Printf("Processing batch: offset=%d, size=%d", offset, m.batchSize)

		records, err := m.source.FetchBatch(offset, m.batchSize)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			break
		}

		for _, record := range records {
			if err := writer.MigrateRecord(record, userID, typeIDs); err != nil {
				log.Printf("Error migrating record (ID: %d): %v", record.ID, err)
				m.Stats.ErrorRecords++
				continue
			}
			m.Stats.MigratedRecords++
		}

		offset += m.batchSize
		if offset%500 == 0 {
			log.Printf("Progress: %d / %d records processed", offset, m.Stats.TotalRecords)
		}
	}

	log.Printf("Data migration finished")
	return nil
}

// GenerateReport renders the plain-text migration summary.
func (m *Migrator) GenerateReport() string {
	var b strings.Builder

	b.WriteString("Data Migration Report\n")
	b.WriteString("=====================\n")
	fmt.Fprintf(&b, "Run at: %s\n\n", time.Now().Format(time.RFC3339))

	b.WriteString("Migration statistics:\n")
	fmt.Fprintf(&b, "- Total records:          %d\n", m.Stats.TotalRecords)
	fmt.Fprintf(&b, "- Migrated:               %d\n", m.Stats.MigratedRecords)
	fmt.Fprintf(&b, "- Skipped:                %d\n", m.Stats.SkippedRecords)
	fmt.Fprintf(&b, "- Errors:                 %d\n", m.Stats.ErrorRecords)
	fmt.Fprintf(&b, "- Users created:          %d\n", m.Stats.UsersCreated)
	fmt.Fprintf(&b, "- Sessions created:       %d\n", m.Stats.SessionsCreated)
	fmt.Fprintf(&b, "- Practice types created: %d\n", m.Stats.TypesCreated)
	fmt.Fprintf(&b, "\nSuccess rate: %.2f%%\n", m.Stats.SuccessRate())

	b.WriteString("\nPractice type mapping:\n")
	labels := make([]string, 0, len(practiceTypeMapping))
	for label := range practiceTypeMapping {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		fmt.Fprintf(&b, "- %s -> %s\n", label, practiceTypeMapping[label])
	}

	return b.String()
}
