package migration

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/Kanata-T/exam-prep-backend/internal/models"
	"github.com/Kanata-T/exam-prep-backend/internal/store"
)

// LegacySource pages through the old flat practice_history table in
// ascending creation-time order.
type LegacySource interface {
	// Count returns the total number of legacy records. An error here is
	// treated as "legacy table absent" by the orchestrator.
	Count() (int, error)
	// FetchBatch returns up to limit records starting at offset. An
	// empty batch terminates the migration loop.
	FetchBatch(offset, limit int) ([]models.LegacyRecord, error)
}

// StoreSource reads the legacy table from the hosted store.
type StoreSource struct {
	client *store.Client
}

func NewStoreSource(client *store.Client) *StoreSource {
	return &StoreSource{client: client}
}

func (s *StoreSource) Count() (int, error) {
	return s.client.From("practice_history").Count()
}

func (s *StoreSource) FetchBatch(offset, limit int) ([]models.LegacyRecord, error) {
	var records []models.LegacyRecord
	err := s.client.From("practice_history").
		Select("*").
		Order("created_at", true).
		Range(offset, offset+limit-1).
		Get(&records)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch legacy batch at offset %d: %w", offset, err)
	}
	return records, nil
}

// SnapshotSource reads the legacy table from a local DuckDB export,
// for migration runs against a snapshot file instead of the live store.
// The snapshot holds practice_history with inputs/scores as JSON text.
type SnapshotSource struct {
	db *sql.DB
}

func OpenSnapshot(path string) (*SnapshotSource, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot %s: %w", path, err)
	}
	return &SnapshotSource{db: db}, nil
}

func (s *SnapshotSource) Close() error {
	return s.db.Close()
}

func (s *SnapshotSource) Count() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM practice_history").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count snapshot records: %w", err)
	}
	return count, nil
}

func (s *SnapshotSource) FetchBatch(offset, limit int) ([]models.LegacyRecord, error) {
	query := `
		SELECT id, practice_type, date, duration_seconds, inputs, scores, feedback, created_at
		FROM practice_history
		ORDER BY created_at ASC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.Query(query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot: %w", err)
	}
	defer rows.Close()

	var records []models.LegacyRecord
	for rows.Next() {
		var (
			record          models.LegacyRecord
			date            sql.NullString
			duration        sql.NullInt64
			inputs, scores  sql.NullString
			feedback        sql.NullString
			createdAt       sql.NullString
		)
		err := rows.Scan(
			&record.ID,
			&record.PracticeType,
			&date,
			&duration,
			&inputs,
			&scores,
			&feedback,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}

		record.Date = date.String
		record.DurationSeconds = int(duration.Int64)
		record.Feedback = feedback.String
		record.CreatedAt = createdAt.String

		if inputs.Valid && inputs.String != "" {
			if err := json.Unmarshal([]byte(inputs.String), &record.Inputs); err != nil {
				return nil, fmt.Errorf("bad inputs JSON on record %d: %w", record.ID, err)
			}
		}
		if scores.Valid && scores.String != "" {
			if err := json.Unmarshal([]byte(scores.String), &record.Scores); err != nil {
				return nil, fmt.Errorf("bad scores JSON on record %d: %w", record.ID, err)
			}
		}

		records = append(records, record)
	}

	return records, rows.Err()
}
