package migration

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kanata-T/exam-prep-backend/internal/models"
)

func TestMigrateRecordUnknownLabelUsesDefault(t *testing.T) {
	w := NewFanOutWriter(testClient(t), &Stats{}, "type-default")

	var sessionPayload []map[string]any
	httpmock.RegisterResponder("POST", testBaseURL+"/rest/v1/practice_sessions",
		func(req *http.Request) (*http.Response, error) {
			if err := decodeJSONBody(req, &sessionPayload); err != nil {
				return nil, err
			}
			return httpmock.NewStringResponse(201, `[{"id":"sess-1"}]`), nil
		})

	record := models.LegacyRecord{ID: 7, PracticeType: "未知のタイプ"}
	err := w.MigrateRecord(record, "legacy_user_001", map[string]string{})
	require.NoError(t, err)

	require.Len(t, sessionPayload, 1)
	assert.Equal(t, "type-default", sessionPayload[0]["practice_type_id"])
}

func TestMigrateRecordSessionFailureAborts(t *testing.T) {
	stats := &Stats{}
	w := NewFanOutWriter(testClient(t), stats, "type-default")

	httpmock.RegisterResponder("POST", testBaseURL+"/rest/v1/practice_sessions",
		httpmock.NewStringResponder(500, `{"message":"boom"}`))

	record := models.LegacyRecord{
		ID:           7,
		PracticeType: "小論文対策",
		Inputs:       map[string]any{"essay": "hello"},
	}
	err := w.MigrateRecord(record, "legacy_user_001", map[string]string{"小論文対策": "type-1"})
	require.Error(t, err)
	assert.Equal(t, 0, stats.SessionsCreated)

	// No child row is written without its parent.
	counts := httpmock.GetCallCountInfo()
	assert.Equal(t, 0, counts["POST "+testBaseURL+"/rest/v1/practice_inputs"])
}

func TestMigrateRecordScoreInsertFailureFailsRecord(t *testing.T) {
	w := NewFanOutWriter(testClient(t), &Stats{}, "type-default")

	httpmock.RegisterResponder("POST", testBaseURL+"/rest/v1/practice_sessions",
		httpmock.NewStringResponder(201, `[{"id":"sess-1"}]`))
	httpmock.RegisterResponder("POST", testBaseURL+"/rest/v1/practice_scores",
		httpmock.NewStringResponder(500, `{"message":"boom"}`))

	record := models.LegacyRecord{
		ID:           8,
		PracticeType: "小論文対策",
		Scores:       map[string]any{"grammar": float64(8)},
		Feedback:     "Good job",
	}
	err := w.MigrateRecord(record, "legacy_user_001", map[string]string{"小論文対策": "type-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "grammar")

	// The record fails before its feedback is written.
	counts := httpmock.GetCallCountInfo()
	assert.Equal(t, 0, counts["POST "+testBaseURL+"/rest/v1/practice_feedback"])
}

func TestMigrateInputsSkipsEmptyValues(t *testing.T) {
	w := NewFanOutWriter(testClient(t), &Stats{}, "type-default")

	var rows []models.PracticeInput
	httpmock.RegisterResponder("POST", testBaseURL+"/rest/v1/practice_inputs",
		func(req *http.Request) (*http.Response, error) {
			if err := decodeJSONBody(req, &rows); err != nil {
				return nil, err
			}
			return httpmock.NewStringResponse(201, `[]`), nil
		})

	err := w.migrateInputs("sess-1", map[string]any{
		"essay":   "hello",
		"blank":   "   ",
		"missing": nil,
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "essay", rows[0].FieldName)
}

func TestMigrateInputsAllEmptySkipsStore(t *testing.T) {
	w := NewFanOutWriter(testClient(t), &Stats{}, "type-default")

	err := w.migrateInputs("sess-1", map[string]any{"blank": ""})
	require.NoError(t, err)
	assert.Equal(t, 0, httpmock.GetTotalCallCount())
}

func TestMigrateScoresSkipsBadValues(t *testing.T) {
	w := NewFanOutWriter(testClient(t), &Stats{}, "type-default")

	var categories []string
	httpmock.RegisterResponder("POST", testBaseURL+"/rest/v1/practice_scores",
		func(req *http.Request) (*http.Response, error) {
			var row models.PracticeScore
			if err := decodeJSONBody(req, &row); err != nil {
				return nil, err
			}
			categories = append(categories, row.ScoreCategory)
			return httpmock.NewStringResponse(201, `[]`), nil
		})

	err := w.migrateScores("sess-1", map[string]any{
		"grammar": float64(8),
		"logic":   "7.5",
		"garbage": "not a number",
	})
	require.NoError(t, err)

	assert.Len(t, categories, 2)
	assert.Contains(t, categories, "grammar")
	assert.Contains(t, categories, "logic")
}

func TestCoerceFloat(t *testing.T) {
	cases := []struct {
		in   any
		want float64
	}{
		{float64(8.5), 8.5},
		{int(7), 7},
		{int64(6), 6},
		{json.Number("4.25"), 4.25},
		{"9", 9},
		{" 3.5 ", 3.5},
		{nil, 0},
	}
	for _, tc := range cases {
		got, err := coerceFloat(tc.in)
		require.NoError(t, err, "input %v", tc.in)
		assert.Equal(t, tc.want, got, "input %v", tc.in)
	}

	_, err := coerceFloat("abc")
	assert.Error(t, err)
	_, err = coerceFloat([]string{"nope"})
	assert.Error(t, err)
}

func TestStringify(t *testing.T) {
	assert.Equal(t, "hello", stringify("hello"))
	assert.Equal(t, "", stringify(nil))
	assert.Equal(t, "42", stringify(float64(42)))
	assert.Equal(t, "true", stringify(true))
}
