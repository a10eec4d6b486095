package store

import (
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBaseURL = "https://example.supabase.co"

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c := New(testBaseURL, "test-key")
	httpmock.ActivateNonDefault(c.httpClient)
	t.Cleanup(httpmock.DeactivateAndReset)
	return c
}

func TestGetDecodesRows(t *testing.T) {
	c := newTestClient(t)
	httpmock.RegisterResponder("GET", testBaseURL+"/rest/v1/users",
		httpmock.NewStringResponder(200, `[{"id":"user-1"},{"id":"user-2"}]`))

	var rows []map[string]any
	err := c.From("users").Get(&rows)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "user-1", rows[0]["id"])
}

func TestRequestHeaders(t *testing.T) {
	c := newTestClient(t)
	var captured http.Header
	httpmock.RegisterResponder("GET", testBaseURL+"/rest/v1/users",
		func(req *http.Request) (*http.Response, error) {
			captured = req.Header
			return httpmock.NewStringResponse(200, `[]`), nil
		})

	var rows []map[string]any
	err := c.From("users").Get(&rows)
	require.NoError(t, err)
	assert.Equal(t, "test-key", captured.Get("apikey"))
	assert.Equal(t, "Bearer test-key", captured.Get("Authorization"))
}

func TestInsertReturnsRepresentation(t *testing.T) {
	c := newTestClient(t)
	httpmock.RegisterResponder("POST", testBaseURL+"/rest/v1/users",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "return=representation", req.Header.Get("Prefer"))
			assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
			return httpmock.NewStringResponse(201, `[{"id":"user-1","email":"a@example.com"}]`), nil
		})

	var created []map[string]any
	err := c.From("users").Insert(map[string]string{"email": "a@example.com"}, &created)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "user-1", created[0]["id"])
}

func TestInsertNilDestDiscardsBody(t *testing.T) {
	c := newTestClient(t)
	httpmock.RegisterResponder("POST", testBaseURL+"/rest/v1/practice_inputs",
		httpmock.NewStringResponder(201, `[{"id":"in-1"}]`))

	err := c.From("practice_inputs").Insert(map[string]string{"field_name": "essay"}, nil)
	assert.NoError(t, err)
}

func TestUpdatePatchesMatchingRows(t *testing.T) {
	c := newTestClient(t)
	httpmock.RegisterResponder("PATCH", testBaseURL+"/rest/v1/practice_sessions",
		httpmock.NewStringResponder(200, `[{"id":"sess-1","status":"abandoned"}]`))

	var updated []map[string]any
	err := c.From("practice_sessions").Eq("id", "sess-1").Update(map[string]string{"status": "abandoned"}, &updated)
	require.NoError(t, err)
	require.Len(t, updated, 1)
	assert.Equal(t, "abandoned", updated[0]["status"])
}

func TestDeleteReturnsDeletedRows(t *testing.T) {
	c := newTestClient(t)
	httpmock.RegisterResponder("DELETE", testBaseURL+"/rest/v1/practice_sessions",
		httpmock.NewStringResponder(200, `[{"id":"sess-1"},{"id":"sess-2"}]`))

	var deleted []map[string]any
	err := c.From("practice_sessions").Eq("user_id", "user-1").Delete(&deleted)
	require.NoError(t, err)
	assert.Len(t, deleted, 2)
}

func TestCountParsesContentRange(t *testing.T) {
	c := newTestClient(t)
	httpmock.RegisterResponder("GET", testBaseURL+"/rest/v1/practice_sessions",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "count=exact", req.Header.Get("Prefer"))
			resp := httpmock.NewStringResponse(200, `[{"id":"sess-1"}]`)
			resp.Header.Set("Content-Range", "0-0/137")
			return resp, nil
		})

	count, err := c.From("practice_sessions").Count()
	require.NoError(t, err)
	assert.Equal(t, 137, count)
}

func TestCountMissingContentRange(t *testing.T) {
	c := newTestClient(t)
	httpmock.RegisterResponder("GET", testBaseURL+"/rest/v1/practice_sessions",
		httpmock.NewStringResponder(200, `[]`))

	_, err := c.From("practice_sessions").Count()
	assert.Error(t, err)
}

func TestNon2xxBecomesAPIError(t *testing.T) {
	c := newTestClient(t)
	httpmock.RegisterResponder("GET", testBaseURL+"/rest/v1/users",
		httpmock.NewStringResponder(404, `{"message":"relation does not exist","code":"42P01"}`))

	var rows []map[string]any
	err := c.From("users").Get(&rows)
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok, "expected *APIError, got %T", err)
	assert.Equal(t, 404, apiErr.StatusCode)
	assert.Equal(t, "relation does not exist", apiErr.Message)
	assert.Equal(t, "42P01", apiErr.Code)
	assert.Contains(t, apiErr.Error(), "relation does not exist")
}

func TestAPIErrorWithEmptyBody(t *testing.T) {
	c := newTestClient(t)
	httpmock.RegisterResponder("GET", testBaseURL+"/rest/v1/users",
		httpmock.NewStringResponder(500, ``))

	var rows []map[string]any
	err := c.From("users").Get(&rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}
