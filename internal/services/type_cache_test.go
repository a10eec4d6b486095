package services

import (
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const typesBody = `[
	{"id":"type-1","type_key":"essay_practice","display_name":"小論文対策","category_id":"cat-1","is_active":true},
	{"id":"type-2","type_key":"interview_single","display_name":"面接対策","category_id":"cat-2","is_active":true}
]`

func TestGetTypesCachesWithinTTL(t *testing.T) {
	c := NewTypeCache(testClient(t))
	current := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return current }

	httpmock.RegisterResponder("GET", testBaseURL+"/rest/v1/practice_types",
		httpmock.NewStringResponder(200, typesBody))

	types, err := c.GetTypes(false)
	require.NoError(t, err)
	require.Len(t, types, 2)

	// A second call within the TTL is served from the cache.
	current = current.Add(4 * time.Minute)
	_, err = c.GetTypes(false)
	require.NoError(t, err)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())

	// Past the TTL the store is hit again.
	current = current.Add(2 * time.Minute)
	_, err = c.GetTypes(false)
	require.NoError(t, err)
	assert.Equal(t, 2, httpmock.GetTotalCallCount())
}

func TestGetTypesForceRefresh(t *testing.T) {
	c := NewTypeCache(testClient(t))

	httpmock.RegisterResponder("GET", testBaseURL+"/rest/v1/practice_types",
		httpmock.NewStringResponder(200, typesBody))

	_, err := c.GetTypes(false)
	require.NoError(t, err)
	_, err = c.GetTypes(true)
	require.NoError(t, err)
	assert.Equal(t, 2, httpmock.GetTotalCallCount())
}

func TestGetTypesServesStaleCopyOnError(t *testing.T) {
	c := NewTypeCache(testClient(t))
	current := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return current }

	httpmock.RegisterResponder("GET", testBaseURL+"/rest/v1/practice_types",
		httpmock.NewStringResponder(200, typesBody))
	_, err := c.GetTypes(false)
	require.NoError(t, err)

	httpmock.RegisterResponder("GET", testBaseURL+"/rest/v1/practice_types",
		httpmock.NewStringResponder(500, `{"message":"boom"}`))

	current = current.Add(10 * time.Minute)
	types, err := c.GetTypes(false)
	require.NoError(t, err)
	assert.Len(t, types, 2)
}

func TestGetTypesErrorWithoutCache(t *testing.T) {
	c := NewTypeCache(testClient(t))

	httpmock.RegisterResponder("GET", testBaseURL+"/rest/v1/practice_types",
		httpmock.NewStringResponder(500, `{"message":"boom"}`))

	_, err := c.GetTypes(false)
	assert.Error(t, err)
}

func TestLookupByKey(t *testing.T) {
	c := NewTypeCache(testClient(t))

	httpmock.RegisterResponder("GET", testBaseURL+"/rest/v1/practice_types",
		httpmock.NewStringResponder(200, typesBody))

	pt, ok := c.LookupByKey("interview_single")
	require.True(t, ok)
	assert.Equal(t, "type-2", pt.ID)

	_, ok = c.LookupByKey("missing_key")
	assert.False(t, ok)
}
