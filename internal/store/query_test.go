package store

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func queryParams(t *testing.T, rawURL string) url.Values {
	t.Helper()
	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("failed to parse URL %s: %v", rawURL, err)
	}
	return u.Query()
}

func TestBuildURLPlainTable(t *testing.T) {
	c := New("https://example.supabase.co", "key")
	got := c.From("users").buildURL()
	assert.Equal(t, "https://example.supabase.co/rest/v1/users", got)
}

func TestBuildURLTrimsTrailingSlash(t *testing.T) {
	c := New("https://example.supabase.co/", "key")
	got := c.From("users").buildURL()
	assert.Equal(t, "https://example.supabase.co/rest/v1/users", got)
}

func TestBuildURLFilters(t *testing.T) {
	c := New("https://example.supabase.co", "key")
	q := c.From("practice_sessions").
		Select("id,status").
		Eq("user_id", "user-1").
		Gte("started_at", "2024-01-01T00:00:00Z").
		Order("started_at", false).
		Limit(50).
		Offset(10)

	params := queryParams(t, q.buildURL())
	assert.Equal(t, "id,status", params.Get("select"))
	assert.Equal(t, "eq.user-1", params.Get("user_id"))
	assert.Equal(t, "gte.2024-01-01T00:00:00Z", params.Get("started_at"))
	assert.Equal(t, "started_at.desc", params.Get("order"))
	assert.Equal(t, "50", params.Get("limit"))
	assert.Equal(t, "10", params.Get("offset"))
}

func TestBuildURLInSet(t *testing.T) {
	c := New("https://example.supabase.co", "key")
	q := c.From("practice_inputs").In("session_id", []string{"a", "b"})

	params := queryParams(t, q.buildURL())
	assert.Equal(t, `in.("a","b")`, params.Get("session_id"))
}

func TestBuildURLRange(t *testing.T) {
	c := New("https://example.supabase.co", "key")
	q := c.From("practice_sessions").Range(10, 19)

	params := queryParams(t, q.buildURL())
	assert.Equal(t, "10", params.Get("offset"))
	assert.Equal(t, "10", params.Get("limit"))
}

func TestBuildURLMultipleOrders(t *testing.T) {
	c := New("https://example.supabase.co", "key")
	q := c.From("practice_scores").Order("created_at", true).Order("id", false)

	params := queryParams(t, q.buildURL())
	assert.Equal(t, "created_at.asc,id.desc", params.Get("order"))
}

func TestBuildURLEmbeddedSelectPassesThrough(t *testing.T) {
	c := New("https://example.supabase.co", "key")
	q := c.From("practice_sessions").
		Select("*,practice_types(display_name,practice_categories(display_name))")

	params := queryParams(t, q.buildURL())
	assert.Equal(t, "*,practice_types(display_name,practice_categories(display_name))", params.Get("select"))
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "hello", formatValue("hello"))
	assert.Equal(t, "42", formatValue(42))
	assert.Equal(t, "true", formatValue(true))
}
