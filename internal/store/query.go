package store

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

type filter struct {
	column string
	value  string
}

// Query builds one table request. Filters compose with AND semantics;
// terminal methods (Get, Insert, Update, Delete, Count) execute it.
type Query struct {
	client     *Client
	table      string
	selectCols string
	filters    []filter
	orders     []string
	limit      int
	offset     int
	hasLimit   bool
	hasOffset  bool
}

// Select sets the returned columns. Embedded-resource expressions such as
// "practice_types(display_name)" pass through verbatim.
func (q *Query) Select(columns string) *Query {
	q.selectCols = columns
	return q
}

// Eq filters column = value.
func (q *Query) Eq(column string, value any) *Query {
	q.filters = append(q.filters, filter{column, "eq." + formatValue(value)})
	return q
}

// Gte filters column >= value.
func (q *Query) Gte(column string, value any) *Query {
	q.filters = append(q.filters, filter{column, "gte." + formatValue(value)})
	return q
}

// In filters column membership in the given set.
func (q *Query) In(column string, values []string) *Query {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = `"` + v + `"`
	}
	q.filters = append(q.filters, filter{column, "in.(" + strings.Join(quoted, ",") + ")"})
	return q
}

// Order adds a sort key. Multiple calls compose in order.
func (q *Query) Order(column string, ascending bool) *Query {
	dir := "desc"
	if ascending {
		dir = "asc"
	}
	q.orders = append(q.orders, column+"."+dir)
	return q
}

func (q *Query) Limit(n int) *Query {
	q.limit = n
	q.hasLimit = true
	return q
}

func (q *Query) Offset(n int) *Query {
	q.offset = n
	q.hasOffset = true
	return q
}

// Range requests rows [from, to] inclusive, zero-based.
func (q *Query) Range(from, to int) *Query {
	q.offset = from
	q.hasOffset = true
	q.limit = to - from + 1
	q.hasLimit = true
	return q
}

func (q *Query) buildURL() string {
	params := url.Values{}
	if q.selectCols != "" {
		params.Set("select", q.selectCols)
	}
	for _, f := range q.filters {
		params.Add(f.column, f.value)
	}
	if len(q.orders) > 0 {
		params.Set("order", strings.Join(q.orders, ","))
	}
	if q.hasLimit {
		params.Set("limit", strconv.Itoa(q.limit))
	}
	if q.hasOffset {
		params.Set("offset", strconv.Itoa(q.offset))
	}

	u := q.client.baseURL + "/rest/v1/" + q.table
	if encoded := params.Encode(); encoded != "" {
		u += "?" + encoded
	}
	return u
}

// Get executes a select and decodes the JSON array into dest.
func (q *Query) Get(dest any) error {
	resp, err := q.client.do(http.MethodGet, q.buildURL(), nil, "")
	if err != nil {
		return err
	}
	return decodeInto(resp, dest)
}

// Insert posts a single row or a slice of rows. When dest is non-nil the
// inserted representation is decoded into it.
func (q *Query) Insert(payload any, dest any) error {
	resp, err := q.client.do(http.MethodPost, q.buildURL(), payload, "return=representation")
	if err != nil {
		return err
	}
	return decodeInto(resp, dest)
}

// Update patches all rows matching the current filters.
func (q *Query) Update(values any, dest any) error {
	resp, err := q.client.do(http.MethodPatch, q.buildURL(), values, "return=representation")
	if err != nil {
		return err
	}
	return decodeInto(resp, dest)
}

// Delete removes all rows matching the current filters. The deleted rows
// are returned so callers can count them.
func (q *Query) Delete(dest any) error {
	resp, err := q.client.do(http.MethodDelete, q.buildURL(), nil, "return=representation")
	if err != nil {
		return err
	}
	return decodeInto(resp, dest)
}

// Count returns the exact number of rows matching the current filters
// without fetching them.
func (q *Query) Count() (int, error) {
	q.Limit(1)
	if q.selectCols == "" {
		q.selectCols = "*"
	}
	resp, err := q.client.do(http.MethodGet, q.buildURL(), nil, "count=exact")
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	contentRange := resp.Header.Get("Content-Range")
	idx := strings.LastIndex(contentRange, "/")
	if idx < 0 {
		return 0, fmt.Errorf("missing count in Content-Range %q", contentRange)
	}
	total, err := strconv.Atoi(contentRange[idx+1:])
	if err != nil {
		return 0, fmt.Errorf("bad Content-Range %q: %w", contentRange, err)
	}
	return total, nil
}

func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprintf("%v", val)
	}
}
