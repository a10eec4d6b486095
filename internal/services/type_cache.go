package services

import (
	"fmt"
	"time"

	"github.com/Kanata-T/exam-prep-backend/internal/models"
	"github.com/Kanata-T/exam-prep-backend/internal/store"
)

const defaultTypeCacheTTL = 5 * time.Minute

// TypeCache holds the active practice-type list for a bounded time so
// type lookups do not hit the store on every call. The clock is injected
// so staleness is testable without real delays.
type TypeCache struct {
	client    *store.Client
	ttl       time.Duration
	now       func() time.Time
	types     []models.PracticeType
	fetchedAt time.Time
}

func NewTypeCache(client *store.Client) *TypeCache {
	return &TypeCache{client: client, ttl: defaultTypeCacheTTL, now: time.Now}
}

// GetTypes returns the active practice types, refreshing from the store
// when the cached copy is older than the TTL.
func (c *TypeCache) GetTypes(forceRefresh bool) ([]models.PracticeType, error) {
	if !forceRefresh && c.types != nil && c.now().Sub(c.fetchedAt) < c.ttl {
		return c.types, nil
	}

	var types []models.PracticeType
	err := c.client.From("practice_types").
		Select("id,type_key,display_name,category_id,is_active").
		Eq("is_active", true).
		Order("type_key", true).
		Get(&types)
	if err != nil {
		// Serve the stale copy if there is one; an expired cache beats
		// an empty answer for a read path.
		if c.types != nil {
			return c.types, nil
		}
		return nil, fmt.Errorf("failed to load practice types: %w", err)
	}

	c.types = types
	c.fetchedAt = c.now()
	return types, nil
}

// LookupByKey resolves a type_key to its practice type.
func (c *TypeCache) LookupByKey(typeKey string) (models.PracticeType, bool) {
	types, err := c.GetTypes(false)
	if err != nil {
		return models.PracticeType{}, false
	}
	for _, t := range types {
		if t.TypeKey == typeKey {
			return t, true
		}
	}
	return models.PracticeType{}, false
}
