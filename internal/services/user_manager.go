package services

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Kanata-T/exam-prep-backend/internal/models"
	"github.com/Kanata-T/exam-prep-backend/internal/store"
)

const (
	// IdentifierFingerprint users are never persisted; they get a
	// temp-prefixed session id instead of a row.
	IdentifierFingerprint = "browser_fingerprint"
	IdentifierEmail       = "email"

	tempUserPrefix = "temp_"
)

type UserManager struct {
	client *store.Client
}

func NewUserManager(client *store.Client) *UserManager {
	return &UserManager{client: client}
}

// CreateOrGetUser resolves an identifier to a user id, creating the row
// on first sight. Browser fingerprints map to a temporary id without
// touching the store.
func (m *UserManager) CreateOrGetUser(identifier, identifierType string) (string, error) {
	if identifierType == IdentifierFingerprint {
		return tempUserPrefix + identifier, nil
	}

	var existing []models.User
	err := m.client.From("users").Select("id").Eq("email", identifier).Get(&existing)
	if err != nil {
		return "", fmt.Errorf("failed to look up user: %w", err)
	}

	if len(existing) > 0 {
		userID := existing[0].ID
		m.UpdateLastActive(userID)
		return userID, nil
	}

	now := time.Now().UTC().Format(time.RFC3339)
	user := models.User{
		Email:        identifier,
		CreatedAt:    now,
		LastActiveAt: now,
		Preferences:  map[string]any{},
	}

	var created []models.User
	if err := m.client.From("users").Insert(user, &created); err != nil {
		return "", fmt.Errorf("failed to create user: %w", err)
	}
	if len(created) == 0 {
		return "", fmt.Errorf("user insert returned no row")
	}

	log.Printf("Created new user: %s", created[0].ID)
	return created[0].ID, nil
}

// UpdateLastActive bumps the user's last-active timestamp. Failures are
// logged and swallowed; a stale timestamp is not worth failing a request.
func (m *UserManager) UpdateLastActive(userID string) {
	if strings.HasPrefix(userID, tempUserPrefix) {
		return
	}

	values := map[string]any{
		"last_active_at": time.Now().UTC().Format(time.RFC3339),
	}
	if err := m.client.From("users").Eq("id", userID).Update(values, nil); err != nil {
		log.Printf("Failed to update last active for user %s: %v", userID, err)
	}
}

// GetPreferences returns the user's free-form preferences map, empty on
// any failure.
func (m *UserManager) GetPreferences(userID string) map[string]any {
	var rows []models.User
	err := m.client.From("users").Select("preferences").Eq("id", userID).Get(&rows)
	if err != nil {
		log.Printf("Failed to get preferences for user %s: %v", userID, err)
		return map[string]any{}
	}
	if len(rows) == 0 || rows[0].Preferences == nil {
		return map[string]any{}
	}
	return rows[0].Preferences
}

func (m *UserManager) UpdatePreferences(userID string, preferences map[string]any) error {
	values := map[string]any{"preferences": preferences}
	if err := m.client.From("users").Eq("id", userID).Update(values, nil); err != nil {
		return fmt.Errorf("failed to update preferences: %w", err)
	}
	return nil
}
