package config

import (
	"fmt"
	"os"
)

type Config struct {
	StoreURL    string
	StoreKey    string
	ServerHost  string
	ServerPort  string
	FrontendURL string
}

// GetConfig returns the application configuration based on environment
// variables. The service-role key takes precedence over the anonymous
// key when both are set.
func GetConfig() (*Config, error) {
	config := &Config{}

	config.StoreURL = os.Getenv("SUPABASE_URL")
	if config.StoreURL == "" {
		return nil, fmt.Errorf("SUPABASE_URL environment variable is required")
	}

	config.StoreKey = os.Getenv("SUPABASE_SERVICE_ROLE_KEY")
	if config.StoreKey == "" {
		config.StoreKey = os.Getenv("SUPABASE_ANON_KEY")
	}
	if config.StoreKey == "" {
		return nil, fmt.Errorf("SUPABASE_SERVICE_ROLE_KEY or SUPABASE_ANON_KEY environment variable is required")
	}

	config.ServerHost = os.Getenv("HOST")
	if config.ServerHost == "" {
		config.ServerHost = "0.0.0.0"
	}

	config.ServerPort = os.Getenv("PORT")
	if config.ServerPort == "" {
		config.ServerPort = "8080"
	}

	config.FrontendURL = os.Getenv("FRONTEND_URL")
	if config.FrontendURL == "" {
		config.FrontendURL = "http://localhost:3000"
	}

	return config, nil
}
