package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/altavoz-labs/avatarflow/src/logger"
)

// Config holds everything the runtime needs from the environment.
type Config struct {
	// Avatar vendor API.
	AvatarAPIBase string // e.g. https://api.heygen.com
	AvatarAPIKey  string
	AvatarWSURL   string // streaming session endpoint

	// Conversation backends.
	CollectionsBaseURL string
	PortfolioBaseURL   string

	// Streaming recognizer.
	RecognizerAPIKey string
	RecognizerModel  string

	// Defaults for new sessions.
	Language string

	// Relay server.
	ListenAddr string
}

// Load reads configuration from the environment, after loading a .env
// file if one is present. Missing optional values fall back to
// defaults; required values produce an error.
func Load() (*Config, error) {
	// .env is a development convenience; absence is not an error.
	if err := godotenv.Load(); err == nil {
		logger.WithComponent("Config").Debug("Loaded .env file")
	}

	cfg := &Config{
		AvatarAPIBase:      getEnv("AVATAR_API_BASE", "https://api.heygen.com"),
		AvatarAPIKey:       os.Getenv("AVATAR_API_KEY"),
		AvatarWSURL:        getEnv("AVATAR_WS_URL", "wss://api.heygen.com/v1/ws/streaming.chat"),
		CollectionsBaseURL: os.Getenv("COLLECTIONS_API_URL"),
		PortfolioBaseURL:   os.Getenv("PORTFOLIO_API_URL"),
		RecognizerAPIKey:   os.Getenv("RECOGNIZER_API_KEY"),
		RecognizerModel:    getEnv("RECOGNIZER_MODEL", "nova-2"),
		Language:           getEnv("SESSION_LANGUAGE", "es"),
		ListenAddr:         getEnv("LISTEN_ADDR", ":8080"),
	}

	if cfg.AvatarAPIKey == "" {
		return nil, fmt.Errorf("AVATAR_API_KEY is required")
	}
	return cfg, nil
}

// TokenEndpoint is the vendor endpoint that exchanges the API key for
// a short-lived session token.
func (c *Config) TokenEndpoint() string {
	return c.AvatarAPIBase + "/v1/streaming.create_token"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// GetEnvBool reads a boolean flag from the environment.
func GetEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
