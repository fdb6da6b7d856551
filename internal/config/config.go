// Package config provides configuration loading and validation for the server.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the process configuration, loaded from environment variables.
// Call Load after godotenv has populated the environment.
type Config struct {
	// Server
	Port        int
	DatabaseURL string

	// Agent
	GeminiAPIKey  string // empty means the agent (and the job worker) is not configured
	AgentHeadless bool
	PublicBaseURL string // base URL used when reporting created listing links

	// Worker
	PollInterval time.Duration // scheduler tick
	JobRetention time.Duration // jobs older than this are purged regardless of status

	// Media pipeline
	MediaIssuerURL string // endpoint that issues upload credentials; empty disables uploads

	// Admin notifications
	TelegramBotToken string
	TelegramChatID   string

	// Source posts
	RedditClientID     string
	RedditClientSecret string
	RedditUsername     string
	RedditPassword     string
}

// Load reads configuration from the environment, applying defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Port:               8080,
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		GeminiAPIKey:       os.Getenv("GEMINI_API_KEY"),
		AgentHeadless:      true,
		PublicBaseURL:      getenvDefault("PUBLIC_BASE_URL", "https://show-your.app"),
		PollInterval:       5 * time.Second,
		JobRetention:       30 * 24 * time.Hour,
		MediaIssuerURL:     os.Getenv("MEDIA_ISSUER_URL"),
		TelegramBotToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:     os.Getenv("TELEGRAM_CHAT_ID"),
		RedditClientID:     os.Getenv("REDDIT_CLIENT_ID"),
		RedditClientSecret: os.Getenv("REDDIT_CLIENT_SECRET"),
		RedditUsername:     os.Getenv("REDDIT_USERNAME"),
		RedditPassword:     os.Getenv("REDDIT_PASSWORD"),
	}

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT: %v", err)
		}
		cfg.Port = port
	}

	if v := os.Getenv("AGENT_HEADLESS"); v != "" {
		headless, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid AGENT_HEADLESS: %v", err)
		}
		cfg.AgentHeadless = headless
	}

	if v := os.Getenv("WORKER_POLL_SECONDS"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid WORKER_POLL_SECONDS: %v", err)
		}
		cfg.PollInterval = time.Duration(secs) * time.Second
	}

	if v := os.Getenv("JOB_RETENTION_DAYS"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid JOB_RETENTION_DAYS: %v", err)
		}
		cfg.JobRetention = time.Duration(days) * 24 * time.Hour
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration has usable values.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required but not set")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port out of range: %d", c.Port)
	}
	if c.PollInterval < time.Second {
		return fmt.Errorf("worker poll interval too short: %s", c.PollInterval)
	}
	if c.JobRetention < 24*time.Hour {
		return fmt.Errorf("job retention below one day: %s", c.JobRetention)
	}
	return nil
}

// AgentConfigured reports whether the LLM backend is configured. Submitting
// an ingestion job without it is a configuration error surfaced to the
// caller before any job is claimed.
func (c *Config) AgentConfigured() bool {
	return c.GeminiAPIKey != ""
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
