package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	// OpenAI
	OpenAIAPIKey string
	ModelName    string

	// Google
	CredentialsPath string
	TokenPath       string
	RedirectURL     string

	// Server
	ListenAddr string
	LogLevel   string

	// Category cache
	CategoryCacheDSN string

	// App settings
	MaxEmailsPerFetch   int
	DefaultDaysOld      int
	MetadataConcurrency int
	RequestsPerSecond   int
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, using environment variables")
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
		ModelName:        getEnv("MODEL_NAME", "gpt-4o-mini"),
		CredentialsPath:  getEnv("GOOGLE_CREDENTIALS_PATH", "credentials.json"),
		TokenPath:        getEnv("TOKEN_PATH", ""),
		RedirectURL:      getEnv("REDIRECT_URL", "http://localhost:8080/oauth2callback"),
		ListenAddr:       getEnv("LISTEN_ADDR", ":8080"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		CategoryCacheDSN: getEnv("CATEGORY_CACHE_DSN", "file::memory:?cache=shared"),
	}

	ints := []struct {
		key string
		def int
		dst *int
	}{
		{"MAX_EMAILS_PER_FETCH", 500, &cfg.MaxEmailsPerFetch},
		{"DEFAULT_DAYS_OLD", 30, &cfg.DefaultDaysOld},
		{"METADATA_CONCURRENCY", 8, &cfg.MetadataConcurrency},
		{"REQUESTS_PER_SECOND", 10, &cfg.RequestsPerSecond},
	}
	for _, v := range ints {
		n, err := getEnvInt(v.key, v.def)
		if err != nil {
			return nil, err
		}
		*v.dst = n
	}

	if cfg.MaxEmailsPerFetch <= 0 {
		return nil, fmt.Errorf("MAX_EMAILS_PER_FETCH must be positive, got %d", cfg.MaxEmailsPerFetch)
	}
	if cfg.DefaultDaysOld < 0 {
		return nil, fmt.Errorf("DEFAULT_DAYS_OLD must be non-negative, got %d", cfg.DefaultDaysOld)
	}

	return cfg, nil
}

// ClassificationEnabled reports whether an LLM key is configured.
func (c *Config) ClassificationEnabled() bool {
	return c.OpenAIAPIKey != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, value)
	}
	return n, nil
}
