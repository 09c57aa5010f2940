package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"intellieats/internal/provider"

	"github.com/joho/godotenv"
)

const (
	defaultOpenFoodFactsURL = "https://world.openfoodfacts.org"
	defaultUSDAURL          = "https://api.nal.usda.gov/fdc/v1"
	defaultEdamamURL        = "https://api.edamam.com"
)

// Config holds the configuration for the application.
type Config struct {
	DatabasePath string
	Port         string
	LogMode      string
	JWTSecret    string
	Location     *time.Location
	// AllowedOrigins for CORS; empty allows any origin.
	AllowedOrigins []string

	OpenFoodFactsURL string
	USDAURL          string
	USDAAPIKey       string
	EdamamURL        string
	EdamamAppID      string
	EdamamAppKey     string
	ProviderTimeout  time.Duration

	LLMProvider  string
	GeminiAPIKey string
	GeminiModel  string
	GroqAPIKey   string
	GroqModel    string

	// Telegram Config
	TelegramBotToken   string
	TelegramWebhookURL string
	AdminTelegramID    int64
}

// NewFromEnv creates a new Config object from environment variables.
// A .env file in the working directory is loaded first when present.
func NewFromEnv() (*Config, error) {
	_ = godotenv.Load()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable not set")
	}

	timeout := 5 * time.Second
	if raw := os.Getenv("PROVIDER_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid PROVIDER_TIMEOUT %q: %w", raw, err)
		}
		timeout = d
	}

	loc := time.Local
	if name := os.Getenv("TZ_NAME"); name != "" {
		l, err := time.LoadLocation(name)
		if err != nil {
			return nil, fmt.Errorf("invalid TZ_NAME %q: %w", name, err)
		}
		loc = l
	}

	var adminID int64
	if raw := os.Getenv("TELEGRAM_ADMIN_ID"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_ADMIN_ID %q: %w", raw, err)
		}
		adminID = id
	}

	llmProvider := strings.ToLower(getEnv("LLM_PROVIDER", "gemini"))
	if llmProvider != "gemini" && llmProvider != "groq" {
		return nil, fmt.Errorf("LLM_PROVIDER must be gemini or groq, got %q", llmProvider)
	}

	return &Config{
		DatabasePath:       getEnv("DATABASE_PATH", "data/intellieats.db"),
		Port:               getEnv("PORT", "8080"),
		LogMode:            getEnv("LOG_MODE", "dev"),
		JWTSecret:          jwtSecret,
		Location:           loc,
		AllowedOrigins:     splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		OpenFoodFactsURL:   getEnv("OPENFOODFACTS_URL", defaultOpenFoodFactsURL),
		USDAURL:            getEnv("USDA_API_URL", defaultUSDAURL),
		USDAAPIKey:         getEnv("USDA_API_KEY", "DEMO_KEY"),
		EdamamURL:          getEnv("EDAMAM_API_URL", defaultEdamamURL),
		EdamamAppID:        os.Getenv("EDAMAM_APP_ID"),
		EdamamAppKey:       os.Getenv("EDAMAM_APP_KEY"),
		ProviderTimeout:    timeout,
		LLMProvider:        llmProvider,
		GeminiAPIKey:       os.Getenv("GEMINI_API_KEY"),
		GeminiModel:        getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		GroqAPIKey:         os.Getenv("GROQ_API_KEY"),
		GroqModel:          getEnv("GROQ_MODEL", "llama-3.3-70b-versatile"),
		TelegramBotToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramWebhookURL: os.Getenv("TELEGRAM_WEBHOOK_URL"),
		AdminTelegramID:    adminID,
	}, nil
}

// OpenFoodFactsConfig returns the adapter configuration for Open Food Facts.
func (c *Config) OpenFoodFactsConfig() provider.Config {
	return provider.Config{BaseURL: c.OpenFoodFactsURL, Timeout: c.ProviderTimeout, RateLimit: 10}
}

// USDAConfig returns the adapter configuration for USDA FoodData Central.
func (c *Config) USDAConfig() provider.Config {
	return provider.Config{BaseURL: c.USDAURL, APIKey: c.USDAAPIKey, Timeout: c.ProviderTimeout, RateLimit: 5}
}

// EdamamConfig returns the adapter configuration for Edamam and whether it is enabled.
func (c *Config) EdamamConfig() (provider.Config, bool) {
	cfg := provider.Config{
		BaseURL:   c.EdamamURL,
		AppID:     c.EdamamAppID,
		APIKey:    c.EdamamAppKey,
		Timeout:   c.ProviderTimeout,
		RateLimit: 5,
	}
	return cfg, c.EdamamAppID != "" && c.EdamamAppKey != ""
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
