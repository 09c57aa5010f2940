package config

import (
	"os"
	"testing"
	"time"
)

func TestNewFromEnv(t *testing.T) {
	// Helper function to set environment variables for a test
	setEnv := func(key, value string) {
		t.Helper()
		t.Setenv(key, value)
	}

	t.Run("Defaults", func(t *testing.T) {
		setEnv("JWT_SECRET", "secret")
		setEnv("USDA_API_KEY", "")
		setEnv("PROVIDER_TIMEOUT", "")
		setEnv("LLM_PROVIDER", "")

		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if cfg.USDAAPIKey != "DEMO_KEY" {
			t.Errorf("Expected USDAAPIKey to be 'DEMO_KEY', got '%s'", cfg.USDAAPIKey)
		}
		if cfg.ProviderTimeout != 5*time.Second {
			t.Errorf("Expected ProviderTimeout 5s, got %v", cfg.ProviderTimeout)
		}
		if cfg.LLMProvider != "gemini" {
			t.Errorf("Expected LLMProvider 'gemini', got '%s'", cfg.LLMProvider)
		}
		if cfg.OpenFoodFactsConfig().BaseURL != defaultOpenFoodFactsURL {
			t.Errorf("Unexpected Open Food Facts URL '%s'", cfg.OpenFoodFactsConfig().BaseURL)
		}
	})

	t.Run("ProviderOverrides", func(t *testing.T) {
		setEnv("JWT_SECRET", "secret")
		setEnv("USDA_API_KEY", "usda_key")
		setEnv("PROVIDER_TIMEOUT", "2s")
		setEnv("EDAMAM_APP_ID", "app")
		setEnv("EDAMAM_APP_KEY", "key")

		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		usda := cfg.USDAConfig()
		if usda.APIKey != "usda_key" || usda.Timeout != 2*time.Second {
			t.Errorf("Unexpected USDA config %+v", usda)
		}
		edamam, enabled := cfg.EdamamConfig()
		if !enabled {
			t.Fatal("Expected Edamam to be enabled")
		}
		if edamam.AppID != "app" || edamam.APIKey != "key" {
			t.Errorf("Unexpected Edamam config %+v", edamam)
		}
	})

	t.Run("AllowedOrigins", func(t *testing.T) {
		setEnv("JWT_SECRET", "secret")
		setEnv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")

		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
			t.Errorf("Unexpected origins %q", cfg.AllowedOrigins)
		}
	})

	t.Run("EdamamDisabledWithoutCredentials", func(t *testing.T) {
		setEnv("JWT_SECRET", "secret")
		setEnv("EDAMAM_APP_ID", "")
		setEnv("EDAMAM_APP_KEY", "")

		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if _, enabled := cfg.EdamamConfig(); enabled {
			t.Error("Expected Edamam to be disabled")
		}
	})

	t.Run("MissingJWTSecret", func(t *testing.T) {
		setEnv("JWT_SECRET", "")
		os.Unsetenv("JWT_SECRET")

		_, err := NewFromEnv()
		if err == nil {
			t.Fatal("Expected an error for missing JWT_SECRET, got nil")
		}
		expectedError := "JWT_SECRET environment variable not set"
		if err.Error() != expectedError {
			t.Errorf("Expected error '%s', got '%s'", expectedError, err.Error())
		}
	})

	t.Run("InvalidTimeout", func(t *testing.T) {
		setEnv("JWT_SECRET", "secret")
		setEnv("PROVIDER_TIMEOUT", "soon")

		if _, err := NewFromEnv(); err == nil {
			t.Fatal("Expected an error for invalid PROVIDER_TIMEOUT, got nil")
		}
	})

	t.Run("InvalidLLMProvider", func(t *testing.T) {
		setEnv("JWT_SECRET", "secret")
		setEnv("PROVIDER_TIMEOUT", "")
		setEnv("LLM_PROVIDER", "clippy")

		if _, err := NewFromEnv(); err == nil {
			t.Fatal("Expected an error for invalid LLM_PROVIDER, got nil")
		}
	})
}
