package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080},
		DB: DBConfig{
			Host: "localhost", Port: 5432, User: "academy",
			Password: "secret", Name: "academy", SSLMode: "disable", MaxConns: 25,
		},
		Redis:     RedisConfig{Host: "localhost", Port: 6379},
		Gemini:    GeminiConfig{APIKey: "test-api-key", Model: "gemini-2.5-flash"},
		Auth:      AuthConfig{JWTSecret: "a-shared-secret-that-is-at-least-32ch!", Issuer: "rosaine-academy"},
		RateLimit: RateLimitConfig{MaxRequests: 30, WindowSec: 60},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
}

func TestValidate_JWTSecretRequired(t *testing.T) {
	cfg := validConfig()
	cfg.Auth.JWTSecret = ""
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "AUTH_JWT_SECRET is required") {
		t.Fatalf("expected AUTH_JWT_SECRET error, got: %v", err)
	}
}

func TestValidate_JWTSecretTooShort(t *testing.T) {
	cfg := validConfig()
	cfg.Auth.JWTSecret = "short"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "at least 32 characters") {
		t.Fatalf("expected short-secret error, got: %v", err)
	}
}

func TestValidate_GeminiAPIKeyRequired(t *testing.T) {
	cfg := validConfig()
	cfg.Gemini.APIKey = ""
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "GEMINI_API_KEY") {
		t.Fatalf("expected GEMINI_API_KEY error, got: %v", err)
	}
}

func TestValidate_DBPasswordRequired(t *testing.T) {
	cfg := validConfig()
	cfg.DB.Password = ""
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "DB_PASSWORD") {
		t.Fatalf("expected DB_PASSWORD error, got: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "SERVER_PORT") {
		t.Fatalf("expected SERVER_PORT error, got: %v", err)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Auth.JWTSecret = ""
	cfg.Gemini.APIKey = ""
	cfg.DB.Password = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"AUTH_JWT_SECRET", "GEMINI_API_KEY", "DB_PASSWORD"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %s in error, got: %v", want, err)
		}
	}
}
