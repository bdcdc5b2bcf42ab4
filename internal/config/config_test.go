package config

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	ctx := context.Background()
	cfg, err := Load(ctx)
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}

	// Test default values
	if cfg.Server.Port != "8080" {
		t.Errorf("Expected Server.Port to be '8080', got '%s'", cfg.Server.Port)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Expected Server.Host to be '0.0.0.0', got '%s'", cfg.Server.Host)
	}

	if cfg.Server.ReadTimeout.Duration != 15*time.Second {
		t.Errorf("Expected Server.ReadTimeout to be 15s, got %v", cfg.Server.ReadTimeout.Duration)
	}

	if cfg.Postgres.Host != "localhost" {
		t.Errorf("Expected Postgres.Host to be 'localhost', got '%s'", cfg.Postgres.Host)
	}

	if cfg.Redis.Host != "localhost" {
		t.Errorf("Expected Redis.Host to be 'localhost', got '%s'", cfg.Redis.Host)
	}

	if cfg.Session.TTL.Duration != 30*24*time.Hour {
		t.Errorf("Expected Session.TTL to be 30d, got %v", cfg.Session.TTL.Duration)
	}

	if cfg.Session.RenewBelow.Duration != 7*24*time.Hour {
		t.Errorf("Expected Session.RenewBelow to be 7d, got %v", cfg.Session.RenewBelow.Duration)
	}

	if cfg.MagicLink.TTL.Duration != 15*time.Minute {
		t.Errorf("Expected MagicLink.TTL to be 15m, got %v", cfg.MagicLink.TTL.Duration)
	}

	if cfg.WebAuthn.ChallengeTTL.Duration != 5*time.Minute {
		t.Errorf("Expected WebAuthn.ChallengeTTL to be 5m, got %v", cfg.WebAuthn.ChallengeTTL.Duration)
	}

	if cfg.Env != "development" {
		t.Errorf("Expected Env to be 'development', got '%s'", cfg.Env)
	}

	// Test CORS defaults
	if len(cfg.CORS.AllowedOrigins) == 0 {
		t.Error("Expected CORS.AllowedOrigins to have at least one value")
	}

	if len(cfg.CORS.AllowedMethods) == 0 {
		t.Error("Expected CORS.AllowedMethods to have at least one value")
	}
}

func TestLoadWithCustomValues(t *testing.T) {
	os.Setenv("SERVER_PORT", "9090")
	os.Setenv("SERVER_HOST", "127.0.0.1")
	os.Setenv("POSTGRES_HOST", "postgres.example.com")
	os.Setenv("SESSION_TTL", "14d")
	os.Setenv("MAGIC_LINK_TTL", "30m")
	os.Setenv("ENV", "production")
	defer func() {
		os.Unsetenv("SERVER_PORT")
		os.Unsetenv("SERVER_HOST")
		os.Unsetenv("POSTGRES_HOST")
		os.Unsetenv("SESSION_TTL")
		os.Unsetenv("MAGIC_LINK_TTL")
		os.Unsetenv("ENV")
	}()

	ctx := context.Background()
	cfg, err := Load(ctx)
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("Expected Server.Port to be '9090', got '%s'", cfg.Server.Port)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Expected Server.Host to be '127.0.0.1', got '%s'", cfg.Server.Host)
	}

	if cfg.Postgres.Host != "postgres.example.com" {
		t.Errorf("Expected Postgres.Host to be 'postgres.example.com', got '%s'", cfg.Postgres.Host)
	}

	if cfg.Session.TTL.Duration != 14*24*time.Hour {
		t.Errorf("Expected Session.TTL to be 14d, got %v", cfg.Session.TTL.Duration)
	}

	if cfg.MagicLink.TTL.Duration != 30*time.Minute {
		t.Errorf("Expected MagicLink.TTL to be 30m, got %v", cfg.MagicLink.TTL.Duration)
	}

	if cfg.Env != "production" {
		t.Errorf("Expected Env to be 'production', got '%s'", cfg.Env)
	}
}

func TestLoadRejectsRenewalLongerThanTTL(t *testing.T) {
	os.Setenv("SESSION_TTL", "1d")
	os.Setenv("SESSION_RENEW_BELOW", "2d")
	defer func() {
		os.Unsetenv("SESSION_TTL")
		os.Unsetenv("SESSION_RENEW_BELOW")
	}()

	ctx := context.Background()
	if _, err := Load(ctx); err == nil {
		t.Error("Expected error when renewal window exceeds session TTL")
	}
}

func TestOAuthEnabled(t *testing.T) {
	google := GoogleConfig{}
	if google.Enabled() {
		t.Error("Expected unconfigured Google client to be disabled")
	}

	google = GoogleConfig{ClientID: "id", ClientSecret: "secret"}
	if !google.Enabled() {
		t.Error("Expected configured Google client to be enabled")
	}

	apple := AppleConfig{ClientID: "id", TeamID: "team"}
	if apple.Enabled() {
		t.Error("Expected partially configured Apple client to be disabled")
	}
}

func TestPostgresDSN(t *testing.T) {
	pg := PostgresConfig{
		Host:     "localhost",
		Port:     "5432",
		User:     "test_user",
		Password: "test_password",
		DBName:   "test_db",
		SSLMode:  "disable",
	}

	dsn := pg.DSN()
	expected := "host=localhost port=5432 user=test_user password=test_password dbname=test_db sslmode=disable"
	if dsn != expected {
		t.Errorf("Expected DSN to be '%s', got '%s'", expected, dsn)
	}
}

func TestRedisAddress(t *testing.T) {
	redis := RedisConfig{
		Host: "localhost",
		Port: "6379",
	}

	addr := redis.Address()
	expected := "localhost:6379"
	if addr != expected {
		t.Errorf("Expected Address to be '%s', got '%s'", expected, addr)
	}
}
