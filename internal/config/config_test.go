package config

import (
	"os"
	"strings"
	"testing"
)

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	os.Unsetenv("DATABASE_URL")
	_, err := Load()
	if err == nil {
		t.Fatal("expected error when DATABASE_URL is missing")
	}
	if !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	os.Setenv("DATABASE_URL", "postgres://localhost/clinicdesk")
	defer os.Unsetenv("DATABASE_URL")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8000" {
		t.Errorf("expected default port 8000, got %s", cfg.Port)
	}
	if cfg.DefaultTenant != "default" {
		t.Errorf("expected default tenant, got %s", cfg.DefaultTenant)
	}
	if cfg.DBMaxConns != 20 {
		t.Errorf("expected 20 max conns, got %d", cfg.DBMaxConns)
	}
}

func TestValidate_DevAlwaysPasses(t *testing.T) {
	cfg := &Config{Env: "development"}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidate_ProductionNeedsAuth(t *testing.T) {
	cfg := &Config{Env: "production"}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error when no auth configuration is set")
	}

	cfg.AuthIssuer = "https://auth.example.com"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error with issuer set: %v", err)
	}
}

func TestValidate_ShortSecretRejected(t *testing.T) {
	cfg := &Config{Env: "production", JWTSecret: "short"}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for short JWT_SECRET")
	}

	cfg.JWTSecret = strings.Repeat("a", 32)
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error with 32-char secret: %v", err)
	}
}

func TestValidate_NegativeRateLimit(t *testing.T) {
	cfg := &Config{Env: "production", JWTSecret: strings.Repeat("a", 32), RateLimitRPS: -1}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for negative RATE_LIMIT_RPS")
	}
}

func TestIsProduction(t *testing.T) {
	if (&Config{Env: "production"}).IsProduction() != true {
		t.Error("expected production")
	}
	if (&Config{Env: "development"}).IsProduction() {
		t.Error("did not expect production")
	}
}
