package config

import (
	"strings"
	"testing"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/hms")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "8000" {
		t.Errorf("Port = %q, want 8000", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Errorf("Env = %q, want development", cfg.Env)
	}
	if cfg.DBMaxConns != 20 || cfg.DBMinConns != 5 {
		t.Errorf("pool defaults = %d/%d", cfg.DBMaxConns, cfg.DBMinConns)
	}
	if len(cfg.CORSOrigins) == 0 {
		t.Error("CORS origins default missing")
	}
}

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when DATABASE_URL unset")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "9100")
	t.Setenv("ENV", "production")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "9100" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if !cfg.IsProduction() {
		t.Error("expected production mode")
	}
	if len(cfg.CORSOrigins) != 2 {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
}

func TestValidate(t *testing.T) {
	dev := &Config{Env: "development"}
	if err := dev.Validate(); err != nil {
		t.Errorf("development without secret should pass: %v", err)
	}

	prod := &Config{Env: "production"}
	err := prod.Validate()
	if err == nil || !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Errorf("production without secret should fail, got %v", err)
	}

	short := &Config{Env: "production", JWTSecret: "too-short"}
	if err := short.Validate(); err == nil {
		t.Error("short secret should fail")
	}

	ok := &Config{Env: "production", JWTSecret: strings.Repeat("k", 32)}
	if err := ok.Validate(); err != nil {
		t.Errorf("valid production config: %v", err)
	}
}
