package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DB_DRIVER", "")

	cfg := Load()

	if cfg.DBDriver != "postgres" {
		t.Errorf("Expected driver 'postgres', got '%s'", cfg.DBDriver)
	}
	if cfg.JWTAccessExpiry != 15*time.Minute {
		t.Errorf("Expected 15m access expiry, got %s", cfg.JWTAccessExpiry)
	}
	if cfg.OTPCooldown != time.Minute {
		t.Errorf("Expected 1m OTP cooldown, got %s", cfg.OTPCooldown)
	}
	if cfg.StoragePublicURL != "/storage" {
		t.Errorf("Expected '/storage', got '%s'", cfg.StoragePublicURL)
	}
	if err := cfg.Validate(); err == nil {
		t.Error("Expected validation error without JWT_SECRET")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("DB_PATH", "/tmp/tt.db")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("JWT_ACCESS_EXPIRY", "not-a-duration")
	t.Setenv("GOOGLE_CLIENT_IDS", " a.apps , ,b.apps ")
	t.Setenv("STORAGE_PUBLIC_URL", "https://cdn.example.com/")

	cfg := Load()

	if cfg.DBDriver != "sqlite" {
		t.Fatalf("Expected driver 'sqlite', got '%s'", cfg.DBDriver)
	}
	if cfg.DSN() != "/tmp/tt.db" {
		t.Errorf("Expected sqlite DSN to be the path, got '%s'", cfg.DSN())
	}
	if cfg.JWTAccessExpiry != 15*time.Minute {
		t.Errorf("Expected fallback expiry, got %s", cfg.JWTAccessExpiry)
	}
	if len(cfg.GoogleClientIDs) != 2 || cfg.GoogleClientIDs[1] != "b.apps" {
		t.Errorf("Unexpected client ids: %v", cfg.GoogleClientIDs)
	}
	if cfg.StoragePublicURL != "https://cdn.example.com" {
		t.Errorf("Expected trailing slash trimmed, got '%s'", cfg.StoragePublicURL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected valid config, got %v", err)
	}
}

func TestValidateRejectsUnknownDriver(t *testing.T) {
	cfg := &Config{JWTSecret: "x", DBDriver: "mysql"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("Expected error for unknown driver")
	}
	if se, ok := err.(*SettingError); !ok || se.Key != "DB_DRIVER" {
		t.Errorf("Expected DB_DRIVER setting error, got %v", err)
	}
}
