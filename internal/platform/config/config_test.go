package config

import (
	"testing"
	"time"
)

func validConfig() Config {
	cfg := Load()
	cfg.DatabaseURL = "postgres://localhost/retention"
	cfg.AnonymizationKey = "master-key"
	return cfg
}

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.Addr != ":8080" {
		t.Fatalf("default addr = %q", cfg.Addr)
	}
	if cfg.BatchPause != 50*time.Millisecond {
		t.Fatalf("default batch pause = %v", cfg.BatchPause)
	}
	if cfg.DailyCron == "" || cfg.GraceCleanupCron == "" {
		t.Fatal("cron defaults must be populated")
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("APP_ADDR", ":9090")
	t.Setenv("PURGE_BATCH_PAUSE", "200ms")
	t.Setenv("ERASURE_BATCH_LIMIT", "250")
	t.Setenv("RUN_MIGRATIONS", "false")

	cfg := Load()
	if cfg.Addr != ":9090" {
		t.Fatalf("addr = %q", cfg.Addr)
	}
	if cfg.BatchPause != 200*time.Millisecond {
		t.Fatalf("batch pause = %v", cfg.BatchPause)
	}
	if cfg.ErasureBatchLimit != 250 {
		t.Fatalf("erasure batch limit = %d", cfg.ErasureBatchLimit)
	}
	if cfg.RunMigrations {
		t.Fatal("RUN_MIGRATIONS=false must disable migrations")
	}
}

func TestValidate(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cfg := validConfig()
	cfg.DatabaseURL = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("missing database url must be rejected")
	}

	cfg = validConfig()
	cfg.AnonymizationKey = " "
	if err := cfg.Validate(); err == nil {
		t.Fatal("missing anonymization key must be rejected")
	}

	cfg = validConfig()
	cfg.Environment = "production"
	cfg.JWTSecret = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("production without a JWT secret must be rejected")
	}

	cfg = validConfig()
	cfg.EmailEnabled = true
	cfg.SMTPHost = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("email without an SMTP host must be rejected")
	}
}
