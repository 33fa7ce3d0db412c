package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr               string
	DatabaseURL        string
	JWTSecret          string
	AnonymizationKey   string
	CatalogPath        string
	Environment        string
	RunMigrations      bool
	MetricsEnabled     bool
	BatchPause         time.Duration
	StatementTimeout   time.Duration
	DailyCron          string
	WeeklyCron         string
	MonthlyCron        string
	QuarterlyCron      string
	GraceCleanupCron   string
	EmailFrom          string
	EmailEnabled       bool
	SMTPHost           string
	SMTPPort           int
	SMTPUser           string
	SMTPPassword       string
	SMTPUseTLS         bool
	MaxBodyBytes       int64
	ErasureBatchLimit  int
}

func Load() Config {
	return Config{
		Addr:              getEnv("APP_ADDR", ":8080"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		AnonymizationKey:  getEnv("ANONYMIZATION_KEY", ""),
		CatalogPath:       getEnv("RETENTION_CATALOG", ""),
		Environment:       getEnv("APP_ENV", "development"),
		RunMigrations:     getEnvBool("RUN_MIGRATIONS", true),
		MetricsEnabled:    getEnvBool("METRICS_ENABLED", true),
		BatchPause:        getEnvDuration("PURGE_BATCH_PAUSE", 50*time.Millisecond),
		StatementTimeout:  getEnvDuration("STATEMENT_TIMEOUT", 30*time.Second),
		DailyCron:         getEnv("PURGE_DAILY_CRON", "0 2 * * *"),
		WeeklyCron:        getEnv("PURGE_WEEKLY_CRON", "0 3 * * 0"),
		MonthlyCron:       getEnv("PURGE_MONTHLY_CRON", "0 4 1 * *"),
		QuarterlyCron:     getEnv("PURGE_QUARTERLY_CRON", "0 5 1 1,4,7,10 *"),
		GraceCleanupCron:  getEnv("GRACE_CLEANUP_CRON", "30 2 * * *"),
		EmailFrom:         getEnv("EMAIL_FROM", "no-reply@example.com"),
		EmailEnabled:      getEnvBool("EMAIL_ENABLED", false),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getEnvInt("SMTP_PORT", 587),
		SMTPUser:          getEnv("SMTP_USER", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
		SMTPUseTLS:        getEnvBool("SMTP_USE_TLS", true),
		MaxBodyBytes:      int64(getEnvInt("MAX_BODY_BYTES", 1048576)),
		ErasureBatchLimit: getEnvInt("ERASURE_BATCH_LIMIT", 1000),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if strings.TrimSpace(c.AnonymizationKey) == "" {
		return fmt.Errorf("ANONYMIZATION_KEY is required for the anonymize strategy")
	}
	if c.Environment == "production" && strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET must be set to a strong value in production")
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.ErasureBatchLimit <= 0 {
		return fmt.Errorf("ERASURE_BATCH_LIMIT must be positive")
	}
	if c.EmailEnabled && c.SMTPHost == "" {
		return fmt.Errorf("SMTP_HOST must be set when EMAIL_ENABLED is true")
	}
	return nil
}
