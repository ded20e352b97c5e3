// Package config provides configuration management functionality.
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/aristath/reportdesk/internal/modules/reports"
)

// Persisted setting keys. Values stored under these keys override the environment.
const (
	SettingR2AccountID       = "settings.r2_account_id"
	SettingR2AccessKeyID     = "settings.r2_access_key_id"
	SettingR2SecretAccessKey = "settings.r2_secret_access_key"
	SettingR2BucketName      = "settings.r2_bucket_name"
	SettingBackupSchedule    = "settings.backup_schedule"
)

// Config holds application configuration
type Config struct {
	DataDir          string // Directory of store.db (always absolute); empty keeps state in memory
	LogLevel         string
	Port             int
	DevMode          bool
	StoreCode        string   // Store selected on first start ("" is the chain total)
	LocationPrefixes []string // Label prefixes of store rows in the portal's reports
	BackupSchedule   string   // Cron schedule (with seconds) of remote backups
	BackupRetention  int      // Number of remote backups kept
	WALSchedule      string   // Cron schedule of the WAL checkpoint check
	R2               R2Config
}

// R2Config holds the Cloudflare R2 credentials of remote backups
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Endpoint        string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("REPORTDESK_DATA_DIR", "./data")
	if dataDir != ":memory:" {
		absDataDir, err := filepath.Abs(dataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
		}
		if err := os.MkdirAll(absDataDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		dataDir = absDataDir
	} else {
		dataDir = ""
	}

	cfg := &Config{
		DataDir:          dataDir,
		Port:             getEnvAsInt("PORT", 8080),
		DevMode:          getEnvAsBool("DEV_MODE", false),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		StoreCode:        getEnv("STORE_CODE", ""),
		LocationPrefixes: getEnvAsList("LOCATION_PREFIXES", reports.DefaultLocationPrefixes),
		BackupSchedule:   getEnv("BACKUP_SCHEDULE", "0 0 2 * * *"), // 2 AM daily
		BackupRetention:  getEnvAsInt("BACKUP_RETENTION", 14),
		WALSchedule:      getEnv("WAL_SCHEDULE", "0 */30 * * * *"),
		R2: R2Config{
			AccountID:       getEnv("R2_ACCOUNT_ID", ""),
			AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
			BucketName:      getEnv("R2_BUCKET_NAME", ""),
			Endpoint:        getEnv("R2_ENDPOINT", ""),
		},
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SettingsReader reads persisted settings.
type SettingsReader interface {
	Get(ctx context.Context, key string) (string, bool, error)
}

// UpdateFromSettings updates configuration from the persisted settings.
// This should be called after the store is initialized.
// Non-empty persisted values take precedence over environment variables.
func (c *Config) UpdateFromSettings(ctx context.Context, settings SettingsReader) error {
	targets := []struct {
		key   string
		field *string
	}{
		{SettingR2AccountID, &c.R2.AccountID},
		{SettingR2AccessKeyID, &c.R2.AccessKeyID},
		{SettingR2SecretAccessKey, &c.R2.SecretAccessKey},
		{SettingR2BucketName, &c.R2.BucketName},
		{SettingBackupSchedule, &c.BackupSchedule},
	}

	for _, t := range targets {
		value, found, err := settings.Get(ctx, t.key)
		if err != nil {
			return fmt.Errorf("failed to get %s from settings: %w", t.key, err)
		}
		// Empty values keep the environment value as fallback
		if found && strings.TrimSpace(value) != "" {
			*t.field = strings.TrimSpace(value)
		}
	}

	return c.Validate()
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	if strings.TrimSpace(c.BackupSchedule) == "" {
		return fmt.Errorf("BACKUP_SCHEDULE must not be empty")
	}
	if c.BackupRetention < 0 {
		return fmt.Errorf("invalid BACKUP_RETENTION %d", c.BackupRetention)
	}
	if len(c.LocationPrefixes) == 0 {
		return fmt.Errorf("LOCATION_PREFIXES must list at least one prefix")
	}

	// Note: R2 credentials are optional; remote backup is disabled without them
	return nil
}

// DatabasePath returns the path of the store database, or "" for an in-memory store.
func (c *Config) DatabasePath() string {
	if c.DataDir == "" {
		return ""
	}
	return filepath.Join(c.DataDir, "store.db")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable, dropping empty items.
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return append([]string(nil), defaultValue...)
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
