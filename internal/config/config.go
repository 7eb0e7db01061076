package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Host string
	Port string

	// Database settings
	DatabasePath string

	// Logging settings
	LogLevel  string
	LogFormat string

	// Provider settings
	ProviderBaseURL  string
	ProviderEmail    string
	ProviderPassword string
	TokenTTL         time.Duration
	RequestTimeout   time.Duration
	MaxPages         int

	// Sync scheduling
	SyncSchedules     []string
	StartupDelay      time.Duration
	BatchSize         int
	InterDayDelay     time.Duration
	ScheduledErrorCap int
	ManualErrorCap    int

	// Case settings
	CaseCodePrefix string

	// Cache settings
	SummaryCacheTTL time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// Not an error if .env doesn't exist
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	cfg := &Config{
		Host:             getEnv("HOST", "0.0.0.0"),
		Port:             getEnv("PORT", "8080"),
		DatabasePath:     getEnv("DATABASE_PATH", "./data/case_sync.db"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", "json"),
		ProviderBaseURL:  getEnv("PROVIDER_BASE_URL", "https://api.procesos-judiciales.example.com"),
		ProviderEmail:    getEnv("PROVIDER_EMAIL", ""),
		ProviderPassword: getEnv("PROVIDER_PASSWORD", ""),
		CaseCodePrefix:   getEnv("CASE_CODE_PREFIX", "EL"),
	}

	// Comma-separated cron specs, one per daily sync slot
	for _, s := range strings.Split(getEnv("SYNC_SCHEDULES", "0 6 * * *,0 13 * * *,0 19 * * *"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			cfg.SyncSchedules = append(cfg.SyncSchedules, s)
		}
	}
	if len(cfg.SyncSchedules) == 0 {
		return nil, fmt.Errorf("SYNC_SCHEDULES must contain at least one cron spec")
	}

	var err error
	cfg.TokenTTL, err = getDurationEnv("TOKEN_TTL_MINUTES", 50, time.Minute)
	if err != nil {
		return nil, err
	}

	cfg.RequestTimeout, err = getDurationEnv("REQUEST_TIMEOUT_SECONDS", 30, time.Second)
	if err != nil {
		return nil, err
	}

	cfg.StartupDelay, err = getDurationEnv("STARTUP_DELAY_SECONDS", 20, time.Second)
	if err != nil {
		return nil, err
	}

	cfg.InterDayDelay, err = getDurationEnv("INTER_DAY_DELAY_SECONDS", 5, time.Second)
	if err != nil {
		return nil, err
	}

	cfg.SummaryCacheTTL, err = getDurationEnv("SUMMARY_CACHE_TTL_MINUTES", 60, time.Minute)
	if err != nil {
		return nil, err
	}

	cfg.MaxPages, err = getIntEnv("MAX_PAGES", 200)
	if err != nil {
		return nil, err
	}

	cfg.BatchSize, err = getIntEnv("BATCH_SIZE", 10)
	if err != nil {
		return nil, err
	}

	cfg.ScheduledErrorCap, err = getIntEnv("SCHEDULED_ERROR_CAP", 5)
	if err != nil {
		return nil, err
	}

	cfg.ManualErrorCap, err = getIntEnv("MANUAL_ERROR_CAP", 20)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// getEnv returns the value of an environment variable or a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) (int, error) {
	v, err := strconv.Atoi(getEnv(key, strconv.Itoa(defaultValue)))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getDurationEnv(key string, defaultValue int, unit time.Duration) (time.Duration, error) {
	v, err := getIntEnv(key, defaultValue)
	if err != nil {
		return 0, err
	}
	return time.Duration(v) * unit, nil
}
