package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the sentinel service
type Config struct {
	Telegram TelegramConfig
	Bot      BotConfig
	Database DatabaseConfig
	Watch    WatchConfig
	Logging  LoggingConfig
	Service  ServiceConfig
}

// TelegramConfig holds MTProto configuration shared by all watcher sessions
type TelegramConfig struct {
	APIID       int
	APIHash     string
	ArtifactDir string
}

// BotConfig holds delivery bot configuration
type BotConfig struct {
	Token string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// WatchConfig holds watch pipeline and reconciliation configuration
type WatchConfig struct {
	DeletionCheckInterval time.Duration
	DeletionCheckLookback int
	DeletionCheckTimeout  time.Duration
	RetentionMaxAge       time.Duration
	RetentionInterval     time.Duration
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string
}

// ServiceConfig holds service configuration
type ServiceConfig struct {
	Name string
	Port string
}

// GetDSN builds a PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// BotUserID extracts the numeric bot identifier from the bot token.
// Returns 0 when the token is malformed.
func (c *BotConfig) BotUserID() int64 {
	idPart, _, found := strings.Cut(c.Token, ":")
	if !found {
		return 0
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	apiID, err := strconv.Atoi(getEnv("TELEGRAM_API_ID", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid TELEGRAM_API_ID: %w", err)
	}

	checkInterval, err := time.ParseDuration(getEnv("DELETION_CHECK_INTERVAL", "60s"))
	if err != nil {
		return nil, fmt.Errorf("invalid DELETION_CHECK_INTERVAL: %w", err)
	}

	checkLookback, err := strconv.Atoi(getEnv("DELETION_CHECK_LOOKBACK", "100"))
	if err != nil {
		return nil, fmt.Errorf("invalid DELETION_CHECK_LOOKBACK: %w", err)
	}

	checkTimeout, err := time.ParseDuration(getEnv("DELETION_CHECK_TIMEOUT", "60s"))
	if err != nil {
		return nil, fmt.Errorf("invalid DELETION_CHECK_TIMEOUT: %w", err)
	}

	retentionMaxAge, err := time.ParseDuration(getEnv("RETENTION_MAX_AGE", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid RETENTION_MAX_AGE: %w", err)
	}

	retentionInterval, err := time.ParseDuration(getEnv("RETENTION_INTERVAL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid RETENTION_INTERVAL: %w", err)
	}

	cfg := &Config{
		Telegram: TelegramConfig{
			APIID:       apiID,
			APIHash:     getEnv("TELEGRAM_API_HASH", ""),
			ArtifactDir: getEnv("ARTIFACT_DIR", "./artifacts"),
		},
		Bot: BotConfig{
			Token: getEnv("TELEGRAM_BOT_TOKEN", ""),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Name:     getEnv("DB_NAME", "chatsentinel"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Watch: WatchConfig{
			DeletionCheckInterval: checkInterval,
			DeletionCheckLookback: checkLookback,
			DeletionCheckTimeout:  checkTimeout,
			RetentionMaxAge:       retentionMaxAge,
			RetentionInterval:     retentionInterval,
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Service: ServiceConfig{
			Name: getEnv("SERVICE_NAME", "chat-sentinel"),
			Port: getEnv("SERVICE_PORT", "8085"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Telegram.APIID == 0 {
		return fmt.Errorf("TELEGRAM_API_ID is required")
	}

	if c.Telegram.APIHash == "" {
		return fmt.Errorf("TELEGRAM_API_HASH is required")
	}

	if c.Bot.Token == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	if c.Watch.DeletionCheckLookback <= 0 {
		return fmt.Errorf("DELETION_CHECK_LOOKBACK must be positive")
	}

	return nil
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
