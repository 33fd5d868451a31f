package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the sync service
type Config struct {
	Service  ServiceConfig
	Logging  LoggingConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Telegram TelegramConfig
	Sync     SyncConfig
}

// ServiceConfig holds service identity and HTTP configuration
type ServiceConfig struct {
	Name string
	Port string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string
}

// PostgresConfig holds database connection configuration
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
}

// DSN builds the gorm postgres connection string
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Database)
}

// RedisConfig holds Redis connection configuration. One client serves the
// task broker, the code slots and the socket.io emitter.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr returns the host:port address
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// KafkaConfig holds the alarm pipeline configuration
type KafkaConfig struct {
	Brokers    []string
	AlarmTopic string
}

// TelegramConfig holds MTProto client configuration
type TelegramConfig struct {
	SessionDir  string
	CodeTimeout time.Duration
}

// SyncConfig holds replication scheduling configuration
type SyncConfig struct {
	MessageSyncCron    string
	MessageSyncOnStart bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	codeTimeout, err := time.ParseDuration(getEnv("LOGIN_CODE_TIMEOUT", "60s"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOGIN_CODE_TIMEOUT: %w", err)
	}

	syncOnStart, err := strconv.ParseBool(getEnv("MESSAGE_SYNC_ON_START", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid MESSAGE_SYNC_ON_START: %w", err)
	}

	cfg := &Config{
		Service: ServiceConfig{
			Name: getEnv("SERVICE_NAME", "tgsync"),
			Port: getEnv("SERVICE_PORT", "8086"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Postgres: PostgresConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnv("POSTGRES_PORT", "5432"),
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", ""),
			Database: getEnv("POSTGRES_DB", "tgsync"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Kafka: KafkaConfig{
			Brokers:    strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			AlarmTopic: getEnv("KAFKA_ALARM_TOPIC", "ops.alarms"),
		},
		Telegram: TelegramConfig{
			SessionDir:  getEnv("TELEGRAM_SESSION_DIR", "./sessions"),
			CodeTimeout: codeTimeout,
		},
		Sync: SyncConfig{
			MessageSyncCron:    getEnv("MESSAGE_SYNC_CRON", "*/5 * * * *"),
			MessageSyncOnStart: syncOnStart,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Telegram.SessionDir == "" {
		return fmt.Errorf("TELEGRAM_SESSION_DIR is required")
	}

	if c.Telegram.CodeTimeout <= 0 {
		return fmt.Errorf("LOGIN_CODE_TIMEOUT must be positive")
	}

	if len(c.Kafka.Brokers) == 0 || c.Kafka.Brokers[0] == "" {
		return fmt.Errorf("KAFKA_BROKERS is required")
	}

	if c.Sync.MessageSyncCron == "" {
		return fmt.Errorf("MESSAGE_SYNC_CRON is required")
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
