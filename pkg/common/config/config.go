package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server
	ServerPort     string
	ServerHost     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64

	// Database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Kafka
	KafkaBrokers      []string
	NotificationTopic string
	AlertTopic        string

	// Fulfillment provider
	ProviderBaseURL string
	ProviderAPIKey  string
	ProviderTimeout time.Duration

	// Retry queue / worker
	RetryMaxAttempts   int
	WorkerPollInterval time.Duration
	WorkerBatchSize    int

	// Catalog cache
	CatalogCacheTTL time.Duration

	// Error classification rule table (empty = built-in defaults)
	ClassifierRulesPath string
}

func Load() *Config {
	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 30*time.Second),
		MaxRequestBody: int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 1*1024*1024)),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "storefront"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "storefront123"),
		PostgresDB:       getEnv("POSTGRES_DB", "storefront"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		KafkaBrokers:      getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		NotificationTopic: getEnv("NOTIFICATION_TOPIC", "fulfillment-events"),
		AlertTopic:        getEnv("ALERT_TOPIC", "fulfillment-alerts"),

		ProviderBaseURL: getEnv("PROVIDER_BASE_URL", "https://api.printfulfill.example.com/v1"),
		ProviderAPIKey:  getEnv("PROVIDER_API_KEY", ""),
		ProviderTimeout: getDuration("PROVIDER_TIMEOUT", 15*time.Second),

		RetryMaxAttempts:   getIntEnv("RETRY_MAX_ATTEMPTS", 3),
		WorkerPollInterval: getDuration("WORKER_POLL_INTERVAL", 30*time.Second),
		WorkerBatchSize:    getIntEnv("WORKER_BATCH_SIZE", 10),

		CatalogCacheTTL: getDuration("CATALOG_CACHE_TTL", 10*time.Minute),

		ClassifierRulesPath: getEnv("CLASSIFIER_RULES_PATH", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return []string{value}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
