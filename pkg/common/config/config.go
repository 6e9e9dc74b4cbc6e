package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server
	ServerPort   string
	ServerHost   string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Postgres (authoritative patient store)
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis (search index replica)
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Kafka (audit event bus)
	KafkaBrokers []string
	AuditTopic   string

	// Matching
	ProfilesPath    string
	MatchWindowSize int
	IndexKeyPrefix  string

	// Identity verifier
	VerifierBaseURL      string
	VerifierTokenURL     string
	VerifierClientID     string
	VerifierClientSecret string
	VerifierSource       string
	VerifierTimeout      time.Duration

	// Reconciliation job
	ReconcilerInterval      time.Duration
	ReconcilerMinConfidence float64
}

func Load() *Config {
	return &Config{
		ServerPort:   getEnv("SERVER_PORT", "8080"),
		ServerHost:   getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:  getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout: getDuration("WRITE_TIMEOUT", 30*time.Second),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "andes"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "andes123"),
		PostgresDB:       getEnv("POSTGRES_DB", "andes"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		KafkaBrokers: getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		AuditTopic:   getEnv("AUDIT_TOPIC", "mpi.audit"),

		ProfilesPath:    getEnv("MPI_PROFILES_PATH", ""),
		MatchWindowSize: getIntEnv("MPI_MATCH_WINDOW", 100),
		IndexKeyPrefix:  getEnv("MPI_INDEX_PREFIX", "mpi"),

		VerifierBaseURL:      getEnv("VERIFIER_BASE_URL", ""),
		VerifierTokenURL:     getEnv("VERIFIER_TOKEN_URL", ""),
		VerifierClientID:     getEnv("VERIFIER_CLIENT_ID", ""),
		VerifierClientSecret: getEnv("VERIFIER_CLIENT_SECRET", ""),
		VerifierSource:       getEnv("VERIFIER_SOURCE", "Sisa"),
		VerifierTimeout:      getDuration("VERIFIER_TIMEOUT", 15*time.Second),

		ReconcilerInterval:      getDuration("RECONCILER_INTERVAL", 6*time.Hour),
		ReconcilerMinConfidence: getFloatEnv("RECONCILER_MIN_CONFIDENCE", 95),
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

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
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
