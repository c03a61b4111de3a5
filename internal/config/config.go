// Package config loads peersync's runtime configuration from the
// environment, following the teacher's LoadConfig/getEnv pattern of
// reading a .env file via godotenv and falling back to defaults.
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config carries every tunable in spec.md §6's configuration table plus the
// storage/transport/observability endpoints SPEC_FULL.md adds on top.
type Config struct {
	// Sync protocol tunables (spec.md §6)
	RequestExpiry         time.Duration
	AggressiveSyncTimeout time.Duration
	MaxChunkSize          int
	MaxCachedChannels     int
	TombstoneMaxAge       time.Duration
	CandidateRateLimit    float64
	CandidateBurst        int

	// Storage
	MongoURI        string
	MongoDatabase   string
	SQLiteDSN       string
	CassandraHosts  []string
	CassandraKeyspc string
	RedisURL        string

	// Transport
	WebSocketAddr string
	KafkaBrokers  []string
	KafkaTopic    string
	KafkaDLQTopic string
	NatsURL       string

	// Observability
	PrometheusPort     string
	JaegerOTLPEndpoint string
	LogLevel           string
}

// LoadConfig mirrors the teacher's LoadConfig: attempt to load a .env file,
// fall back to process environment variables, and apply the defaults named
// in spec.md §6 where a variable is unset.
func LoadConfig() *Config {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("config: no .env file found, using environment variables directly")
	}

	requestExpirySecs, _ := strconv.Atoi(getEnv("REQUEST_EXPIRY_SECONDS", "30"))
	aggressiveTimeoutMs, _ := strconv.Atoi(getEnv("AGGRESSIVE_SYNC_TIMEOUT_MS", "1000"))
	maxChunkSize, _ := strconv.Atoi(getEnv("MAX_CHUNK_SIZE_BYTES", "5242880"))
	maxCachedChannels, _ := strconv.Atoi(getEnv("MAX_CACHED_CHANNELS", "256"))
	tombstoneMaxAgeDays, _ := strconv.Atoi(getEnv("TOMBSTONE_MAX_AGE_DAYS", "30"))
	candidateRateLimit, _ := strconv.ParseFloat(getEnv("CANDIDATE_RATE_LIMIT", "50"), 64)
	candidateBurst, _ := strconv.Atoi(getEnv("CANDIDATE_BURST", "50"))

	return &Config{
		RequestExpiry:         time.Duration(requestExpirySecs) * time.Second,
		AggressiveSyncTimeout: time.Duration(aggressiveTimeoutMs) * time.Millisecond,
		MaxChunkSize:          maxChunkSize,
		MaxCachedChannels:     maxCachedChannels,
		TombstoneMaxAge:       time.Duration(tombstoneMaxAgeDays) * 24 * time.Hour,
		CandidateRateLimit:    candidateRateLimit,
		CandidateBurst:        candidateBurst,

		MongoURI:        getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:   getEnv("MONGO_DATABASE", "peersync"),
		SQLiteDSN:       getEnv("SQLITE_DSN", "peersync.db"),
		CassandraHosts:  strings.Split(getEnv("CASSANDRA_HOSTS", "localhost"), ","),
		CassandraKeyspc: getEnv("CASSANDRA_KEYSPACE", "peersync_tombstones"),
		RedisURL:        getEnv("REDIS_URL", ""),

		WebSocketAddr: getEnv("WS_ADDR", ":8081"),
		KafkaBrokers:  strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
		KafkaTopic:    getEnv("KAFKA_TOPIC", "peersync-envelopes"),
		KafkaDLQTopic: getEnv("KAFKA_DLQ_TOPIC", "peersync-envelopes-dlq"),
		NatsURL:       getEnv("NATS_URL", "nats://localhost:4222"),

		PrometheusPort:     getEnv("PROMETHEUS_PORT", "9091"),
		JaegerOTLPEndpoint: getEnv("JAEGER_OTLP_ENDPOINT", "localhost:4317"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
