package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	DataDir         string
	SQLitePath      string
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// StatsInterval controls periodic stats recomputation in serve mode.
	// Zero disables the scheduler.
	StatsInterval time.Duration

	// Kafka run-summary notifications (off unless KAFKA_ENABLED=true).
	KafkaEnabled      bool
	KafkaBrokers      []string
	KafkaSummaryTopic string

	PageSizeDefault int
	PageSizeMax     int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	statsIntervalStr := sharedcfg.EnvOrDefault("STATS_INTERVAL", "0")
	statsInterval, err := time.ParseDuration(statsIntervalStr)
	if err != nil || statsInterval < 0 {
		return nil, errors.New("invalid STATS_INTERVAL")
	}

	kafkaEnabled := os.Getenv("KAFKA_ENABLED") == "true"

	cfg := &Config{
		DataDir:         sharedcfg.EnvOrDefault("DATA_DIR", "wx_data"),
		SQLitePath:      sharedcfg.EnvOrDefault("SQLITE_PATH", "data/climate.db"),
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		StatsInterval:   statsInterval,

		KafkaEnabled:      kafkaEnabled,
		KafkaBrokers:      sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSummaryTopic: sharedcfg.EnvOrDefault("KAFKA_SUMMARY_TOPIC", "climate-etl-runs"),

		PageSizeDefault: parsePositiveInt("PAGE_SIZE_DEFAULT", 100),
		PageSizeMax:     parsePositiveInt("PAGE_SIZE_MAX", 1000),
	}

	if cfg.SQLitePath == "" {
		return nil, errors.New("SQLITE_PATH is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.PageSizeDefault > cfg.PageSizeMax {
		return nil, errors.New("PAGE_SIZE_DEFAULT exceeds PAGE_SIZE_MAX")
	}

	return cfg, nil
}

func parsePositiveInt(key string, fallback int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
