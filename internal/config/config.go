// Package config defines all configuration structures for the
// extraction-engine service.  No I/O or parsing logic lives here — only plain
// data types and validation.
package config

import (
	"fmt"
	"time"
)

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	MigrationPath   string        `mapstructure:"migration_path"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	DefaultTTL   time.Duration `mapstructure:"default_ttl"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// KafkaConfig holds Kafka producer parameters.
type KafkaConfig struct {
	Brokers         []string      `mapstructure:"brokers"`
	ProducerRetries int           `mapstructure:"producer_retries"`
	BatchSize       int           `mapstructure:"batch_size"`
	BatchTimeout    time.Duration `mapstructure:"batch_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
}

// MinIOConfig holds MinIO / S3-compatible object-storage parameters used by
// the correction source-text archive.
type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// SynthesisConfig holds parameters for the generative backend used by the
// pattern synthesizer.  The backend speaks the OpenAI chat-completions wire
// format; BaseURL may point at any compatible server.
type SynthesisConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	APIKey          string        `mapstructure:"api_key"`
	Model           string        `mapstructure:"model"`
	Temperature     float64       `mapstructure:"temperature"`
	MaxOutputTokens int           `mapstructure:"max_output_tokens"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxCorpusChars  int           `mapstructure:"max_corpus_chars"`
}

// EngineConfig holds the tunables of the pattern-engine core: the opportunity
// readiness threshold, the validation confidence tiers, and the matcher
// snapshot refresh interval.
type EngineConfig struct {
	ReadyThreshold  int           `mapstructure:"ready_threshold"`
	HighPassRate    float64       `mapstructure:"high_pass_rate"`
	HighMinCorpus   int           `mapstructure:"high_min_corpus"`
	MediumPassRate  float64       `mapstructure:"medium_pass_rate"`
	DefaultPriority int           `mapstructure:"default_priority"`
	SnapshotTTL     time.Duration `mapstructure:"snapshot_ttl"`
	ArchiveMinBytes int           `mapstructure:"archive_min_bytes"`
}

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format string `mapstructure:"format"` // "json" | "console"
}

// Config is the root configuration structure for the service.  Every
// infrastructure component and application service reads its settings from
// the relevant sub-struct.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	MinIO     MinIOConfig     `mapstructure:"minio"`
	Synthesis SynthesisConfig `mapstructure:"synthesis"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Log       LogConfig       `mapstructure:"log"`
}

// Validate performs semantic validation of the fully-populated Config.
// It returns the first error encountered; callers should treat any error as
// fatal and refuse to start the application.
func (c *Config) Validate() error {
	// Server
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}

	// Database
	if c.Database.Host == "" {
		return fmt.Errorf("config: database.host is required")
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("config: database.port %d is out of range [1, 65535]", c.Database.Port)
	}
	if c.Database.User == "" {
		return fmt.Errorf("config: database.user is required")
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("config: database.db_name is required")
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("config: database.max_conns must be >= 1, got %d", c.Database.MaxConns)
	}

	// Redis
	if c.Redis.Addr == "" {
		return fmt.Errorf("config: redis.addr is required")
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("config: redis.db must be >= 0, got %d", c.Redis.DB)
	}

	// Kafka
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("config: kafka.brokers must contain at least one broker address")
	}

	// Synthesis
	if c.Synthesis.BaseURL == "" {
		return fmt.Errorf("config: synthesis.base_url is required")
	}
	if c.Synthesis.Model == "" {
		return fmt.Errorf("config: synthesis.model is required")
	}
	if c.Synthesis.Temperature < 0 || c.Synthesis.Temperature > 2.0 {
		return fmt.Errorf("config: synthesis.temperature %g is out of range [0, 2.0]", c.Synthesis.Temperature)
	}

	// Engine
	if c.Engine.ReadyThreshold < 1 {
		return fmt.Errorf("config: engine.ready_threshold must be >= 1, got %d", c.Engine.ReadyThreshold)
	}
	if c.Engine.HighPassRate <= 0 || c.Engine.HighPassRate > 1 {
		return fmt.Errorf("config: engine.high_pass_rate %g is out of range (0, 1]", c.Engine.HighPassRate)
	}
	if c.Engine.MediumPassRate <= 0 || c.Engine.MediumPassRate > c.Engine.HighPassRate {
		return fmt.Errorf("config: engine.medium_pass_rate %g must be in (0, high_pass_rate]", c.Engine.MediumPassRate)
	}
	if c.Engine.HighMinCorpus < 1 {
		return fmt.Errorf("config: engine.high_min_corpus must be >= 1, got %d", c.Engine.HighMinCorpus)
	}

	// Log
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	return nil
}
