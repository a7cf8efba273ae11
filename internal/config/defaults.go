package config

import "time"

const (
	DefaultServerPort = 8080
	DefaultServerMode = "debug"

	DefaultDBHost     = "localhost"
	DefaultDBPort     = 5432
	DefaultDBName     = "extraction"
	DefaultDBMaxConns = 25

	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisKeyPrefix = "pateng"

	DefaultKafkaBroker = "localhost:9092"

	DefaultMinIOEndpoint = "localhost:9000"
	DefaultMinIOBucket   = "correction-sources"

	DefaultSynthesisBaseURL = "http://localhost:11434/v1"
	DefaultSynthesisModel   = "gpt-4o-mini"

	DefaultReadyThreshold  = 5
	DefaultHighPassRate    = 0.9
	DefaultHighMinCorpus   = 10
	DefaultMediumPassRate  = 0.7
	DefaultDeployPriority  = 50
	DefaultSnapshotTTL     = 30 * time.Second
	DefaultArchiveMinBytes = 16 * 1024

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// ApplyDefaults fills every zero-value field in cfg with the service default.
// Fields already set by the caller are left unchanged so that explicit
// configuration always wins.  It must be called after unmarshalling raw
// config data and before Validate() so that optional-but-defaulted fields are
// never seen as missing.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// Server
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30 * time.Second
	}

	// Database
	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = DefaultDBMaxConns
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MigrationPath == "" {
		// golang-migrate source URL, not a bare directory.
		cfg.Database.MigrationPath = "file://migrations"
	}

	// Redis
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
	if cfg.Redis.DefaultTTL == 0 {
		cfg.Redis.DefaultTTL = 5 * time.Minute
	}

	// Kafka
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.ProducerRetries == 0 {
		cfg.Kafka.ProducerRetries = 3
	}
	if cfg.Kafka.BatchTimeout == 0 {
		cfg.Kafka.BatchTimeout = 100 * time.Millisecond
	}
	if cfg.Kafka.WriteTimeout == 0 {
		cfg.Kafka.WriteTimeout = 10 * time.Second
	}

	// MinIO
	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = DefaultMinIOBucket
	}

	// Synthesis
	if cfg.Synthesis.BaseURL == "" {
		cfg.Synthesis.BaseURL = DefaultSynthesisBaseURL
	}
	if cfg.Synthesis.Model == "" {
		cfg.Synthesis.Model = DefaultSynthesisModel
	}
	if cfg.Synthesis.Temperature == 0 {
		cfg.Synthesis.Temperature = 0.2
	}
	if cfg.Synthesis.MaxOutputTokens == 0 {
		cfg.Synthesis.MaxOutputTokens = 2048
	}
	if cfg.Synthesis.Timeout == 0 {
		cfg.Synthesis.Timeout = 60 * time.Second
	}
	if cfg.Synthesis.MaxCorpusChars == 0 {
		cfg.Synthesis.MaxCorpusChars = 48 * 1024
	}

	// Engine
	if cfg.Engine.ReadyThreshold == 0 {
		cfg.Engine.ReadyThreshold = DefaultReadyThreshold
	}
	if cfg.Engine.HighPassRate == 0 {
		cfg.Engine.HighPassRate = DefaultHighPassRate
	}
	if cfg.Engine.HighMinCorpus == 0 {
		cfg.Engine.HighMinCorpus = DefaultHighMinCorpus
	}
	if cfg.Engine.MediumPassRate == 0 {
		cfg.Engine.MediumPassRate = DefaultMediumPassRate
	}
	if cfg.Engine.DefaultPriority == 0 {
		cfg.Engine.DefaultPriority = DefaultDeployPriority
	}
	if cfg.Engine.SnapshotTTL == 0 {
		cfg.Engine.SnapshotTTL = DefaultSnapshotTTL
	}
	if cfg.Engine.ArchiveMinBytes == 0 {
		cfg.Engine.ArchiveMinBytes = DefaultArchiveMinBytes
	}

	// Log
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}
