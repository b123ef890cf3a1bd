// Package config defines all configuration structures for ClaimSift.  No I/O
// or parsing logic lives here, only plain data types and validation.
package config

import (
	"fmt"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`
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

// Neo4jConfig holds the statute-graph connection parameters.
type Neo4jConfig struct {
	URI                   string        `mapstructure:"uri"`
	User                  string        `mapstructure:"user"`
	Password              string        `mapstructure:"password"`
	MaxConnectionPoolSize int           `mapstructure:"max_connection_pool_size"`
	ConnectionTimeout     time.Duration `mapstructure:"connection_timeout"`
	Database              string        `mapstructure:"database"`
}

// RedisConfig holds Redis connection parameters for the analysis result cache.
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

// KafkaConfig holds Apache Kafka producer/consumer parameters for batch jobs.
type KafkaConfig struct {
	Brokers         []string `mapstructure:"brokers"`
	Topic           string   `mapstructure:"topic"`
	GroupID         string   `mapstructure:"group_id"`
	AutoOffsetReset string   `mapstructure:"auto_offset_reset"` // "earliest" | "latest"
	ProducerRetries int      `mapstructure:"producer_retries"`
	BatchSize       int      `mapstructure:"batch_size"`
}

// OpenSearchConfig holds the precedent-index cluster connection parameters.
type OpenSearchConfig struct {
	Addresses          []string      `mapstructure:"addresses"`
	User               string        `mapstructure:"user"`
	Password           string        `mapstructure:"password"`
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify"`
	IndexPrefix        string        `mapstructure:"index_prefix"`
	SearchSize         int           `mapstructure:"search_size"`
	MemoizeTTL         time.Duration `mapstructure:"memoize_ttl"`
}

// MinIOConfig holds MinIO / S3-compatible object-storage parameters for
// fetching source documents in batch jobs.
type MinIOConfig struct {
	Endpoint      string        `mapstructure:"endpoint"`
	AccessKey     string        `mapstructure:"access_key"`
	SecretKey     string        `mapstructure:"secret_key"`
	Bucket        string        `mapstructure:"bucket"`
	UseSSL        bool          `mapstructure:"use_ssl"`
	PresignExpiry time.Duration `mapstructure:"presign_expiry"`
}

// WorkerConfig holds batch-worker execution parameters.
type WorkerConfig struct {
	Concurrency  int           `mapstructure:"concurrency"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
}

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format string `mapstructure:"format"` // "json" | "console"
	Output string `mapstructure:"output"`
}

// EngineConfig holds the extraction-pipeline tunables.  The keyword tables
// themselves live in internal/engine/rules; numeric thresholds are exposed
// here, and a rules file may replace the keyword tables via RulesPath.
type EngineConfig struct {
	// MinAmount is the smallest value (in whole NTD) treated as a plausible
	// damage amount; anything below is discarded as an enumeration marker or
	// article number.
	MinAmount int64 `mapstructure:"min_amount"`

	// ContextWindow is the number of runes captured on each side of a match
	// for downstream classification.
	ContextWindow int `mapstructure:"context_window"`

	// BasisWindow is the number of runes before an amount searched for
	// calculation-basis indicators.
	BasisWindow int `mapstructure:"basis_window"`

	// MaxDocumentBytes bounds the accepted input size.
	MaxDocumentBytes int `mapstructure:"max_document_bytes"`

	// BatchConcurrency bounds the number of documents analyzed in parallel
	// by AnalyzeBatch and the batch worker.
	BatchConcurrency int `mapstructure:"batch_concurrency"`

	// RulesPath points to a YAML keyword-table override. Empty means the
	// built-in tables.
	RulesPath string `mapstructure:"rules_path"`
}

// DraftingConfig holds the LLM parameters for the optional document drafter.
type DraftingConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float32       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure for the entire service.  Every
// infrastructure component and interface layer reads its settings from the
// relevant sub-struct.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Neo4j      Neo4jConfig      `mapstructure:"neo4j"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	OpenSearch OpenSearchConfig `mapstructure:"opensearch"`
	MinIO      MinIOConfig      `mapstructure:"minio"`
	Worker     WorkerConfig     `mapstructure:"worker"`
	Log        LogConfig        `mapstructure:"log"`
	Engine     EngineConfig     `mapstructure:"engine"`
	Drafting   DraftingConfig   `mapstructure:"drafting"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

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
	if c.Kafka.GroupID == "" {
		return fmt.Errorf("config: kafka.group_id is required")
	}

	// Engine
	if c.Engine.MinAmount < 0 {
		return fmt.Errorf("config: engine.min_amount must be >= 0, got %d", c.Engine.MinAmount)
	}
	if c.Engine.ContextWindow < 1 {
		return fmt.Errorf("config: engine.context_window must be >= 1, got %d", c.Engine.ContextWindow)
	}
	if c.Engine.BasisWindow < 1 {
		return fmt.Errorf("config: engine.basis_window must be >= 1, got %d", c.Engine.BasisWindow)
	}

	// Worker
	if c.Worker.Concurrency < 1 {
		return fmt.Errorf("config: worker.concurrency must be >= 1, got %d", c.Worker.Concurrency)
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
