package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerPort = 8080
	DefaultServerMode = "debug"

	DefaultDBHost     = "localhost"
	DefaultDBPort     = 5432
	DefaultDBName     = "claimsift"
	DefaultDBMaxConns = 25

	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisKeyPrefix = "claimsift:"

	DefaultKafkaBroker  = "localhost:9092"
	DefaultKafkaTopic   = "claimsift.analysis.jobs"
	DefaultKafkaGroupID = "claimsift-workers"

	DefaultOpenSearchAddr   = "http://localhost:9200"
	DefaultOpenSearchPrefix = "claimsift"

	DefaultMinIOEndpoint = "localhost:9000"
	DefaultMinIOBucket   = "claimsift-documents"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultWorkerConcurrency = 4

	// DefaultMinAmount filters out enumeration markers and statute article
	// numbers that the extractor would otherwise mistake for money.
	DefaultMinAmount = 100

	// DefaultContextWindow is the rune count captured on each side of a match.
	DefaultContextWindow = 150

	// DefaultBasisWindow is the rune count scanned backwards from an amount
	// when looking for calculation-basis indicators.
	DefaultBasisWindow = 30

	DefaultMaxDocumentBytes = 4 << 20

	// DefaultBatchConcurrency bounds parallel documents in AnalyzeBatch.
	DefaultBatchConcurrency = 4

	DefaultDraftingModel = "gpt-4o-mini"
)

// ApplyDefaults fills every zero-value field in cfg with the service default.
// Fields that have already been set by the caller (non-zero values) are left
// unchanged so that explicit configuration always wins.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	// ── Database ──────────────────────────────────────────────────────────────
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

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
	if cfg.Redis.DefaultTTL == 0 {
		cfg.Redis.DefaultTTL = 24 * time.Hour
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = DefaultKafkaTopic
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.AutoOffsetReset == "" {
		cfg.Kafka.AutoOffsetReset = "earliest"
	}

	// ── OpenSearch ────────────────────────────────────────────────────────────
	if len(cfg.OpenSearch.Addresses) == 0 {
		cfg.OpenSearch.Addresses = []string{DefaultOpenSearchAddr}
	}
	if cfg.OpenSearch.IndexPrefix == "" {
		cfg.OpenSearch.IndexPrefix = DefaultOpenSearchPrefix
	}
	if cfg.OpenSearch.SearchSize == 0 {
		cfg.OpenSearch.SearchSize = 10
	}
	if cfg.OpenSearch.MemoizeTTL == 0 {
		cfg.OpenSearch.MemoizeTTL = 10 * time.Minute
	}

	// ── MinIO ─────────────────────────────────────────────────────────────────
	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = DefaultMinIOBucket
	}

	// ── Worker ────────────────────────────────────────────────────────────────
	if cfg.Worker.Concurrency == 0 {
		cfg.Worker.Concurrency = DefaultWorkerConcurrency
	}
	if cfg.Worker.MaxRetries == 0 {
		cfg.Worker.MaxRetries = 3
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	// ── Engine ────────────────────────────────────────────────────────────────
	if cfg.Engine.MinAmount == 0 {
		cfg.Engine.MinAmount = DefaultMinAmount
	}
	if cfg.Engine.ContextWindow == 0 {
		cfg.Engine.ContextWindow = DefaultContextWindow
	}
	if cfg.Engine.BasisWindow == 0 {
		cfg.Engine.BasisWindow = DefaultBasisWindow
	}
	if cfg.Engine.MaxDocumentBytes == 0 {
		cfg.Engine.MaxDocumentBytes = DefaultMaxDocumentBytes
	}
	if cfg.Engine.BatchConcurrency == 0 {
		cfg.Engine.BatchConcurrency = DefaultBatchConcurrency
	}

	// ── Drafting ──────────────────────────────────────────────────────────────
	if cfg.Drafting.Model == "" {
		cfg.Drafting.Model = DefaultDraftingModel
	}
	if cfg.Drafting.MaxTokens == 0 {
		cfg.Drafting.MaxTokens = 2048
	}
	if cfg.Drafting.Timeout == 0 {
		cfg.Drafting.Timeout = 60 * time.Second
	}
}
