// Package config provides configuration loading, defaults, and validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix used by all service settings.
const envPrefix = "CLAIMSIFT"

// newViper builds a pre-configured Viper instance with the service's standard
// settings: YAML file type, CLAIMSIFT_ env prefix, automatic env binding, and
// a key replacer that maps "." → "_" so that nested keys like "database.host"
// resolve to "CLAIMSIFT_DATABASE_HOST".
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	registerKeys(v)
	return v
}

// configKeys lists every key the Config struct understands, with a typed zero
// default.  Viper only consults environment variables for keys it already
// knows about, so each key must be registered up front; ApplyDefaults later
// fills real defaults for anything still unset.
var configKeys = map[string]interface{}{
	"server.port":             0,
	"server.mode":             "",
	"server.read_timeout":     time.Duration(0),
	"server.write_timeout":    time.Duration(0),
	"server.max_body_size":    int64(0),
	"server.shutdown_timeout": time.Duration(0),

	"database.host":               "",
	"database.port":               0,
	"database.user":               "",
	"database.password":           "",
	"database.db_name":            "",
	"database.ssl_mode":           "",
	"database.max_conns":          0,
	"database.min_conns":          0,
	"database.conn_max_lifetime":  time.Duration(0),
	"database.conn_max_idle_time": time.Duration(0),
	"database.migration_path":     "",

	"neo4j.uri":                      "",
	"neo4j.user":                     "",
	"neo4j.password":                 "",
	"neo4j.max_connection_pool_size": 0,
	"neo4j.connection_timeout":       time.Duration(0),
	"neo4j.database":                 "",

	"redis.addr":           "",
	"redis.password":       "",
	"redis.db":             0,
	"redis.pool_size":      0,
	"redis.min_idle_conns": 0,
	"redis.dial_timeout":   time.Duration(0),
	"redis.read_timeout":   time.Duration(0),
	"redis.write_timeout":  time.Duration(0),
	"redis.default_ttl":    time.Duration(0),
	"redis.key_prefix":     "",

	"kafka.brokers":           []string{},
	"kafka.topic":             "",
	"kafka.group_id":          "",
	"kafka.auto_offset_reset": "",
	"kafka.producer_retries":  0,
	"kafka.batch_size":        0,

	"opensearch.addresses":            []string{},
	"opensearch.user":                 "",
	"opensearch.password":             "",
	"opensearch.insecure_skip_verify": false,
	"opensearch.index_prefix":         "",
	"opensearch.search_size":          0,
	"opensearch.memoize_ttl":          time.Duration(0),

	"minio.endpoint":       "",
	"minio.access_key":     "",
	"minio.secret_key":     "",
	"minio.bucket":         "",
	"minio.use_ssl":        false,
	"minio.presign_expiry": time.Duration(0),

	"worker.concurrency":   0,
	"worker.max_retries":   0,
	"worker.retry_backoff": time.Duration(0),

	"log.level":  "",
	"log.format": "",
	"log.output": "",

	"engine.min_amount":         int64(0),
	"engine.context_window":     0,
	"engine.basis_window":       0,
	"engine.max_document_bytes": 0,
	"engine.batch_concurrency":  0,
	"engine.rules_path":         "",

	"drafting.base_url":    "",
	"drafting.api_key":     "",
	"drafting.model":       "",
	"drafting.max_tokens":  0,
	"drafting.temperature": float32(0),
	"drafting.timeout":     time.Duration(0),
}

func registerKeys(v *viper.Viper) {
	for k, zero := range configKeys {
		v.SetDefault(k, zero)
	}
}

// Load reads the YAML file at configPath, merges any CLAIMSIFT_* environment
// variable overrides, applies service defaults for unset fields, and
// validates the result.  It returns a fully-populated *Config or a
// descriptive error.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config entirely from CLAIMSIFT_* environment variables,
// with no config file required.  This is the preferred loading strategy for
// containerised deployments.
//
// Environment variable naming convention:
//
//	CLAIMSIFT_<SECTION>_<FIELD>   e.g.  CLAIMSIFT_DATABASE_HOST, CLAIMSIFT_REDIS_ADDR
func LoadFromEnv() (*Config, error) {
	v := newViper()
	// No config file; rely solely on env vars and defaults.
	return unmarshalAndFinalize(v)
}

// unmarshalAndFinalize unmarshals viper state into a Config struct, applies
// defaults, and validates the result.
func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return cfg, nil
}

// Watch monitors configPath for changes and invokes onChange with the newly
// parsed Config whenever the file is modified on disk.  It is intended for
// hot-reloading non-critical settings such as the log level; callers are
// responsible for applying only the safe subset of changes at runtime.
//
// Watch is non-blocking; it starts a background goroutine managed by viper.
// If the changed file fails to parse or validate, onChange is not called.
func Watch(configPath string, onChange func(*Config)) {
	v := newViper()
	v.SetConfigFile(configPath)

	// Initial read; errors are ignored here, callers should call Load first.
	_ = v.ReadInConfig()

	v.WatchConfig()
	v.OnConfigChange(func(_ fsnotify.Event) {
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			// The changed file produced an invalid config; skip the callback
			// so the application does not enter a broken state.
			return
		}
		onChange(cfg)
	})
}

// MustLoad is a convenience wrapper around Load that panics on any error.
// It is intended for use in main() where a config-load failure is always fatal.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}
