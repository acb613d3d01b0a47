// Package config loads the tiermask host configuration once at startup.
// Masking components receive the resolved values through constructors and
// never read the environment themselves.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Environments understood by the host.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Audit store backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendKafka    = "kafka"
)

// Config is the full host configuration.
type Config struct {
	Environment string         `koanf:"environment"`
	Server      ServerConfig   `koanf:"server"`
	Log         LogConfig      `koanf:"log"`
	Masking     MaskingConfig  `koanf:"masking"`
	Audit       AuditConfig    `koanf:"audit"`
	Postgres    PostgresConfig `koanf:"postgres"`
	Redis       RedisConfig    `koanf:"redis"`
	Kafka       KafkaConfig    `koanf:"kafka"`
}

// ServerConfig captures HTTP server level configuration.
type ServerConfig struct {
	Addr              string        `koanf:"addr"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
	// UpstreamToken, when set, must accompany every masking request so
	// only the trusted upstream can assert a viewer tier.
	UpstreamToken Secret `koanf:"upstream_token"`
}

// LogConfig selects the log level. The handler format follows Environment.
type LogConfig struct {
	Level string `koanf:"level"`
}

// MaskingConfig holds the engine switches.
type MaskingConfig struct {
	Salt          Secret `koanf:"salt"`
	Deterministic bool   `koanf:"deterministic"`
	Audit         bool   `koanf:"audit"`
	PolicyFile    string `koanf:"policy_file"`
	TagLength     int    `koanf:"tag_length"`
}

// AuditConfig configures the asynchronous audit sink.
type AuditConfig struct {
	Backend        string        `koanf:"backend"`
	BufferSize     int           `koanf:"buffer_size"`
	BatchSize      int           `koanf:"batch_size"`
	FlushInterval  time.Duration `koanf:"flush_interval"`
	PersistTimeout time.Duration `koanf:"persist_timeout"`
}

// PostgresConfig configures the database/sql pool used by the postgres
// audit store.
type PostgresConfig struct {
	DSN             Secret        `koanf:"dsn"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

// RedisConfig configures the go-redis client used by the redis audit store.
type RedisConfig struct {
	URL          string        `koanf:"url"`
	Stream       string        `koanf:"stream"`
	MaxLen       int64         `koanf:"max_len"`
	PoolSize     int           `koanf:"pool_size"`
	MinIdleConns int           `koanf:"min_idle_conns"`
	DialTimeout  time.Duration `koanf:"dial_timeout"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

// KafkaConfig configures the franz-go client used by the kafka audit store.
type KafkaConfig struct {
	Brokers           []string      `koanf:"brokers"`
	Topic             string        `koanf:"topic"`
	ClientID          string        `koanf:"client_id"`
	Partitions        int32         `koanf:"partitions"`
	ReplicationFactor int16         `koanf:"replication_factor"`
	Linger            time.Duration `koanf:"linger"`
}

// IsProduction reports whether the host runs in production.
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// SlogLevel parses Log.Level. Validate guarantees it succeeds.
func (c *Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.Environment {
	case EnvDevelopment, EnvProduction:
	default:
		return fmt.Errorf("invalid environment %q (must be %s or %s)", c.Environment, EnvDevelopment, EnvProduction)
	}

	if c.Server.Addr == "" {
		return errors.New("server address is required")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}

	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Log.Level, err)
	}

	if c.Masking.TagLength < 4 || c.Masking.TagLength > 64 {
		return fmt.Errorf("invalid masking tag length: %d (must be 4-64)", c.Masking.TagLength)
	}

	if c.Audit.BufferSize <= 0 {
		return errors.New("audit buffer size must be positive")
	}
	if c.Audit.BatchSize <= 0 || c.Audit.BatchSize > c.Audit.BufferSize {
		return fmt.Errorf("invalid audit batch size: %d (must be 1-%d)", c.Audit.BatchSize, c.Audit.BufferSize)
	}
	if c.Audit.FlushInterval <= 0 {
		return errors.New("audit flush interval must be positive")
	}

	switch c.Audit.Backend {
	case BackendMemory:
		if c.IsProduction() && c.Masking.Audit {
			return errors.New("memory audit backend is not allowed in production")
		}
	case BackendPostgres:
		if !c.Postgres.DSN.IsSet() {
			return errors.New("postgres dsn is required for the postgres audit backend")
		}
	case BackendRedis:
		if c.Redis.URL == "" {
			return errors.New("redis url is required for the redis audit backend")
		}
		if c.Redis.Stream == "" {
			return errors.New("redis stream is required for the redis audit backend")
		}
	case BackendKafka:
		if len(c.Kafka.Brokers) == 0 {
			return errors.New("kafka brokers are required for the kafka audit backend")
		}
		if c.Kafka.Topic == "" {
			return errors.New("kafka topic is required for the kafka audit backend")
		}
	default:
		return fmt.Errorf("invalid audit backend %q", c.Audit.Backend)
	}

	// Without the token any client could claim the admin tier.
	if c.IsProduction() && c.Masking.Audit && !c.Server.UpstreamToken.IsSet() {
		return errors.New("server upstream token is required in production")
	}

	return nil
}

// Secret wraps strings that should be redacted in logs and serialization.
// Use Value() to access the actual secret value.
type Secret string

// String implements fmt.Stringer. Always returns redacted value.
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "[REDACTED]"
}

// GoString implements fmt.GoStringer for %#v formatting.
func (s Secret) GoString() string {
	return "Secret([REDACTED])"
}

// LogValue implements slog.LogValuer.
func (s Secret) LogValue() slog.Value {
	return slog.StringValue(s.String())
}

// Value returns the actual secret value. Use sparingly.
func (s Secret) Value() string {
	return string(s)
}

// IsSet returns true if the secret has a non-empty value.
func (s Secret) IsSet() bool {
	return s != ""
}

// MarshalJSON implements json.Marshaler. Always returns redacted value.
func (s Secret) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}
