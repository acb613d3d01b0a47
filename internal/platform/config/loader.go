package config

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix is stripped from environment variables before mapping.
	EnvPrefix = "TIERMASK_"

	maxConfigFileSize = 1024 * 1024 // 1MB
)

var defaults = map[string]any{
	"environment":                EnvDevelopment,
	"server.addr":                ":8080",
	"server.read_header_timeout": "5s",
	"server.shutdown_timeout":    "15s",
	"log.level":                  "info",
	"masking.deterministic":      false,
	"masking.audit":              true,
	"masking.tag_length":         8,
	"audit.backend":              BackendMemory,
	"audit.buffer_size":          10000,
	"audit.batch_size":           100,
	"audit.flush_interval":       "1s",
	"audit.persist_timeout":      "5s",
	"postgres.max_open_conns":    10,
	"postgres.max_idle_conns":    5,
	"postgres.conn_max_lifetime": "30m",
	"redis.stream":               "tiermask:audit",
	"redis.max_len":              1000000,
	"redis.pool_size":            10,
	"redis.min_idle_conns":       2,
	"redis.dial_timeout":         "5s",
	"redis.read_timeout":         "3s",
	"redis.write_timeout":        "3s",
	"kafka.topic":                "tiermask.audit",
	"kafka.client_id":            "tiermask",
	"kafka.partitions":           3,
	"kafka.replication_factor":   1,
	"kafka.linger":               "10ms",
}

// Load reads configuration from defaults, then the optional YAML file at
// path, then environment variables.
//
// Environment variables carry the TIERMASK_ prefix and map onto keys by
// splitting on the first underscore after the prefix:
//
//	TIERMASK_MASKING_POLICY_FILE -> masking.policy_file
//	TIERMASK_AUDIT_FLUSH_INTERVAL -> audit.flush_interval
//	TIERMASK_KAFKA_BROKERS=a:9092,b:9092 -> kafka.brokers
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	for key, val := range defaults {
		if err := k.Set(key, val); err != nil {
			return nil, fmt.Errorf("failed to set default %s: %w", key, err)
		}
	}

	if path != "" {
		content, err := readConfigFile(path)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// envKey maps TIERMASK_SECTION_FIELD_NAME to section.field_name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

func envValue(key, value string) (string, any) {
	k := envKey(key)
	if k == "kafka.brokers" {
		brokers := strings.Split(value, ",")
		out := brokers[:0]
		for _, b := range brokers {
			if b = strings.TrimSpace(b); b != "" {
				out = append(out, b)
			}
		}
		return k, out
	}
	return k, value
}

func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, maxConfigFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if len(content) > maxConfigFileSize {
		return nil, fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigFileSize)
	}
	return content, nil
}

// Default returns the configuration Load produces with no file and no
// environment overrides. Intended for tests.
func Default() *Config {
	return &Config{
		Environment: EnvDevelopment,
		Server: ServerConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   15 * time.Second,
		},
		Log: LogConfig{Level: "info"},
		Masking: MaskingConfig{
			Audit:     true,
			TagLength: 8,
		},
		Audit: AuditConfig{
			Backend:        BackendMemory,
			BufferSize:     10000,
			BatchSize:      100,
			FlushInterval:  time.Second,
			PersistTimeout: 5 * time.Second,
		},
		Postgres: PostgresConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Redis: RedisConfig{
			Stream:       "tiermask:audit",
			MaxLen:       1000000,
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Topic:             "tiermask.audit",
			ClientID:          "tiermask",
			Partitions:        3,
			ReplicationFactor: 1,
			Linger:            10 * time.Millisecond,
		},
	}
}
