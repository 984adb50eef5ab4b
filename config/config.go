// Package config loads the secret store host configuration.
//
// Values are layered: built-in defaults, then an optional TOML file, then environment
// variables prefixed with SECRETSTORE_. In variable names a single underscore separates
// path segments and a double underscore stands for a literal underscore, so
// SECRETSTORE_CACHE_REDIS_KEY__PREFIX sets cache.redis.key_prefix.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	toml "github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	storeerrors "github.com/input-output-hk/catalyst-forge-libs/secretstore/errors"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "SECRETSTORE_"

// MaxAWSAttempts bounds repository.aws.max_attempts.
const MaxAWSAttempts = 25

// Repository backends.
const (
	RepositoryMemory = "memory"
	RepositorySQLite = "sqlite"
	RepositoryAWS    = "aws"
)

// Cache backends.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config is the root configuration.
type Config struct {
	// Originator tags errors raised by the store.
	Originator string           `koanf:"originator"`
	Logging    LoggingConfig    `koanf:"logging"`
	Repository RepositoryConfig `koanf:"repository"`
	Cache      CacheConfig      `koanf:"cache"`
}

// LoggingConfig controls the process logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`  // debug | info | warn | error
	Format string `koanf:"format"` // text | json
}

// RepositoryConfig selects and configures the durable backend.
type RepositoryConfig struct {
	Backend string       `koanf:"backend"`
	SQLite  SQLiteConfig `koanf:"sqlite"`
	AWS     AWSConfig    `koanf:"aws"`
}

// SQLiteConfig configures the SQL repository.
type SQLiteConfig struct {
	// DSN is a local SQLite file or a libsql:// URL.
	DSN      string `koanf:"dsn"`
	ReadOnly bool   `koanf:"read_only"`
}

// AWSConfig configures the Secrets Manager repository.
type AWSConfig struct {
	Region      string `koanf:"region"`
	Endpoint    string `koanf:"endpoint"`
	MaxAttempts int    `koanf:"max_attempts"`
	KMSKeyID    string `koanf:"kms_key_id"`
	Anonymous   bool   `koanf:"anonymous"`
}

// CacheConfig selects and configures the cache.
type CacheConfig struct {
	Backend string            `koanf:"backend"`
	Memory  MemoryCacheConfig `koanf:"memory"`
	Redis   RedisCacheConfig  `koanf:"redis"`
}

// MemoryCacheConfig configures the in-process cache.
type MemoryCacheConfig struct {
	TTL     time.Duration `koanf:"ttl"`
	MaxSize int           `koanf:"max_size"`
}

// RedisCacheConfig configures the redis cache.
type RedisCacheConfig struct {
	Addrs      []string      `koanf:"addrs"`
	MasterName string        `koanf:"master_name"`
	Username   string        `koanf:"username"`
	Password   string        `koanf:"password"`
	DB         int           `koanf:"db"`
	KeyPrefix  string        `koanf:"key_prefix"`
	TTL        time.Duration `koanf:"ttl"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Originator: "SecretStore",
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Repository: RepositoryConfig{
			Backend: RepositorySQLite,
			SQLite: SQLiteConfig{
				DSN: "file:secrets.db",
			},
		},
		Cache: CacheConfig{
			Backend: CacheMemory,
			Memory: MemoryCacheConfig{
				TTL: 5 * time.Minute,
			},
			Redis: RedisCacheConfig{
				Addrs: []string{"localhost:6379"},
			},
		},
	}
}

// Load reads configuration from the TOML file at path, if path is not empty, and from
// SECRETSTORE_ environment variables, on top of Default. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, storeerrors.WrapWithContext(err, storeerrors.CodeInvalidConfig,
				"failed to load config file", map[string]any{"path": path})
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, storeerrors.Wrap(err, storeerrors.CodeInvalidConfig,
			"failed to load environment variables")
	}

	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			TagName:          "koanf",
			WeaklyTypedInput: true,
			Result:           cfg,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	}); err != nil {
		return nil, storeerrors.Wrap(err, storeerrors.CodeInvalidConfig, "failed to unmarshal config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// envKey maps SECRETSTORE_CACHE_REDIS_KEY__PREFIX to cache.redis.key_prefix.
func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "__", "%UNDERSCORE%")
	s = strings.ReplaceAll(s, "_", ".")
	return strings.ReplaceAll(s, "%UNDERSCORE%", "_")
}

// Validate reports every invalid setting in a single error.
func (c *Config) Validate() error {
	var problems []string

	if _, err := c.Logging.SlogLevel(); err != nil {
		problems = append(problems, err.Error())
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format: unsupported format %q", c.Logging.Format))
	}

	switch c.Repository.Backend {
	case RepositoryMemory:
	case RepositorySQLite:
		if c.Repository.SQLite.DSN == "" {
			problems = append(problems, "repository.sqlite.dsn: required for the sqlite backend")
		}
	case RepositoryAWS:
		if c.Repository.AWS.MaxAttempts < 0 {
			problems = append(problems, "repository.aws.max_attempts: cannot be negative")
		}
		if c.Repository.AWS.MaxAttempts > MaxAWSAttempts {
			problems = append(problems, fmt.Sprintf("repository.aws.max_attempts: cannot exceed %d", MaxAWSAttempts))
		}
	default:
		problems = append(problems, fmt.Sprintf("repository.backend: unknown backend %q", c.Repository.Backend))
	}

	switch c.Cache.Backend {
	case CacheNone:
	case CacheMemory:
		if c.Cache.Memory.TTL < 0 {
			problems = append(problems, "cache.memory.ttl: cannot be negative")
		}
		if c.Cache.Memory.MaxSize < 0 {
			problems = append(problems, "cache.memory.max_size: cannot be negative")
		}
	case CacheRedis:
		if len(c.Cache.Redis.Addrs) == 0 {
			problems = append(problems, "cache.redis.addrs: at least one address is required")
		}
		if c.Cache.Redis.TTL < 0 {
			problems = append(problems, "cache.redis.ttl: cannot be negative")
		}
	default:
		problems = append(problems, fmt.Sprintf("cache.backend: unknown backend %q", c.Cache.Backend))
	}

	if len(problems) > 0 {
		return storeerrors.New(storeerrors.CodeInvalidConfig,
			"configuration validation failed: "+strings.Join(problems, "; "))
	}
	return nil
}

// SlogLevel parses Level.
func (l LoggingConfig) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("logging.level: unsupported level %q", l.Level)
	}
}
