// Package config provides configuration management for the application.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"objcache/internal/logging"
)

// Config holds the application configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Cache   CacheConfig   `yaml:"cache"`
	Export  ExportConfig  `yaml:"export"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LogConfig     `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string `yaml:"port"`

	// MasterKey enables bearer authentication when set
	MasterKey string `yaml:"master_key"`

	// BodySizeLimit caps request bodies, e.g. "10M" or "512K" (default: 10M)
	BodySizeLimit string `yaml:"body_size_limit"`
}

// CacheConfig holds cache registry configuration
type CacheConfig struct {
	// Model names the object type held by the registry (default: documents)
	Model string `yaml:"model"`

	// Tenants are created empty, or imported, at startup
	Tenants []string `yaml:"tenants"`

	// IndexPaths are gjson paths whose values become secondary index keys
	IndexPaths []string `yaml:"index_paths"`

	// Workers bounds parallel entry construction (default: GOMAXPROCS)
	Workers int `yaml:"workers"`
}

// ExportConfig holds cache export configuration
type ExportConfig struct {
	// Type is "", "local", "redis", "bolt", "sqlite", "postgresql" or "mongodb".
	// Empty disables export.
	Type string `yaml:"type"`

	// Compress brotli-compresses exports
	Compress bool `yaml:"compress"`

	// Interval is the periodic export interval in seconds (0: only on shutdown)
	Interval int `yaml:"interval"`

	Local      LocalExportConfig      `yaml:"local"`
	Redis      RedisExportConfig      `yaml:"redis"`
	Bolt       BoltExportConfig       `yaml:"bolt"`
	SQLite     SQLiteExportConfig     `yaml:"sqlite"`
	PostgreSQL PostgreSQLExportConfig `yaml:"postgresql"`
	MongoDB    MongoDBExportConfig    `yaml:"mongodb"`
}

// LocalExportConfig holds file export configuration
type LocalExportConfig struct {
	Dir string `yaml:"dir"`
}

// RedisExportConfig holds Redis export configuration
type RedisExportConfig struct {
	URL       string `yaml:"url"`
	KeyPrefix string `yaml:"key_prefix"`

	// TTL in seconds (0: backend default)
	TTL int `yaml:"ttl"`
}

// BoltExportConfig holds bbolt export configuration
type BoltExportConfig struct {
	Path   string `yaml:"path"`
	Bucket string `yaml:"bucket"`
}

// SQLiteExportConfig holds SQLite export configuration
type SQLiteExportConfig struct {
	Path string `yaml:"path"`
}

// PostgreSQLExportConfig holds PostgreSQL export configuration
type PostgreSQLExportConfig struct {
	URL      string `yaml:"url"`
	MaxConns int    `yaml:"max_conns"`
}

// MongoDBExportConfig holds MongoDB export configuration
type MongoDBExportConfig struct {
	URL      string `yaml:"url"`
	Database string `yaml:"database"`
}

// MetricsConfig holds Prometheus metrics configuration
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Valid export types
var exportTypes = map[string]bool{
	"": true, "local": true, "redis": true, "bolt": true,
	"sqlite": true, "postgresql": true, "mongodb": true,
}

// configPaths are searched in order; the first existing file wins.
var configPaths = []string{"config/config.yaml", "config.yaml"}

// Load reads configuration from .env, config.yaml and the environment.
// Precedence, highest first: environment, config.yaml, defaults.
func Load() (*Config, error) {
	// Optional, won't fail if not found
	_ = godotenv.Load()

	cfg := buildDefaultConfig()

	if err := loadConfigFile(cfg); err != nil {
		return nil, err
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func buildDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:          "8080",
			BodySizeLimit: "10M",
		},
		Cache: CacheConfig{
			Model:   "documents",
			Workers: runtime.GOMAXPROCS(0),
		},
		Export: ExportConfig{
			Bolt: BoltExportConfig{
				Path:   "data/objcache.db",
				Bucket: "exports",
			},
			SQLite: SQLiteExportConfig{
				Path: "data/objcache.sqlite",
			},
			PostgreSQL: PostgreSQLExportConfig{
				MaxConns: 10,
			},
			MongoDB: MongoDBExportConfig{
				Database: "objcache",
			},
		},
		Metrics: MetricsConfig{
			Enabled:  true,
			Endpoint: "/metrics",
		},
		Logging: LogConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

func loadConfigFile(cfg *Config) error {
	for _, path := range configPaths {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		if err := yaml.Unmarshal([]byte(expandString(string(data))), cfg); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
		return nil
	}
	return nil
}

var placeholder = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// expandString resolves ${VAR} and ${VAR:-default}.
// A placeholder with no value and no default is left as written.
func expandString(s string) string {
	return placeholder.ReplaceAllStringFunc(s, func(match string) string {
		parts := placeholder.FindStringSubmatch(match)
		if v := os.Getenv(parts[1]); v != "" {
			return v
		}
		if parts[2] != "" {
			return parts[3]
		}
		return match
	})
}

// applyEnvOverrides applies flat environment variables on top of cfg.
func applyEnvOverrides(cfg *Config) error {
	setString("PORT", &cfg.Server.Port)
	setString("OBJCACHE_MASTER_KEY", &cfg.Server.MasterKey)
	setString("BODY_SIZE_LIMIT", &cfg.Server.BodySizeLimit)

	setString("CACHE_MODEL", &cfg.Cache.Model)
	setList("CACHE_TENANTS", &cfg.Cache.Tenants)
	setList("CACHE_INDEX_PATHS", &cfg.Cache.IndexPaths)
	if err := setInt("CACHE_WORKERS", &cfg.Cache.Workers); err != nil {
		return err
	}

	setString("EXPORT_TYPE", &cfg.Export.Type)
	if err := setBool("EXPORT_COMPRESS", &cfg.Export.Compress); err != nil {
		return err
	}
	if err := setInt("EXPORT_INTERVAL", &cfg.Export.Interval); err != nil {
		return err
	}
	setString("EXPORT_LOCAL_DIR", &cfg.Export.Local.Dir)
	setString("REDIS_URL", &cfg.Export.Redis.URL)
	setString("REDIS_KEY_PREFIX", &cfg.Export.Redis.KeyPrefix)
	if err := setInt("REDIS_TTL", &cfg.Export.Redis.TTL); err != nil {
		return err
	}
	setString("BOLT_PATH", &cfg.Export.Bolt.Path)
	setString("BOLT_BUCKET", &cfg.Export.Bolt.Bucket)
	setString("SQLITE_PATH", &cfg.Export.SQLite.Path)
	setString("POSTGRES_URL", &cfg.Export.PostgreSQL.URL)
	if err := setInt("POSTGRES_MAX_CONNS", &cfg.Export.PostgreSQL.MaxConns); err != nil {
		return err
	}
	setString("MONGODB_URL", &cfg.Export.MongoDB.URL)
	setString("MONGODB_DATABASE", &cfg.Export.MongoDB.Database)

	if err := setBool("METRICS_ENABLED", &cfg.Metrics.Enabled); err != nil {
		return err
	}
	setString("METRICS_ENDPOINT", &cfg.Metrics.Endpoint)

	setString("LOG_LEVEL", &cfg.Logging.Level)
	setString("LOG_FORMAT", &cfg.Logging.Format)
	return nil
}

func setString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setList(key string, dst *[]string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	*dst = out
}

func setInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = n
	return nil
}

func setBool(key string, dst *bool) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = b
	return nil
}

// Validate checks the configuration for unusable values.
func (c *Config) Validate() error {
	if err := ValidateBodySizeLimit(c.Server.BodySizeLimit); err != nil {
		return err
	}
	if strings.TrimSpace(c.Cache.Model) == "" {
		return errors.New("cache model must not be empty")
	}
	if c.Cache.Workers < 0 {
		return fmt.Errorf("cache workers must not be negative, got %d", c.Cache.Workers)
	}

	if !exportTypes[c.Export.Type] {
		return fmt.Errorf("unknown export type: %s (valid: local, redis, bolt, sqlite, postgresql, mongodb)", c.Export.Type)
	}
	switch c.Export.Type {
	case "local":
		if c.Export.Local.Dir == "" {
			return errors.New("EXPORT_LOCAL_DIR is required for local export")
		}
	case "redis":
		if c.Export.Redis.URL == "" {
			return errors.New("REDIS_URL is required for redis export")
		}
	case "bolt":
		if c.Export.Bolt.Path == "" {
			return errors.New("BOLT_PATH is required for bolt export")
		}
	case "sqlite":
		if c.Export.SQLite.Path == "" {
			return errors.New("SQLITE_PATH is required for sqlite export")
		}
	case "postgresql":
		if c.Export.PostgreSQL.URL == "" {
			return errors.New("POSTGRES_URL is required for postgresql export")
		}
	case "mongodb":
		if c.Export.MongoDB.URL == "" {
			return errors.New("MONGODB_URL is required for mongodb export")
		}
	}
	if c.Export.Interval < 0 {
		return fmt.Errorf("export interval must not be negative, got %d", c.Export.Interval)
	}
	if c.Export.Redis.TTL < 0 {
		return fmt.Errorf("redis ttl must not be negative, got %d", c.Export.Redis.TTL)
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Endpoint, "/") {
		return fmt.Errorf("metrics endpoint must start with '/', got %q", c.Metrics.Endpoint)
	}

	return logging.Options{Level: c.Logging.Level, Format: c.Logging.Format}.Validate()
}

const (
	minBodySize = 1 << 10
	maxBodySize = 100 << 20
)

var bodySizePattern = regexp.MustCompile(`^(\d+)([KkMm][Bb]?)?$`)

// ValidateBodySizeLimit checks a limit such as "10M" lies within 1KB..100MB.
// An empty limit is valid and means the default.
func ValidateBodySizeLimit(limit string) error {
	limit = strings.TrimSpace(limit)
	if limit == "" {
		return nil
	}
	m := bodySizePattern.FindStringSubmatch(limit)
	if m == nil {
		return fmt.Errorf("invalid body size limit %q (use e.g. 512K or 10M)", limit)
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid body size limit %q: %w", limit, err)
	}
	switch strings.ToUpper(m[2]) {
	case "K", "KB":
		n <<= 10
	case "M", "MB":
		n <<= 20
	}
	if n < minBodySize || n > maxBodySize {
		return fmt.Errorf("body size limit %q must be between 1K and 100M", limit)
	}
	return nil
}
