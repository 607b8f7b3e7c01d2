package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Configuration is the complete process configuration, loaded from a
// YAML file and then overridden by the environment variables named in
// the external interfaces list.
type Configuration struct {
	Global     GlobalConfig     `yaml:"global"`
	Storage    StorageConfig    `yaml:"storage"`
	DB         DBConfig         `yaml:"db"`
	Cache      CacheConfig      `yaml:"cache"`
	NATS       NATSConfig       `yaml:"nats"`
	Audit      AuditConfig      `yaml:"audit"`
	Trash      TrashConfig      `yaml:"trash"`
	Network    NetworkConfig    `yaml:"network"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
}

// GlobalConfig holds process-wide settings.
type GlobalConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	LogLevel   string `yaml:"log_level"`
	LogJSON    bool   `yaml:"log_json"`
}

// StorageConfig selects and configures the blob store driver.
type StorageConfig struct {
	Driver       string `yaml:"driver"` // "local" or "s3"
	UploadDir    string `yaml:"upload_dir"`
	StorageLimit int64  `yaml:"storage_limit"` // per-user default quota, bytes
	S3           S3Config `yaml:"s3"`
}

// S3Config configures the S3 blob driver (aws-sdk-go-v2).
type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"` // non-empty for S3-compatible services
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	ForcePathStyle  bool   `yaml:"force_path_style"`
}

// DBConfig configures the pgx connection pool backing internal/dbstore.
type DBConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	Name         string `yaml:"name"`
	SSLMode      string `yaml:"ssl_mode"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// DSN renders the standard libpq connection string pgx accepts.
func (d DBConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// CacheConfig configures the L1 in-process cache and L2 Redis cache.
type CacheConfig struct {
	Host          string        `yaml:"host"`
	Port          int           `yaml:"port"`
	DB            int           `yaml:"db"`
	Password      string        `yaml:"password"`
	TTL           time.Duration `yaml:"ttl"`
	L1MaxEntries  int           `yaml:"l1_max_entries"`
}

// Addr renders host:port for the redis client.
func (c CacheConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NATSConfig configures the audit event producer.
type NATSConfig struct {
	URL string `yaml:"url"`
}

// AuditConfig configures the audit job consumer (internal/events).
type AuditConfig struct {
	JobTTLSeconds     int `yaml:"job_ttl_seconds"`
	WorkerConcurrency int `yaml:"worker_concurrency"`
}

// TrashConfig configures the trash-expiry background job.
type TrashConfig struct {
	RetentionDays int `yaml:"retention_days"`
}

// NetworkConfig configures the retry and circuit-breaker settings of the
// blob backend wrapper; the cache and audit-queue clients do not read it.
type NetworkConfig struct {
	Retry          RetryConfig          `yaml:"retry"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// RetryConfig mirrors pkg/retry.Config for YAML/env loading.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
}

// CircuitBreakerConfig mirrors internal/circuit.Config for YAML/env loading.
type CircuitBreakerConfig struct {
	Enabled          bool          `yaml:"enabled"`
	FailureThreshold int           `yaml:"failure_threshold"`
	Timeout          time.Duration `yaml:"timeout"`
}

// MonitoringConfig toggles metrics collection.
type MonitoringConfig struct {
	MetricsEnabled bool `yaml:"metrics_enabled"`
}

// NewDefault returns a configuration with sensible defaults for local
// development (local blob driver, trash retention per spec §9).
func NewDefault() *Configuration {
	return &Configuration{
		Global: GlobalConfig{
			ListenAddr: ":8080",
			LogLevel:   "INFO",
			LogJSON:    true,
		},
		Storage: StorageConfig{
			Driver:       "local",
			UploadDir:    "/var/lib/corestore/uploads",
			StorageLimit: 5 * 1024 * 1024 * 1024, // 5GB
		},
		DB: DBConfig{
			Host:         "localhost",
			Port:         5432,
			User:         "corestore",
			Name:         "corestore",
			SSLMode:      "disable",
			MaxOpenConns: 20,
		},
		Cache: CacheConfig{
			Host:         "localhost",
			Port:         6379,
			TTL:          5 * time.Minute,
			L1MaxEntries: 50000,
		},
		NATS: NATSConfig{
			URL: "nats://localhost:4222",
		},
		Audit: AuditConfig{
			JobTTLSeconds:     60,
			WorkerConcurrency: 4,
		},
		Trash: TrashConfig{
			RetentionDays: 15,
		},
		Network: NetworkConfig{
			Retry: RetryConfig{
				MaxAttempts: 3,
				BaseDelay:   60 * time.Second,
				MaxDelay:    4 * time.Minute,
			},
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:          true,
				FailureThreshold: 5,
				Timeout:          60 * time.Second,
			},
		},
		Monitoring: MonitoringConfig{
			MetricsEnabled: true,
		},
	}
}

// LoadFromFile loads configuration from a YAML file, overlaying onto
// whatever defaults c already holds.
func (c *Configuration) LoadFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

// LoadFromEnv overlays configuration from the environment variables
// named in the engine's external interfaces list.
func (c *Configuration) LoadFromEnv() error {
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Global.LogLevel = val
	}
	if val := os.Getenv("LISTEN_ADDR"); val != "" {
		c.Global.ListenAddr = val
	}

	if val := os.Getenv("STORAGE_DRIVER"); val != "" {
		c.Storage.Driver = val
	}
	if val := os.Getenv("UPLOAD_DIR"); val != "" {
		c.Storage.UploadDir = val
	}
	if val := os.Getenv("STORAGE_LIMIT"); val != "" {
		if limit, err := strconv.ParseInt(val, 10, 64); err == nil {
			c.Storage.StorageLimit = limit
		}
	}
	if val := os.Getenv("S3_BUCKET"); val != "" {
		c.Storage.S3.Bucket = val
	}
	if val := os.Getenv("S3_REGION"); val != "" {
		c.Storage.S3.Region = val
	}
	if val := os.Getenv("S3_ENDPOINT"); val != "" {
		c.Storage.S3.Endpoint = val
	}
	if val := os.Getenv("S3_ACCESS_KEY_ID"); val != "" {
		c.Storage.S3.AccessKeyID = val
	}
	if val := os.Getenv("S3_SECRET_ACCESS_KEY"); val != "" {
		c.Storage.S3.SecretAccessKey = val
	}
	if val := os.Getenv("S3_FORCE_PATH_STYLE"); val != "" {
		c.Storage.S3.ForcePathStyle = strings.EqualFold(val, "true")
	}

	if val := os.Getenv("DB_HOST"); val != "" {
		c.DB.Host = val
	}
	if val := os.Getenv("DB_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			c.DB.Port = port
		}
	}
	if val := os.Getenv("DB_USER"); val != "" {
		c.DB.User = val
	}
	if val := os.Getenv("DB_PASSWORD"); val != "" {
		c.DB.Password = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		c.DB.Name = val
	}
	if val := os.Getenv("DB_SSLMODE"); val != "" {
		c.DB.SSLMode = val
	}

	if val := os.Getenv("CACHE_HOST"); val != "" {
		c.Cache.Host = val
	}
	if val := os.Getenv("CACHE_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			c.Cache.Port = port
		}
	}
	if val := os.Getenv("CACHE_DB"); val != "" {
		if db, err := strconv.Atoi(val); err == nil {
			c.Cache.DB = db
		}
	}
	if val := os.Getenv("CACHE_PASSWORD"); val != "" {
		c.Cache.Password = val
	}

	if val := os.Getenv("NATS_URL"); val != "" {
		c.NATS.URL = val
	}

	if val := os.Getenv("AUDIT_JOB_TTL_SECONDS"); val != "" {
		if secs, err := strconv.Atoi(val); err == nil {
			c.Audit.JobTTLSeconds = secs
		}
	}
	if val := os.Getenv("AUDIT_WORKER_CONCURRENCY"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.Audit.WorkerConcurrency = n
		}
	}

	if val := os.Getenv("TRASH_RETENTION_DAYS"); val != "" {
		if days, err := strconv.Atoi(val); err == nil {
			c.Trash.RetentionDays = days
		}
	}

	return nil
}

// SaveToFile writes the configuration out as YAML.
func (c *Configuration) SaveToFile(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(filename), 0o750); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks the configuration for obviously invalid values.
func (c *Configuration) Validate() error {
	if c.DB.MaxOpenConns <= 0 {
		return fmt.Errorf("db.max_open_conns must be greater than 0")
	}
	if c.Storage.Driver != "local" && c.Storage.Driver != "s3" {
		return fmt.Errorf("storage.driver must be \"local\" or \"s3\", got %q", c.Storage.Driver)
	}
	if c.Storage.Driver == "s3" && c.Storage.S3.Bucket == "" {
		return fmt.Errorf("storage.s3.bucket is required when storage.driver is \"s3\"")
	}
	if c.Trash.RetentionDays <= 0 {
		return fmt.Errorf("trash.retention_days must be greater than 0")
	}

	validLogLevels := []string{"DEBUG", "INFO", "WARN", "ERROR"}
	valid := false
	for _, level := range validLogLevels {
		if c.Global.LogLevel == level {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid log_level: %s (must be one of: %s)",
			c.Global.LogLevel, strings.Join(validLogLevels, ", "))
	}

	return nil
}
