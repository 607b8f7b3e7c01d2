package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefault(t *testing.T) {
	cfg := NewDefault()

	assert.Equal(t, "INFO", cfg.Global.LogLevel)
	assert.Equal(t, "local", cfg.Storage.Driver)
	assert.Equal(t, int64(5*1024*1024*1024), cfg.Storage.StorageLimit)
	assert.Equal(t, 20, cfg.DB.MaxOpenConns)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 15, cfg.Trash.RetentionDays)
	assert.Equal(t, 3, cfg.Network.Retry.MaxAttempts)
}

func TestDSNFormatsConnectionString(t *testing.T) {
	db := DBConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "corestore", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=corestore sslmode=disable", db.DSN())
}

func TestCacheAddr(t *testing.T) {
	c := CacheConfig{Host: "redis", Port: 6379}
	assert.Equal(t, "redis:6379", c.Addr())
}

func TestLoadFromEnvOverridesDefaults(t *testing.T) {
	env := map[string]string{
		"STORAGE_DRIVER":           "s3",
		"UPLOAD_DIR":               "/data/uploads",
		"STORAGE_LIMIT":            "1073741824",
		"S3_BUCKET":                "user-files",
		"DB_HOST":                  "db.internal",
		"DB_PORT":                  "5433",
		"CACHE_HOST":               "cache.internal",
		"NATS_URL":                 "nats://queue:4222",
		"AUDIT_JOB_TTL_SECONDS":    "90",
		"AUDIT_WORKER_CONCURRENCY": "8",
		"TRASH_RETENTION_DAYS":     "30",
	}
	for k, v := range env {
		t.Setenv(k, v)
	}

	cfg := NewDefault()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "s3", cfg.Storage.Driver)
	assert.Equal(t, "/data/uploads", cfg.Storage.UploadDir)
	assert.Equal(t, int64(1073741824), cfg.Storage.StorageLimit)
	assert.Equal(t, "user-files", cfg.Storage.S3.Bucket)
	assert.Equal(t, "db.internal", cfg.DB.Host)
	assert.Equal(t, 5433, cfg.DB.Port)
	assert.Equal(t, "cache.internal", cfg.Cache.Host)
	assert.Equal(t, "nats://queue:4222", cfg.NATS.URL)
	assert.Equal(t, 90, cfg.Audit.JobTTLSeconds)
	assert.Equal(t, 8, cfg.Audit.WorkerConcurrency)
	assert.Equal(t, 30, cfg.Trash.RetentionDays)
}

func TestLoadFromEnvLeavesUnsetFieldsAlone(t *testing.T) {
	cfg := NewDefault()
	original := cfg.DB.Host
	require.NoError(t, cfg.LoadFromEnv())
	assert.Equal(t, original, cfg.DB.Host)
}

func TestSaveAndLoadFromFileRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	cfg := NewDefault()
	cfg.DB.Name = "custom_db"
	require.NoError(t, cfg.SaveToFile(path))

	_, err := os.Stat(path)
	require.NoError(t, err)

	loaded := &Configuration{}
	require.NoError(t, loaded.LoadFromFile(path))
	assert.Equal(t, "custom_db", loaded.DB.Name)
}

func TestValidateRejectsInvalidStorageDriver(t *testing.T) {
	cfg := NewDefault()
	cfg.Storage.Driver = "ftp"
	assert.Error(t, cfg.Validate())
}

func TestValidateRequiresS3BucketForS3Driver(t *testing.T) {
	cfg := NewDefault()
	cfg.Storage.Driver = "s3"
	assert.Error(t, cfg.Validate())

	cfg.Storage.S3.Bucket = "bucket"
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsInvalidLogLevel(t *testing.T) {
	cfg := NewDefault()
	cfg.Global.LogLevel = "TRACE"
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsZeroRetentionDays(t *testing.T) {
	cfg := NewDefault()
	cfg.Trash.RetentionDays = 0
	assert.Error(t, cfg.Validate())
}
