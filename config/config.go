package config

import (
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

var (
	appOnce   sync.Once
	appConfig *AppConfig
)

// AppConfig holds process-level settings resolved from the environment.
type AppConfig struct {
	// DataDir is the root under which dataset/, images/ and output/ live.
	DataDir    string
	ServerAddr string

	RedisAddr string
	RedisDB   int

	// ArchiveBackend selects where run artifacts are archived before the
	// delayed workspace cleanup: "minio" or "local".
	ArchiveBackend string
	// CleanupDelayMinutes is how long after a run finishes the workspace
	// purge task fires.
	CleanupDelayMinutes int
	// ArchiveRetentionDays bounds how long archived run artifacts are kept.
	ArchiveRetentionDays int

	// MinIO archive store for source PDFs and final CSVs.
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	// AWS credentials, only needed when the Textract engine is selected.
	AWSRegion    string
	AWSAccessKey string
	AWSSecretKey string
}

// GetAppConfig loads .env from the project root once and resolves settings,
// falling back to plain environment variables when no .env exists.
func GetAppConfig() *AppConfig {
	appOnce.Do(func() {
		_, filename, _, _ := runtime.Caller(0)
		rootDir := filepath.Dir(filepath.Dir(filename))
		envPath := filepath.Join(rootDir, ".env")

		if err := godotenv.Load(envPath); err != nil {
			log.Printf("Warning: .env file not found at %s, falling back to environment variables", envPath)
		}

		appConfig = &AppConfig{
			DataDir:              envOr("DATA_DIR", "."),
			ServerAddr:           envOr("SERVER_ADDR", ":8080"),
			RedisAddr:            envOr("REDIS_ADDR", "localhost:6379"),
			RedisDB:              envInt("REDIS_DB", 0),
			ArchiveBackend:       envOr("ARCHIVE_BACKEND", "local"),
			CleanupDelayMinutes:  envInt("CLEANUP_DELAY_MINUTES", 30),
			ArchiveRetentionDays: envInt("ARCHIVE_RETENTION_DAYS", 30),
			MinioEndpoint:        os.Getenv("MINIO_ENDPOINT"),
			MinioAccessKey:       os.Getenv("MINIO_ACCESS_KEY"),
			MinioSecretKey:       os.Getenv("MINIO_SECRET_KEY"),
			MinioBucket:          envOr("MINIO_BUCKET_NAME", "credit-documents"),
			MinioUseSSL:          os.Getenv("MINIO_USE_SSL") == "true",
			AWSRegion:            os.Getenv("AWS_REGION"),
			AWSAccessKey:         os.Getenv("AWS_ACCESS_KEY"),
			AWSSecretKey:         os.Getenv("AWS_SECRET_KEY"),
		}
	})
	return appConfig
}

// DatasetDir returns the folder PDFs are uploaded into.
func (c *AppConfig) DatasetDir() string { return filepath.Join(c.DataDir, "dataset") }

// ImagesDir returns the rasterized-page tree root.
func (c *AppConfig) ImagesDir() string { return filepath.Join(c.DataDir, "images") }

// OutputDir returns the CSV artifact tree root.
func (c *AppConfig) OutputDir() string { return filepath.Join(c.DataDir, "output") }

// ConfigDir returns the folder holding templates.json, struktur_fields.json
// and pipeline.yaml.
func (c *AppConfig) ConfigDir() string { return filepath.Join(c.DataDir, "config") }

// ArchiveDir returns the local archive root, used when ArchiveBackend is
// "local". It sits outside the purgeable workspace trees.
func (c *AppConfig) ArchiveDir() string { return filepath.Join(c.DataDir, "archive") }

// CleanupDelay returns the wait before the post-run workspace purge.
func (c *AppConfig) CleanupDelay() time.Duration {
	return time.Duration(c.CleanupDelayMinutes) * time.Minute
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("Warning: invalid %s=%q, using %d", key, v, def)
		return def
	}
	return n
}
