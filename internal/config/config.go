// Package config aggregates the FIELDPLOT_* environment variables into a
// validated settings struct.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	StorageDriver string
	SQLitePath    string
	PostgresDSN   string

	BlobDriver  string
	BlobFSRoot  string
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3PathStyle bool

	DefaultStyle     string
	ExportQueueDepth int
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	cfg := &Config{
		StorageDriver: envOrDefault("FIELDPLOT_STORAGE_DRIVER", "sqlite"),
		SQLitePath:    envOrDefault("FIELDPLOT_SQLITE_PATH", "fieldplot.db"),
		PostgresDSN:   os.Getenv("FIELDPLOT_POSTGRES_DSN"),

		BlobDriver:  envOrDefault("FIELDPLOT_BLOB_DRIVER", "fs"),
		BlobFSRoot:  envOrDefault("FIELDPLOT_BLOB_FS_ROOT", "./figures"),
		S3Bucket:    os.Getenv("FIELDPLOT_BLOB_S3_BUCKET"),
		S3Region:    os.Getenv("FIELDPLOT_BLOB_S3_REGION"),
		S3Endpoint:  os.Getenv("FIELDPLOT_BLOB_S3_ENDPOINT"),
		S3PathStyle: os.Getenv("FIELDPLOT_BLOB_S3_PATH_STYLE") == "true",

		DefaultStyle: envOrDefault("FIELDPLOT_DEFAULT_STYLE", "classic"),
	}

	depth := envOrDefault("FIELDPLOT_EXPORT_QUEUE_DEPTH", "32")
	n, err := strconv.Atoi(depth)
	if err != nil || n < 1 {
		return nil, fmt.Errorf("FIELDPLOT_EXPORT_QUEUE_DEPTH must be a positive integer, got %q", depth)
	}
	cfg.ExportQueueDepth = n

	switch cfg.StorageDriver {
	case "memory", "sqlite", "postgres":
	default:
		return nil, fmt.Errorf("unknown FIELDPLOT_STORAGE_DRIVER %q", cfg.StorageDriver)
	}
	switch cfg.BlobDriver {
	case "fs", "s3", "memory":
	default:
		return nil, fmt.Errorf("unknown FIELDPLOT_BLOB_DRIVER %q", cfg.BlobDriver)
	}
	if cfg.BlobDriver == "s3" && cfg.S3Bucket == "" {
		return nil, fmt.Errorf("FIELDPLOT_BLOB_S3_BUCKET is required when the blob driver is s3")
	}
	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
