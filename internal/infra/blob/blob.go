// Package blob selects and re-exports figure blob storage backends.
package blob

import (
	"context"
	"fmt"

	"fieldplot/internal/config"
	"fieldplot/internal/infra/blob/core"
	"fieldplot/internal/infra/blob/fs"
	"fieldplot/internal/infra/blob/memory"
	"fieldplot/internal/infra/blob/s3"
)

type (
	// Driver identifies a blob backend driver.
	Driver = core.Driver
	// PutOptions configures a blob write.
	PutOptions = core.PutOptions
	// SignedURLOptions configures URL pre-signing.
	SignedURLOptions = core.SignedURLOptions
	// Info describes stored blob metadata.
	Info = core.Info
	// Store is the interface for blob storage backends.
	Store = core.Store
	// S3Config holds explicit S3 construction parameters.
	S3Config = s3.Config
)

const (
	// DriverFilesystem is the local filesystem driver.
	DriverFilesystem = core.DriverFilesystem
	// DriverS3 is the S3-compatible driver.
	DriverS3 = core.DriverS3
	// DriverMemory is the in-memory test driver.
	DriverMemory = core.DriverMemory
)

// ErrUnsupported indicates an operation isn't supported by a driver.
var ErrUnsupported = core.ErrUnsupported

// NewFilesystem constructs a filesystem-backed Store rooted at the provided path.
func NewFilesystem(root string) (Store, error) { return fs.New(root) }

// NewMemory returns an in-memory Store suitable for tests.
func NewMemory() Store { return memory.New() }

// NewS3 constructs an S3-backed Store from the provided configuration.
func NewS3(ctx context.Context, cfg S3Config) (Store, error) { return s3.New(ctx, cfg) }

// NewMockS3ForTests exposes the lightweight in-memory S3 mock for cross-package tests.
func NewMockS3ForTests() Store { return s3.NewMockForTests() }

// Open selects a Store implementation from the FIELDPLOT_* environment
// (see internal/config). Defaults to the filesystem driver.
func Open(ctx context.Context) (Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return OpenWith(ctx, cfg)
}

// OpenWith selects a Store implementation from an already loaded Config.
func OpenWith(ctx context.Context, cfg *config.Config) (Store, error) {
	switch Driver(cfg.BlobDriver) {
	case DriverFilesystem:
		return NewFilesystem(cfg.BlobFSRoot)
	case DriverS3:
		return NewS3(ctx, S3Config{
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			Endpoint:  cfg.S3Endpoint,
			PathStyle: cfg.S3PathStyle,
		})
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", cfg.BlobDriver)
	}
}
