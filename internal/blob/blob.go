// Package blob stores generated artifacts (uploaded sequence files, exported
// CSVs) behind a small driver-selectable interface.
package blob

import (
	"context"
	"fmt"
	"io"
)

// Driver identifies a blob backend.
type Driver string

const (
	DriverFilesystem Driver = "fs"
	DriverS3         Driver = "s3"
	DriverMemory     Driver = "memory"
)

// Store is the minimal artifact-storage surface the service needs. Puts
// overwrite: exports are regenerated per request.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)
	Driver() Driver
}

// Config selects and parameterizes a driver.
type Config struct {
	Driver    Driver
	Root      string // fs: directory root
	Bucket    string // s3
	Region    string // s3
	Endpoint  string // s3, optional (MinIO)
	PathStyle bool   // s3
}

// Open constructs a blob store from config.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case DriverFilesystem, "":
		return NewFilesystem(cfg.Root)
	case DriverS3:
		return NewS3(ctx, cfg)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.Driver)
	}
}
