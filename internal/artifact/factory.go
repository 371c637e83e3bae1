package artifact

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// StoreType selects the artifact storage backend.
type StoreType string

const (
	StoreTypeFS StoreType = "fs"
	StoreTypeS3 StoreType = "s3"
)

// Config selects and configures a backend.
type Config struct {
	Type StoreType `mapstructure:"type"`
	// Dir is the parent of per-run directories for the fs backend.
	Dir string   `mapstructure:"dir"`
	S3  S3Config `mapstructure:"s3"`
}

// NewStore returns the store for one run. Each run gets its own directory
// (fs) or key prefix (s3) named after runID.
func NewStore(ctx context.Context, cfg Config, runID string) (Store, error) {
	if runID == "" {
		return nil, fmt.Errorf("run id is required")
	}
	switch cfg.Type {
	case "", StoreTypeFS:
		dir := cfg.Dir
		if dir == "" {
			dir = "runs"
		}
		return NewFileStore(filepath.Join(dir, runID))
	case StoreTypeS3:
		s3cfg := cfg.S3
		if s3cfg.Bucket == "" {
			return nil, fmt.Errorf("storage.s3.bucket is required for s3 storage")
		}
		if s3cfg.Region == "" {
			s3cfg.Region = "us-east-1"
		}
		s3cfg.Prefix = path.Join(s3cfg.Prefix, runID)
		return NewS3Store(ctx, s3cfg)
	default:
		return nil, fmt.Errorf("unsupported artifact storage type: %s", cfg.Type)
	}
}

// Open returns the store at an existing run location: an s3://bucket/prefix
// URL or a local directory. s3 supplies region and endpoint for S3 URLs.
// A run always lives under its own key prefix, so a bare bucket is rejected.
func Open(ctx context.Context, location string, s3 S3Config) (Store, error) {
	if rest, ok := strings.CutPrefix(location, "s3://"); ok {
		bucket, prefix, _ := strings.Cut(rest, "/")
		prefix = strings.Trim(prefix, "/")
		if bucket == "" {
			return nil, fmt.Errorf("invalid s3 location %q", location)
		}
		if prefix == "" {
			return nil, fmt.Errorf("invalid s3 location %q: run key prefix is required", location)
		}
		s3.Bucket = bucket
		s3.Prefix = prefix
		if s3.Region == "" {
			s3.Region = "us-east-1"
		}
		return NewS3Store(ctx, s3)
	}
	return OpenFileStore(location)
}
