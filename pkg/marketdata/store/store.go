// Package store persists price series as Parquet files and summarizes them.
package store

import (
	"context"

	"github.com/ErenCAkpinar/quant-stock-fetcher/internal/types"
	"github.com/ErenCAkpinar/quant-stock-fetcher/pkg/errors"
)

// Store saves and loads whole price series at a file path.
type Store interface {
	// Save writes series to path, creating the parent directory and replacing any existing file.
	// A failed save leaves no file at path.
	Save(ctx context.Context, series types.PriceSeries, path string) error
	// Load reads a file written by Save. No normalization is applied.
	Load(ctx context.Context, path string) (types.PriceSeries, error)
	// Exists reports whether a file is present at path.
	Exists(path string) (bool, error)
}

// Compression is the Parquet codec used by Save.
type Compression string

const (
	CompressionSnappy       Compression = "snappy"
	CompressionZstd         Compression = "zstd"
	CompressionGzip         Compression = "gzip"
	CompressionUncompressed Compression = "uncompressed"
)

// DefaultCompression is used when no codec is configured.
const DefaultCompression = CompressionSnappy

// ParseCompression validates a codec name. An empty name selects DefaultCompression.
func ParseCompression(name string) (Compression, error) {
	switch Compression(name) {
	case "":
		return DefaultCompression, nil
	case CompressionSnappy, CompressionZstd, CompressionGzip, CompressionUncompressed:
		return Compression(name), nil
	default:
		return "", errors.Newf(errors.ErrCodeInvalidParameter, "unsupported compression %q, expected snappy, zstd, gzip or uncompressed", name)
	}
}
