package assets

import (
	"context"
	"fmt"
)

type Config struct {
	Backend      string // local | minio | gcs
	UploadsDir   string
	PublicPrefix string
	MaxWidth     uint

	Minio          MinioConfig
	MinioPublicURL string
	GCS            GCSConfig
	GCSPublicURL   string
}

// Open builds the configured backend and a Manager on top of it. The returned
// close func releases backend clients.
func Open(ctx context.Context, cfg Config) (*Manager, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case "", "local":
		b, err := NewLocalBackend(cfg.UploadsDir)
		if err != nil {
			return nil, nil, err
		}
		return NewManager(b, cfg.PublicPrefix, cfg.MaxWidth), noop, nil

	case "minio":
		b, err := NewMinioBackend(cfg.Minio)
		if err != nil {
			return nil, nil, err
		}
		if err := b.EnsureBucket(ctx); err != nil {
			return nil, nil, fmt.Errorf("minio bucket: %w", err)
		}
		return NewManager(b, cfg.MinioPublicURL, cfg.MaxWidth), noop, nil

	case "gcs":
		b, err := NewGCSBackend(ctx, cfg.GCS)
		if err != nil {
			return nil, nil, err
		}
		if err := b.EnsureBucket(ctx); err != nil {
			_ = b.Close()
			return nil, nil, fmt.Errorf("gcs bucket: %w", err)
		}
		return NewManager(b, cfg.GCSPublicURL, cfg.MaxWidth), b.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown asset backend %q", cfg.Backend)
}
