package storage

import (
	"context"
	"fmt"
	"log/slog"

	"clipto/internal/config"
	"clipto/internal/services"
)

// Store adds content and resolves public URLs for it.
type Store interface {
	// Add stores body and returns its content path.
	Add(ctx context.Context, name string, body []byte) (string, error)
	// URL returns a fetchable URL for a path returned by Add.
	URL(ctx context.Context, path string) (string, error)
	Name() string
}

// New returns the store selected by cfg.Storage.Backend.
func New(cfg *config.Config, logger *slog.Logger) (Store, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "storage", "init", "config is nil", nil)
	}
	switch cfg.Storage.Backend {
	case "ipfs", "":
		return NewIPFS(cfg, logger), nil
	case "minio":
		return NewMinio(cfg, logger)
	default:
		return nil, services.Wrap(services.ErrConfiguration, "storage", "init", fmt.Sprintf("unsupported backend %q", cfg.Storage.Backend), nil)
	}
}
