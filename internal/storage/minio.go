package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"mime"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"clipto/internal/config"
	"clipto/internal/logging"
	"clipto/internal/services"
)

const presignExpiry = 7 * 24 * time.Hour

// Minio stores content in a bucket under its sha256 digest.
type Minio struct {
	client  *minio.Client
	bucket  string
	gateway string
	logger  *slog.Logger

	ensureOnce sync.Once
	ensureErr  error
}

// NewMinio builds a MinIO store. The bucket is created on first use.
func NewMinio(cfg *config.Config, logger *slog.Logger) (*Minio, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	client, err := minio.New(cfg.Storage.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Storage.AccessKey, cfg.Storage.SecretKey, ""),
		Secure: cfg.Storage.UseSSL,
	})
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "storage", "minio init", "", err)
	}
	return &Minio{
		client:  client,
		bucket:  cfg.Storage.Bucket,
		gateway: strings.TrimRight(cfg.Storage.GatewayURL, "/"),
		logger:  logging.NewComponentLogger(logger, "storage"),
	}, nil
}

func (s *Minio) Name() string { return "minio" }

// ContentKey derives the object key for body: its sha256 digest plus the
// extension of name.
func ContentKey(name string, body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:]) + strings.ToLower(filepath.Ext(name))
}

func (s *Minio) ensureBucket(ctx context.Context) error {
	s.ensureOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.ensureErr = services.Wrap(services.ErrTransient, "storage", "minio bucket", "check bucket "+s.bucket, err)
			return
		}
		if exists {
			return
		}
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			s.ensureErr = services.Wrap(services.ErrTransient, "storage", "minio bucket", "create bucket "+s.bucket, err)
			return
		}
		s.logger.Info("created storage bucket", logging.String("bucket", s.bucket))
	})
	return s.ensureErr
}

// Add uploads body under its content key. Identical content maps to the same
// key, so repeated adds are harmless.
func (s *Minio) Add(ctx context.Context, name string, body []byte) (string, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return "", err
	}
	key := ContentKey(name, body)
	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "storage", "minio put", key, err)
	}
	return key, nil
}

// URL returns the gateway URL for key, or a presigned URL when no gateway is
// configured.
func (s *Minio) URL(ctx context.Context, key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", services.Wrap(services.ErrValidation, "storage", "url", "empty content path", nil)
	}
	if s.gateway != "" {
		return s.gateway + "/" + strings.TrimLeft(key, "/"), nil
	}
	presigned, err := s.client.PresignedGetObject(ctx, s.bucket, key, presignExpiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return presigned.String(), nil
}
