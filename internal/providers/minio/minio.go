package minio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"taskboard/internal/config"
)

// MinioProvider stores item attachments in a private bucket. Objects are
// served through presigned URLs.
type MinioProvider struct {
	client  *minio.Client
	bucket  string
	maxSize int64
	logger  *zap.Logger
}

func NewMinioProvider(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*MinioProvider, error) {
	minioURL := cfg.MinioURL
	if !strings.HasPrefix(minioURL, "http://") && !strings.HasPrefix(minioURL, "https://") {
		minioURL = "http://" + minioURL
	}

	u, err := url.Parse(minioURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse minio URL: %w", err)
	}
	secure := u.Scheme == "https"

	logger.Info("Initializing MinIO", zap.String("endpoint", u.Host), zap.Bool("secure", secure))

	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.MaxIdleConnsPerHost = 256

	client, err := minio.New(u.Host, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.MinioUser, cfg.MinioPassword, ""),
		Secure:    secure,
		Transport: tr,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	provider := &MinioProvider{
		client:  client,
		bucket:  cfg.MinioBucket,
		maxSize: cfg.MaxFileSize,
		logger:  logger,
	}

	if err := provider.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return provider, nil
}

func (m *MinioProvider) ensureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		m.logger.Error("BucketExists error", zap.Error(err), zap.String("bucket", m.bucket))
		return fmt.Errorf("failed to check bucket: %w", err)
	}

	if !exists {
		if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
		m.logger.Info("Created MinIO bucket", zap.String("bucket", m.bucket))
	}
	return nil
}

func (m *MinioProvider) MaxSize() int64 {
	return m.maxSize
}

// Put uploads size bytes from r under objectName.
func (m *MinioProvider) Put(ctx context.Context, objectName string, r io.Reader, size int64, contentType string) error {
	if size > m.maxSize {
		return fmt.Errorf("file size exceeds maximum allowed size of %d MB", m.maxSize/(1024*1024))
	}

	_, err := m.client.PutObject(ctx, m.bucket, objectName, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload file: %w", err)
	}

	m.logger.Info("File uploaded",
		zap.String("object_name", objectName),
		zap.Int64("size", size),
	)
	return nil
}

func (m *MinioProvider) Remove(ctx context.Context, objectName string) error {
	if err := m.client.RemoveObject(ctx, m.bucket, objectName, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	m.logger.Info("File deleted", zap.String("object_name", objectName))
	return nil
}

func (m *MinioProvider) PresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	u, err := m.client.PresignedGetObject(ctx, m.bucket, objectName, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return u.String(), nil
}

// Ping reports whether the bucket is reachable, for health checks.
func (m *MinioProvider) Ping(ctx context.Context) error {
	_, err := m.client.BucketExists(ctx, m.bucket)
	return err
}

// GenerateObjectName places an upload under prefix with a date path and a
// random name, keeping the original extension.
func GenerateObjectName(prefix, filename string) string {
	return fmt.Sprintf("%s/%s/%s%s",
		strings.Trim(prefix, "/"),
		time.Now().UTC().Format("2006/01/02"),
		uuid.NewString(),
		strings.ToLower(filepath.Ext(filename)),
	)
}

func DetectContentType(filename string) string {
	contentTypes := map[string]string{
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
		".png":  "image/png",
		".gif":  "image/gif",
		".webp": "image/webp",
		".pdf":  "application/pdf",
		".txt":  "text/plain",
		".csv":  "text/csv",
		".zip":  "application/zip",
		".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	}

	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return ct
	}
	return "application/octet-stream"
}
