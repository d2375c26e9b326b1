package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOService implements ImageStore using MinIO.
type MinIOService struct {
	client      *minio.Client
	bucket      string
	publicBase  string
	maxFileSize int64
	now         func() time.Time
}

// NewMinIOService creates a new MinIO storage service.
func NewMinIOService(cfg Config) (*MinIOService, error) {
	if !cfg.IsMinIOEnabled() {
		return nil, fmt.Errorf("MinIO is not configured")
	}

	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &MinIOService{
		client:      client,
		bucket:      cfg.GetMinIOBucketLeadImages(),
		publicBase:  publicBaseURL(cfg),
		maxFileSize: cfg.GetMinIOMaxFileSize(),
		now:         time.Now,
	}, nil
}

func publicBaseURL(cfg Config) string {
	if base := strings.TrimRight(cfg.GetMinIOPublicBaseURL(), "/"); base != "" {
		return base
	}
	scheme := "http"
	if cfg.GetMinIOUseSSL() {
		scheme = "https"
	}
	return scheme + "://" + cfg.GetMinIOEndpoint()
}

// EnsureBucketExists creates the image bucket if it doesn't exist.
func (s *MinIOService) EnsureBucketExists(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
		}
	}

	return nil
}

// UploadLeadImage uploads an image directly from an io.Reader and returns its public URL.
func (s *MinIOService) UploadLeadImage(ctx context.Context, leadID uuid.UUID, fileName, contentType string, reader io.Reader, size int64) (string, error) {
	fileKey := LeadImageKey(leadID, fileName, s.now())

	_, err := s.client.PutObject(ctx, s.bucket, fileKey, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file %s: %w", fileKey, err)
	}
	return ObjectURL(s.publicBase, s.bucket, fileKey), nil
}

// DeleteByURL removes the object behind a public URL.
func (s *MinIOService) DeleteByURL(ctx context.Context, publicURL string) error {
	fileKey, err := KeyFromURL(s.publicBase, s.bucket, publicURL)
	if err != nil {
		return err
	}
	err = s.client.RemoveObject(ctx, s.bucket, fileKey, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", fileKey, err)
	}
	return nil
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// LeadImageKey builds leads/{leadID}/{unixMillis}_{filename}.
func LeadImageKey(leadID uuid.UUID, fileName string, at time.Time) string {
	name := unsafeFileChars.ReplaceAllString(path.Base(strings.ReplaceAll(fileName, "\\", "/")), "_")
	if name == "" || name == "." || name == "_" {
		name = "image"
	}
	return fmt.Sprintf("leads/%s/%d_%s", leadID, at.UnixMilli(), name)
}

// ObjectURL joins base, bucket and key into a public URL.
func ObjectURL(base, bucket, fileKey string) string {
	escaped := make([]string, 0, 4)
	for _, part := range strings.Split(fileKey, "/") {
		escaped = append(escaped, url.PathEscape(part))
	}
	return strings.TrimRight(base, "/") + "/" + bucket + "/" + strings.Join(escaped, "/")
}

// KeyFromURL is the inverse of ObjectURL.
func KeyFromURL(base, bucket, publicURL string) (string, error) {
	prefix := strings.TrimRight(base, "/") + "/" + bucket + "/"
	if !strings.HasPrefix(publicURL, prefix) {
		return "", ErrForeignURL
	}
	fileKey, err := url.PathUnescape(strings.TrimPrefix(publicURL, prefix))
	if err != nil || fileKey == "" {
		return "", ErrForeignURL
	}
	return fileKey, nil
}

var _ ImageStore = (*MinIOService)(nil)
