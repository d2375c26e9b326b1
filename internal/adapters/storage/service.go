// Package storage stores lead images in S3-compatible object storage.
package storage

import (
	"context"
	"errors"
	"io"

	"github.com/google/uuid"
)

// ErrForeignURL is returned when a URL does not point into the lead image bucket.
var ErrForeignURL = errors.New("url does not belong to the image bucket")

// ImageStore defines the object storage operations the leads module needs.
type ImageStore interface {
	// UploadLeadImage stores an image under leads/{leadID}/ and returns its public URL.
	UploadLeadImage(ctx context.Context, leadID uuid.UUID, fileName, contentType string, reader io.Reader, size int64) (string, error)

	// DeleteByURL removes the object a previously returned public URL points to.
	DeleteByURL(ctx context.Context, publicURL string) error

	// ValidateContentType checks if the content type is allowed.
	ValidateContentType(contentType string) error

	// ValidateFileSize checks if the file size is within limits.
	ValidateFileSize(sizeBytes int64) error
}

// Config defines the configuration interface for storage.
type Config interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	GetMinIOBucketLeadImages() string
	GetMinIOPublicBaseURL() string
	IsMinIOEnabled() bool
}
