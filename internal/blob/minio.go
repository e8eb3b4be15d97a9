// Package blob resolves media attachment storage paths to time-limited
// download URLs on an S3-compatible object store.
package blob

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/JonMunkholm/formconsole/internal/config"
)

// Signer issues presigned GET URLs for objects in one bucket.
type Signer struct {
	client *minio.Client
	bucket string
	ttl    time.Duration
}

// NewSigner connects to the object store described by cfg.
func NewSigner(cfg config.BlobConfig) (*Signer, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("blob endpoint is required")
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &Signer{client: client, bucket: cfg.Bucket, ttl: cfg.URLTTL}, nil
}

// SignedURL returns a download URL for storagePath valid for the configured TTL.
// Storage paths may carry a leading slash or a gs:// / s3:// bucket prefix.
func (s *Signer) SignedURL(ctx context.Context, storagePath string) (string, error) {
	object := ObjectName(storagePath, s.bucket)
	if object == "" {
		return "", fmt.Errorf("empty storage path")
	}
	params := url.Values{}
	params.Set("response-content-disposition", "inline")
	u, err := s.client.PresignedGetObject(ctx, s.bucket, object, s.ttl, params)
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", object, err)
	}
	return u.String(), nil
}

// Ping checks that the bucket is reachable.
func (s *Signer) Ping(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("bucket %q does not exist", s.bucket)
	}
	return nil
}

// ObjectName strips scheme, bucket and leading slashes from a stored path.
func ObjectName(storagePath, bucket string) string {
	p := strings.TrimSpace(storagePath)
	for _, scheme := range []string{"gs://", "s3://"} {
		if strings.HasPrefix(p, scheme) {
			p = strings.TrimPrefix(p, scheme)
			if _, rest, ok := strings.Cut(p, "/"); ok {
				p = rest
			} else {
				p = ""
			}
			break
		}
	}
	p = strings.TrimLeft(p, "/")
	if bucket != "" {
		p = strings.TrimPrefix(p, bucket+"/")
	}
	return p
}
