package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config targets an S3 compatible bucket.
type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	// PublicURL prefixes returned URLs, e.g. a CDN. Defaults to the bucket on Endpoint.
	PublicURL string
	// Client is an optional pre-configured client. Endpoint and credentials are then ignored.
	Client *minio.Client
}

func (c S3Config) validate() error {
	if c.Bucket == "" {
		return errors.New("bucket is required")
	}
	if c.Client != nil {
		return nil
	}
	if c.Endpoint == "" {
		return errors.New("endpoint is required when client is not provided")
	}
	if c.AccessKey == "" || c.SecretKey == "" {
		return errors.New("access key and secret key are required when client is not provided")
	}
	return nil
}

// S3Store uploads blobs to a MinIO or S3 bucket as public objects.
type S3Store struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewS3Store validates cfg and builds the client. No request is made until the first upload.
func NewS3Store(cfg S3Config) (*S3Store, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("storage: invalid s3 config: %w", err)
	}

	client := cfg.Client
	if client == nil {
		var err error
		client, err = minio.New(cfg.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
			Secure: cfg.UseSSL,
			Region: cfg.Region,
		})
		if err != nil {
			return nil, fmt.Errorf("storage: create minio client: %w", err)
		}
	}

	publicURL := strings.TrimRight(cfg.PublicURL, "/")
	if publicURL == "" {
		endpoint := client.EndpointURL()
		publicURL = (&url.URL{Scheme: endpoint.Scheme, Host: endpoint.Host, Path: "/" + cfg.Bucket}).String()
	}

	return &S3Store{client: client, bucket: cfg.Bucket, publicURL: publicURL}, nil
}

func (s *S3Store) Put(ctx context.Context, name string, body io.Reader, size int64, contentType string) (string, error) {
	key, err := cleanName(name)
	if err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if size <= 0 {
		size = -1
	}

	_, err = s.client.PutObject(ctx, s.bucket, key, body, size, minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "public, max-age=31536000, immutable",
	})
	if err != nil {
		return "", fmt.Errorf("storage: put %s: %w", key, err)
	}
	return joinURL(s.publicURL, key), nil
}

func (s *S3Store) Delete(ctx context.Context, name string) error {
	key, err := cleanName(name)
	if err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil
		}
		return fmt.Errorf("storage: delete %s: %w", key, err)
	}
	return nil
}
