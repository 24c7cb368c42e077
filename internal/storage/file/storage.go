package file

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/wb-go/wbf/retry"
)

const pdfContentType = "application/pdf"

// Storage provides an S3-compatible storage backend using MinIO.
// Job inputs are fetched from the bucket and merged outputs uploaded to it.
type Storage struct {
	client     *minio.Client
	bucketName string
	strategy   retry.Strategy
}

// NewStorage creates a new Storage instance connected to the specified MinIO server.
// If the bucket does not exist, it will be created automatically.
func NewStorage(ctx context.Context, endpoint, accessKey, secretKey, bucketName string, useSSL bool, s retry.Strategy) (*Storage, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check if bucket exists: %w", err)
	}

	if !exists {
		if err := client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &Storage{
		client:     client,
		bucketName: bucketName,
		strategy:   s,
	}, nil
}

// Fetch downloads the object to the local file dst.
func (s *Storage) Fetch(ctx context.Context, object, dst string) error {
	err := retry.Do(func() error {
		return s.client.FGetObject(ctx, s.bucketName, object, dst, minio.GetObjectOptions{})
	}, s.strategy)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", object, err)
	}

	return nil
}

// Upload stores the local PDF at src under the given object name.
func (s *Storage) Upload(ctx context.Context, src, object string) error {
	err := retry.Do(func() error {
		_, err := s.client.FPutObject(ctx, s.bucketName, object, src, minio.PutObjectOptions{
			ContentType: pdfContentType,
		})
		return err
	}, s.strategy)
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", object, err)
	}

	return nil
}
