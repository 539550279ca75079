package minio

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"fatura/internal/config"
	"fatura/internal/domain"
	"fatura/internal/port"
)

type minioClient struct {
	client *minio.Client
}

// NewMinIOClient creates a MinIO-backed ObjectStorage and checks that the
// configured bucket exists.
func NewMinIOClient(ctx context.Context, cfg *config.MinIOConfig) (port.ObjectStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating minio client: %w", err)
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(checkCtx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("checking minio bucket: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("minio bucket %s does not exist", cfg.Bucket)
	}

	return &minioClient{client: client}, nil
}

func (c *minioClient) Put(ctx context.Context, input port.PutInput) (*port.PutOutput, error) {
	size := input.Size
	if size <= 0 {
		size = -1
	}
	info, err := c.client.PutObject(ctx, input.Bucket, input.Key, input.Body, size, minio.PutObjectOptions{
		ContentType: input.ContentType,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: minio upload %s: %v", domain.ErrUploadFailed, input.Key, err)
	}
	return &port.PutOutput{
		Location: fmt.Sprintf("%s/%s", info.Bucket, info.Key),
		ETag:     info.ETag,
	}, nil
}

func (c *minioClient) Download(ctx context.Context, bucket, key string) ([]byte, error) {
	obj, err := c.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapError("minio download", key, err)
	}
	defer obj.Close()

	// GetObject is lazy; Stat surfaces a missing key.
	if _, err := obj.Stat(); err != nil {
		return nil, mapError("minio download", key, err)
	}

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("minio download read: %w", err)
	}
	return data, nil
}

func (c *minioClient) Delete(ctx context.Context, bucket, key string) error {
	if err := c.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("minio delete: %w", err)
	}
	return nil
}

func (c *minioClient) PresignGet(ctx context.Context, bucket, key string, expirySeconds int64) (string, error) {
	u, err := c.client.PresignedGetObject(ctx, bucket, key, time.Duration(expirySeconds)*time.Second, nil)
	if err != nil {
		return "", fmt.Errorf("minio presign: %w", err)
	}
	return u.String(), nil
}

func mapError(op, key string, err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return fmt.Errorf("%s %s: %w", op, key, domain.ErrFileNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}
