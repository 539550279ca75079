// Package s3 stores invoice documents in an S3 bucket or an S3-compatible
// service.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"fatura/internal/config"
	"fatura/internal/domain"
	"fatura/internal/port"
)

// originalNameKey is the object metadata entry holding the uploaded file name.
const originalNameKey = "original-name"

type documentBucket struct {
	client    *s3.Client
	presigner *s3.PresignClient
	uploader  *manager.Uploader
}

// NewS3Client creates an S3-backed ObjectStorage. A non-empty endpoint
// switches to path-style addressing for S3-compatible services.
func NewS3Client(ctx context.Context, cfg *config.S3Config) (port.ObjectStorage, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3.NewS3Client: loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &documentBucket{
		client:    client,
		presigner: s3.NewPresignClient(client),
		uploader:  manager.NewUploader(client),
	}, nil
}

// Put stores a document. The object is served inline so browsers
// preview PDFs and images instead of downloading them.
func (b *documentBucket) Put(ctx context.Context, input port.PutInput) (*port.PutOutput, error) {
	name := path.Base(input.Key)
	result, err := b.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:             aws.String(input.Bucket),
		Key:                aws.String(input.Key),
		Body:               input.Body,
		ContentType:        aws.String(input.ContentType),
		ContentDisposition: aws.String(inline(name)),
		Metadata:           map[string]string{originalNameKey: name},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: s3 upload %s: %v", domain.ErrUploadFailed, input.Key, err)
	}

	return &port.PutOutput{
		Location: result.Location,
		ETag:     aws.ToString(result.ETag),
	}, nil
}

func (b *documentBucket) Download(ctx context.Context, bucket, key string) ([]byte, error) {
	result, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if missing(err) {
			return nil, fmt.Errorf("s3 download %s: %w", key, domain.ErrFileNotFound)
		}
		return nil, fmt.Errorf("s3 download %s: %w", key, err)
	}
	defer result.Body.Close()

	var buf bytes.Buffer
	if n := aws.ToInt64(result.ContentLength); n > 0 {
		buf.Grow(int(n))
	}
	if _, err := io.Copy(&buf, result.Body); err != nil {
		return nil, fmt.Errorf("s3 download %s: reading body: %w", key, err)
	}
	return buf.Bytes(), nil
}

// Delete removes a document; deleting a missing key is not an error.
func (b *documentBucket) Delete(ctx context.Context, bucket, key string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil && !missing(err) {
		return fmt.Errorf("s3 delete %s: %w", key, err)
	}
	return nil
}

func (b *documentBucket) PresignGet(ctx context.Context, bucket, key string, expirySeconds int64) (string, error) {
	result, err := b.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket:                     aws.String(bucket),
		Key:                        aws.String(key),
		ResponseContentDisposition: aws.String(inline(path.Base(key))),
	}, s3.WithPresignExpires(time.Duration(expirySeconds)*time.Second))
	if err != nil {
		return "", fmt.Errorf("s3 presign %s: %w", key, err)
	}
	return result.URL, nil
}

func inline(name string) string {
	return mime.FormatMediaType("inline", map[string]string{"filename": name})
}

func missing(err error) bool {
	var noKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noKey) || errors.As(err, &notFound)
}
