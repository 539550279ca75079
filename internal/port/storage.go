package port

import (
	"context"
	"io"
)

// PutInput describes one invoice document written to a bucket.
type PutInput struct {
	Bucket      string
	Key         string
	Body        io.Reader
	ContentType string
	Size        int64
}

// PutOutput is what the backend reports for a stored document.
type PutOutput struct {
	Location string
	ETag     string
}

// ObjectStorage is the bucket behind s3:// and minio:// file references.
// Download returns domain.ErrFileNotFound when the key does not exist and
// PresignGet returns a time-limited URL the browser can open directly.
type ObjectStorage interface {
	Put(ctx context.Context, input PutInput) (*PutOutput, error)
	Download(ctx context.Context, bucket, key string) ([]byte, error)
	Delete(ctx context.Context, bucket, key string) error
	PresignGet(ctx context.Context, bucket, key string, expirySeconds int64) (string, error)
}
