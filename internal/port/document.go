package port

import "context"

// Document is a resolved file reference.
type Document struct {
	Data []byte
	Ext  string // lowercase, with leading dot
	Name string
}

// DocumentReader resolves an opaque file reference to its bytes.
type DocumentReader interface {
	Read(ctx context.Context, ref string) (*Document, error)
}

// FileStore is the document reader plus the write side used by the producer.
type FileStore interface {
	DocumentReader
	Save(ctx context.Context, name, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, ref string) error
	// PresignedURL returns a temporary URL for object-storage references and
	// an empty string for local ones.
	PresignedURL(ctx context.Context, ref string) (string, error)
}
