// Package filestore resolves invoice file references to bytes.
//
// References take one of these forms:
//
//	/files/<name>             public local file
//	/private/files/<name>     private local file
//	s3://<bucket>/<key>       object in S3
//	minio://<bucket>/<key>    object in MinIO
package filestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"fatura/internal/config"
	"fatura/internal/domain"
	"fatura/internal/port"
)

const (
	publicPrefix  = "/files/"
	privatePrefix = "/private/files/"
	objectPrefix  = "invoices"
)

// Store implements port.FileStore over local directories and, when
// configured, an object storage backend.
type Store struct {
	publicDir     string
	privateDir    string
	backend       string
	bucket        string
	objects       port.ObjectStorage
	presignExpiry int64
}

// New creates a Store. objects may be nil for the local backend; bucket is
// the bucket new uploads go to.
func New(cfg *config.StorageConfig, objects port.ObjectStorage, bucket string) *Store {
	return &Store{
		publicDir:     cfg.PublicDir,
		privateDir:    cfg.PrivateDir,
		backend:       cfg.Backend,
		bucket:        bucket,
		objects:       objects,
		presignExpiry: cfg.PresignExpiry,
	}
}

// Read returns the bytes behind ref. The extension is not checked here.
func (s *Store) Read(ctx context.Context, ref string) (*port.Document, error) {
	if scheme, bucket, key, ok := splitObjectRef(ref); ok {
		if s.objects == nil {
			return nil, fmt.Errorf("filestore.Read: no %s backend configured: %w", scheme, domain.ErrInvalidFileReference)
		}
		data, err := s.objects.Download(ctx, bucket, key)
		if err != nil {
			return nil, fmt.Errorf("filestore.Read: %w", err)
		}
		return &port.Document{Data: data, Ext: strings.ToLower(path.Ext(key)), Name: path.Base(key)}, nil
	}

	p, err := s.localPath(ref)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("filestore.Read %s: %w", ref, domain.ErrFileNotFound)
		}
		return nil, fmt.Errorf("filestore.Read: %w", err)
	}
	return &port.Document{Data: data, Ext: strings.ToLower(filepath.Ext(p)), Name: filepath.Base(p)}, nil
}

// Save stores a new private document and returns its reference.
func (s *Store) Save(ctx context.Context, name, contentType string, data []byte) (string, error) {
	name = SanitizeName(name)
	id := uuid.New()

	if s.objects != nil && s.backend != "local" {
		key := fmt.Sprintf("%s/%s/%s", objectPrefix, id, name)
		_, err := s.objects.Put(ctx, port.PutInput{
			Bucket:      s.bucket,
			Key:         key,
			Body:        bytes.NewReader(data),
			ContentType: contentType,
			Size:        int64(len(data)),
		})
		if err != nil {
			return "", fmt.Errorf("filestore.Save: %w", err)
		}
		return fmt.Sprintf("%s://%s/%s", s.backend, s.bucket, key), nil
	}

	fileName := fmt.Sprintf("%s-%s", id, name)
	if err := os.MkdirAll(s.privateDir, 0o750); err != nil {
		return "", fmt.Errorf("filestore.Save: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.privateDir, fileName), data, 0o640); err != nil {
		return "", fmt.Errorf("filestore.Save: %w: %v", domain.ErrUploadFailed, err)
	}
	return privatePrefix + fileName, nil
}

// Delete removes the document behind ref. A missing file is not an error.
func (s *Store) Delete(ctx context.Context, ref string) error {
	if _, bucket, key, ok := splitObjectRef(ref); ok {
		if s.objects == nil {
			return fmt.Errorf("filestore.Delete: %w", domain.ErrInvalidFileReference)
		}
		return s.objects.Delete(ctx, bucket, key)
	}
	p, err := s.localPath(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("filestore.Delete: %w", err)
	}
	return nil
}

// PresignedURL returns a temporary URL for object references and "" for local ones.
func (s *Store) PresignedURL(ctx context.Context, ref string) (string, error) {
	_, bucket, key, ok := splitObjectRef(ref)
	if !ok {
		return "", nil
	}
	if s.objects == nil {
		return "", fmt.Errorf("filestore.PresignedURL: %w", domain.ErrInvalidFileReference)
	}
	return s.objects.PresignGet(ctx, bucket, key, s.presignExpiry)
}

func (s *Store) localPath(ref string) (string, error) {
	var dir, rel string
	switch {
	case strings.HasPrefix(ref, privatePrefix):
		dir, rel = s.privateDir, strings.TrimPrefix(ref, privatePrefix)
	case strings.HasPrefix(ref, publicPrefix):
		dir, rel = s.publicDir, strings.TrimPrefix(ref, publicPrefix)
	default:
		return "", fmt.Errorf("filestore: %q: %w", ref, domain.ErrInvalidFileReference)
	}
	rel = filepath.Clean("/" + rel)[1:]
	if rel == "" {
		return "", fmt.Errorf("filestore: %q: %w", ref, domain.ErrInvalidFileReference)
	}
	return filepath.Join(dir, rel), nil
}

func splitObjectRef(ref string) (scheme, bucket, key string, ok bool) {
	scheme, rest, found := strings.Cut(ref, "://")
	if !found || (scheme != "s3" && scheme != "minio") {
		return "", "", "", false
	}
	bucket, key, found = strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", "", false
	}
	return scheme, bucket, key, true
}

// IsObjectRef reports whether ref points at object storage.
func IsObjectRef(ref string) bool {
	_, _, _, ok := splitObjectRef(ref)
	return ok
}

var unsafeName = regexp.MustCompile(`[^\p{L}\p{N}._-]+`)

// SanitizeName keeps the base name and replaces characters that are unsafe
// in paths and object keys with underscores.
func SanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Trim(unsafeName.ReplaceAllString(name, "_"), "_.")
	if name == "" {
		return "document"
	}
	return name
}
