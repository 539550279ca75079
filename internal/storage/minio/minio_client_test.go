package minio

import (
	"errors"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"

	"fatura/internal/domain"
)

func TestMapError_NoSuchKey(t *testing.T) {
	err := mapError("minio download", "a.pdf", minio.ErrorResponse{Code: "NoSuchKey", StatusCode: 404})
	assert.ErrorIs(t, err, domain.ErrFileNotFound)
}

func TestMapError_Other(t *testing.T) {
	cause := minio.ErrorResponse{Code: "AccessDenied", StatusCode: 403}
	err := mapError("minio download", "a.pdf", cause)
	assert.False(t, errors.Is(err, domain.ErrFileNotFound))
	assert.Contains(t, err.Error(), "minio download")
}
