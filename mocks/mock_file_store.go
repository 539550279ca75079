package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"fatura/internal/port"
)

// MockFileStore is a mock implementation of port.FileStore.
type MockFileStore struct {
	mock.Mock
}

func (m *MockFileStore) Read(ctx context.Context, ref string) (*port.Document, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.Document), args.Error(1)
}

func (m *MockFileStore) Save(ctx context.Context, name, contentType string, data []byte) (string, error) {
	args := m.Called(ctx, name, contentType, data)
	return args.String(0), args.Error(1)
}

func (m *MockFileStore) Delete(ctx context.Context, ref string) error {
	args := m.Called(ctx, ref)
	return args.Error(0)
}

func (m *MockFileStore) PresignedURL(ctx context.Context, ref string) (string, error) {
	args := m.Called(ctx, ref)
	return args.String(0), args.Error(1)
}
