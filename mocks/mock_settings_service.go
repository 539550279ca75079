package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"fatura/internal/service"
)

// MockSettingsService is a mock implementation of service.SettingsService.
type MockSettingsService struct {
	mock.Mock
}

func (m *MockSettingsService) Get() *service.SettingsView {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*service.SettingsView)
}

func (m *MockSettingsService) ValidateCredential(ctx context.Context, input *service.ValidateCredentialInput) (*service.CredentialCheck, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.CredentialCheck), args.Error(1)
}
