package service_test

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"fatura/internal/domain"
	"fatura/mocks"
)

func containsKey(raw json.RawMessage, key string) bool {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return false
	}
	_, ok := m[key]
	return ok
}

func auditAction(action domain.AuditAction) interface{} {
	return mock.MatchedBy(func(e *domain.InvoiceAuditEntry) bool {
		return e.Action == string(action)
	})
}

func newAuditRepo() *mocks.MockInvoiceAuditRepo {
	r := new(mocks.MockInvoiceAuditRepo)
	r.On("Create", mock.Anything, mock.Anything).Return(nil).Maybe()
	return r
}

func noLock(l *mocks.MockInvoiceLocker, id uuid.UUID) {
	l.On("Acquire", mock.Anything, id).Return(func() {}, nil)
}

func ptr[T any](v T) *T {
	return &v
}
