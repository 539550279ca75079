package handler_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"fatura/internal/config"
	"fatura/internal/handler"
)

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

func TestHealthHandler_Liveness(t *testing.T) {
	h := handler.NewHealthHandler(fakePinger{}, nil)
	c, w := newContext(http.MethodGet, "/healthz", nil, "")
	h.Liveness(c)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthHandler_Readiness(t *testing.T) {
	h := handler.NewHealthHandler(fakePinger{}, &config.ExtractionConfig{APIKey: "k"})
	c, w := newContext(http.MethodGet, "/readyz", nil, "")
	h.Readiness(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","checks":{"database":"ok","extraction":"configured"}}`, w.Body.String())
}

func TestHealthHandler_ReadinessWithoutKeyStillReady(t *testing.T) {
	h := handler.NewHealthHandler(fakePinger{}, &config.ExtractionConfig{})
	c, w := newContext(http.MethodGet, "/readyz", nil, "")
	h.Readiness(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "missing_api_key")
}

func TestHealthHandler_ReadinessDatabaseDown(t *testing.T) {
	h := handler.NewHealthHandler(fakePinger{err: errors.New("refused")}, nil)
	c, w := newContext(http.MethodGet, "/readyz", nil, "")
	h.Readiness(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"unreachable"`)
}
