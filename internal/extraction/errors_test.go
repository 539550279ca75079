package extraction

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fatura/internal/domain"
)

func TestProviderError(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewProviderError("gemini", 502, cause)

	assert.ErrorIs(t, err, domain.ErrProvider)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "gemini provider error (status 502): connection reset", err.Error())

	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "gemini", pe.Provider)
}

func TestProviderError_NoStatus(t *testing.T) {
	err := NewProviderError("mistral", 0, errors.New("dial tcp"))
	assert.Equal(t, "mistral provider error: dial tcp", err.Error())
}

func TestNewProviderError_KeepsDomainErrors(t *testing.T) {
	for _, target := range []error{domain.ErrConfiguration, domain.ErrEmptyExtraction, domain.ErrUnsupportedFileType} {
		wrapped := fmt.Errorf("step: %w", target)
		err := NewProviderError("mistral", 0, wrapped)
		assert.Same(t, wrapped, err)
	}

	rl := NewRateLimitError("gemini", errors.New("quota"), 5)
	assert.Same(t, rl, NewProviderError("gemini", 429, rl))
}

func TestRateLimitError(t *testing.T) {
	err := NewRateLimitError("gemini", errors.New("quota"), 0)
	assert.Equal(t, 60*time.Second, err.RetryAfter)
	assert.ErrorIs(t, err, domain.ErrProvider)

	err = NewRateLimitError("gemini", errors.New("quota"), 30)
	assert.Equal(t, 30*time.Second, err.RetryAfter)
}

func TestParseRetryAfterHeader(t *testing.T) {
	assert.Equal(t, 0, ParseRetryAfterHeader(""))
	assert.Equal(t, 45, ParseRetryAfterHeader("45"))
	assert.Equal(t, 0, ParseRetryAfterHeader("Wed, 21 Oct 2015 07:28:00 GMT"))
}
