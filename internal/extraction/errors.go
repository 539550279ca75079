package extraction

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"fatura/internal/domain"
)

// ProviderError wraps a network, HTTP or provider-side failure.
type ProviderError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s provider error (status %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s provider error: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() []error {
	return []error{domain.ErrProvider, e.Err}
}

// NewProviderError wraps err unless it already carries a domain error.
func NewProviderError(provider string, status int, err error) error {
	if isDomainError(err) {
		return err
	}
	return &ProviderError{Provider: provider, StatusCode: status, Err: err}
}

// RateLimitError indicates a provider returned HTTP 429. It is a provider
// error the job queue may retry after RetryAfter.
type RateLimitError struct {
	Err        error
	RetryAfter time.Duration
	Provider   string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate limited (retry after %s): %v", e.Provider, e.RetryAfter, e.Err)
}

func (e *RateLimitError) Unwrap() []error {
	return []error{domain.ErrProvider, e.Err}
}

// NewRateLimitError creates a RateLimitError. If retryAfterSecs is 0, defaults to 60s.
func NewRateLimitError(provider string, err error, retryAfterSecs int) *RateLimitError {
	if retryAfterSecs <= 0 {
		retryAfterSecs = 60
	}
	return &RateLimitError{
		Err:        err,
		RetryAfter: time.Duration(retryAfterSecs) * time.Second,
		Provider:   provider,
	}
}

// ParseRetryAfterHeader parses a Retry-After header value into seconds.
// Returns 0 if the value is empty or not a valid integer.
func ParseRetryAfterHeader(val string) int {
	if val == "" {
		return 0
	}
	secs, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return secs
}

func isDomainError(err error) bool {
	for _, target := range []error{
		domain.ErrConfiguration, domain.ErrUnsupportedFileType, domain.ErrEmptyExtraction,
		domain.ErrParse, domain.ErrProvider,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
