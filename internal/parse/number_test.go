package parse

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNumber(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want float64
	}{
		{"nil", nil, 0},
		{"float", 12.5, 12.5},
		{"int", 3, 3},
		{"json number", json.Number("99.95"), 99.95},
		{"plain string", "42", 42},
		{"padded string", "  7.25 ", 7.25},
		{"thousands separator", "1,234.50", 1234.50},
		{"arabic digits and separators", "١٬٢٣٤٫٥٠", 1234.50},
		{"arabic digits only", "٢٥٠", 250},
		{"persian digits", "۱۵", 15},
		{"negative", "-15.5", -15.5},
		{"empty", "", 0},
		{"garbage", "abc", 0},
		{"currency suffix", "100 SAR", 0},
		{"bool", true, 0},
		{"nan", math.NaN(), 0},
		{"inf", math.Inf(1), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Number(tt.in), 1e-9)
		})
	}
}

func TestDecimal_ExactForArabicInput(t *testing.T) {
	assert.True(t, decimal.RequireFromString("1234.50").Equal(Decimal("١٬٢٣٤٫٥٠")))
}

func TestIsZero(t *testing.T) {
	assert.True(t, IsZero(nil))
	assert.True(t, IsZero(""))
	assert.True(t, IsZero("0.00"))
	assert.True(t, IsZero(json.Number("0")))
	assert.False(t, IsZero("0.01"))
}
