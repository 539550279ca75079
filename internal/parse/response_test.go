package parse

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fatura/internal/domain"
)

func TestResponse_JSONFenceWithProse(t *testing.T) {
	doc, err := Response("Here you go:\n```json\n{\"a\":1}\n```\nThanks")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": json.Number("1")}, doc)
}

func TestResponse_PlainFence(t *testing.T) {
	doc, err := Response("```\n{\"supplier\": \"ACME\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, "ACME", doc["supplier"])
}

func TestResponse_JSONFencePreferredOverPlainFence(t *testing.T) {
	raw := "```text\nnot this\n```\n```json\n{\"supplier\": \"picked\"}\n```"
	doc, err := Response(raw)
	require.NoError(t, err)
	assert.Equal(t, "picked", doc["supplier"])
}

func TestResponse_UnclosedFence(t *testing.T) {
	doc, err := Response("```json\n{\"invoice_number\": \"INV-7\"}")
	require.NoError(t, err)
	assert.Equal(t, "INV-7", doc["invoice_number"])
}

func TestResponse_StrayProseNoFence(t *testing.T) {
	doc, err := Response(`The invoice data is {"subtotal": 100, "tax_amount": "15"} as requested.`)
	require.NoError(t, err)
	assert.Equal(t, json.Number("100"), doc["subtotal"])
	assert.Equal(t, "15", doc["tax_amount"])
}

func TestResponse_PythonLiteralsRepaired(t *testing.T) {
	doc, err := Response(`{'supplier': 'ACME', 'due_date': None, 'paid': True, 'draft': False}`)
	require.NoError(t, err)
	assert.Equal(t, "ACME", doc["supplier"])
	assert.Nil(t, doc["due_date"])
	assert.Equal(t, true, doc["paid"])
	assert.Equal(t, false, doc["draft"])
}

func TestResponse_ApostropheInValidJSONKept(t *testing.T) {
	doc, err := Response(`{"supplier": "Ali's Trading", "items": [{"description": "Baker's flour"}]}`)
	require.NoError(t, err)
	assert.Equal(t, "Ali's Trading", doc["supplier"])
	items := doc["items"].([]any)
	assert.Equal(t, "Baker's flour", items[0].(map[string]any)["description"])
}

func TestResponse_MalformedJSON(t *testing.T) {
	raw := `Sure! {"supplier": "ACME", "subtotal": }`
	doc, err := Response(raw)
	require.Error(t, err)
	assert.Nil(t, doc)

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, raw, pe.Raw)
	assert.True(t, errors.Is(err, domain.ErrParse))
}

func TestResponse_NoObject(t *testing.T) {
	_, err := Response("I could not read this document.")
	assert.ErrorIs(t, err, domain.ErrParse)
}

func TestResponse_Empty(t *testing.T) {
	_, err := Response("   ")
	assert.ErrorIs(t, err, domain.ErrParse)
}

func TestResponse_ArrayNarrowsToInnerObject(t *testing.T) {
	doc, err := Response(`[{"a": 1}]`)
	require.NoError(t, err)
	assert.Contains(t, doc, "a")
}

func TestResponse_RawIsTruncated(t *testing.T) {
	raw := "{" + strings.Repeat("ب", 800)
	_, err := Response(raw)

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, rawPreviewLen, len([]rune(pe.Raw)))
}

func TestResponse_ShapeChecked(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"items is an object", `{"items": {"description": "x"}}`},
		{"item is a string", `{"items": ["x"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Response(tt.raw)
			assert.ErrorIs(t, err, domain.ErrParse)
			assert.Contains(t, err.Error(), "unexpected model response shape")
			assert.NotContains(t, err.Error(), "no valid JSON")
		})
	}
}

func TestResponse_WrongFieldTypesDecode(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"boolean item tax", `{"supplier":"A","items":[{"description":"x","quantity":2,"unit_price":5,"tax_amount":false}]}`},
		{"supplier is an object", `{"supplier":{"name":"A"},"items":[]}`},
		{"numeric field is an object", `{"subtotal": {"value": 10}}`},
		{"item quantity is a list", `{"items": [{"quantity": [1]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Response(tt.raw)
			require.NoError(t, err)
			assert.NotNil(t, doc)
		})
	}
}

func TestResponse_LooseTypesAccepted(t *testing.T) {
	raw := `{"items": null, "subtotal": null, "invoice_number": 1042, "total_amount": "1,150.00"}`
	doc, err := Response(raw)
	require.NoError(t, err)
	assert.Equal(t, json.Number("1042"), doc["invoice_number"])
}
