package parse

import (
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// responseSchema is the only structure a decoded model response must have
// before reconciliation reads it: items, when present, is a list of objects.
// Every other field is coerced later, so a value of the wrong type reads as
// zero or empty rather than failing the extraction.
var responseSchema = jsonschema.MustCompileString("invoice_response.json", `{
	"type": "object",
	"properties": {
		"items": {
			"type": ["array", "null"],
			"items": {"type": "object"}
		}
	}
}`)

func checkShape(doc any) error {
	return responseSchema.Validate(doc)
}
