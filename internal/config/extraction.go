package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"fatura/internal/domain"
)

// Extraction providers.
const (
	ProviderGemini  = "gemini"
	ProviderMistral = "mistral"
)

const (
	DefaultGeminiModel  = "gemini-2.0-flash"
	DefaultMistralModel = "mistral-large-latest"
	DefaultOCRModel     = "mistral-ocr-2512"
	DefaultTemperature  = 0.1
	DefaultTimeoutSecs  = 120
)

// ExtractionConfig is the settings bag read by the extraction strategies
// and prompt assembly. Every field carries its default after WithDefaults.
type ExtractionConfig struct {
	Provider           string  `mapstructure:"provider"`
	APIKey             string  `mapstructure:"api_key"`
	Model              string  `mapstructure:"model"`
	OCRModel           string  `mapstructure:"ocr_model"`
	Temperature        float64 `mapstructure:"temperature"`
	SystemInstruction  string  `mapstructure:"system_instruction"`
	JSONFormat         string  `mapstructure:"json_format"`
	PromptInstructions string  `mapstructure:"prompt_instructions"`
	DebugLogging       bool    `mapstructure:"debug_logging"`
	TimeoutSecs        int     `mapstructure:"timeout_secs"`
	BaseURL            string  `mapstructure:"base_url"`
}

// WithDefaults returns a copy with every empty field resolved.
// Temperature is taken as configured; zero is a legitimate value.
func (c ExtractionConfig) WithDefaults() ExtractionConfig {
	if c.Provider == "" {
		c.Provider = ProviderGemini
	}
	if c.Model == "" {
		c.Model = DefaultModelFor(c.Provider)
	}
	if c.OCRModel == "" {
		c.OCRModel = DefaultOCRModel
	}
	if c.TimeoutSecs <= 0 {
		c.TimeoutSecs = DefaultTimeoutSecs
	}
	if strings.TrimSpace(c.SystemInstruction) == "" {
		c.SystemInstruction = DefaultSystemInstruction
	}
	if strings.TrimSpace(c.JSONFormat) == "" {
		c.JSONFormat = DefaultJSONFormat
	}
	if strings.TrimSpace(c.PromptInstructions) == "" {
		c.PromptInstructions = DefaultPromptInstructions
	}
	return c
}

// DefaultModelFor returns the model used when none is configured.
func DefaultModelFor(provider string) string {
	if provider == ProviderMistral {
		return DefaultMistralModel
	}
	return DefaultGeminiModel
}

// HasAPIKey reports whether a credential is configured.
func (c *ExtractionConfig) HasAPIKey() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

var jsonFormatSchema = jsonschema.MustCompileString("json_format.json", `{
	"type": "object",
	"properties": {
		"items": {"type": "array", "items": {"type": "object"}}
	}
}`)

// Validate checks the operator-supplied settings.
func (c *ExtractionConfig) Validate() error {
	switch c.Provider {
	case ProviderGemini, ProviderMistral:
	default:
		return fmt.Errorf("%w: unknown extraction provider %q", domain.ErrConfiguration, c.Provider)
	}
	if c.Temperature < 0 || c.Temperature > 1 {
		return fmt.Errorf("%w: temperature must be between 0 and 1", domain.ErrConfiguration)
	}
	if err := ValidateJSONFormat(c.JSONFormat); err != nil {
		return err
	}
	return nil
}

// ValidateJSONFormat checks that the example format is a JSON object
// whose items, if present, is a list of objects.
func ValidateJSONFormat(format string) error {
	dec := json.NewDecoder(strings.NewReader(format))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("%w: invalid JSON format: %v", domain.ErrConfiguration, err)
	}
	if err := jsonFormatSchema.Validate(doc); err != nil {
		return fmt.Errorf("%w: invalid JSON format: %v", domain.ErrConfiguration, err)
	}
	return nil
}

// DefaultSystemInstruction is used when no system instruction is configured.
const DefaultSystemInstruction = `You are a specialist in extracting data from purchase invoices. Extract the data accurately, paying close attention to tax details and financial totals.`

// DefaultJSONFormat is the example JSON the model is asked to fill.
const DefaultJSONFormat = `{
  "supplier": "supplier name",
  "supplier_ar": "supplier name in Arabic",
  "invoice_number": "invoice number",
  "date": "invoice date (YYYY-MM-DD)",
  "due_date": "due date (YYYY-MM-DD)",
  "subtotal": "amount before tax",
  "tax_amount": "total tax amount",
  "total_amount": "total amount after tax",
  "currency": "currency code",
  "items": [
    {
      "description": "item description",
      "description_ar": "item description in Arabic",
      "quantity": "quantity",
      "unit_price": "unit price",
      "item_total": "quantity x unit price",
      "tax_amount": "tax amount for this item",
      "total_with_tax": "item total including tax"
    }
  ]
}`

// DefaultPromptInstructions are the extraction rules appended to the prompt.
const DefaultPromptInstructions = `Rules, in order:

1. Tax
   - Extract tax_amount as a number only; the tax rate is not needed.
   - If the invoice has no tax, set tax_amount = 0.

2. Items
   - For every item extract tax_amount (tax for that item only), item_total (quantity x unit_price)
     and total_with_tax (item_total + tax_amount).
   - An item that is not taxable has tax_amount = 0.

3. Totals
   - subtotal = sum of item_total over all items.
   - tax_amount (invoice level) = sum of item tax_amount.
   - total_amount = subtotal + tax_amount.

4. Formatting
   - Dates: YYYY-MM-DD.
   - Currency: the code only (SAR, USD, EUR).
   - Numbers: numeric values only, without currency symbols.

Special cases:
   - Tax shown only as an invoice total: distribute it across items proportionally.
   - Tax shown per item: use the values as printed.
   - A discount: add it as a separate item or subtract it from subtotal.

Never guess or invent values. Leave missing text fields as "" and missing numbers as 0.`
