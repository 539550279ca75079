package parse

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// digitReplacer folds locale formatting into plain ASCII decimal notation:
// thousands separators are dropped, the Arabic decimal separator becomes a
// dot and Arabic-Indic / Persian digits become 0-9.
var digitReplacer = strings.NewReplacer(
	",", "", "٬", "", "٫", ".",
	"٠", "0", "١", "1", "٢", "2", "٣", "3", "٤", "4",
	"٥", "5", "٦", "6", "٧", "7", "٨", "8", "٩", "9",
	"۰", "0", "۱", "1", "۲", "2", "۳", "3", "۴", "4",
	"۵", "5", "۶", "6", "۷", "7", "۸", "8", "۹", "9",
)

// Decimal normalizes a loosely typed numeric value from a model response.
// Anything that cannot be read as a number yields zero.
func Decimal(v any) decimal.Decimal {
	switch t := v.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return t
	case json.Number:
		return fromString(t.String())
	case string:
		return fromString(t)
	case float64:
		return fromFloat(t)
	case float32:
		return fromFloat(float64(t))
	case int:
		return decimal.NewFromInt(int64(t))
	case int64:
		return decimal.NewFromInt(t)
	case int32:
		return decimal.NewFromInt(int64(t))
	default:
		return decimal.Zero
	}
}

// Number is Decimal as a float64.
func Number(v any) float64 {
	return Decimal(v).InexactFloat64()
}

// IsZero reports whether v is absent or normalizes to zero.
func IsZero(v any) bool {
	return Decimal(v).IsZero()
}

func fromString(s string) decimal.Decimal {
	s = digitReplacer.Replace(strings.TrimSpace(s))
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func fromFloat(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}
