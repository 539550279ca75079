// Package parse turns free-form model output into a decoded JSON object.
package parse

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"fatura/internal/domain"
)

// rawPreviewLen bounds how much of a failed response is kept for diagnostics.
const rawPreviewLen = 500

// ParseError is returned when no JSON object can be recovered from a response.
type ParseError struct {
	Raw string
	Err error
}

// errUnexpectedShape marks a response that decoded but whose items are not
// a list of objects.
var errUnexpectedShape = errors.New("unexpected model response shape")

func (e *ParseError) Error() string {
	if errors.Is(e.Err, errUnexpectedShape) {
		return e.Err.Error()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", domain.ErrParse.Error(), e.Err)
	}
	return domain.ErrParse.Error()
}

func (e *ParseError) Unwrap() error {
	return domain.ErrParse
}

var literalRepair = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`\bNone\b`), "null"},
	{regexp.MustCompile(`\bTrue\b`), "true"},
	{regexp.MustCompile(`\bFalse\b`), "false"},
}

// Response extracts the single JSON object in a model response.
//
// The text is unfenced (```json first, then any ```), narrowed to the span
// between the first '{' and the last '}', and decoded. If strict decoding
// fails, Python-style quoting and literals are repaired and decoding is
// tried once more. Numbers are kept as json.Number.
func Response(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, &ParseError{Raw: raw, Err: errors.New("empty response")}
	}

	candidate := narrow(unfence(strings.TrimSpace(raw)))

	doc, err := decodeObject(candidate)
	if err != nil {
		doc, err = decodeObject(repair(candidate))
	}
	if err != nil {
		return nil, &ParseError{Raw: truncate(raw, rawPreviewLen), Err: err}
	}
	if err := checkShape(doc); err != nil {
		return nil, &ParseError{Raw: truncate(raw, rawPreviewLen), Err: fmt.Errorf("%w: %v", errUnexpectedShape, err)}
	}
	return doc, nil
}

func unfence(t string) string {
	if _, after, ok := strings.Cut(t, "```json"); ok {
		inner, _, _ := strings.Cut(after, "```")
		return strings.TrimSpace(inner)
	}
	if _, after, ok := strings.Cut(t, "```"); ok {
		inner, _, _ := strings.Cut(after, "```")
		return strings.TrimSpace(inner)
	}
	return t
}

func narrow(t string) string {
	start := strings.Index(t, "{")
	end := strings.LastIndex(t, "}")
	if start != -1 && end > start {
		return t[start : end+1]
	}
	return t
}

func repair(t string) string {
	t = strings.ReplaceAll(t, "'", `"`)
	for _, r := range literalRepair {
		t = r.re.ReplaceAllString(t, r.repl)
	}
	return t
}

func decodeObject(t string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(t))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after JSON object")
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errors.New("response JSON is not an object")
	}
	return obj, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
