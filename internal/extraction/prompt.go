package extraction

import (
	"strings"

	"fatura/internal/port"
)

// BuildDirectPrompt composes the single prompt sent alongside the document.
func BuildDirectPrompt(p port.PromptConfig) string {
	var b strings.Builder
	b.WriteString(p.SystemInstruction)
	b.WriteString("\n\nExtract the data from this invoice and return it in the following JSON format:\n\n")
	b.WriteString(p.JSONFormat)
	b.WriteString("\n\n")
	b.WriteString(p.Instructions)
	return b.String()
}

// BuildOCRPrompt composes the chat prompt that carries OCR text instead of
// the document. The system instruction travels as a separate message.
func BuildOCRPrompt(p port.PromptConfig, ocrText string) string {
	var b strings.Builder
	b.WriteString("Extract the invoice data from the following OCR text.\n")
	b.WriteString("- Do not guess or invent values.\n")
	b.WriteString(`- Any value that is not present: leave it "" or 0 for numbers.` + "\n")
	b.WriteString("- Output JSON only, in exactly this shape:\n\n")
	b.WriteString(p.JSONFormat)
	b.WriteString("\n\n")
	if p.Instructions != "" {
		b.WriteString(p.Instructions)
		b.WriteString("\n\n")
	}
	b.WriteString("OCR text:\n")
	b.WriteString(ocrText)
	return b.String()
}
