package llm

import (
	"strings"
)

// maxPromptChars caps the OCR text sent to a provider.
const maxPromptChars = 8000

// ExtractionSystemPrompt is the fixed instruction for structured extraction.
const ExtractionSystemPrompt = "You are a receipt and invoice analyzer. " +
	"Extract the vendor name, the total amount, the transaction date and the itemized lines from the document text. " +
	"Return ONLY a JSON object with the keys vendor (string), total (number), date (string, YYYY-MM-DD) " +
	"and items (array of objects with name (string), price (number) and optional quantity (integer)). " +
	"Use an empty items array when no lines are itemized. Do not wrap the JSON in code fences."

// BuildExtractionUserPrompt wraps the document text for extraction.
func BuildExtractionUserPrompt(text string) string {
	var b strings.Builder
	b.WriteString("Document text:\n")
	b.WriteString(truncateRunes(text, maxPromptChars))
	b.WriteString("\n\nReturn ONLY JSON that matches the provided schema.")
	return b.String()
}

// ClassificationSystemPrompt asks for a single category label.
func ClassificationSystemPrompt(categories []string) string {
	parts := []string{
		"You categorize business transactions for expense reports.",
		"Reply with the category label only, no punctuation or explanation.",
	}
	if len(categories) > 0 {
		parts = append(parts, "Prefer one of: "+strings.Join(categories, ", ")+".")
	}
	return strings.Join(parts, " ")
}

// BuildClassificationUserPrompt wraps a transaction description.
func BuildClassificationUserPrompt(description string) string {
	return "Transaction: " + truncateRunes(strings.TrimSpace(description), 500)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
