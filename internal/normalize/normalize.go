// Package normalize turns raw OCR output into clean, ordered text lines.
package normalize

import (
	"regexp"
	"strings"
)

var (
	reLineBreak = regexp.MustCompile(`\r\n|\r|\n|\x{2028}|\x{2029}|\v|\f|\x{0085}`)
	reSpaceRun  = regexp.MustCompile(`[\s\p{Zs}\x{200B}]+`)
)

// Lines splits raw on any line break form, collapses each line's whitespace
// runs to a single space and drops lines that end up empty.
// Document order is preserved. Empty input yields nil.
func Lines(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, ln := range reLineBreak.Split(raw, -1) {
		ln = strings.TrimSpace(reSpaceRun.ReplaceAllString(ln, " "))
		if ln == "" {
			continue
		}
		out = append(out, ln)
	}
	return out
}

// Text is Lines joined with "\n".
func Text(raw string) string {
	return strings.Join(Lines(raw), "\n")
}
