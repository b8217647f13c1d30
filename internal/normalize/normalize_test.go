package normalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLines(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{name: "empty", in: "", want: nil},
		{name: "only whitespace", in: " \t\r\n \n\n", want: nil},
		{name: "unix breaks", in: "a\nb", want: []string{"a", "b"}},
		{name: "windows breaks", in: "a\r\nb\r\n", want: []string{"a", "b"}},
		{name: "old mac breaks", in: "a\rb", want: []string{"a", "b"}},
		{name: "mixed breaks", in: "a\r\n\rb\n\nc", want: []string{"a", "b", "c"}},
		{name: "collapses interior runs", in: "Total:   $ \t 45.99", want: []string{"Total: $ 45.99"}},
		{name: "trims edges", in: "   STARBUCKS   ", want: []string{"STARBUCKS"}},
		{name: "nbsp and tabs", in: "Amount:\u00a0\u00a012.00\t\tUSD", want: []string{"Amount: 12.00 USD"}},
		{name: "unicode separators", in: "one\u2028two\u2029three", want: []string{"one", "two", "three"}},
		{name: "form feed page break", in: "page1\n\f\npage2", want: []string{"page1", "page2"}},
		{name: "ogham space mark", in: "Total:\u1680\u1680$5.00", want: []string{"Total: $5.00"}},
		{name: "mixed space separators", in: "A\u2007\u3000B\u200bC\u205f\u00a0D", want: []string{"A B C D"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Lines(tt.in))
		})
	}
}

func TestLines_NeverEmptyOrDoubleSpaced(t *testing.T) {
	inputs := []string{
		"  a  b  \n\n\t c\t\td \r\n   \r\n e ",
		"\n\n\n",
		"Vendor:    Office   Depot\r\r\rTotal:\t\t$1,234.50",
		strings.Repeat(" x ", 50) + "\n" + strings.Repeat("\t", 10),
	}
	for _, in := range inputs {
		for _, ln := range Lines(in) {
			assert.NotEmpty(t, strings.TrimSpace(ln))
			assert.NotContains(t, ln, "  ")
			assert.Equal(t, strings.TrimSpace(ln), ln)
		}
	}
}

func TestText(t *testing.T) {
	assert.Equal(t, "ACME Inc\nTotal: $5.00", Text("  ACME   Inc \r\n\r\n Total:  $5.00 "))
	assert.Equal(t, "", Text(""))
}
