package extract

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/receipts-reconciler/internal/entity"
	"github.com/joseph-ayodele/receipts-reconciler/internal/normalize"
)

var defaultDate = time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func runHeuristic(t *testing.T, cfg HeuristicConfig, raw string) Fields {
	t.Helper()
	h := NewHeuristic(cfg, nil)
	f, err := h.Extract(context.Background(), Request{
		Lines:       normalize.Lines(raw),
		DefaultDate: defaultDate,
	})
	require.NoError(t, err)
	return f
}

func TestHeuristic_TotalLine(t *testing.T) {
	f := runHeuristic(t, HeuristicConfig{}, "Corner Shop\n\nTotal: $45.99\nThank you")
	assert.True(t, decimal.RequireFromString("45.99").Equal(f.Amount), "got %s", f.Amount)
}

func TestHeuristic_NothingRecognised(t *testing.T) {
	f := runHeuristic(t, HeuristicConfig{}, "thanks for visiting\nplease come again")
	assert.Equal(t, entity.UnknownVendor, f.Vendor)
	assert.True(t, f.Amount.IsZero())
	assert.Equal(t, defaultDate, f.Date)
	assert.Nil(t, f.LineItems)
}

func TestHeuristic_EmptyInput(t *testing.T) {
	f := runHeuristic(t, HeuristicConfig{}, "")
	assert.Equal(t, entity.UnknownVendor, f.Vendor)
	assert.True(t, f.Amount.IsZero())
	assert.Equal(t, defaultDate, f.Date)
}

func TestHeuristic_DefaultDateFromClock(t *testing.T) {
	h := NewHeuristic(HeuristicConfig{Today: func() time.Time {
		return time.Date(2025, 1, 2, 15, 4, 5, 0, time.UTC)
	}}, nil)
	f, err := h.Extract(context.Background(), Request{Lines: []string{"no date here"}})
	require.NoError(t, err)
	assert.Equal(t, day(2025, time.January, 2), f.Date)
}

func TestHeuristic_Vendor(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		cfg  HeuristicConfig
		want string
	}{
		{
			name: "label remainder is trimmed",
			raw:  "RECEIPT #8812\nVendor:   Acme Supplies   \nTotal: 10.00",
			want: "Acme Supplies",
		},
		{
			name: "label is case insensitive",
			raw:  "bill to: Northwind Traders",
			want: "Northwind Traders",
		},
		{
			name: "empty label remainder falls through",
			raw:  "Company:\nStarbucks Store #12",
			want: "Starbucks",
		},
		{
			name: "brand beats proper name on the same line",
			raw:  "Starbucks Coffee Company\nTotal: $5.75",
			want: "Starbucks",
		},
		{
			name: "brand is whole word only",
			raw:  "lawsuit draws attention\nPAYMENT COPY",
			cfg:  HeuristicConfig{Brands: []string{"AWS"}},
			want: "PAYMENT COPY",
		},
		{
			name: "earlier line wins over a later label",
			raw:  "Acme Hardware Inc.\nFrom: Someone Else",
			cfg:  HeuristicConfig{Brands: []string{}},
			want: "Acme Hardware Inc.",
		},
		{
			name: "proper name only in head lines",
			raw:  "thank you\nvisit us online\nwww.example.com\nAcme Corp",
			cfg:  HeuristicConfig{Brands: []string{}},
			want: entity.UnknownVendor,
		},
		{
			name: "document headings are not vendors",
			raw:  "Receipt\nBlue Bottle Cafe",
			cfg:  HeuristicConfig{Brands: []string{}},
			want: "Blue Bottle Cafe",
		},
		{
			name: "numbered invoice heading yields to the label",
			raw:  "Invoice No. 4471\nVendor: Acme Supplies\nTotal: $45.99",
			cfg:  HeuristicConfig{Brands: []string{}},
			want: "Acme Supplies",
		},
		{
			name: "order number heading yields to the label",
			raw:  "Order 20931\nSold By: Blue Bottle\nTotal: 5.00",
			cfg:  HeuristicConfig{Brands: []string{}},
			want: "Blue Bottle",
		},
		{
			name: "dated invoice heading is skipped",
			raw:  "RECEIPT\nInvoice 2024-03-01\nBlue Bottle Cafe",
			cfg:  HeuristicConfig{Brands: []string{}},
			want: "Blue Bottle Cafe",
		},
		{
			name: "hashed receipt heading is skipped",
			raw:  "Receipt #8812\nNorthwind Traders",
			cfg:  HeuristicConfig{Brands: []string{}},
			want: "Northwind Traders",
		},
		{
			name: "digits inside the first word are kept",
			raw:  "Route66 Diner",
			cfg:  HeuristicConfig{Brands: []string{}},
			want: "Route66 Diner",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := runHeuristic(t, tt.cfg, tt.raw)
			assert.Equal(t, tt.want, f.Vendor)
		})
	}
}

func TestHeuristic_Amount(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		cfg  HeuristicConfig
		want string
	}{
		{name: "thousands separators", raw: "Amount Due: $1,234.56", want: "1234.56"},
		{name: "label without colon", raw: "Balance Due 88.10", want: "88.10"},
		{name: "negative becomes absolute", raw: "Balance: -20.00", want: "20"},
		{name: "label beats symbol on the same line", raw: "Total: 45.99 (was $50.00)", want: "45.99"},
		{name: "bare currency symbol", raw: "Coffee\nCharged €7.20", want: "7.20"},
		{name: "first line wins", raw: "Subtotal $40.00\nTax $5.99\nTotal: $45.99", want: "40.00"},
		{name: "trailing window biases to totals", raw: "Subtotal $40.00\nTax $5.99\nTotal: $45.99", cfg: HeuristicConfig{AmountWindow: 1}, want: "45.99"},
		{name: "subtotal is not a total label", raw: "Subtotal: 40.00", want: "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := runHeuristic(t, tt.cfg, tt.raw)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(f.Amount), "got %s", f.Amount)
		})
	}
}

func TestHeuristic_Date(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		cfg  HeuristicConfig
		want time.Time
	}{
		{name: "iso", raw: "Date: 2024-03-01", want: day(2024, time.March, 1)},
		{name: "us slash", raw: "Invoice Date: 03/15/2024", want: day(2024, time.March, 15)},
		{name: "day first when month impossible", raw: "Date: 15/03/2024", want: day(2024, time.March, 15)},
		{name: "dotted is day first", raw: "Date: 05.03.2024", want: day(2024, time.March, 5)},
		{name: "two digit year", raw: "Date: 3/1/24", want: day(2024, time.March, 1)},
		{name: "month name", raw: "Issued Mar 5, 2024", want: day(2024, time.March, 5)},
		{name: "day month name", raw: "Paid 7 April 2024", want: day(2024, time.April, 7)},
		{name: "uppercase day month name", raw: "5 MARCH 2024", want: day(2024, time.March, 5)},
		{name: "uppercase after a word", raw: "Paid 5 MARCH 2024", want: day(2024, time.March, 5)},
		{name: "uppercase month first", raw: "SERVED SEPTEMBER 9, 2024", want: day(2024, time.September, 9)},
		{name: "uppercase behind a label", raw: "DATE: MARCH 5, 2024", want: day(2024, time.March, 5)},
		{name: "label beats bare on the same line", raw: "Printed 2024-01-01 Date: 2024-02-02", want: day(2024, time.February, 2)},
		{name: "invalid calendar date is skipped", raw: "Date: 02/30/2024\nServed 2024-02-28", want: day(2024, time.February, 28)},
		{name: "day first config", raw: "Date: 04/03/2024", cfg: HeuristicConfig{DayFirst: true}, want: day(2024, time.March, 4)},
		{name: "none falls back", raw: "Order 12345", want: defaultDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := runHeuristic(t, tt.cfg, tt.raw)
			assert.Equal(t, tt.want, f.Date)
		})
	}
}

func TestHeuristic_FullReceipt(t *testing.T) {
	raw := "STARBUCKS STORE 1021\r\n123 Main St\r\n\r\n03/01/2024  08:12\r\nLatte   5.75\r\nTotal:  $5.75\r\n"
	f := runHeuristic(t, HeuristicConfig{}, raw)
	assert.Equal(t, "Starbucks", f.Vendor)
	assert.True(t, decimal.RequireFromString("5.75").Equal(f.Amount))
	assert.Equal(t, day(2024, time.March, 1), f.Date)
}

func TestHeuristic_RecognizerOrder(t *testing.T) {
	h := NewHeuristic(HeuristicConfig{}, nil)
	assert.Equal(t, []string{"label", "brand", "proper-name"}, h.VendorRecognizers())
	assert.Equal(t, []string{"label", "currency-symbol"}, h.AmountRecognizers())
	assert.Equal(t, []string{"label", "bare"}, h.DateRecognizers())
	assert.Equal(t, "heuristic", h.Name())
}

func TestHeuristic_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewHeuristic(HeuristicConfig{}, nil).Extract(ctx, Request{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestParseDateToken(t *testing.T) {
	tests := []struct {
		tok  string
		ok   bool
		want time.Time
	}{
		{"2024/03/01", true, day(2024, time.March, 1)},
		{"2024-13-01", false, time.Time{}},
		{"31/04/2024", false, time.Time{}},
		{"29.02.2024", true, day(2024, time.February, 29)},
		{"29.02.2023", false, time.Time{}},
		{"Sept 9, 2024", true, day(2024, time.September, 9)},
		{"Foo 9, 2024", false, time.Time{}},
		{"1/2/345", false, time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.tok, func(t *testing.T) {
			got, ok := ParseDateToken(tt.tok, false)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParseAmount(t *testing.T) {
	for in, want := range map[string]string{
		"1,234.50": "1234.5",
		"(12.00)":  "12",
		"-3":       "3",
		"0.99":     "0.99",
	} {
		got, err := ParseAmount(in)
		require.NoError(t, err, in)
		assert.True(t, decimal.RequireFromString(want).Equal(got), "%s -> %s", in, got)
	}
	_, err := ParseAmount("abc")
	assert.Error(t, err)
}
