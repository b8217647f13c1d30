package entity

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// UnknownVendor is used when no vendor could be recovered from a document.
const UnknownVendor = "Unknown"

// DateLayout is the calendar date wire format.
const DateLayout = "2006-01-02"

// LineItem is one itemised line of a document.
type LineItem struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity *int            `json:"quantity,omitempty"`
}

// Document is a structured record extracted from one source file.
type Document struct {
	ID          string          `json:"id"`
	Vendor      string          `json:"vendor"`
	Amount      decimal.Decimal `json:"amount"`
	Date        time.Time       `json:"-"`
	RawText     string          `json:"raw_text"`
	LineItems   []LineItem      `json:"line_items,omitempty"`
	Source      SourceFile      `json:"source"`
	Strategy    string          `json:"strategy"`
	ExtractedAt time.Time       `json:"extracted_at"`
}

type documentJSON Document

func (d Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		documentJSON
		Date string `json:"date"`
	}{documentJSON(d), d.Date.Format(DateLayout)})
}

func (d *Document) UnmarshalJSON(b []byte) error {
	var aux struct {
		documentJSON
		Date string `json:"date"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	date, err := ParseDate(aux.Date)
	if err != nil {
		return err
	}
	*d = Document(aux.documentJSON)
	d.Date = date
	return nil
}

// Clone returns a copy that shares no slices with d.
func (d Document) Clone() Document {
	out := d
	if d.LineItems != nil {
		out.LineItems = make([]LineItem, len(d.LineItems))
		for i, it := range d.LineItems {
			out.LineItems[i] = it
			if it.Quantity != nil {
				q := *it.Quantity
				out.LineItems[i].Quantity = &q
			}
		}
	}
	if d.Source.ContentHash != nil {
		out.Source.ContentHash = append([]byte(nil), d.Source.ContentHash...)
	}
	return out
}

// DateOnly truncates t to its calendar date in UTC.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return t, nil
}
