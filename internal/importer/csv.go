// Package importer reads bank statement exports into transactions.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/receipts-reconciler/internal/entity"
)

// CSVConfig names the columns to read. Column names match headers
// case-insensitively.
type CSVConfig struct {
	DateColumn        string
	DescriptionColumn string
	AmountColumn      string
	// IDColumn is optional; rows are numbered from 1 when it is empty.
	IDColumn    string
	DateLayouts []string
	// KeepSign keeps debits negative. By default amounts are stored
	// without sign, as extracted documents carry them.
	KeepSign bool
}

func DefaultCSVConfig() CSVConfig {
	return CSVConfig{
		DateColumn:        "date",
		DescriptionColumn: "description",
		AmountColumn:      "amount",
		DateLayouts:       []string{entity.DateLayout, "01/02/2006", "1/2/2006", "01/02/06", "2006/01/02", "02 Jan 2006", "Jan 2, 2006"},
	}
}

// CSVParser parses a headed CSV export.
type CSVParser struct {
	cfg CSVConfig
}

func NewCSVParser(cfg CSVConfig) *CSVParser {
	def := DefaultCSVConfig()
	if cfg.DateColumn == "" {
		cfg.DateColumn = def.DateColumn
	}
	if cfg.DescriptionColumn == "" {
		cfg.DescriptionColumn = def.DescriptionColumn
	}
	if cfg.AmountColumn == "" {
		cfg.AmountColumn = def.AmountColumn
	}
	if len(cfg.DateLayouts) == 0 {
		cfg.DateLayouts = def.DateLayouts
	}
	return &CSVParser{cfg: cfg}
}

type columns struct {
	date, desc, amount, id int
}

// Parse reads every row. The first bad row aborts with its line number.
func (p *CSVParser) Parse(r io.Reader) ([]entity.Transaction, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	cols, err := p.locate(header)
	if err != nil {
		return nil, err
	}

	var txns []entity.Transaction
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV: %w", err)
		}
		if blank(rec) {
			continue
		}
		tx, err := p.parseRow(rec, cols, len(txns)+1)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		txns = append(txns, tx)
	}
	return txns, nil
}

func (p *CSVParser) locate(header []string) (columns, error) {
	find := func(name string) int {
		for i, h := range header {
			h = strings.TrimPrefix(h, "\ufeff")
			if strings.EqualFold(strings.TrimSpace(h), name) {
				return i
			}
		}
		return -1
	}
	cols := columns{
		date:   find(p.cfg.DateColumn),
		desc:   find(p.cfg.DescriptionColumn),
		amount: find(p.cfg.AmountColumn),
		id:     -1,
	}
	if p.cfg.IDColumn != "" {
		cols.id = find(p.cfg.IDColumn)
	}
	type requiredCol struct {
		name string
		idx  int
	}
	required := []requiredCol{
		{p.cfg.DateColumn, cols.date},
		{p.cfg.DescriptionColumn, cols.desc},
		{p.cfg.AmountColumn, cols.amount},
	}
	if p.cfg.IDColumn != "" {
		required = append(required, requiredCol{p.cfg.IDColumn, cols.id})
	}
	var missing []string
	for _, col := range required {
		if col.idx < 0 {
			missing = append(missing, col.name)
		}
	}
	if len(missing) > 0 {
		return columns{}, fmt.Errorf("CSV header missing columns %v", missing)
	}
	return cols, nil
}

func (p *CSVParser) parseRow(rec []string, cols columns, n int) (entity.Transaction, error) {
	field := func(i int) string {
		if i < 0 || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	date, err := p.parseDate(field(cols.date))
	if err != nil {
		return entity.Transaction{}, err
	}
	amount, err := ParseAmount(field(cols.amount))
	if err != nil {
		return entity.Transaction{}, err
	}
	if !p.cfg.KeepSign {
		amount = amount.Abs()
	}
	id := strconv.Itoa(n)
	if cols.id >= 0 {
		id = field(cols.id)
	}

	tx := entity.Transaction{
		ID:          id,
		Description: field(cols.desc),
		Amount:      amount,
		Date:        date,
	}
	return tx, tx.Validate()
}

func (p *CSVParser) parseDate(s string) (time.Time, error) {
	for _, layout := range p.cfg.DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parsing date %q: %w", s, entity.ErrInvalidTransaction)
}

// ParseAmount accepts currency symbols, thousands separators and
// accounting-style parentheses for negatives.
func ParseAmount(s string) (decimal.Decimal, error) {
	raw := s
	s = strings.TrimSpace(s)
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	s = strings.NewReplacer("$", "", "€", "", "£", "", ",", "", " ", "").Replace(s)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parsing amount %q: %w", raw, entity.ErrInvalidTransaction)
	}
	if neg {
		d = d.Neg()
	}
	return d, nil
}

func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
