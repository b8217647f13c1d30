package extract

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/receipts-reconciler/internal/entity"
)

// DefaultBrands is the brand allow-list used when none is configured.
var DefaultBrands = []string{
	"Starbucks",
	"Amazon Web Services",
	"AWS",
	"Office Depot",
	"Delta Air Lines",
	"Delta",
	"Uber",
	"Lyft",
	"Walmart",
	"Target",
	"Costco",
	"Home Depot",
	"Staples",
	"Apple",
	"Google",
	"Microsoft",
}

// HeuristicConfig tunes the offline extractor.
type HeuristicConfig struct {
	// Brands is checked by case-insensitive whole-word containment, in order.
	Brands []string
	// VendorHeadLines bounds the proper-name vendor recognizer to the first
	// lines of the document. Default 3.
	VendorHeadLines int
	// AmountWindow restricts the amount scan to the last N lines; 0 scans all.
	AmountWindow int
	// DayFirst reads ambiguous slash dates as D/M/Y instead of M/D/Y.
	DayFirst bool
	// Today supplies the default date when a request carries none.
	Today func() time.Time
}

// recognizer is one entry of an ordered first-match-wins table.
// capture returns the recovered value and whether the line matched.
type recognizer[T any] struct {
	name    string
	capture func(idx int, line string) (T, bool)
}

// Heuristic is the offline, deterministic strategy. It never fails on
// missing fields; unrecognised values fall back to Unknown, 0 and the
// default date.
type Heuristic struct {
	cfg    HeuristicConfig
	vendor []recognizer[string]
	amount []recognizer[decimal.Decimal]
	date   []recognizer[time.Time]
	logger *slog.Logger
}

var _ Strategy = (*Heuristic)(nil)

var (
	reVendorLabel = regexp.MustCompile(`(?i)^(?:company|vendor|from|bill\s*to|merchant|sold\s*by)\s*:\s*(.+)$`)
	reProperName  = regexp.MustCompile(`^[A-Z][A-Za-z0-9&'.\-]*(?:\s+(?:&\s+)?[A-Z][A-Za-z&'.\-]*)*(?:,?\s+(?i:inc|llc|ltd|corp|co|gmbh|plc|limited|corporation|company)\.?)?$`)
	reDocHeading  = regexp.MustCompile(`(?i)^(?:tax\s+)?(?:invoice|receipt|order|statement|bill)\b\s*(?:no\b|#|\d)`)

	number        = `(-?\(?\d{1,3}(?:,\d{3})+(?:\.\d+)?\)?|-?\(?\d+(?:\.\d+)?\)?)`
	reAmountLabel = regexp.MustCompile(`(?i)\b(?:grand\s+total|total|amount(?:\s+due)?|balance(?:\s+due)?|due)\b\s*:?\s*[$€£¥₹]?\s*` + number)
	reAmountBare  = regexp.MustCompile(`[$€£¥₹]\s*` + number)

	dateToken   = `(\d{4}[-/.]\d{1,2}[-/.]\d{1,2}|\d{1,2}[-/.]\d{1,2}[-/.]\d{2,4}|(?i:jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[A-Za-z]*\.?\s+\d{1,2},?\s+\d{4}|\d{1,2}\s+(?i:jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[A-Za-z]*\.?,?\s+\d{4})`
	reDateLabel = regexp.MustCompile(`(?i)\b(?:invoice\s+date|transaction\s+date|receipt\s+date|date)\s*:\s*` + dateToken)
	reDateBare  = regexp.MustCompile(`\b` + dateToken + `\b`)

	reNumericDate = regexp.MustCompile(`^(\d{1,4})[-/.](\d{1,2})[-/.](\d{1,4})$`)
	reMonthFirst  = regexp.MustCompile(`^([A-Za-z]+)\.?\s+(\d{1,2}),?\s+(\d{4})$`)
	reDayFirst    = regexp.MustCompile(`^(\d{1,2})\s+([A-Za-z]+)\.?,?\s+(\d{4})$`)
)

// headings that look like proper names but never are vendors
var notVendor = map[string]struct{}{
	"receipt": {}, "invoice": {}, "tax invoice": {}, "sales receipt": {},
	"bill": {}, "statement": {}, "thank you": {}, "customer copy": {},
	"merchant copy": {}, "total": {}, "subtotal": {}, "date": {},
}

func NewHeuristic(cfg HeuristicConfig, logger *slog.Logger) *Heuristic {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Brands == nil {
		cfg.Brands = DefaultBrands
	}
	if cfg.VendorHeadLines <= 0 {
		cfg.VendorHeadLines = 3
	}
	if cfg.Today == nil {
		cfg.Today = time.Now
	}
	h := &Heuristic{cfg: cfg, logger: logger}

	brands := make([]*regexp.Regexp, 0, len(cfg.Brands))
	names := make([]string, 0, len(cfg.Brands))
	for _, b := range cfg.Brands {
		b = strings.TrimSpace(b)
		if b == "" {
			continue
		}
		brands = append(brands, regexp.MustCompile(`(?i)(?:^|\W)`+regexp.QuoteMeta(b)+`(?:$|\W)`))
		names = append(names, b)
	}

	h.vendor = []recognizer[string]{
		{name: "label", capture: func(_ int, line string) (string, bool) {
			m := reVendorLabel.FindStringSubmatch(line)
			if m == nil {
				return "", false
			}
			v := strings.TrimSpace(m[1])
			return v, v != ""
		}},
		{name: "brand", capture: func(_ int, line string) (string, bool) {
			for i, re := range brands {
				if re.MatchString(line) {
					return names[i], true
				}
			}
			return "", false
		}},
		{name: "proper-name", capture: func(idx int, line string) (string, bool) {
			if idx >= cfg.VendorHeadLines || reDocHeading.MatchString(line) || !reProperName.MatchString(line) {
				return "", false
			}
			if _, skip := notVendor[strings.ToLower(line)]; skip {
				return "", false
			}
			return line, true
		}},
	}

	h.amount = []recognizer[decimal.Decimal]{
		{name: "label", capture: amountCapture(reAmountLabel)},
		{name: "currency-symbol", capture: amountCapture(reAmountBare)},
	}

	h.date = []recognizer[time.Time]{
		{name: "label", capture: h.dateCapture(reDateLabel)},
		{name: "bare", capture: h.dateCapture(reDateBare)},
	}
	return h
}

func (h *Heuristic) Name() string { return "heuristic" }

// VendorRecognizers lists the vendor recognizer names in precedence order.
func (h *Heuristic) VendorRecognizers() []string { return recognizerNames(h.vendor) }

// AmountRecognizers lists the amount recognizer names in precedence order.
func (h *Heuristic) AmountRecognizers() []string { return recognizerNames(h.amount) }

// DateRecognizers lists the date recognizer names in precedence order.
func (h *Heuristic) DateRecognizers() []string { return recognizerNames(h.date) }

func (h *Heuristic) Extract(ctx context.Context, req Request) (Fields, error) {
	if err := ctx.Err(); err != nil {
		return Fields{}, err
	}
	lines := req.Lines

	vendor, vrule, ok := firstMatch(lines, 0, h.vendor)
	if !ok {
		vendor = entity.UnknownVendor
	}

	from := 0
	if h.cfg.AmountWindow > 0 && len(lines) > h.cfg.AmountWindow {
		from = len(lines) - h.cfg.AmountWindow
	}
	amount, arule, ok := firstMatch(lines[from:], from, h.amount)
	if !ok {
		amount = decimal.Zero
	}

	date, drule, ok := firstMatch(lines, 0, h.date)
	if !ok {
		date = req.DefaultDate
		if date.IsZero() {
			date = h.cfg.Today()
		}
	}

	h.logger.Debug("extract.heuristic.ok",
		"lines", len(lines),
		"vendor_rule", vrule,
		"amount_rule", arule,
		"date_rule", drule,
	)
	return Fields{
		Vendor: vendor,
		Amount: amount,
		Date:   entity.DateOnly(date),
	}, nil
}

// firstMatch walks lines in order and, per line, the recognizers in
// declared order. The first hit wins; offset is the index of lines[0] in the
// full document.
func firstMatch[T any](lines []string, offset int, table []recognizer[T]) (T, string, bool) {
	for i, line := range lines {
		for _, r := range table {
			if v, ok := r.capture(offset+i, line); ok {
				return v, r.name, true
			}
		}
	}
	var zero T
	return zero, "", false
}

func recognizerNames[T any](table []recognizer[T]) []string {
	out := make([]string, len(table))
	for i, r := range table {
		out[i] = r.name
	}
	return out
}

func amountCapture(re *regexp.Regexp) func(int, string) (decimal.Decimal, bool) {
	return func(_ int, line string) (decimal.Decimal, bool) {
		m := re.FindStringSubmatch(line)
		if m == nil {
			return decimal.Decimal{}, false
		}
		d, err := ParseAmount(m[1])
		if err != nil {
			return decimal.Decimal{}, false
		}
		return d, true
	}
}

// ParseAmount parses a currency figure with optional thousands separators,
// a leading minus or accounting parentheses, and returns its absolute value.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer(",", "", "(", "", ")", "", "-", "").Replace(s)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return d.Abs(), nil
}

func (h *Heuristic) dateCapture(re *regexp.Regexp) func(int, string) (time.Time, bool) {
	return func(_ int, line string) (time.Time, bool) {
		for _, m := range re.FindAllStringSubmatch(line, -1) {
			if t, ok := ParseDateToken(m[1], h.cfg.DayFirst); ok {
				return t, true
			}
		}
		return time.Time{}, false
	}
}

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

// ParseDateToken parses one date token and reports whether it is a real
// calendar date. Four-digit-first tokens are Y-M-D. Dotted tokens are D.M.Y.
// Slash and dash tokens are M/D/Y unless dayFirst is set or the first part
// cannot be a month.
func ParseDateToken(tok string, dayFirst bool) (time.Time, bool) {
	tok = strings.TrimSpace(tok)

	if m := reMonthFirst.FindStringSubmatch(tok); m != nil {
		return monthNameDate(m[1], m[2], m[3])
	}
	if m := reDayFirst.FindStringSubmatch(tok); m != nil {
		return monthNameDate(m[2], m[1], m[3])
	}

	m := reNumericDate.FindStringSubmatch(tok)
	if m == nil {
		return time.Time{}, false
	}
	a, _ := strconv.Atoi(m[1])
	b, _ := strconv.Atoi(m[2])
	c, _ := strconv.Atoi(m[3])

	if len(m[1]) == 4 {
		return calendarDate(a, b, c)
	}
	if len(m[3]) != 2 && len(m[3]) != 4 {
		return time.Time{}, false
	}
	year := c
	if len(m[3]) == 2 {
		year = 2000 + c
	}
	sep := tok[len(m[1])]
	if sep == '.' || dayFirst || a > 12 {
		return calendarDate(year, b, a)
	}
	return calendarDate(year, a, b)
}

func monthNameDate(name, day, year string) (time.Time, bool) {
	key := strings.ToLower(name)
	if len(key) < 3 {
		return time.Time{}, false
	}
	mon, ok := months[key[:3]]
	if !ok {
		return time.Time{}, false
	}
	d, _ := strconv.Atoi(day)
	y, _ := strconv.Atoi(year)
	return calendarDate(y, int(mon), d)
}

// calendarDate rejects values time.Date would silently normalise (Feb 30).
func calendarDate(y, m, d int) (time.Time, bool) {
	if y < 1900 || y > 2999 || m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}
