package constants

import (
	"regexp"
	"sort"
	"strings"
)

type Category string

const (
	Travel        Category = "Travel"
	Meals         Category = "Meals"
	Office        Category = "Office"
	Software      Category = "Software"
	Other         Category = "Other"
	Uncategorized Category = "Uncategorized"
)

var allCategories = []Category{
	Travel,
	Meals,
	Office,
	Software,
	Other,
}

func AsStringSlice() []string {
	result := make([]string, len(allCategories))
	for i, cat := range allCategories {
		result[i] = string(cat)
	}
	return result
}

// synonyms maps free-form labels and merchant keywords to a canonical category.
var synonyms = map[string]Category{
	"travel":          Travel,
	"travelexpenses":  Travel,
	"airline":         Travel,
	"airfare":         Travel,
	"flight":          Travel,
	"hotel":           Travel,
	"taxi":            Travel,
	"uber":            Travel,
	"lyft":            Travel,
	"delta":           Travel,
	"meal":            Meals,
	"meals":           Meals,
	"food":            Meals,
	"dining":          Meals,
	"restaurant":      Meals,
	"coffee":          Meals,
	"starbucks":       Meals,
	"dinner":          Meals,
	"office":          Office,
	"office supplies": Office,
	"officesupplies":  Office,
	"supplies":        Office,
	"office depot":    Office,
	"stationery":      Office,
	"software":        Software,
	"saas":            Software,
	"subscription":    Software,
	"cloud":           Software,
	"aws":             Software,
}

// Canonicalize maps a label to one of the known categories. Unknown labels
// collapse to Other with ok=false.
func Canonicalize(input string) (Category, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return Other, false
	}

	if cat, ok := synonyms[normalized]; ok {
		return cat, true
	}

	for _, cat := range allCategories {
		if normalized == strings.ToLower(string(cat)) {
			return cat, true
		}
	}

	return Other, false
}

// GuessFromText returns the category of the first keyword found in text as a
// whole word. Longer keywords are tried first so "office depot" wins over "office".
func GuessFromText(text string) (Category, bool) {
	for _, kw := range keywordPatterns {
		if kw.re.MatchString(text) {
			return synonyms[kw.word], true
		}
	}
	return Other, false
}

type keywordPattern struct {
	word string
	re   *regexp.Regexp
}

var keywordPatterns = func() []keywordPattern {
	words := make([]string, 0, len(synonyms))
	for k := range synonyms {
		words = append(words, k)
	}
	sort.Slice(words, func(i, j int) bool {
		if len(words[i]) != len(words[j]) {
			return len(words[i]) > len(words[j])
		}
		return words[i] < words[j]
	})
	out := make([]keywordPattern, len(words))
	for i, w := range words {
		out[i] = keywordPattern{word: w, re: regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(w) + `\b`)}
	}
	return out
}()
