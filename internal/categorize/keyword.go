package categorize

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/receipts-reconciler/constants"
	"github.com/joseph-ayodele/receipts-reconciler/internal/common"
)

// Rule maps keywords to a label. Keywords match whole words,
// case-insensitively.
type Rule struct {
	Category string   `yaml:"category" validate:"required"`
	Keywords []string `yaml:"keywords" validate:"required,min=1,dive,required"`
}

type rulesFile struct {
	Rules []Rule `yaml:"rules" validate:"dive"`
}

type compiledRule struct {
	category string
	re       *regexp.Regexp
}

// KeywordClassifier is the offline classifier. Configured rules are tried
// in order, then the built-in synonyms, and finally Other.
type KeywordClassifier struct {
	rules []compiledRule
}

var _ Classifier = (*KeywordClassifier)(nil)

func NewKeywordClassifier(rules []Rule) (*KeywordClassifier, error) {
	c := &KeywordClassifier{}
	for _, r := range rules {
		if strings.TrimSpace(r.Category) == "" {
			return nil, fmt.Errorf("rule with keywords %v has no category", r.Keywords)
		}
		words := make([]string, 0, len(r.Keywords))
		for _, k := range r.Keywords {
			if k = strings.TrimSpace(k); k != "" {
				words = append(words, regexp.QuoteMeta(k))
			}
		}
		if len(words) == 0 {
			continue
		}
		re, err := regexp.Compile(`(?i)\b(?:` + strings.Join(words, "|") + `)\b`)
		if err != nil {
			return nil, fmt.Errorf("compile rule %s: %w", r.Category, err)
		}
		c.rules = append(c.rules, compiledRule{category: strings.TrimSpace(r.Category), re: re})
	}
	return c, nil
}

// LoadRules reads a YAML rules file:
//
//	rules:
//	  - category: Travel
//	    keywords: [delta, united, marriott]
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules: %w", err)
	}
	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing rules: %w", err)
	}
	if err := common.ValidateStruct(&f); err != nil {
		return nil, fmt.Errorf("rules %s: %w", path, err)
	}
	return f.Rules, nil
}

func (c *KeywordClassifier) Name() string { return "keyword" }

func (c *KeywordClassifier) Classify(ctx context.Context, description string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	for _, r := range c.rules {
		if r.re.MatchString(description) {
			return r.category, nil
		}
	}
	if cat, ok := constants.GuessFromText(description); ok {
		return string(cat), nil
	}
	return string(constants.Other), nil
}
