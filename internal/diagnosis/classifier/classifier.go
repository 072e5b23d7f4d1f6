// Package classifier assigns failure categories to error descriptors using
// three additive evidence tiers: exception signatures, keywords and stage hints.
package classifier

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/vietddude/dlqdiag/internal/core/domain"
)

// Scores is the per-category evidence broken down by tier.
type Scores struct {
	Signature [domain.NumCategories]int
	Keyword   [domain.NumCategories]int
	Stage     [domain.NumCategories]int
}

// Total returns the combined score of category c.
func (s Scores) Total(c domain.Category) int {
	if !c.Known() {
		return 0
	}
	return s.Signature[c] + s.Keyword[c] + s.Stage[c]
}

// Best returns the highest-scoring category. Ties go to the category that
// comes first in enumeration order. With no evidence it returns UNKNOWN.
func (s Scores) Best() (domain.Category, int) {
	best, top := domain.CategoryUnknown, 0
	for _, c := range domain.Categories() {
		if score := s.Total(c); score > top {
			best, top = c, score
		}
	}
	return best, top
}

type compiledRule struct {
	signatures    []*regexp.Regexp
	keywords      []string
	keywordWeight int
}

// Classifier is safe for concurrent use once built.
type Classifier struct {
	rules      Rules
	byCategory [domain.NumCategories]compiledRule
}

// New compiles the rule table.
func New(rules Rules) (*Classifier, error) {
	c := &Classifier{rules: rules}
	seen := make(map[domain.Category]bool, len(rules.Categories))

	for _, r := range rules.Categories {
		if !r.Category.Known() {
			return nil, fmt.Errorf("rule for non-classifiable category %s", r.Category)
		}
		if seen[r.Category] {
			return nil, fmt.Errorf("duplicate rule for category %s", r.Category)
		}
		seen[r.Category] = true

		compiled := compiledRule{keywordWeight: r.KeywordWeight}
		for _, sig := range r.Signatures {
			re, err := regexp.Compile("(?i)" + sig)
			if err != nil {
				return nil, fmt.Errorf("failed to compile signature %q for %s: %w", sig, r.Category, err)
			}
			compiled.signatures = append(compiled.signatures, re)
		}
		for _, kw := range r.Keywords {
			compiled.keywords = append(compiled.keywords, strings.ToLower(kw))
		}
		c.byCategory[r.Category] = compiled
	}

	for _, h := range rules.StageHints {
		if !h.Category.Known() {
			return nil, fmt.Errorf("stage hint %q targets non-classifiable category %s", h.Stage, h.Category)
		}
	}
	return c, nil
}

// Score computes the evidence for d without modifying it.
func (c *Classifier) Score(d *domain.Descriptor) Scores {
	text := d.ExceptionClass + " " + d.ExceptionMessage + " " + d.Stage
	lower := strings.ToLower(text)

	var s Scores
	for _, cat := range domain.Categories() {
		rule := c.byCategory[cat]
		for _, re := range rule.signatures {
			if re.MatchString(text) {
				s.Signature[cat] += c.rules.SignatureWeight
				break
			}
		}
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				s.Keyword[cat] += rule.keywordWeight
			}
		}
	}

	// Stage hints only reinforce a category that already has evidence.
	for _, h := range c.rules.StageHints {
		if d.Stage != h.Stage {
			continue
		}
		if s.Signature[h.Category]+s.Keyword[h.Category] > 0 {
			s.Stage[h.Category] += h.Weight
		}
	}
	return s
}

// Classify sets d.Category and d.Confidence.
func (c *Classifier) Classify(d *domain.Descriptor) {
	best, top := c.Score(d).Best()
	d.Category = best
	d.Confidence = c.confidence(top)
}

func (c *Classifier) confidence(top int) int {
	conf := top * c.rules.ConfidenceScale
	if conf > c.rules.ConfidenceCap {
		return c.rules.ConfidenceCap
	}
	if conf < 0 {
		return 0
	}
	return conf
}
