package catalog

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"sync"
	"time"
)

// skuPattern is the canonical format for caller-supplied SKUs. Generated SKUs
// use the stricter prefix-dash-digits shape and satisfy this rule as well.
var skuPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,20}$`)

// generatedSKUPattern matches SKUs produced by the automatic generator.
var generatedSKUPattern = regexp.MustCompile(`^[A-Z]{3}-\d{6}$`)

// maxSKUAttempts bounds the retry loop when generated SKUs keep colliding.
const maxSKUAttempts = 5

var categoryPrefixes = map[string]string{
	"ELECTRONICS": "ELC",
	"CLOTHING":    "CLO",
	"BOOKS":       "BOO",
	"TOYS":        "TOY",
	"HOME":        "HOM",
	"SPORTS":      "SPO",
	"AUTOMOTIVE":  "AUT",
	"GARDEN":      "GAR",
	"HEALTH":      "HEA",
	"MUSIC":       "MUS",
}

var fallbackPrefixes = []string{"ELC", "CLO", "BOO", "TOY", "HOM", "SPO", "AUT", "GAR", "HEA", "MUS"}

// SKUPolicy decides and validates the SKU for a product about to be created.
// Pure logic plus a bounded random source; it performs no I/O.
type SKUPolicy struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSKUPolicy builds a policy with a time-seeded random source.
func NewSKUPolicy() *SKUPolicy {
	return &SKUPolicy{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// Normalize returns the SKU to persist for the given draft values. A blank
// candidate is derived from the category; a present candidate must match the
// canonical format.
func (p *SKUPolicy) Normalize(candidate, category string) (string, error) {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return p.Generate(category), nil
	}
	if !skuPattern.MatchString(trimmed) {
		return "", &ValidationError{Field: "sku", Reason: "must be 3-20 characters of [A-Za-z0-9_-]"}
	}
	return trimmed, nil
}

// Generate derives a category-prefixed SKU with a random 6-digit suffix.
func (p *SKUPolicy) Generate(category string) string {
	prefix := p.categoryPrefix(category)
	p.mu.Lock()
	n := p.rng.Intn(900000) + 100000
	p.mu.Unlock()
	return fmt.Sprintf("%s-%06d", prefix, n)
}

func (p *SKUPolicy) categoryPrefix(category string) string {
	upper := strings.ToUpper(strings.TrimSpace(category))
	if upper == "" {
		return p.randomPrefix()
	}
	if prefix, ok := categoryPrefixes[upper]; ok {
		return prefix
	}
	letters := make([]rune, 0, 3)
	for _, r := range upper {
		if r >= 'A' && r <= 'Z' {
			letters = append(letters, r)
		}
		if len(letters) == 3 {
			return string(letters)
		}
	}
	return p.randomPrefix()
}

func (p *SKUPolicy) randomPrefix() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return fallbackPrefixes[p.rng.Intn(len(fallbackPrefixes))]
}
