package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateKnownCategoryPrefix(t *testing.T) {
	policy := NewSKUPolicy()

	cases := map[string]string{
		"ELECTRONICS": "ELC",
		"electronics": "ELC",
		"Clothing":    "CLO",
		"BOOKS":       "BOO",
		"MUSIC":       "MUS",
	}
	for category, prefix := range cases {
		sku := policy.Generate(category)
		require.True(t, generatedSKUPattern.MatchString(sku), "sku %q", sku)
		require.True(t, strings.HasPrefix(sku, prefix+"-"), "sku %q for %q", sku, category)
	}
}

func TestGenerateUnknownCategoryUsesLetters(t *testing.T) {
	policy := NewSKUPolicy()

	sku := policy.Generate("Furniture")
	require.True(t, strings.HasPrefix(sku, "FUR-"), "sku %q", sku)
	require.True(t, generatedSKUPattern.MatchString(sku))
}

func TestGenerateDegenerateCategoryFallsBack(t *testing.T) {
	policy := NewSKUPolicy()

	for _, category := range []string{"", "42", "ab"} {
		sku := policy.Generate(category)
		require.True(t, generatedSKUPattern.MatchString(sku), "sku %q for %q", sku, category)
		require.Contains(t, fallbackPrefixes, sku[:3])
	}
}

func TestNormalizeAcceptsCanonicalSKU(t *testing.T) {
	policy := NewSKUPolicy()

	for _, candidate := range []string{"ABC-123456", "abc", "A_b-9", "  padded-001  ", strings.Repeat("x", 20)} {
		sku, err := policy.Normalize(candidate, "BOOKS")
		require.NoError(t, err, "candidate %q", candidate)
		require.Equal(t, strings.TrimSpace(candidate), sku)
	}
}

func TestNormalizeRejectsMalformedSKU(t *testing.T) {
	policy := NewSKUPolicy()

	for _, candidate := range []string{"ab", strings.Repeat("x", 21), "has space", "ünicode", "semi;colon"} {
		_, err := policy.Normalize(candidate, "BOOKS")
		var verr *ValidationError
		require.ErrorAs(t, err, &verr, "candidate %q", candidate)
		require.Equal(t, "sku", verr.Field)
	}
}

func TestNormalizeBlankGenerates(t *testing.T) {
	policy := NewSKUPolicy()

	sku, err := policy.Normalize("   ", "TOYS")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(sku, "TOY-"))
	require.True(t, generatedSKUPattern.MatchString(sku))
}
