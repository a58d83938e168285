package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractKeywords(t *testing.T) {
	got := ExtractKeywords("Payment from John Smith - Loan Ref 12345")
	assert.Equal(t, []string{"john", "smith", "loan", "12345"}, got)

	assert.Empty(t, ExtractKeywords("to of at"), "short tokens are dropped")
	assert.Empty(t, ExtractKeywords("the and for"), "stop words are dropped")
}

func TestExtractVendorKeywords(t *testing.T) {
	got := ExtractVendorKeywords("POS Purchase ACME Office Supplies www.acme.com 0123456789 ZA")
	assert.Equal(t, []string{"acme", "office", "supplies"}, got)

	// Long reference codes are stripped before tokenizing.
	got = ExtractVendorKeywords("Stationery World 99887766")
	assert.Equal(t, []string{"stationery", "world"}, got)

	// Capped at five tokens.
	got = ExtractVendorKeywords("alpha bravo charlie delta echo foxtrot golf")
	assert.Len(t, got, 5)
}
