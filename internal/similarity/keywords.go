package similarity

import (
	"regexp"
	"strings"
)

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "from": true, "with": true,
	"payment": true, "transfer": true, "ref": true, "reference": true,
	"transaction": true, "deposit": true, "withdrawal": true,
	"ltd": true, "llc": true, "inc": true, "pty": true, "limited": true,
}

// bankingStopWords extends the generic list with statement boilerplate
// that carries no vendor signal.
var bankingStopWords = map[string]bool{
	"card": true, "debit": true, "credit": true, "pos": true, "atm": true,
	"eft": true, "ach": true, "sepa": true, "swift": true, "iban": true,
	"fee": true, "charge": true, "online": true, "banking": true,
	"purchase": true, "recurring": true, "pending": true, "visa": true,
	"mastercard": true, "int": true, "intl": true, "date": true,
	"value": true, "branch": true, "cheque": true, "check": true,
}

var (
	nonAlnumRe  = regexp.MustCompile(`[^a-z0-9]+`)
	urlRe       = regexp.MustCompile(`(?i)\b(?:https?://)?(?:www\.)?[a-z0-9-]+\.(?:com|net|org|io|co)(?:\.[a-z]{2})?\b`)
	phoneRe     = regexp.MustCompile(`\+?\d[\d\s().-]{6,}\d`)
	longDigitRe = regexp.MustCompile(`\b\d{5,}\b`)
	countryRe   = regexp.MustCompile(`(?i)\b[A-Z]{2}\b$`)
)

// ExtractKeywords lower-cases the text, strips non-alphanumerics, and
// drops stop words and tokens of 2 characters or fewer. Token order is
// preserved.
func ExtractKeywords(text string) []string {
	lowered := strings.ToLower(text)
	cleaned := nonAlnumRe.ReplaceAllString(lowered, " ")

	var out []string
	for _, tok := range strings.Fields(cleaned) {
		if len(tok) <= 2 || stopWords[tok] {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// ExtractVendorKeywords extracts up to 5 tokens likely to identify the
// vendor behind a bank-statement description. It strips URLs and
// domains, phone-number patterns, trailing two-letter country codes and
// long numeric reference codes before applying the keyword filter with
// the banking stop-word list on top.
func ExtractVendorKeywords(text string) []string {
	cleaned := urlRe.ReplaceAllString(text, " ")
	cleaned = phoneRe.ReplaceAllString(cleaned, " ")
	cleaned = longDigitRe.ReplaceAllString(cleaned, " ")
	cleaned = countryRe.ReplaceAllString(strings.TrimSpace(cleaned), " ")

	var out []string
	for _, tok := range ExtractKeywords(cleaned) {
		if bankingStopWords[tok] {
			continue
		}
		out = append(out, tok)
		if len(out) == 5 {
			break
		}
	}
	return out
}
