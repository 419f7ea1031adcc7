package textutil

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeText applies NFKC normalisation and trims surrounding whitespace.
// Compatibility normalisation folds full-width digits and letters so phone
// numbers and codes compare consistently regardless of input method.
func NormalizeText(value string) string {
	return strings.TrimSpace(norm.NFKC.String(value))
}

// NormalizeCode uppercases a normalised token, used for promo code lookups.
func NormalizeCode(value string) string {
	return strings.ToUpper(NormalizeText(value))
}

// CollapseSpaces normalises text and squeezes internal whitespace runs to a
// single space. Courier and mail payloads expect single-line values.
func CollapseSpaces(value string) string {
	return strings.Join(strings.Fields(NormalizeText(value)), " ")
}
