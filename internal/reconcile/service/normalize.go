package service

import (
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"inventory-recon/internal/reconcile/model"
)

// Normalizer turns a raw SKU into its comparison key. Every policy is
// idempotent and rejects SKUs that reduce to nothing.
type Normalizer func(sku string) (string, error)

// ＡＢ-１２ → AB-12, é → E
var foldMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NewNormalizer returns the normalizer for policy; unknown policies fall
// back to the canonical rule.
func NewNormalizer(policy string) Normalizer {
	switch policy {
	case model.PolicyAlnum:
		return NormalizeAlnum
	case model.PolicyTrimUpper:
		return NormalizeTrimUpper
	default:
		return Normalize
	}
}

// Normalize is the canonical rule: uppercase, drop whitespace and
// punctuation, keep letters, digits and a dot immediately followed by a digit
// ("12.5" survives, "AB.-12" becomes "AB12").
func Normalize(sku string) (string, error) {
	s, _, err := transform.String(foldMarks, sku)
	if err != nil {
		s = sku
	}
	r := []rune(stripSpaces(strings.ToUpper(s)))

	var b strings.Builder
	b.Grow(len(r))
	for i, c := range r {
		switch {
		case unicode.IsLetter(c) || unicode.IsDigit(c):
			b.WriteRune(c)
		case c == '.' && i+1 < len(r) && unicode.IsDigit(r[i+1]):
			b.WriteRune(c)
		}
	}
	return nonEmpty(sku, b.String())
}

// NormalizeAlnum keeps letters and digits only.
func NormalizeAlnum(sku string) (string, error) {
	out := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, strings.ToUpper(sku))
	return nonEmpty(sku, out)
}

// NormalizeTrimUpper only trims and uppercases.
func NormalizeTrimUpper(sku string) (string, error) {
	return nonEmpty(sku, strings.ToUpper(strings.TrimSpace(sku)))
}

func nonEmpty(raw, key string) (string, error) {
	if key == "" {
		if strings.TrimSpace(raw) == "" {
			return "", eris.Wrap(model.ErrInvalidRecord, "empty sku")
		}
		return "", eris.Wrapf(model.ErrInvalidRecord, "sku %q has no comparable characters", raw)
	}
	return key, nil
}

func stripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
