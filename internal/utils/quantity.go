package utils

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
)

var spaceStrip = strings.NewReplacer(" ", "", "\u00A0", "", "\u2009", "", "\u202F", "", "\t", "")

// ParseQuantity parses an on-hand quantity cell: "12", "1 234,50", "(3)",
// "1,234.5", "12,000". ok is false for blank cells; err is set when the cell is not
// blank but is not a number either.
func ParseQuantity(s string) (v decimal.Decimal, ok bool, err error) {
	s = spaceStrip.Replace(strings.TrimSpace(s))
	if s == "" {
		return decimal.Zero, false, nil
	}
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	// "1,234.5": запятая как разделитель тысяч; "3,5": как десятичная
	if strings.Contains(s, ",") && strings.Contains(s, ".") {
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	} else if strings.Contains(s, ",") {
		if s, err = commaOnly(s); err != nil {
			return decimal.Zero, false, err
		}
	}
	v, err = decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false, eris.Wrapf(err, "quantity %q", s)
	}
	if neg {
		v = v.Neg()
	}
	return v, true, nil
}

// commaOnly reads a number whose only separator is the comma. Groups of
// exactly three digits after every comma are thousands ("12,000",
// "1,234,567"); a single comma followed by any other digit count is the
// decimal point ("3,5", "1234,50").
func commaOnly(s string) (string, error) {
	parts := strings.Split(s, ",")
	thousands := true
	for _, p := range parts[1:] {
		if len(p) != 3 {
			thousands = false
			break
		}
	}
	switch {
	case thousands:
		return strings.Join(parts, ""), nil
	case len(parts) == 2:
		return parts[0] + "." + parts[1], nil
	}
	return "", eris.Errorf("quantity %q: ambiguous comma grouping", s)
}

// FormatQuantity prints a quantity without trailing zeros.
func FormatQuantity(v decimal.Decimal) string {
	return v.String()
}
