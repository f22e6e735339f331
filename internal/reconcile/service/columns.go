package service

import (
	"regexp"
	"strings"
)

var nonWord = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// нормализуем имя колонки: нижний регистр, без служебных символов и лишних пробелов
func normHeaderKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("\u00A0", " ", "\u202F", " ").Replace(s) // NBSP/NNBSP
	s = nonWord.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// resolveColumn ищет реальную колонку по желаемому имени.
// Alternatives are separated by "|" ("Quantity on Hand|Qty"). Earlier
// alternatives win; an exact name beats a normalized one, which beats a
// partial ("Qty On Hand (Total)" contains "qty on hand").
func resolveColumn(cols []string, want string) string {
	alts := splitAlts(want)
	if len(alts) == 0 {
		return ""
	}

	// 1) точное совпадение (как есть)
	for _, a := range alts {
		for _, c := range cols {
			if c == a {
				return c
			}
		}
	}

	// 2) совпадение после нормализации
	for _, a := range alts {
		na := normHeaderKey(a)
		for _, c := range cols {
			if normHeaderKey(c) == na {
				return c
			}
		}
	}

	// 3) частичное: want ⊂ key; the longest contained alternative wins
	best, bestScore := "", 0
	for _, c := range cols {
		nc := normHeaderKey(c)
		for i, a := range alts {
			na := normHeaderKey(a)
			if na == "" || !strings.Contains(nc, na) {
				continue
			}
			score := len(na)*10 - i
			if score > bestScore {
				best, bestScore = c, score
			}
		}
	}
	return best
}

func splitAlts(want string) []string {
	var out []string
	for _, a := range strings.Split(want, "|") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}
