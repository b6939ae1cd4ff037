package importer

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	requestMarkers = []string{"запрос", "request", "уточн"}
	fromPrefixes   = []string{"от", "from"}
	currencyWords  = []string{"руб.", "руб", "р.", "р", "rub", "usd", "eur"}
)

// Price is the parsed price cell of one row.
type Price struct {
	Text    string
	From    bool
	Request bool
}

// ParsePrice applies the import price policy. Cells mentioning a request marker
// become "price on request"; a leading "from" prefix sets From; anything else must
// hold a strictly positive number or the row is skipped (ok=false).
func ParsePrice(cell string) (Price, bool) {
	cell = strings.Join(strings.Fields(cell), " ")
	low := strings.ToLower(cell)
	for _, m := range requestMarkers {
		if strings.Contains(low, m) {
			return Price{Request: true}, true
		}
	}

	var p Price
	for _, prefix := range fromPrefixes {
		if rest, ok := cutWord(cell, prefix); ok {
			p.From = true
			cell = rest
			break
		}
	}
	if !positive(cell) {
		return Price{}, false
	}
	p.Text = cell
	return p, true
}

// cutWord strips a case-insensitive prefix from s when it stands as its own word.
func cutWord(s, prefix string) (string, bool) {
	if len(s) <= len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return "", false
	}
	rest := s[len(prefix):]
	if r, _ := utf8.DecodeRuneInString(rest); unicode.IsLetter(r) {
		return "", false
	}
	return strings.TrimSpace(rest), true
}

// positive reports whether cell is a number greater than zero. Spaces, currency
// signs and currency words are ignored; any other text makes the cell non-numeric.
func positive(cell string) bool {
	v, err := parseAmount(cell)
	return err == nil && v > 0
}

// parseAmount reads a price like "1 299 990 ₽", "1.299.990", "$7,99" or "79 990 руб".
// A lone separator followed by exactly three digits groups thousands; otherwise
// the last separator marks the decimals.
func parseAmount(cell string) (float64, error) {
	var b strings.Builder
	for _, r := range cell {
		if unicode.IsSpace(r) || unicode.Is(unicode.Sc, r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	num := b.String()
	for _, word := range currencyWords {
		if rest, ok := strings.CutSuffix(num, word); ok {
			num = rest
			break
		}
	}
	if num == "" || strings.IndexFunc(num, func(r rune) bool { return !unicode.IsDigit(r) && r != '.' && r != ',' }) >= 0 {
		return 0, strconv.ErrSyntax
	}

	dec := strings.LastIndexAny(num, ".,")
	if dec >= 0 {
		sep := num[dec]
		lone := strings.Count(num, ".")+strings.Count(num, ",") == 1
		if strings.Count(num, string(sep)) > 1 || (lone && len(num)-dec-1 == 3) {
			dec = -1
		}
	}
	var digits strings.Builder
	for i, r := range num {
		switch {
		case i == dec:
			digits.WriteByte('.')
		case r == '.' || r == ',':
		default:
			digits.WriteRune(r)
		}
	}
	return strconv.ParseFloat(digits.String(), 64)
}
