package importer

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/m3rciful/shopbot/shop/catalog"
)

var stripMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))

// ToCode turns free text into an identifier: accents are stripped, characters other
// than letters, digits, '_' and '-' are dropped, whitespace runs become '_' and the
// result is upper-cased.
func ToCode(s string) string {
	folded, _, err := transform.String(stripMarks, s)
	if err != nil {
		folded = s
	}
	var sb strings.Builder
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '_', r == '-':
			sb.WriteRune(r)
		case unicode.IsSpace(r):
			sb.WriteRune(' ')
		}
	}
	return strings.ToUpper(strings.Join(strings.Fields(sb.String()), "_"))
}

// fitID shortens id so that prefix+id fits into callback data. Long ids keep a
// readable head and get a stable hash suffix.
func fitID(prefix, id string) string {
	budget := catalog.MaxCallbackData - len(prefix)
	if len(id) <= budget {
		return id
	}
	sum := sha1.Sum([]byte(id))
	suffix := "_" + strings.ToUpper(hex.EncodeToString(sum[:4]))
	head := id[:budget-len(suffix)]
	for len(head) > 0 && !utf8Boundary(id, len(head)) {
		head = head[:len(head)-1]
	}
	return head + suffix
}

func utf8Boundary(s string, i int) bool {
	return i >= len(s) || s[i]&0xC0 != 0x80
}

// Capitalize upper-cases the first letter and lower-cases the rest.
func Capitalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	r := []rune(strings.ToLower(s))
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

var productLabels = map[string]string{
	"IPHONES":           "📱 iPhones",
	"AIRPODS":           "🎧 AirPods",
	"MACBOOKS":          "💻 MacBooks",
	"IMACS":             "🖥 iMacs",
	"IPADS":             "📲 iPads",
	"APPLE_WATCHES":     "⌚️ Apple Watches",
	"APPLE_ACCESSORIES": "🖱 Apple Accessories",
}

// ProductLabel returns the button label for a product category.
func ProductLabel(product string) string {
	if l, ok := productLabels[ToCode(product)]; ok {
		return l
	}
	if product = Capitalize(product); product != "" {
		return product
	}
	return "Category"
}

// GroupLabel returns the button label for a product group.
func GroupLabel(title string) string {
	return "🗂 " + Capitalize(title)
}
