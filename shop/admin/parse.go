package admin

import (
	"strconv"
	"strings"

	"github.com/m3rciful/shopbot/shop/catalog"
)

// SplitFields splits s on "|" and trims every part.
func SplitFields(s string) []string {
	parts := strings.Split(s, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func nonEmpty(parts []string) []string {
	out := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ParseButtonLine parses the dialog form "id | label | type | chapter | payload_or_url [| prefill]".
func ParseButtonLine(line string) (catalog.Button, error) {
	parts := SplitFields(line)
	if len(parts) < 5 {
		return catalog.Button{}, catalog.Invalid("input", "expected id | label | type | chapter | payload_or_url")
	}
	for i, name := range []string{"id", "label", "type", "chapter", "payload_or_url"} {
		if parts[i] == "" {
			return catalog.Button{}, catalog.Invalid(name, "must not be empty")
		}
	}
	kind, err := catalog.ParseKind(parts[2])
	if err != nil {
		return catalog.Button{}, err
	}
	var prefill string
	if len(parts) > 5 {
		prefill = strings.Join(parts[5:], " | ")
	}
	return buildButton(kind, parts[0], parts[1], parts[3], parts[4], prefill)
}

// ParseCommandButton parses "/addbtn_*" arguments: "id | label [| chapter] | target".
// The chapter defaults to the root.
func ParseCommandButton(args string, kind catalog.Kind) (catalog.Button, error) {
	parts := nonEmpty(SplitFields(args))
	switch len(parts) {
	case 3:
		return buildButton(kind, parts[0], parts[1], catalog.RootChapter, parts[2], "")
	case 4:
		return buildButton(kind, parts[0], parts[1], parts[2], parts[3], "")
	}
	return catalog.Button{}, catalog.Invalid("input", "expected id | label [| chapter] | "+targetName(kind))
}

func targetName(kind catalog.Kind) string {
	if kind == catalog.KindURL {
		return "url"
	}
	return "payload"
}

func buildButton(kind catalog.Kind, id, label, chapter, target, prefill string) (catalog.Button, error) {
	b := catalog.Button{ID: id, Label: label, Chapter: chapter}
	switch kind {
	case catalog.KindCallback:
		if prefill != "" {
			return catalog.Button{}, catalog.Invalid("prefill", "only url buttons take a prefill text")
		}
		b.Action = catalog.Callback{Payload: target}
	case catalog.KindURL:
		b.Action = catalog.Link{URL: target, PrefillText: prefill}
	}
	return b, b.Validate()
}

// ParseResponse parses "payload | text"; the text may itself contain "|".
func ParseResponse(line string) (payload, text string, err error) {
	payload, text, _ = strings.Cut(line, "|")
	payload, text = strings.TrimSpace(payload), strings.TrimSpace(text)
	if payload == "" || text == "" {
		return "", "", catalog.Invalid("input", "expected payload | text")
	}
	return payload, text, nil
}

// ParseRename parses "id | new label".
func ParseRename(line string) (id, label string, err error) {
	parts := SplitFields(line)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", catalog.Invalid("input", "expected id | new label")
	}
	return parts[0], parts[1], nil
}

// ParseUserID parses a positive Telegram user id.
func ParseUserID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, catalog.Invalid("user_id", "must be a positive number")
	}
	return id, nil
}
