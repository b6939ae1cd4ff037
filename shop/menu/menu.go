// Package menu renders catalog chapters into inline keyboards and item cards.
package menu

import (
	"net/url"
	"strings"

	"github.com/m3rciful/shopbot/core/telegram/keyboard"
	"github.com/m3rciful/shopbot/shop/catalog"

	tele "gopkg.in/telebot.v4"
)

const (
	// AdminPayload opens the admin panel.
	AdminPayload = "ADMIN"
	// ItemPrefix marks callback payloads that open an item card.
	ItemPrefix = "ITEM:"

	BackLabel  = "⬅️ Back"
	MainLabel  = "🏠 Main menu"
	AdminLabel = "⚙️ Admin Panel"
)

// Entry is one rendered button. URL is set for link buttons, Payload otherwise.
type Entry struct {
	Label   string
	Payload string
	URL     string
}

// Row is one keyboard row.
type Row []Entry

// Viewer describes who looks at the keyboard.
type Viewer struct {
	Admin   bool
	Private bool
}

// Build returns the rows for chapter: its buttons in document order, then the
// navigation rows, then the admin row when the viewer qualifies.
func Build(chapter string, doc catalog.Document, v Viewer) []Row {
	var rows []Row
	if chapter != catalog.HiddenChapter {
		for _, b := range doc.Buttons {
			if b.Chapter != chapter {
				continue
			}
			if e, ok := entryFor(b); ok {
				rows = append(rows, Row{e})
			}
		}
	}

	if chapter != catalog.RootChapter {
		if parent := doc.ParentOf(chapter); parent != catalog.RootChapter {
			rows = append(rows, Row{{Label: BackLabel, Payload: parent}})
		}
		rows = append(rows, Row{{Label: MainLabel, Payload: catalog.RootChapter}})
		return rows
	}

	if v.Private && v.Admin {
		rows = append(rows, Row{{Label: AdminLabel, Payload: AdminPayload}})
	}
	return rows
}

func entryFor(b catalog.Button) (Entry, bool) {
	switch a := b.Action.(type) {
	case catalog.Callback:
		return Entry{Label: b.Label, Payload: a.Payload}, true
	case catalog.Link:
		return Entry{Label: b.Label, URL: DeepLink(a.URL, a.PrefillText)}, true
	}
	return Entry{}, false
}

// DeepLink merges prefill into raw as the text query parameter.
// Unparseable URLs are returned unchanged.
func DeepLink(raw, prefill string) string {
	prefill = strings.TrimSpace(prefill)
	if prefill == "" {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	q.Set("text", prefill)
	u.RawQuery = q.Encode()
	return u.String()
}

// Markup converts rows into a telebot inline keyboard.
func Markup(rows []Row) *tele.ReplyMarkup {
	out := make([][]keyboard.InlineBtn, 0, len(rows))
	for _, row := range rows {
		r := make([]keyboard.InlineBtn, len(row))
		for i, e := range row {
			r[i] = keyboard.InlineBtn{Text: e.Label, Data: e.Payload, URL: e.URL}
		}
		out = append(out, r)
	}
	return keyboard.InlineButtonsRows(out...)
}

// Keyboard is Build followed by Markup.
func Keyboard(chapter string, doc catalog.Document, v Viewer) *tele.ReplyMarkup {
	return Markup(Build(chapter, doc, v))
}

// ChapterTitle returns the label of the first button opening chapter, used as the
// message text above its keyboard.
func ChapterTitle(chapter string, doc catalog.Document) string {
	for _, b := range doc.Buttons {
		if p, ok := b.Payload(); ok && p == chapter {
			return b.Label
		}
	}
	return "Choose an option:"
}
