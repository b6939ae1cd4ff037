// Package keyboard builds inline keyboards from plain button descriptions.
package keyboard

import tele "gopkg.in/telebot.v4"

// InlineBtn is one inline button. A non-empty URL makes a link button;
// otherwise Data is sent back as raw callback data, prefixed with Unique when set.
type InlineBtn struct {
	Text   string
	Unique string
	Data   string
	URL    string
}

// CancelLabel is the default text of cancel buttons.
const CancelLabel = "❌ Cancel"

func (b InlineBtn) inline() tele.InlineButton {
	if b.URL != "" {
		return tele.InlineButton{Text: b.Text, URL: b.URL}
	}
	return tele.InlineButton{Text: b.Text, Unique: b.Unique, Data: b.Data}
}

// InlineButtonsRows lays the rows out as an inline keyboard. Empty rows are dropped.
func InlineButtonsRows(rows ...[]InlineBtn) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		line := make([]tele.InlineButton, 0, len(row))
		for _, b := range row {
			line = append(line, b.inline())
		}
		markup.InlineKeyboard = append(markup.InlineKeyboard, line)
	}
	return markup
}

// SingleCancelMarkup is a keyboard with one cancel button carrying payload.
// A non-empty label replaces CancelLabel.
func SingleCancelMarkup(payload string, label ...string) *tele.ReplyMarkup {
	text := CancelLabel
	if len(label) > 0 && label[0] != "" {
		text = label[0]
	}
	return InlineButtonsRows([]InlineBtn{{Text: text, Data: payload}})
}
