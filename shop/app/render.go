package app

import (
	"strings"
	"unicode"

	"github.com/m3rciful/shopbot/core/telegram/keyboard"
	tghelpers "github.com/m3rciful/shopbot/core/telegram/helpers"
	"github.com/m3rciful/shopbot/shop/admin"
	"github.com/m3rciful/shopbot/shop/catalog"
	"github.com/m3rciful/shopbot/shop/menu"

	tele "gopkg.in/telebot.v4"
)

const (
	textDenied      = "⛔ Not enough rights."
	textSuperOnly   = "⛔ Only a super user can do this."
	textPrivateOnly = "Open the admin panel in a private chat with the bot."
	textMainMenu    = "Main menu:"
	textNoResponse  = "No text is set for this button yet."
	textUnknownText = "Press /menu to open the catalog."
)

func userID(c tele.Context) int64 {
	if u := c.Sender(); u != nil {
		return u.ID
	}
	return 0
}

func isPrivate(c tele.Context) bool {
	chat := c.Chat()
	return chat != nil && chat.Type == tele.ChatPrivate
}

// commandArgs returns everything after the command word, newlines included.
func commandArgs(c tele.Context) string {
	text := strings.TrimSpace(c.Text())
	i := strings.IndexFunc(text, unicode.IsSpace)
	if i < 0 {
		return ""
	}
	return strings.TrimSpace(text[i:])
}

func (a *App) viewer(c tele.Context) menu.Viewer {
	return menu.Viewer{Admin: a.store.IsAdmin(userID(c)), Private: isPrivate(c)}
}

func (a *App) mainMarkup(c tele.Context, doc catalog.Document) *tele.ReplyMarkup {
	return menu.Keyboard(catalog.RootChapter, doc, a.viewer(c))
}

func (a *App) panelMarkup(c tele.Context) *tele.ReplyMarkup {
	return menu.Markup(admin.PanelRows(a.store.IsSuper(userID(c))))
}

func (a *App) showPanel(c tele.Context) error {
	return tghelpers.EditOrSendText(c, admin.PanelTitle, a.panelMarkup(c))
}

func (a *App) replyMarkup(c tele.Context, k admin.Keyboard) (*tele.ReplyMarkup, error) {
	switch k {
	case admin.KeyboardPanel:
		return a.panelMarkup(c), nil
	case admin.KeyboardCancel:
		return keyboard.SingleCancelMarkup(string(admin.ActionCancel)), nil
	case admin.KeyboardMain:
		doc, err := a.store.Get()
		if err != nil {
			return nil, err
		}
		return a.mainMarkup(c, doc), nil
	}
	return nil, nil
}

// sendReply renders a dialog reply, editing the pressed message when there is one.
func (a *App) sendReply(c tele.Context, r admin.Reply) error {
	if r.Text == "" {
		return nil
	}
	markup, err := a.replyMarkup(c, r.Keyboard)
	if err != nil {
		return err
	}
	if r.Markdown {
		return tghelpers.EditOrSendMD(c, r.Text, markup)
	}
	return tghelpers.EditOrSendText(c, r.Text, markup)
}
