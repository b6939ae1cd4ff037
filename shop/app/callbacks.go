package app

import (
	"errors"
	"strings"

	tghelpers "github.com/m3rciful/shopbot/core/telegram/helpers"
	"github.com/m3rciful/shopbot/shop/admin"
	"github.com/m3rciful/shopbot/shop/catalog"
	"github.com/m3rciful/shopbot/shop/menu"

	tele "gopkg.in/telebot.v4"
)

// registerCallbacks binds the fixed payloads. Everything else, including item
// and chapter payloads, reaches onPayload through the not-found fallback.
func (a *App) registerCallbacks() error {
	if err := a.reg.RegisterCallback(catalog.RootChapter, a.onMain); err != nil {
		return err
	}
	if err := a.reg.RegisterCallback(menu.AdminPayload, a.onAdminPanel); err != nil {
		return err
	}
	for _, act := range admin.Actions() {
		if err := a.reg.RegisterCallback(string(act), a.onPanelAction(act)); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) onMain(c tele.Context) error {
	a.dialog.Reset(userID(c))
	doc, err := a.store.Get()
	if err != nil {
		return err
	}
	return tghelpers.EditOrSendText(c, doc.Texts.Welcome, a.mainMarkup(c, doc))
}

func (a *App) onAdminPanel(c tele.Context) error {
	uid := userID(c)
	if !a.store.IsAdmin(uid) {
		return tghelpers.Respond(c, textDenied, true)
	}
	if !isPrivate(c) {
		return tghelpers.Respond(c, textPrivateOnly, true)
	}
	a.dialog.Reset(uid)
	return a.showPanel(c)
}

func (a *App) onPanelAction(act admin.Action) tele.HandlerFunc {
	return func(c tele.Context) error {
		uid := userID(c)
		if !isPrivate(c) {
			return tghelpers.Respond(c, textPrivateOnly, true)
		}

		switch act {
		case admin.ActionImport, admin.ActionSheets:
			if !a.store.IsSuper(uid) {
				return tghelpers.Respond(c, textSuperOnly, true)
			}
			// answer now, the spreadsheet round trips may outlive the callback
			_ = tghelpers.Respond(c, "⏳ Working…", false)
			if act == admin.ActionImport {
				return a.runImport(c)
			}
			return a.listTabs(c)
		}

		reply, err := a.dialog.Begin(tghelpers.BuildContext(c), uid, act)
		if err != nil {
			return err
		}
		if errors.Is(reply.Err, catalog.ErrPermissionDenied) {
			return tghelpers.Respond(c, reply.Text, true)
		}
		return a.sendReply(c, reply)
	}
}

// onPayload resolves dynamic payloads: admin actions, item cards, chapters and
// finally canned responses.
func (a *App) onPayload(c tele.Context) error {
	cb := c.Callback()
	if cb == nil {
		return nil
	}
	payload := strings.TrimSpace(strings.TrimPrefix(cb.Data, "\f"))
	if admin.IsAction(payload) {
		return a.onPanelAction(admin.Action(payload))(c)
	}

	doc, err := a.store.Get()
	if err != nil {
		return err
	}
	if id, ok := menu.ItemID(payload); ok {
		b, found := doc.Find(id)
		if !found {
			return tghelpers.Respond(c, "This item is no longer available.", true)
		}
		return tghelpers.EditOrSendMD2(c, menu.ItemCard(b), menu.Markup(menu.ItemRows(b)))
	}
	if doc.IsChapter(payload) {
		return tghelpers.EditOrSendText(c, menu.ChapterTitle(payload, doc), menu.Keyboard(payload, doc, a.viewer(c)))
	}

	text := strings.TrimSpace(doc.Responses[payload])
	if text == "" {
		text = textNoResponse
	}
	return tghelpers.SendText(c, text, &tele.SendOptions{ReplyMarkup: a.mainMarkup(c, doc)})
}

func (a *App) onUnknownText(c tele.Context) error {
	if !isPrivate(c) {
		return nil
	}
	return tghelpers.SendText(c, textUnknownText)
}
