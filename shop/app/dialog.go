package app

import (
	tghelpers "github.com/m3rciful/shopbot/core/telegram/helpers"
	"github.com/m3rciful/shopbot/shop/admin"

	tele "gopkg.in/telebot.v4"
)

// registerDialog routes free text of users inside an admin dialog to the dialog engine.
func (a *App) registerDialog() {
	for _, st := range admin.States {
		a.fsm.Register(st, a.onDialogText)
	}
}

func (a *App) onDialogText(c tele.Context) error {
	if !isPrivate(c) {
		return nil
	}
	reply, err := a.dialog.Handle(tghelpers.BuildContext(c), userID(c), c.Text())
	if err != nil {
		return err
	}
	return a.sendReply(c, reply)
}
