package app

import (
	"fmt"
	"strings"

	"github.com/m3rciful/shopbot/core/telegram/commands"
	tghelpers "github.com/m3rciful/shopbot/core/telegram/helpers"
	"github.com/m3rciful/shopbot/shop/admin"
	"github.com/m3rciful/shopbot/shop/catalog"

	tele "gopkg.in/telebot.v4"
)

const (
	helpBase = "/start - main menu with a greeting\n" +
		"/menu - show the menu\n" +
		"/whoami - your Telegram id\n" +
		"/help - this help"
	helpAdmin = "\n\nAdmin:\n" +
		"/admin - admin panel\n" +
		"/cancel - abort the current dialog\n" +
		"/setwelcome <text>\n" +
		"/setresponse <payload> | <text>\n" +
		"/addbtn_callback <id> | <label> [| <chapter>] | <payload>\n" +
		"/addbtn_url <id> | <label> [| <chapter>] | <url>\n" +
		"/renamebtn <id> | <new label>\n" +
		"/delbtn <id>"
	helpSuper = "\n\nSuper user:\n" +
		"/addadmin <user id> (or reply to their message)\n" +
		"/deladmin <user id>\n" +
		"/import - import the catalog from the spreadsheet\n" +
		"/sheets - list spreadsheet tabs"
)

func (a *App) registerCommands() error {
	cmds := map[string]commands.Command{
		"/start":  {Handler: a.cmdStart, Description: "Main menu", PrivateOnly: true},
		"/menu":   {Handler: a.cmdMenu, Description: "Show the menu", PrivateOnly: true},
		"/help":   {Handler: a.cmdHelp, Description: "Help", PrivateOnly: true},
		"/whoami": {Handler: a.cmdWhoAmI, Description: "Show your id", PrivateOnly: true},
		"/cancel": {Handler: a.cmdCancel, Description: "Cancel the current dialog", PrivateOnly: true, Hidden: true},

		"/admin":           {Handler: a.cmdAdmin, Description: "Admin panel", AdminOnly: true, PrivateOnly: true},
		"/setwelcome":      {Handler: a.cmdSetWelcome, Description: "Set the welcome text", AdminOnly: true, PrivateOnly: true},
		"/setresponse":     {Handler: a.cmdSetResponse, Description: "Set a payload response", AdminOnly: true, PrivateOnly: true},
		"/addbtn_callback": {Handler: a.cmdAddButton(catalog.KindCallback), Description: "Add a callback button", AdminOnly: true, PrivateOnly: true},
		"/addbtn_url":      {Handler: a.cmdAddButton(catalog.KindURL), Description: "Add a link button", AdminOnly: true, PrivateOnly: true},
		"/renamebtn":       {Handler: a.cmdRename, Description: "Rename a button", AdminOnly: true, PrivateOnly: true},
		"/delbtn":          {Handler: a.cmdDelete, Description: "Delete a button", AdminOnly: true, PrivateOnly: true},

		"/addadmin": {Handler: a.cmdAddAdmin, Description: "Grant admin rights", SuperOnly: true, PrivateOnly: true},
		"/deladmin": {Handler: a.cmdDelAdmin, Description: "Revoke admin rights", SuperOnly: true, PrivateOnly: true},
		"/import":   {Handler: a.runImport, Description: "Import the catalog", SuperOnly: true, PrivateOnly: true},
		"/sheets":   {Handler: a.listTabs, Description: "List spreadsheet tabs", SuperOnly: true, PrivateOnly: true},
	}
	for name, cmd := range cmds {
		if err := a.reg.RegisterCommand(name, cmd); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) rejectCommand(c tele.Context) error {
	if !isPrivate(c) {
		return nil
	}
	return tghelpers.SendText(c, textDenied)
}

func (a *App) cmdStart(c tele.Context) error {
	a.dialog.Reset(userID(c))
	doc, err := a.store.Get()
	if err != nil {
		return err
	}
	text := doc.Texts.Welcome
	if u := c.Sender(); u != nil && strings.TrimSpace(u.FirstName) != "" {
		text = "👋 " + strings.TrimSpace(u.FirstName) + "!\n\n" + text
	}
	return tghelpers.SendText(c, text, &tele.SendOptions{ReplyMarkup: a.mainMarkup(c, doc)})
}

func (a *App) cmdMenu(c tele.Context) error {
	doc, err := a.store.Get()
	if err != nil {
		return err
	}
	return tghelpers.SendText(c, textMainMenu, &tele.SendOptions{ReplyMarkup: a.mainMarkup(c, doc)})
}

func (a *App) cmdHelp(c tele.Context) error {
	uid := userID(c)
	text := helpBase
	if a.store.IsAdmin(uid) {
		text += helpAdmin
	}
	if a.store.IsSuper(uid) {
		text += helpSuper
	}
	return tghelpers.SendText(c, text)
}

func (a *App) cmdWhoAmI(c tele.Context) error {
	return tghelpers.SendMD(c, fmt.Sprintf("Your id: `%d`", userID(c)))
}

func (a *App) cmdAdmin(c tele.Context) error {
	a.dialog.Reset(userID(c))
	return a.showPanel(c)
}

func (a *App) cmdCancel(c tele.Context) error {
	uid := userID(c)
	if !a.fsm.InProgress(uid) {
		return tghelpers.SendText(c, "Nothing to cancel.")
	}
	a.dialog.Reset(uid)
	doc, err := a.store.Get()
	if err != nil {
		return err
	}
	return tghelpers.SendText(c, "Cancelled.", &tele.SendOptions{ReplyMarkup: a.mainMarkup(c, doc)})
}

// mutate runs one catalog change from a command and persists it when change
// reports a modification. Recoverable errors are shown with the usage line.
func (a *App) mutate(c tele.Context, usage string, change func() (msg string, changed bool, err error)) error {
	msg, changed, err := change()
	if err != nil {
		if admin.Recoverable(err) {
			return tghelpers.SendText(c, "⚠️ "+admin.Describe(err)+"\nUsage: "+usage)
		}
		return err
	}
	if changed {
		if err := a.store.Save(tghelpers.BuildContext(c)); err != nil {
			return err
		}
	}
	return tghelpers.SendText(c, msg)
}

func (a *App) cmdSetWelcome(c tele.Context) error {
	const usage = "/setwelcome <text>"
	return a.mutate(c, usage, func() (string, bool, error) {
		text := commandArgs(c)
		if text == "" {
			return "", false, catalog.Invalid("text", "must not be empty")
		}
		return "✅ Welcome text updated.", true, a.store.SetWelcome(text)
	})
}

func (a *App) cmdSetResponse(c tele.Context) error {
	const usage = "/setresponse <payload> | <text>"
	return a.mutate(c, usage, func() (string, bool, error) {
		payload, text, err := admin.ParseResponse(commandArgs(c))
		if err != nil {
			return "", false, err
		}
		return fmt.Sprintf("✅ Response for payload %q saved.", payload), true, a.store.SetResponse(payload, text)
	})
}

func (a *App) cmdAddButton(kind catalog.Kind) tele.HandlerFunc {
	usage := "/addbtn_callback <id> | <label> [| <chapter>] | <payload>"
	if kind == catalog.KindURL {
		usage = "/addbtn_url <id> | <label> [| <chapter>] | <url>"
	}
	return func(c tele.Context) error {
		return a.mutate(c, usage, func() (string, bool, error) {
			b, err := admin.ParseCommandButton(commandArgs(c), kind)
			if err != nil {
				return "", false, err
			}
			return fmt.Sprintf("✅ Button %q added to %s.", b.ID, b.Chapter), true, a.store.AddButton(b)
		})
	}
}

func (a *App) cmdRename(c tele.Context) error {
	const usage = "/renamebtn <id> | <new label>"
	return a.mutate(c, usage, func() (string, bool, error) {
		id, label, err := admin.ParseRename(commandArgs(c))
		if err != nil {
			return "", false, err
		}
		return fmt.Sprintf("✅ Button %q renamed.", id), true, a.store.RenameButton(id, label)
	})
}

func (a *App) cmdDelete(c tele.Context) error {
	const usage = "/delbtn <id>"
	return a.mutate(c, usage, func() (string, bool, error) {
		id := commandArgs(c)
		if id == "" {
			return "", false, catalog.Invalid("id", "must not be empty")
		}
		removed, err := a.store.RemoveButton(id)
		if err != nil {
			return "", false, err
		}
		if !removed {
			return fmt.Sprintf("Button %q does not exist, nothing to delete.", id), false, nil
		}
		return fmt.Sprintf("✅ Button %q deleted.", id), true, nil
	})
}

// adminTarget takes the user id from the command argument or, failing that, from
// the author of the message being replied to.
func adminTarget(c tele.Context) (int64, error) {
	if args := commandArgs(c); args != "" {
		return admin.ParseUserID(args)
	}
	if m := c.Message(); m != nil && m.ReplyTo != nil && m.ReplyTo.Sender != nil {
		return m.ReplyTo.Sender.ID, nil
	}
	return 0, catalog.Invalid("user id", "send an id or reply to the user's message")
}

func (a *App) cmdAddAdmin(c tele.Context) error {
	const usage = "/addadmin <user id>, or reply to the user's message"
	return a.mutate(c, usage, func() (string, bool, error) {
		id, err := adminTarget(c)
		if err != nil {
			return "", false, err
		}
		if a.store.IsSuper(id) {
			return "That user is already a super user.", false, nil
		}
		added, err := a.store.AddAdmin(id)
		if err != nil {
			return "", false, err
		}
		if !added {
			return fmt.Sprintf("User %d is already an admin.", id), false, nil
		}
		return fmt.Sprintf("✅ User %d is now an admin.", id), true, nil
	})
}

func (a *App) cmdDelAdmin(c tele.Context) error {
	const usage = "/deladmin <user id>"
	return a.mutate(c, usage, func() (string, bool, error) {
		id, err := adminTarget(c)
		if err != nil {
			return "", false, err
		}
		if a.store.IsSuper(id) {
			return "", false, fmt.Errorf("%w: super users cannot be demoted", catalog.ErrPermissionDenied)
		}
		removed, err := a.store.RemoveAdmin(id)
		if err != nil {
			return "", false, err
		}
		if !removed {
			return fmt.Sprintf("User %d is not an admin.", id), false, nil
		}
		return fmt.Sprintf("✅ User %d is no longer an admin.", id), true, nil
	})
}
