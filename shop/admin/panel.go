// Package admin implements the chat-driven admin panel: the panel layout and the
// per-user dialog that turns free-text replies into catalog mutations.
package admin

import (
	"strings"

	"github.com/m3rciful/shopbot/shop/menu"
)

// Action is a panel button payload.
type Action string

const (
	ActionAddButton   Action = "ADM_ADD_BTN"
	ActionEditButton  Action = "ADM_EDIT_BTN"
	ActionDelButton   Action = "ADM_DEL_BTN"
	ActionListButtons Action = "ADM_LIST_BTNS"
	ActionSetWelcome  Action = "ADM_SET_WELCOME"
	ActionSetResponse Action = "ADM_SET_RESPONSE"
	ActionAddAdmin    Action = "ADM_ADD_ADMIN"
	ActionDelAdmin    Action = "ADM_DEL_ADMIN"
	ActionImport      Action = "ADM_IMPORT"
	ActionSheets      Action = "ADM_SHEETS"
	ActionCancel      Action = "ADM_CANCEL"
	ActionBackToMain  Action = "ADM_BACK_TO_MAIN"
)

// ActionPrefix is shared by every panel payload.
const ActionPrefix = "ADM_"

// PanelTitle heads the panel message.
const PanelTitle = "⚙️ Admin Panel\n\nChoose an action:"

type entry struct {
	label  string
	action Action
	super  bool
}

var panel = []entry{
	{"➕ Add button", ActionAddButton, false},
	{"📝 Edit button", ActionEditButton, false},
	{"🗑 Delete button", ActionDelButton, false},
	{"📋 Button list", ActionListButtons, false},
	{"💬 Change welcome", ActionSetWelcome, false},
	{"💡 Change payload response", ActionSetResponse, false},
	{"👤 Add admin", ActionAddAdmin, true},
	{"🚫 Remove admin", ActionDelAdmin, true},
	{"📥 Import catalog", ActionImport, true},
	{"📑 Spreadsheet tabs", ActionSheets, true},
	{"⬅️ To main menu", ActionBackToMain, false},
}

// Actions lists every panel payload, super-only ones included.
func Actions() []Action {
	out := make([]Action, 0, len(panel)+1)
	for _, e := range panel {
		out = append(out, e.action)
	}
	return append(out, ActionCancel)
}

// RequiresSuper reports whether only super users may trigger a.
func RequiresSuper(a Action) bool {
	for _, e := range panel {
		if e.action == a {
			return e.super
		}
	}
	return false
}

// IsAction reports whether payload belongs to the panel.
func IsAction(payload string) bool {
	return strings.HasPrefix(payload, ActionPrefix)
}

// PanelRows renders the panel; super-only entries are shown to super users only.
func PanelRows(super bool) []menu.Row {
	rows := make([]menu.Row, 0, len(panel))
	for _, e := range panel {
		if e.super && !super {
			continue
		}
		rows = append(rows, menu.Row{{Label: e.label, Payload: string(e.action)}})
	}
	return rows
}
