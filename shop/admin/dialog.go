package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/m3rciful/shopbot/core/logger"
	"github.com/m3rciful/shopbot/core/telegram/state"
	"github.com/m3rciful/shopbot/shop/catalog"
)

// Dialog states. Idle is state.StateIdle.
const (
	StateAddButton    state.State = "ADD_BTN__ASK_ALL"
	StateDelButton    state.State = "DEL_BTN__ASK_ID"
	StateEditAskID    state.State = "EDIT_BTN__ASK_ID"
	StateEditAskKey   state.State = "EDIT_BTN__ASK_KEY"
	StateEditAskValue state.State = "EDIT_BTN__ASK_VALUE"
	StateSetWelcome   state.State = "SET_WELCOME__ASK_TEXT"
	StateSetResponse  state.State = "SET_RESPONSE__ASK_BOTH"
	StateAddAdmin     state.State = "ADD_ADMIN__ASK_ID"
	StateDelAdmin     state.State = "DEL_ADMIN__ASK_ID"
)

// States lists every non-idle dialog state.
var States = []state.State{
	StateAddButton, StateDelButton,
	StateEditAskID, StateEditAskKey, StateEditAskValue,
	StateSetWelcome, StateSetResponse,
	StateAddAdmin, StateDelAdmin,
}

// EditKeys are the button fields the edit flow can change.
var EditKeys = []string{"id", "label", "type", "chapter", "payload", "url"}

// Keyboard selects the markup the transport attaches to a reply.
type Keyboard int

const (
	KeyboardNone Keyboard = iota
	// KeyboardPanel attaches the admin panel.
	KeyboardPanel
	// KeyboardCancel attaches a single cancel button.
	KeyboardCancel
	// KeyboardMain attaches the root menu.
	KeyboardMain
)

// Reply is what the dialog wants sent back to the admin.
// Err carries a recoverable domain error that was already turned into Text.
type Reply struct {
	Text     string
	Markdown bool
	Keyboard Keyboard
	Err      error
}

// Dialog drives admin conversations over a catalog store and a session store.
type Dialog struct {
	store    *catalog.Store
	sessions state.Store
}

// NewDialog wires a dialog. A nil sessions store gets an in-memory one.
func NewDialog(store *catalog.Store, sessions state.Store) *Dialog {
	if sessions == nil {
		sessions = state.NewMemoryStore()
	}
	return &Dialog{store: store, sessions: sessions}
}

// Session returns the current dialog session of userID.
func (d *Dialog) Session(userID int64) state.Session {
	return d.sessions.Get(userID)
}

// Reset drops any dialog in progress.
func (d *Dialog) Reset(userID int64) {
	d.sessions.Reset(userID)
}

const listLimit = 3500

type prompt struct {
	next     state.State
	text     string
	markdown bool
}

var prompts = map[Action]prompt{
	ActionAddButton:   {StateAddButton, "Send the button in one line:\n`id | label | type(callback|url) | chapter | payload_or_url [| prefill]`", true},
	ActionDelButton:   {StateDelButton, "Send the `id` of the button to delete.", true},
	ActionEditButton:  {StateEditAskID, "Send the `id` of the button to edit.", true},
	ActionSetWelcome:  {StateSetWelcome, "Send the new welcome text in one message.", false},
	ActionSetResponse: {StateSetResponse, "Send a line: `payload | response text`", true},
	ActionAddAdmin:    {StateAddAdmin, "Send the numeric id of the user to make admin.", false},
	ActionDelAdmin:    {StateDelAdmin, "Send the numeric id of the admin to remove.", false},
}

// Begin handles a panel button press. Dialog actions move the session to their
// prompt state; permission failures leave the session untouched.
func (d *Dialog) Begin(ctx context.Context, userID int64, action Action) (Reply, error) {
	if !d.store.IsAdmin(userID) || (RequiresSuper(action) && !d.store.IsSuper(userID)) {
		d.log(ctx, "dialog.begin", userID, string(action), catalog.ErrPermissionDenied)
		return Reply{Text: deniedText(action), Err: catalog.ErrPermissionDenied}, nil
	}

	if p, ok := prompts[action]; ok {
		d.sessions.Put(userID, state.Session{State: p.next})
		d.log(ctx, "dialog.begin", userID, string(action), nil)
		return Reply{Text: p.text, Markdown: p.markdown, Keyboard: KeyboardCancel}, nil
	}

	switch action {
	case ActionListButtons:
		doc, err := d.store.Get()
		if err != nil {
			return Reply{}, err
		}
		return Reply{Text: ListButtons(doc), Keyboard: KeyboardPanel}, nil
	case ActionCancel:
		d.sessions.Reset(userID)
		return Reply{Text: "Cancelled.", Keyboard: KeyboardPanel}, nil
	case ActionBackToMain:
		d.sessions.Reset(userID)
		return Reply{Text: "Main menu:", Keyboard: KeyboardMain}, nil
	}
	err := catalog.Invalid("action", "unknown panel action "+string(action))
	return Reply{Text: "Unknown action.", Err: err}, nil
}

func deniedText(a Action) string {
	if RequiresSuper(a) {
		return "⛔ Only a super user can do this."
	}
	return "⛔ Not enough rights."
}

// Handle feeds a free-text message into the user's dialog. Recoverable errors keep
// the session in its state and come back in Reply.Err; a returned error means the
// change could not be persisted and the dialog was reset.
func (d *Dialog) Handle(ctx context.Context, userID int64, text string) (Reply, error) {
	s := d.sessions.Get(userID)
	if s.Idle() {
		return Reply{}, nil
	}
	if !d.store.IsAdmin(userID) {
		d.sessions.Reset(userID)
		d.log(ctx, "dialog.step", userID, string(s.State), catalog.ErrPermissionDenied)
		return Reply{Text: deniedText(""), Err: catalog.ErrPermissionDenied}, nil
	}
	text = strings.TrimSpace(text)

	var (
		reply Reply
		err   error
	)
	switch s.State {
	case StateAddButton:
		reply, err = d.addButton(ctx, userID, text)
	case StateDelButton:
		reply, err = d.deleteButton(ctx, userID, text)
	case StateEditAskID:
		reply = d.editAskID(userID, text)
	case StateEditAskKey:
		reply = d.editAskKey(userID, s, text)
	case StateEditAskValue:
		reply, err = d.editAskValue(ctx, userID, s, text)
	case StateSetWelcome:
		reply, err = d.commit(ctx, userID, d.store.SetWelcome(text), "✅ Welcome text updated.")
	case StateSetResponse:
		reply, err = d.setResponse(ctx, userID, text)
	case StateAddAdmin:
		reply, err = d.addAdmin(ctx, userID, text)
	case StateDelAdmin:
		reply, err = d.delAdmin(ctx, userID, text)
	default:
		d.sessions.Reset(userID)
		return Reply{}, nil
	}
	d.log(ctx, "dialog.step", userID, string(s.State), firstErr(err, reply.Err))
	return reply, err
}

func firstErr(errs ...error) error {
	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return nil
}

// commit finishes a dialog step: recoverable mutation errors keep the state,
// success persists the document and resets the session.
func (d *Dialog) commit(ctx context.Context, userID int64, mutErr error, done string) (Reply, error) {
	if mutErr != nil {
		if Recoverable(mutErr) {
			return retry(mutErr), nil
		}
		d.sessions.Reset(userID)
		return Reply{}, mutErr
	}
	d.sessions.Reset(userID)
	if err := d.store.Save(ctx); err != nil {
		return Reply{}, err
	}
	return Reply{Text: done, Keyboard: KeyboardPanel}, nil
}

// Recoverable reports whether err is a domain error the user can fix and retry.
func Recoverable(err error) bool {
	return catalog.IsValidation(err) ||
		errors.Is(err, catalog.ErrDuplicateID) ||
		errors.Is(err, catalog.ErrNotFound) ||
		errors.Is(err, catalog.ErrPermissionDenied)
}

func retry(err error) Reply {
	return Reply{Text: "⚠️ " + Describe(err) + "\nFix it and send again, or cancel.", Keyboard: KeyboardCancel, Err: err}
}

// Describe turns a recoverable domain error into a short user-facing reason.
func Describe(err error) string {
	var v *catalog.ValidationError
	switch {
	case errors.As(err, &v):
		if v.Field == "" {
			return v.Reason
		}
		return v.Field + ": " + v.Reason
	case errors.Is(err, catalog.ErrDuplicateID):
		return "this id is already used"
	case errors.Is(err, catalog.ErrNotFound):
		return "no button with this id"
	case errors.Is(err, catalog.ErrPermissionDenied):
		return "not allowed"
	}
	return err.Error()
}

func (d *Dialog) addButton(ctx context.Context, userID int64, text string) (Reply, error) {
	b, err := ParseButtonLine(text)
	if err != nil {
		return retry(err), nil
	}
	return d.commit(ctx, userID, d.store.AddButton(b), fmt.Sprintf("✅ Button %q added.", b.ID))
}

func (d *Dialog) deleteButton(ctx context.Context, userID int64, id string) (Reply, error) {
	if id == "" {
		return retry(catalog.Invalid("id", "must not be empty")), nil
	}
	removed, err := d.store.RemoveButton(id)
	if err != nil {
		d.sessions.Reset(userID)
		return Reply{}, err
	}
	if !removed {
		d.sessions.Reset(userID)
		return Reply{Text: fmt.Sprintf("Button %q does not exist, nothing to delete.", id), Keyboard: KeyboardPanel}, nil
	}
	return d.commit(ctx, userID, nil, fmt.Sprintf("✅ Button %q deleted.", id))
}

func (d *Dialog) editAskID(userID int64, id string) Reply {
	doc, err := d.store.Get()
	if err != nil {
		return retry(err)
	}
	if _, ok := doc.Find(id); !ok {
		return retry(fmt.Errorf("%w: %s", catalog.ErrNotFound, id))
	}
	d.sessions.Put(userID, state.Session{State: StateEditAskKey, WorkingID: id})
	return Reply{
		Text:     "Editable keys: " + strings.Join(EditKeys, ", ") + "\nSend the name of the key to change.",
		Keyboard: KeyboardCancel,
	}
}

func (d *Dialog) editAskKey(userID int64, s state.Session, key string) Reply {
	key = strings.ToLower(key)
	if !slices.Contains(EditKeys, key) {
		return retry(catalog.Invalid("key", "must be one of "+strings.Join(EditKeys, ", ")))
	}
	s.State = StateEditAskValue
	s.WorkingKey = key
	d.sessions.Put(userID, s)
	return Reply{Text: fmt.Sprintf("Send the new value for %q.", key), Keyboard: KeyboardCancel}
}

func (d *Dialog) editAskValue(ctx context.Context, userID int64, s state.Session, value string) (Reply, error) {
	err := d.store.EditButton(s.WorkingID, func(b *catalog.Button) error {
		return ApplyEdit(b, s.WorkingKey, value)
	})
	if errors.Is(err, catalog.ErrNotFound) {
		d.sessions.Reset(userID)
		return Reply{Text: "The button no longer exists.", Keyboard: KeyboardPanel, Err: err}, nil
	}
	return d.commit(ctx, userID, err, fmt.Sprintf("✅ Button %q updated.", s.WorkingID))
}

// ApplyEdit sets one field of b from admin input. Switching the type converts the
// action: a new callback uses the button id as payload, a new link gets a
// placeholder url to be edited next.
func ApplyEdit(b *catalog.Button, key, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return catalog.Invalid(key, "must not be empty")
	}
	switch key {
	case "id":
		b.ID = value
	case "label":
		b.Label = value
	case "chapter":
		b.Chapter = value
	case "type":
		kind, err := catalog.ParseKind(value)
		if err != nil {
			return err
		}
		if kind == b.Kind() {
			return nil
		}
		if kind == catalog.KindCallback {
			b.Action = catalog.Callback{Payload: b.ID}
		} else {
			b.Action = catalog.Link{URL: "https://"}
		}
	case "payload":
		cb, ok := b.Action.(catalog.Callback)
		if !ok {
			return catalog.Invalid("payload", "only callback buttons have a payload")
		}
		cb.Payload = value
		b.Action = cb
	case "url":
		link, ok := b.Action.(catalog.Link)
		if !ok {
			return catalog.Invalid("url", "only url buttons have a url")
		}
		link.URL = value
		b.Action = link
	default:
		return catalog.Invalid("key", "must be one of "+strings.Join(EditKeys, ", "))
	}
	return nil
}

func (d *Dialog) setResponse(ctx context.Context, userID int64, text string) (Reply, error) {
	payload, answer, err := ParseResponse(text)
	if err != nil {
		return retry(err), nil
	}
	return d.commit(ctx, userID, d.store.SetResponse(payload, answer),
		fmt.Sprintf("✅ Response for payload %q saved.", payload))
}

func (d *Dialog) addAdmin(ctx context.Context, userID int64, text string) (Reply, error) {
	if !d.store.IsSuper(userID) {
		return retry(catalog.ErrPermissionDenied), nil
	}
	id, err := ParseUserID(text)
	if err != nil {
		return retry(err), nil
	}
	if d.store.IsSuper(id) {
		d.sessions.Reset(userID)
		return Reply{Text: "That user is already a super user.", Keyboard: KeyboardPanel}, nil
	}
	added, err := d.store.AddAdmin(id)
	if err != nil {
		d.sessions.Reset(userID)
		return Reply{}, err
	}
	if !added {
		d.sessions.Reset(userID)
		return Reply{Text: fmt.Sprintf("User %d is already an admin.", id), Keyboard: KeyboardPanel}, nil
	}
	return d.commit(ctx, userID, nil, fmt.Sprintf("✅ User %d is now an admin.", id))
}

func (d *Dialog) delAdmin(ctx context.Context, userID int64, text string) (Reply, error) {
	if !d.store.IsSuper(userID) {
		return retry(catalog.ErrPermissionDenied), nil
	}
	id, err := ParseUserID(text)
	if err != nil {
		return retry(err), nil
	}
	if d.store.IsSuper(id) {
		return retry(fmt.Errorf("%w: super users cannot be demoted", catalog.ErrPermissionDenied)), nil
	}
	removed, err := d.store.RemoveAdmin(id)
	if err != nil {
		d.sessions.Reset(userID)
		return Reply{}, err
	}
	if !removed {
		d.sessions.Reset(userID)
		return Reply{Text: fmt.Sprintf("User %d is not an admin.", id), Keyboard: KeyboardPanel}, nil
	}
	return d.commit(ctx, userID, nil, fmt.Sprintf("✅ User %d is no longer an admin.", id))
}

// ListButtons renders one line per button, truncated to fit a single message.
func ListButtons(doc catalog.Document) string {
	if len(doc.Buttons) == 0 {
		return "The list is empty."
	}
	var sb strings.Builder
	for i, b := range doc.Buttons {
		line := fmt.Sprintf("• id: %s | label: %s | type: %s | chapter: %s\n", b.ID, b.Label, b.Kind(), b.Chapter)
		if sb.Len()+len(line) > listLimit {
			fmt.Fprintf(&sb, "… and %d more", len(doc.Buttons)-i)
			break
		}
		sb.WriteString(line)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (d *Dialog) log(ctx context.Context, event string, userID int64, step string, err error) {
	attrs := []slog.Attr{
		slog.String("status", logger.Status(err)),
		slog.Int64("user_id", userID),
		slog.String("state", step),
		slog.String("next", string(d.sessions.Get(userID).State)),
	}
	if err != nil {
		attrs = append(attrs, slog.String("err", err.Error()))
	}
	logger.Info(ctx, "admin", event, attrs...)
}
