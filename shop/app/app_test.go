package app

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	coretelegram "github.com/m3rciful/shopbot/core/telegram"
	"github.com/m3rciful/shopbot/core/telegram/teletest"
	"github.com/m3rciful/shopbot/shop/admin"
	"github.com/m3rciful/shopbot/shop/catalog"
	shopconfig "github.com/m3rciful/shopbot/shop/config"
	"github.com/m3rciful/shopbot/shop/importer"
	"github.com/m3rciful/shopbot/shop/menu"
	"github.com/m3rciful/shopbot/shop/sheets"

	tele "gopkg.in/telebot.v4"
)

const (
	superID = int64(1)
	adminID = int64(2)
	guestID = int64(3)
)

type fakeSheets struct {
	rows map[int64][]sheets.Row
	tabs []sheets.Tab
}

func (f fakeSheets) Rows(_ context.Context, _ string, tab sheets.Tab) ([]sheets.Row, error) {
	return f.rows[tab.GID], nil
}

func (f fakeSheets) ListTabs(context.Context, string) ([]sheets.Tab, error) {
	return f.tabs, nil
}

type harness struct {
	app    *App
	store  *catalog.Store
	routes map[string]tele.HandlerFunc
}

func seedDoc() catalog.Document {
	doc := catalog.NewDocument()
	doc.SuperUserIDs = []int64{superID}
	doc.AdminUserIDs = []int64{adminID}
	doc.Texts.Welcome = "Welcome to the shop"
	iphone := catalog.Button{
		ID: "iphone15", Label: "iPhone 15", Chapter: "PHONES",
		Action: catalog.Callback{Payload: menu.ItemPrefix + "iphone15", Item: &catalog.ItemCard{Memory: "128", Price: "79 990"}},
	}
	doc.Buttons = []catalog.Button{
		catalog.NewCallback("phones", "📱 Phones", catalog.RootChapter, "PHONES"),
		catalog.NewCallback("promo", "🔥 Promo", catalog.RootChapter, "PROMO"),
		catalog.NewCallback("contacts", "Contacts", catalog.RootChapter, "CONTACTS"),
		iphone,
	}
	doc.Responses = map[string]string{"PROMO": "Discounts all week"}
	return doc
}

func newHarness(t *testing.T, src *fakeSheets) *harness {
	t.Helper()
	store := catalog.NewStore(catalog.NewFileBackend(filepath.Join(t.TempDir(), "config.json")))
	if err := store.LoadOrInit(context.Background(), seedDoc()); err != nil {
		t.Fatalf("LoadOrInit: %v", err)
	}
	cfg := &shopconfig.Config{}
	opts := Options{Config: cfg, Store: store}
	if src != nil {
		cfg.Sheets.SpreadsheetID = "sheet"
		cfg.Sheets.Tabs = []sheets.Tab{{GID: 0, Title: "Phones"}}
		opts.Importer = importer.New(store, src, importer.Options{})
		opts.Tabs = src
	}
	a, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h := &harness{app: a, store: store, routes: map[string]tele.HandlerFunc{}}
	mws := coretelegram.DefaultMiddlewares(nil, coretelegram.MiddlewareOptions{})
	for _, r := range a.Routes() {
		h.routes[r.Endpoint.(string)] = coretelegram.Chain(r.Handler, mws)
	}
	return h
}

func (h *harness) command(t *testing.T, uid int64, text string) *teletest.Context {
	t.Helper()
	c := teletest.NewMessage(uid, text)
	name := strings.Fields(text)[0]
	handler, ok := h.routes[name]
	if !ok {
		t.Fatalf("no route for %s", name)
	}
	if err := handler(c); err != nil {
		t.Fatalf("%s: %v", name, err)
	}
	return c
}

func (h *harness) text(t *testing.T, uid int64, text string) *teletest.Context {
	t.Helper()
	c := teletest.NewMessage(uid, text)
	if err := h.routes[tele.OnText](c); err != nil {
		t.Fatalf("text %q: %v", text, err)
	}
	return c
}

func (h *harness) press(t *testing.T, uid int64, data string) *teletest.Context {
	t.Helper()
	c := teletest.NewCallback(uid, data)
	if err := h.routes[tele.OnCallback](c); err != nil {
		t.Fatalf("callback %q: %v", data, err)
	}
	return c
}

func payloads(m *tele.ReplyMarkup) []string {
	if m == nil {
		return nil
	}
	var out []string
	for _, row := range m.InlineKeyboard {
		for _, b := range row {
			out = append(out, b.Data)
		}
	}
	return out
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}

func lastText(t *testing.T, c *teletest.Context) string {
	t.Helper()
	texts := c.Texts()
	if len(texts) == 0 {
		t.Fatal("nothing was sent")
	}
	return texts[len(texts)-1]
}

func TestStartShowsWelcomeAndRootKeyboard(t *testing.T) {
	h := newHarness(t, nil)

	guest := h.command(t, guestID, "/start")
	if got := lastText(t, guest); !strings.Contains(got, "Welcome to the shop") || !strings.HasPrefix(got, "👋 Tester!") {
		t.Fatalf("welcome = %q", got)
	}
	keys := payloads(guest.LastMarkup())
	if !contains(keys, "PHONES") || !contains(keys, "PROMO") {
		t.Fatalf("root keyboard = %v", keys)
	}
	if contains(keys, menu.AdminPayload) {
		t.Fatal("guests must not see the admin row")
	}

	adm := h.command(t, adminID, "/start")
	if !contains(payloads(adm.LastMarkup()), menu.AdminPayload) {
		t.Fatal("admins must see the admin row in private chats")
	}
}

func TestAdminPanelDeniedForGuests(t *testing.T) {
	h := newHarness(t, nil)
	c := h.press(t, guestID, menu.AdminPayload)
	if len(c.Responses) != 1 || !c.Responses[0].ShowAlert || c.Responses[0].Text != textDenied {
		t.Fatalf("responses = %+v", c.Responses)
	}
	if len(c.Out) != 0 {
		t.Fatalf("nothing must be sent, got %+v", c.Out)
	}
}

func TestAdminPanelHidesSuperActions(t *testing.T) {
	h := newHarness(t, nil)
	c := h.press(t, adminID, menu.AdminPayload)
	keys := payloads(c.LastMarkup())
	if !contains(keys, string(admin.ActionAddButton)) {
		t.Fatalf("panel = %v", keys)
	}
	if contains(keys, string(admin.ActionImport)) || contains(keys, string(admin.ActionAddAdmin)) {
		t.Fatalf("plain admins must not see super actions: %v", keys)
	}
}

func TestAddButtonDialog(t *testing.T) {
	h := newHarness(t, nil)

	prompt := h.press(t, adminID, string(admin.ActionAddButton))
	if !contains(payloads(prompt.LastMarkup()), string(admin.ActionCancel)) {
		t.Fatal("prompt must carry a cancel button")
	}

	bad := h.text(t, adminID, "only | two")
	if got := lastText(t, bad); !strings.HasPrefix(got, "⚠️") {
		t.Fatalf("bad input reply = %q", got)
	}

	done := h.text(t, adminID, "wa | Write us | url | MAIN | https://wa.me/100 | Hello")
	if got := lastText(t, done); !strings.Contains(got, "✅") {
		t.Fatalf("reply = %q", got)
	}
	doc, _ := h.store.Get()
	b, ok := doc.Find("wa")
	if !ok {
		t.Fatal("button was not added")
	}
	if b.Kind() != catalog.KindURL || b.Chapter != catalog.RootChapter {
		t.Fatalf("button = %+v", b)
	}

	after := h.text(t, adminID, "hello again")
	if got := lastText(t, after); got != textUnknownText {
		t.Fatalf("dialog must be over, got %q", got)
	}
}

func TestCancelEndsDialog(t *testing.T) {
	h := newHarness(t, nil)
	h.press(t, adminID, string(admin.ActionSetWelcome))
	h.command(t, adminID, "/cancel")
	h.text(t, adminID, "ignored welcome")

	doc, _ := h.store.Get()
	if doc.Texts.Welcome != "Welcome to the shop" {
		t.Fatalf("welcome changed after cancel: %q", doc.Texts.Welcome)
	}
}

func TestItemCardAndChapterNavigation(t *testing.T) {
	h := newHarness(t, nil)

	chapter := h.press(t, guestID, "PHONES")
	if got := lastText(t, chapter); got != "📱 Phones" {
		t.Fatalf("chapter title = %q", got)
	}
	keys := payloads(chapter.LastMarkup())
	if !contains(keys, menu.ItemPrefix+"iphone15") || !contains(keys, catalog.RootChapter) {
		t.Fatalf("chapter keyboard = %v", keys)
	}

	card := h.press(t, guestID, menu.ItemPrefix+"iphone15")
	if got := lastText(t, card); !strings.Contains(got, "iPhone 15") || !strings.Contains(got, "79 990") {
		t.Fatalf("card = %q", got)
	}
	nav := payloads(card.LastMarkup())
	if len(nav) != 2 || nav[0] != "PHONES" || nav[1] != catalog.RootChapter {
		t.Fatalf("card navigation = %v", nav)
	}

	gone := h.press(t, guestID, menu.ItemPrefix+"missing")
	if len(gone.Responses) != 1 || !gone.Responses[0].ShowAlert {
		t.Fatalf("missing item must alert, got %+v", gone.Responses)
	}
}

func TestCannedResponses(t *testing.T) {
	h := newHarness(t, nil)

	promo := h.press(t, guestID, "PROMO")
	if got := lastText(t, promo); got != "Discounts all week" {
		t.Fatalf("response = %q", got)
	}
	if !contains(payloads(promo.LastMarkup()), "PHONES") {
		t.Fatal("responses must come with the root keyboard")
	}

	empty := h.press(t, guestID, "CONTACTS")
	if got := lastText(t, empty); got != textNoResponse {
		t.Fatalf("no-text reply = %q", got)
	}
}

func TestMainCallbackResetsDialog(t *testing.T) {
	h := newHarness(t, nil)
	h.press(t, adminID, string(admin.ActionDelButton))
	c := h.press(t, adminID, catalog.RootChapter)
	if got := lastText(t, c); got != "Welcome to the shop" {
		t.Fatalf("main = %q", got)
	}
	if h.app.fsm.InProgress(adminID) {
		t.Fatal("MAIN must reset the dialog")
	}
}

func TestDeleteButtonCommandIsIdempotent(t *testing.T) {
	h := newHarness(t, nil)

	first := h.command(t, adminID, "/delbtn promo")
	if got := lastText(t, first); !strings.Contains(got, "deleted") {
		t.Fatalf("first delete = %q", got)
	}
	second := h.command(t, adminID, "/delbtn promo")
	if got := lastText(t, second); !strings.Contains(got, "does not exist") {
		t.Fatalf("second delete = %q", got)
	}
	doc, _ := h.store.Get()
	if _, ok := doc.Find("promo"); ok {
		t.Fatal("promo still present")
	}
}

func TestSetResponseCommand(t *testing.T) {
	h := newHarness(t, nil)
	h.command(t, adminID, "/setresponse CONTACTS | Call us\nany day")
	doc, _ := h.store.Get()
	if got := doc.Responses["CONTACTS"]; got != "Call us\nany day" {
		t.Fatalf("response = %q", got)
	}

	usage := h.command(t, adminID, "/setresponse nothing")
	if got := lastText(t, usage); !strings.Contains(got, "Usage:") {
		t.Fatalf("usage reply = %q", got)
	}
}

func TestAddAdminByReply(t *testing.T) {
	h := newHarness(t, nil)
	c := teletest.NewMessage(superID, "/addadmin")
	c.Msg.ReplyTo = &tele.Message{ID: 7, Sender: &tele.User{ID: 42}}
	if err := h.routes["/addadmin"](c); err != nil {
		t.Fatal(err)
	}
	if !h.store.IsAdmin(42) {
		t.Fatalf("42 must be an admin, replies: %v", c.Texts())
	}

	again := h.command(t, superID, "/addadmin 42")
	if got := lastText(t, again); !strings.Contains(got, "already an admin") {
		t.Fatalf("repeat = %q", got)
	}

	super := h.command(t, superID, "/deladmin 1")
	if got := lastText(t, super); !strings.Contains(got, "not allowed") {
		t.Fatalf("demoting a super = %q", got)
	}
}

func TestSuperOnlyCommandsRejectAdmins(t *testing.T) {
	h := newHarness(t, nil)
	c := h.command(t, adminID, "/addadmin 50")
	if got := lastText(t, c); got != textDenied {
		t.Fatalf("reply = %q", got)
	}
	if h.store.IsAdmin(50) {
		t.Fatal("admin must not grant rights")
	}

	btn := h.press(t, adminID, string(admin.ActionImport))
	if len(btn.Responses) != 1 || btn.Responses[0].Text != textSuperOnly {
		t.Fatalf("import button = %+v", btn.Responses)
	}
}

func TestGroupChatsIgnoreAdminCommands(t *testing.T) {
	h := newHarness(t, nil)
	c := teletest.NewMessage(adminID, "/setwelcome hacked").InGroup(-100)
	if err := h.routes["/setwelcome"](c); err != nil {
		t.Fatal(err)
	}
	doc, _ := h.store.Get()
	if doc.Texts.Welcome != "Welcome to the shop" {
		t.Fatal("group chat command must not change the welcome")
	}
}

func TestImportWithoutPricesLeavesCatalog(t *testing.T) {
	src := &fakeSheets{rows: map[int64][]sheets.Row{
		0: {{"product": "iPhone", "name": "iPhone 16", "price": "0"}},
	}}
	h := newHarness(t, src)
	before, _ := h.store.Get()

	c := h.command(t, superID, "/import")
	if got := lastText(t, c); got != textEmpty {
		t.Fatalf("reply = %q", got)
	}
	after, _ := h.store.Get()
	if len(after.Buttons) != len(before.Buttons) {
		t.Fatalf("buttons changed: %d -> %d", len(before.Buttons), len(after.Buttons))
	}
}

func TestImportAddsItems(t *testing.T) {
	src := &fakeSheets{rows: map[int64][]sheets.Row{
		0: {
			{"product": "iPhone", "name": "iPhone 16", "memory": "256", "price": "99 990"},
			{"product": "iPhone", "name": "iPhone 16 Pro", "memory": "", "price": ""},
		},
	}}
	h := newHarness(t, src)

	c := h.command(t, superID, "/import")
	got := lastText(t, c)
	if !strings.Contains(got, "Items added: 1") || !strings.Contains(got, "Rows skipped: 1") {
		t.Fatalf("summary = %q", got)
	}
}

func TestImportNotConfigured(t *testing.T) {
	h := newHarness(t, nil)
	c := h.command(t, superID, "/import")
	if got := lastText(t, c); got != textImportOff {
		t.Fatalf("reply = %q", got)
	}
}

func TestSheetsListsTabs(t *testing.T) {
	src := &fakeSheets{tabs: []sheets.Tab{{GID: 0, Title: "Phones"}, {GID: 12, Title: "Audio"}}}
	h := newHarness(t, src)
	c := h.command(t, superID, "/sheets")
	got := lastText(t, c)
	if !strings.Contains(got, "gid=0  Phones") || !strings.Contains(got, "gid=12  Audio") {
		t.Fatalf("tabs = %q", got)
	}
}

func TestSeedDocument(t *testing.T) {
	doc := SeedDocument(shopconfig.SeedConfig{SuperUserIDs: []int64{9}, Welcome: "  Hi  "})
	if doc.Texts.Welcome != "Hi" || len(doc.SuperUserIDs) != 1 || doc.SuperUserIDs[0] != 9 {
		t.Fatalf("seed = %+v", doc)
	}
	if def := SeedDocument(shopconfig.SeedConfig{}); def.Texts.Welcome != catalog.DefaultWelcome {
		t.Fatalf("default welcome = %q", def.Texts.Welcome)
	}
}

func TestCloseRunsClosersInReverse(t *testing.T) {
	h := newHarness(t, nil)
	var order []int
	h.app.closers = append(h.app.closers,
		func() error { order = append(order, 1); return nil },
		func() error { order = append(order, 2); return errors.New("boom") },
	)
	if err := h.app.Close(); err == nil {
		t.Fatal("expected the closer error")
	}
	if len(order) != 2 || order[0] != 2 || order[1] != 1 {
		t.Fatalf("order = %v", order)
	}
}
