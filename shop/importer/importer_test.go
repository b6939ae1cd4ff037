package importer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/m3rciful/shopbot/shop/catalog"
	"github.com/m3rciful/shopbot/shop/menu"
	"github.com/m3rciful/shopbot/shop/sheets"
)

type fakeSource struct {
	tabs map[int64][]sheets.Row
	errs map[int64]error
}

func (f fakeSource) Rows(_ context.Context, _ string, tab sheets.Tab) ([]sheets.Row, error) {
	if err := f.errs[tab.GID]; err != nil {
		return nil, err
	}
	return f.tabs[tab.GID], nil
}

func row(product, name, memory, price string) sheets.Row {
	return sheets.Row{"product": product, "name": name, "memory": memory, "price": price}
}

func newStore(t *testing.T) (*catalog.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	store := catalog.NewStore(catalog.NewFileBackend(path))
	doc := catalog.NewDocument()
	doc.SuperUserIDs = []int64{1}
	doc.Buttons = []catalog.Button{catalog.NewCallback("promo", "Promo", catalog.RootChapter, "PROMO")}
	if err := store.SetAll(doc); err != nil {
		t.Fatalf("SetAll: %v", err)
	}
	if err := store.Save(context.Background()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	return store, path
}

func TestRunAllZeroPricesIsEmpty(t *testing.T) {
	store, path := newStore(t)
	before, _ := store.Get()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	src := fakeSource{tabs: map[int64][]sheets.Row{
		0: {row("iPhones", "iPhone 15", "128", "0"), row("iPhones", "iPhone 14", "", "")},
		1: {row("AirPods", "AirPods Pro", "", "0 ₽")},
	}}
	res, err := New(store, src, Options{}).Run(context.Background(), "BOOK",
		[]sheets.Tab{{GID: 0, Title: "Apple"}, {GID: 1}})
	if !errors.Is(err, catalog.ErrImportEmpty) || !IsEmpty(err) {
		t.Fatalf("err = %v, want ErrImportEmpty", err)
	}
	if res.Skipped != 3 {
		t.Fatalf("skipped = %d", res.Skipped)
	}

	after, _ := store.Get()
	if !reflect.DeepEqual(before, after) {
		t.Fatal("document changed after an empty import")
	}
	rawAfter, _ := os.ReadFile(path)
	if string(raw) != string(rawAfter) {
		t.Fatal("persisted document changed after an empty import")
	}
}

func TestRunBuildsTree(t *testing.T) {
	store, path := newStore(t)
	src := fakeSource{tabs: map[int64][]sheets.Row{
		0: {
			row("iPhones", "iPhone 15", "128", "от 79 990"),
			row("iPhones", "iPhone 15", "256", "89 990"),
			row("AirPods", "AirPods Pro", "0", "по запросу"),
			row("iPhones", "iPhone 13", "", "0"),
		},
	}}
	res, err := New(store, src, Options{}).Run(context.Background(), "BOOK", []sheets.Tab{{GID: 0, Title: "Apple"}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Added != 3 || res.Updated != 0 || res.Skipped != 1 || res.GroupsAdded != 1 || res.ChaptersAdded != 2 {
		t.Fatalf("result = %+v", res)
	}
	if res.RunID == "" {
		t.Fatal("missing run id")
	}

	doc, _ := store.Get()
	entry, ok := doc.Find(CatalogButtonID)
	if !ok || entry.Chapter != catalog.RootChapter {
		t.Fatalf("catalog entry = %+v", entry)
	}
	if p, _ := entry.Payload(); p != catalog.ProductGroupChapter {
		t.Fatalf("catalog entry opens %q", p)
	}
	if b, ok := doc.Find("GROUP_APPLE"); !ok || b.Chapter != catalog.ProductGroupChapter {
		t.Fatalf("group button = %+v", b)
	}
	if b, ok := doc.Find("CAT_APPLE_IPHONES"); !ok || b.Chapter != "APPLE" || b.Label != "📱 iPhones" {
		t.Fatalf("product button = %+v", b)
	}
	if doc.ParentOf("IPHONES") != "APPLE" || doc.ParentOf("APPLE") != catalog.ProductGroupChapter {
		t.Fatalf("parents = %v", doc.Parents)
	}

	item, ok := doc.Find("IPHONES_IPHONE_15_128")
	if !ok || item.Chapter != "IPHONES" {
		t.Fatalf("item = %+v", item)
	}
	if p, _ := item.Payload(); p != menu.ItemPrefix+"IPHONES_IPHONE_15_128" {
		t.Fatalf("item payload = %q", p)
	}
	if got := menu.ItemLine(item); got != "iPhone 15 128 GB — from 79 990" {
		t.Fatalf("item line = %q", got)
	}
	pods, ok := doc.Find("AIRPODS_AIRPODS_PRO")
	if !ok {
		t.Fatal("airpods item missing")
	}
	if cb := pods.Action.(catalog.Callback); cb.Item == nil || !cb.Item.PriceRequest || cb.Item.Memory != "" {
		t.Fatalf("airpods card = %+v", cb.Item)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config not saved: %v", err)
	}
}

func TestRunReimportUpdatesInPlace(t *testing.T) {
	store, _ := newStore(t)
	tabs := []sheets.Tab{{GID: 0, Title: "Apple"}}
	first := fakeSource{tabs: map[int64][]sheets.Row{0: {row("iPhones", "iPhone 15", "128", "79 990")}}}
	if _, err := New(store, first, Options{}).Run(context.Background(), "BOOK", tabs); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	docBefore, _ := store.Get()

	second := fakeSource{tabs: map[int64][]sheets.Row{0: {
		row("iPhones", "iPhone 15", "128", "74 990"),
		row("iPhones", "iPhone 16", "128", "99 990"),
	}}}
	res, err := New(store, second, Options{}).Run(context.Background(), "BOOK", tabs)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if res.Added != 1 || res.Updated != 1 || res.GroupsAdded != 0 || res.ChaptersAdded != 0 {
		t.Fatalf("result = %+v", res)
	}

	doc, _ := store.Get()
	if len(doc.Buttons) != len(docBefore.Buttons)+1 {
		t.Fatalf("buttons = %d, want %d", len(doc.Buttons), len(docBefore.Buttons)+1)
	}
	if doc.IndexOf("IPHONES_IPHONE_15_128") != docBefore.IndexOf("IPHONES_IPHONE_15_128") {
		t.Fatal("updated item moved")
	}
	item, _ := doc.Find("IPHONES_IPHONE_15_128")
	if cb := item.Action.(catalog.Callback); cb.Item.Price != "74 990" {
		t.Fatalf("price = %q", cb.Item.Price)
	}
}

func TestRunSingleProductTabListsItemsInGroup(t *testing.T) {
	store, _ := newStore(t)
	src := fakeSource{tabs: map[int64][]sheets.Row{5: {row("AirPods", "AirPods 4", "", "14 990")}}}
	res, err := New(store, src, Options{}).Run(context.Background(), "BOOK", []sheets.Tab{{GID: 5}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Tabs[0].Group != "AirPods" || res.ChaptersAdded != 0 {
		t.Fatalf("result = %+v", res)
	}
	doc, _ := store.Get()
	item, ok := doc.Find("AIRPODS_AIRPODS_4")
	if !ok || item.Chapter != "AIRPODS" {
		t.Fatalf("item = %+v", item)
	}
	if doc.ParentOf("AIRPODS") != catalog.ProductGroupChapter {
		t.Fatalf("parents = %v", doc.Parents)
	}
}

func TestRunTabErrorsAreRecorded(t *testing.T) {
	store, _ := newStore(t)
	src := fakeSource{
		tabs: map[int64][]sheets.Row{1: {row("iPads", "iPad Air", "", "59 990")}},
		errs: map[int64]error{0: errors.New("boom")},
	}
	res, err := New(store, src, Options{Fetchers: 1}).Run(context.Background(), "BOOK",
		[]sheets.Tab{{GID: 0, Title: "Broken"}, {GID: 1, Title: "Tablets"}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Tabs[0].Err == nil || res.Tabs[1].Err != nil || res.Added != 1 {
		t.Fatalf("result = %+v", res)
	}
}

func TestRunWithoutTabs(t *testing.T) {
	store, _ := newStore(t)
	if _, err := New(store, fakeSource{}, Options{}).Run(context.Background(), "BOOK", nil); !catalog.IsValidation(err) {
		t.Fatalf("err = %v, want validation", err)
	}
}

func TestRunRussianHeaders(t *testing.T) {
	store, _ := newStore(t)
	src := fakeSource{tabs: map[int64][]sheets.Row{0: {
		{"Товар": "MacBooks", "Название": "MacBook Air", "Память": "512", "Цена": "129 990"},
	}}}
	if _, err := New(store, src, Options{}).Run(context.Background(), "BOOK", []sheets.Tab{{GID: 0, Title: "Apple"}}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	doc, _ := store.Get()
	if _, ok := doc.Find("MACBOOKS_MACBOOK_AIR_512"); !ok {
		t.Fatalf("buttons = %+v", doc.Buttons)
	}
}

func TestChapterIDAvoidsReserved(t *testing.T) {
	for _, code := range []string{"MAIN", "HIDDEN", "ADMIN", "ADM_X"} {
		if got := chapterID(code); got != productPrefix+code {
			t.Errorf("chapterID(%q) = %q", code, got)
		}
	}
	if got := chapterID("IPHONES"); got != "IPHONES" {
		t.Errorf("chapterID(IPHONES) = %q", got)
	}
}

func TestGroupTitleFallsBackToGID(t *testing.T) {
	items := []item{{product: "iPhones"}, {product: "AirPods"}}
	if got := groupTitle(sheets.Tab{GID: 9}, items); got != "SHEET_9" {
		t.Fatalf("groupTitle = %q", got)
	}
	if got := groupTitle(sheets.Tab{GID: 9, Title: "  "}, nil); !strings.HasPrefix(got, "SHEET_") {
		t.Fatalf("groupTitle = %q", got)
	}
}
