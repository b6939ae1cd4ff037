// Package importer turns spreadsheet tabs into catalog buttons: one group per tab,
// one chapter per product category, one item card per priced row.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/m3rciful/shopbot/core/logger"
	"github.com/m3rciful/shopbot/shop/catalog"
	"github.com/m3rciful/shopbot/shop/menu"
	"github.com/m3rciful/shopbot/shop/sheets"
)

const (
	groupPrefix   = "GROUP_"
	productPrefix = "CAT_"
	// CatalogButtonID is the root entry created when no button opens the product groups.
	CatalogButtonID = "CATALOG"
	catalogLabel    = "🛍 Catalog"
	defaultFetchers = 4
)

// Column header aliases, matched case-insensitively.
var (
	productColumns = []string{"product", "товар", "категория"}
	nameColumns    = []string{"name", "название", "модель"}
	memoryColumns  = []string{"memory", "память"}
	priceColumns   = []string{"price", "стоимость", "цена"}
)

// Importer upserts spreadsheet rows into a catalog store.
type Importer struct {
	store    *catalog.Store
	source   sheets.Source
	fetchers int
}

// Options tunes an Importer.
type Options struct {
	// Fetchers bounds concurrent tab fetches; 0 means a small default.
	Fetchers int
}

// New builds an importer.
func New(store *catalog.Store, source sheets.Source, opts Options) *Importer {
	if opts.Fetchers <= 0 {
		opts.Fetchers = defaultFetchers
	}
	return &Importer{store: store, source: source, fetchers: opts.Fetchers}
}

// TabResult reports one tab of a run.
type TabResult struct {
	Tab     sheets.Tab
	Group   string
	Rows    int
	Kept    int
	Skipped int
	Err     error
}

// Result summarizes an import run.
type Result struct {
	RunID         string
	Added         int
	Updated       int
	GroupsAdded   int
	ChaptersAdded int
	Skipped       int
	Tabs          []TabResult
}

// item is one surviving row.
type item struct {
	product string
	name    string
	memory  string
	price   Price
}

type tabData struct {
	result TabResult
	items  []item
}

// Run fetches every tab concurrently, then applies them in the given order as one
// document update followed by a single save. When no row survives across all tabs
// the document is left untouched and catalog.ErrImportEmpty is returned.
func (im *Importer) Run(ctx context.Context, spreadsheetID string, tabs []sheets.Tab) (Result, error) {
	res := Result{RunID: uuid.NewString()}
	start := time.Now()
	ctx = logger.WithRID(ctx, "import:"+res.RunID[:8])
	logger.Info(ctx, "import", "import.start",
		slog.String("run_id", res.RunID),
		slog.Int("count", len(tabs)),
	)
	if len(tabs) == 0 {
		return res, catalog.Invalid("tabs", "no spreadsheet tabs configured")
	}

	data := make([]tabData, len(tabs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(im.fetchers)
	for i, tab := range tabs {
		g.Go(func() error {
			rows, err := im.source.Rows(gctx, spreadsheetID, tab)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				data[i].result = TabResult{Tab: tab, Err: err}
				return nil
			}
			data[i] = parseTab(tab, rows)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, fmt.Errorf("import: fetch: %w", err)
	}

	kept := 0
	for _, d := range data {
		res.Tabs = append(res.Tabs, d.result)
		res.Skipped += d.result.Skipped
		kept += d.result.Kept
		logTab(ctx, res.RunID, d.result)
	}
	if kept == 0 {
		logger.Warn(ctx, "import", "import.empty",
			slog.String("run_id", res.RunID),
			slog.Int("skipped", res.Skipped),
			slog.Duration("duration", logger.RoundMS(time.Since(start))),
		)
		return res, catalog.ErrImportEmpty
	}

	err := im.store.Update(func(doc *catalog.Document) error {
		ensureCatalogEntry(doc)
		for _, d := range data {
			if len(d.items) > 0 {
				apply(doc, d.result.Group, d.items, &res)
			}
		}
		return nil
	})
	if err != nil {
		return res, fmt.Errorf("import: apply: %w", err)
	}
	if err := im.store.Save(ctx); err != nil {
		return res, fmt.Errorf("import: %w", err)
	}

	logger.Info(ctx, "import", "import.done",
		slog.String("status", "ok"),
		slog.String("run_id", res.RunID),
		slog.Int("added", res.Added),
		slog.Int("updated", res.Updated),
		slog.Int("skipped", res.Skipped),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return res, nil
}

func logTab(ctx context.Context, runID string, r TabResult) {
	attrs := []slog.Attr{
		slog.String("status", logger.Status(r.Err)),
		slog.String("run_id", runID),
		slog.String("tab", r.Tab.String()),
		slog.Int("rows", r.Rows),
		slog.Int("skipped", r.Skipped),
	}
	if r.Err != nil {
		logger.Warn(ctx, "import", "import.tab", append(attrs, slog.String("err", r.Err.Error()))...)
		return
	}
	logger.Debug(ctx, "import", "import.tab", attrs...)
}

// parseTab resolves columns, applies the price policy and names the group.
func parseTab(tab sheets.Tab, rows []sheets.Row) tabData {
	d := tabData{result: TabResult{Tab: tab, Rows: len(rows)}}
	if len(rows) > 0 {
		headers := make([]string, 0, len(rows[0]))
		for h := range rows[0] {
			headers = append(headers, h)
		}
		productKey := resolveColumn(headers, productColumns)
		nameKey := resolveColumn(headers, nameColumns)
		memoryKey := resolveColumn(headers, memoryColumns)
		priceKey := resolveColumn(headers, priceColumns)

		for _, row := range rows {
			it := item{
				product: strings.TrimSpace(row[productKey]),
				name:    strings.TrimSpace(row[nameKey]),
				memory:  strings.TrimSpace(row[memoryKey]),
			}
			price, ok := ParsePrice(row[priceKey])
			if !ok || it.product == "" || it.name == "" || ToCode(it.product) == "" || ToCode(it.name) == "" {
				d.result.Skipped++
				continue
			}
			if it.memory == "0" {
				it.memory = ""
			}
			it.price = price
			d.items = append(d.items, it)
		}
	}
	d.result.Kept = len(d.items)
	d.result.Group = groupTitle(tab, d.items)
	return d
}

// resolveColumn returns the header matching the first alias present, or the
// first alias itself so that lookups simply miss.
func resolveColumn(headers []string, aliases []string) string {
	for _, a := range aliases {
		for _, h := range headers {
			if strings.EqualFold(strings.TrimSpace(h), a) {
				return h
			}
		}
	}
	return aliases[0]
}

// groupTitle prefers the tab title, then a single shared product, then the gid.
func groupTitle(tab sheets.Tab, items []item) string {
	if t := strings.TrimSpace(tab.Title); t != "" && ToCode(t) != "" {
		return t
	}
	var only string
	for _, it := range items {
		switch {
		case only == "":
			only = it.product
		case !strings.EqualFold(only, it.product):
			return fmt.Sprintf("SHEET_%d", tab.GID)
		}
	}
	if only != "" {
		return only
	}
	return fmt.Sprintf("SHEET_%d", tab.GID)
}

// ensureCatalogEntry links the product groups under the root menu once.
func ensureCatalogEntry(doc *catalog.Document) {
	for _, b := range doc.Buttons {
		if p, ok := b.Payload(); ok && p == catalog.ProductGroupChapter {
			return
		}
	}
	id := CatalogButtonID
	if doc.IndexOf(id) >= 0 {
		id = CatalogButtonID + "_" + catalog.ProductGroupChapter
	}
	doc.Upsert(catalog.NewCallback(id, catalogLabel, catalog.RootChapter, catalog.ProductGroupChapter))
}

// chapterID makes a chapter id that fits callback data and avoids reserved names.
func chapterID(code string) string {
	if catalog.IsReservedChapter(code) || code == menu.AdminPayload || strings.HasPrefix(code, "ADM_") {
		code = productPrefix + code
	}
	return fitID("", code)
}

// apply upserts the group, product and item buttons of one tab.
func apply(doc *catalog.Document, title string, items []item, res *Result) {
	groupID := chapterID(ToCode(title))
	if doc.Upsert(catalog.Button{
		ID:      fitID("", groupPrefix+groupID),
		Label:   GroupLabel(title),
		Chapter: catalog.ProductGroupChapter,
		Action:  catalog.Callback{Payload: groupID},
	}) {
		res.GroupsAdded++
	}

	seen := make(map[string]struct{})
	for _, it := range items {
		productCode := ToCode(it.product)
		chapter := chapterID(productCode)
		// a tab named after its only category lists items directly in the group
		if _, ok := seen[chapter]; !ok && chapter != groupID {
			seen[chapter] = struct{}{}
			if doc.Upsert(catalog.Button{
				ID:      fitID("", productPrefix+groupID+"_"+chapter),
				Label:   ProductLabel(it.product),
				Chapter: groupID,
				Action:  catalog.Callback{Payload: chapter},
			}) {
				res.ChaptersAdded++
			}
		}

		id := productCode + "_" + ToCode(it.name)
		if it.memory != "" {
			id += "_" + ToCode(it.memory)
		}
		id = fitID(menu.ItemPrefix, id)
		added := doc.Upsert(catalog.Button{
			ID:      id,
			Label:   it.name,
			Chapter: chapter,
			Action: catalog.Callback{
				Payload: menu.ItemPrefix + id,
				Item: &catalog.ItemCard{
					Memory:       it.memory,
					Price:        it.price.Text,
					PriceFrom:    it.price.From,
					PriceRequest: it.price.Request,
				},
			},
		})
		if added {
			res.Added++
		} else {
			res.Updated++
		}
	}
}

// IsEmpty reports whether err is the empty-import guard.
func IsEmpty(err error) bool {
	return errors.Is(err, catalog.ErrImportEmpty)
}
