package app

import (
	"fmt"
	"strings"

	tghelpers "github.com/m3rciful/shopbot/core/telegram/helpers"
	"github.com/m3rciful/shopbot/shop/importer"

	tele "gopkg.in/telebot.v4"
)

const (
	textImportOff = "Import is not configured: set sheets.spreadsheet_id and sheets.tabs."
	textSheetsOff = "Listing tabs needs service account credentials (sheets.credentials_file or sheets.credentials_json) and sheets.spreadsheet_id."
	textEmpty     = "⚠️ Nothing to import: no row has a price. The catalog was left unchanged."
)

func (a *App) runImport(c tele.Context) error {
	sc := a.cfg.Sheets
	if a.importer == nil || sc.SpreadsheetID == "" || len(sc.Tabs) == 0 {
		return tghelpers.SendText(c, textImportOff)
	}
	res, err := a.importer.Run(tghelpers.BuildContext(c), sc.SpreadsheetID, sc.Tabs)
	if importer.IsEmpty(err) {
		return tghelpers.SendText(c, textEmpty+tabFailures(res))
	}
	if err != nil {
		return err
	}
	return tghelpers.SendText(c, importSummary(res))
}

func importSummary(res importer.Result) string {
	var sb strings.Builder
	sb.WriteString("✅ Import finished.\n")
	fmt.Fprintf(&sb, "Items added: %d\n", res.Added)
	fmt.Fprintf(&sb, "Items updated: %d\n", res.Updated)
	fmt.Fprintf(&sb, "Groups added: %d\n", res.GroupsAdded)
	fmt.Fprintf(&sb, "Categories added: %d\n", res.ChaptersAdded)
	fmt.Fprintf(&sb, "Rows skipped: %d", res.Skipped)
	sb.WriteString(tabFailures(res))
	return sb.String()
}

func tabFailures(res importer.Result) string {
	var sb strings.Builder
	for _, t := range res.Tabs {
		if t.Err != nil {
			fmt.Fprintf(&sb, "\n⚠️ Tab %s failed: %v", t.Tab, t.Err)
		}
	}
	return sb.String()
}

func (a *App) listTabs(c tele.Context) error {
	id := a.cfg.Sheets.SpreadsheetID
	if a.tabs == nil || id == "" {
		return tghelpers.SendText(c, textSheetsOff)
	}
	tabs, err := a.tabs.ListTabs(tghelpers.BuildContext(c), id)
	if err != nil {
		return err
	}
	if len(tabs) == 0 {
		return tghelpers.SendText(c, "The spreadsheet has no tabs.")
	}
	var sb strings.Builder
	sb.WriteString("📑 Spreadsheet tabs:")
	for _, t := range tabs {
		fmt.Fprintf(&sb, "\ngid=%d  %s", t.GID, t.Title)
	}
	return tghelpers.SendText(c, sb.String())
}
