// Package sheets fetches spreadsheet tabs as header-keyed rows.
package sheets

import (
	"context"
	"strconv"
)

// Row maps a column header to the cell text of one data row.
type Row map[string]string

// Tab identifies one sheet of a spreadsheet. Title is optional for export sources.
type Tab struct {
	GID   int64  `yaml:"gid"`
	Title string `yaml:"title"`
}

// String returns the tab title, or its gid when untitled.
func (t Tab) String() string {
	if t.Title != "" {
		return t.Title
	}
	return "gid " + strconv.FormatInt(t.GID, 10)
}

// Source returns the data rows of a tab. An empty result with a nil error means
// the tab was reachable but held no rows.
type Source interface {
	Rows(ctx context.Context, spreadsheetID string, tab Tab) ([]Row, error)
}

// Lister enumerates the tabs of a spreadsheet.
type Lister interface {
	ListTabs(ctx context.Context, spreadsheetID string) ([]Tab, error)
}

// rowsFromRecords turns a header record plus data records into rows. Cells are
// trimmed; missing trailing cells read as empty. A blank header yields no rows.
func rowsFromRecords(records [][]string) []Row {
	if len(records) == 0 {
		return nil
	}
	header := make([]string, len(records[0]))
	blank := true
	for i, h := range records[0] {
		header[i] = trimCell(h)
		if header[i] != "" {
			blank = false
		}
	}
	if blank {
		return nil
	}
	rows := make([]Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(Row, len(header))
		empty := true
		for i, key := range header {
			if key == "" {
				continue
			}
			var cell string
			if i < len(rec) {
				cell = trimCell(rec[i])
			}
			if cell != "" {
				empty = false
			}
			row[key] = cell
		}
		if !empty {
			rows = append(rows, row)
		}
	}
	return rows
}
