package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/shopbot/core/logger"

	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

// APIOptions configures the Google Sheets API client. One of CredentialsFile or
// CredentialsJSON is required unless ClientOptions already carry authentication.
type APIOptions struct {
	CredentialsFile string
	CredentialsJSON string
	// ClientOptions are appended after the credentials, mainly for tests.
	ClientOptions []option.ClientOption
}

// ErrNoCredentials is returned when the API source is built without credentials.
var ErrNoCredentials = errors.New("sheets: service account credentials are not configured")

// APISource reads spreadsheets through the Sheets v4 API with a service account.
// It works for private spreadsheets shared with that account.
type APISource struct {
	svc *gsheets.Service
}

// NewAPISource builds an API-backed source.
func NewAPISource(ctx context.Context, opts APIOptions) (*APISource, error) {
	var clientOpts []option.ClientOption
	switch {
	case strings.TrimSpace(opts.CredentialsJSON) != "":
		clientOpts = append(clientOpts, option.WithCredentialsJSON([]byte(opts.CredentialsJSON)))
	case strings.TrimSpace(opts.CredentialsFile) != "":
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	case len(opts.ClientOptions) == 0:
		return nil, ErrNoCredentials
	}
	clientOpts = append(clientOpts, option.WithScopes(gsheets.SpreadsheetsReadonlyScope))
	clientOpts = append(clientOpts, opts.ClientOptions...)

	svc, err := gsheets.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("sheets: init api client: %w", err)
	}
	return &APISource{svc: svc}, nil
}

// ListTabs implements Lister.
func (s *APISource) ListTabs(ctx context.Context, spreadsheetID string) ([]Tab, error) {
	start := time.Now()
	doc, err := s.svc.Spreadsheets.Get(spreadsheetID).
		Fields("sheets.properties(sheetId,title)").
		Context(ctx).
		Do()
	if err != nil {
		logger.Warn(ctx, "sheets", "sheet.list",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("sheets: list tabs: %w", err)
	}
	tabs := make([]Tab, 0, len(doc.Sheets))
	for _, sh := range doc.Sheets {
		if sh == nil || sh.Properties == nil || sh.Properties.Title == "" {
			continue
		}
		tabs = append(tabs, Tab{GID: sh.Properties.SheetId, Title: sh.Properties.Title})
	}
	logger.Info(ctx, "sheets", "sheet.list",
		slog.String("status", "ok"),
		slog.Int("count", len(tabs)),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return tabs, nil
}

// Rows implements Source. Untitled tabs are resolved to their title by gid first.
func (s *APISource) Rows(ctx context.Context, spreadsheetID string, tab Tab) ([]Row, error) {
	title := tab.Title
	if title == "" {
		tabs, err := s.ListTabs(ctx, spreadsheetID)
		if err != nil {
			return nil, err
		}
		for _, t := range tabs {
			if t.GID == tab.GID {
				title = t.Title
				break
			}
		}
		if title == "" {
			return nil, fmt.Errorf("sheets: no tab with gid %d", tab.GID)
		}
	}

	resp, err := s.svc.Spreadsheets.Values.Get(spreadsheetID, quoteRange(title)).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("sheets: read %s: %w", tab, err)
	}
	records := make([][]string, len(resp.Values))
	for i, vals := range resp.Values {
		rec := make([]string, len(vals))
		for j, v := range vals {
			rec[j] = fmt.Sprint(v)
		}
		records[i] = rec
	}
	return rowsFromRecords(records), nil
}

// quoteRange turns a tab title into an A1 range covering the whole sheet.
func quoteRange(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}
