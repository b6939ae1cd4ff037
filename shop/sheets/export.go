package sheets

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/m3rciful/shopbot/core/logger"
	"github.com/m3rciful/shopbot/core/netutil"

	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public Google Sheets host.
const DefaultBaseURL = "https://docs.google.com"

const (
	defaultRPS       = 2
	maxBodyBytes     = 8 << 20
	exportUserAgent  = "Mozilla/5.0 (compatible; shopbot)"
	exportRetryCount = 2
)

// ExportOptions configures an ExportSource.
type ExportOptions struct {
	// BaseURL overrides DefaultBaseURL, mainly for tests.
	BaseURL string
	Client  *http.Client
	// RPS limits outgoing requests per second; 0 means defaultRPS.
	RPS float64
}

// ExportSource reads publicly shared spreadsheets through their export endpoints.
// It tries TSV export, CSV export and the gviz TSV feed in that order.
type ExportSource struct {
	base    string
	client  *http.Client
	limiter *rate.Limiter
}

// NewExportSource builds an export source.
func NewExportSource(opts ExportOptions) *ExportSource {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	client := opts.Client
	if client == nil {
		client = netutil.NewClient(netutil.ClientOptions{Timeout: 20 * time.Second, ResponseHeaderTimeout: 15 * time.Second, Retries: exportRetryCount})
	}
	rps := opts.RPS
	if rps <= 0 {
		rps = defaultRPS
	}
	return &ExportSource{base: base, client: client, limiter: rate.NewLimiter(rate.Limit(rps), 1)}
}

type attempt struct {
	kind  string
	path  string
	query url.Values
	comma rune
}

func (s *ExportSource) attempts(id string, gid int64) []attempt {
	g := fmt.Sprint(gid)
	p := "/spreadsheets/d/" + url.PathEscape(id)
	return []attempt{
		{"export-tsv", p + "/export", url.Values{"format": {"tsv"}, "gid": {g}}, '\t'},
		{"export-csv", p + "/export", url.Values{"format": {"csv"}, "gid": {g}}, ','},
		{"gviz-tsv", p + "/gviz/tq", url.Values{"tqx": {"out:tsv"}, "gid": {g}}, '\t'},
	}
}

// Rows implements Source.
func (s *ExportSource) Rows(ctx context.Context, spreadsheetID string, tab Tab) ([]Row, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("sheets: spreadsheet id is required")
	}
	attempts := s.attempts(spreadsheetID, tab.GID)
	var errs []error
	for _, a := range attempts {
		start := time.Now()
		rows, err := s.fetch(ctx, a)
		attrs := []slog.Attr{
			slog.String("status", logger.Status(err)),
			slog.String("action", a.kind),
			slog.String("tab", tab.String()),
			slog.Int("rows", len(rows)),
			slog.Duration("duration", logger.RoundMS(time.Since(start))),
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			errs = append(errs, fmt.Errorf("%s: %w", a.kind, err))
			logger.Warn(ctx, "sheets", "sheet.fetch", append(attrs, slog.String("err", err.Error()))...)
			continue
		}
		logger.Debug(ctx, "sheets", "sheet.fetch", attrs...)
		if len(rows) > 0 {
			return rows, nil
		}
	}
	if len(errs) == len(attempts) {
		return nil, fmt.Errorf("sheets: %s unavailable: %w", tab, errors.Join(errs...))
	}
	return nil, nil
}

func (s *ExportSource) fetch(ctx context.Context, a attempt) ([]Row, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.base+a.path+"?"+a.query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", exportUserAgent)
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("http status %d", resp.StatusCode)
	}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html") {
		return nil, errors.New("got an html page; is the spreadsheet shared publicly?")
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	return parseDelimited(body, a.comma)
}

// xssiPrefix guards some Google JSON-ish feeds.
const xssiPrefix = ")]}'"

func cleanBody(b []byte) []byte {
	b = bytes.TrimPrefix(b, []byte("\uFEFF"))
	if bytes.HasPrefix(b, []byte(xssiPrefix)) {
		b = bytes.TrimLeft(b[len(xssiPrefix):], " \t\r\n")
	}
	return bytes.TrimSpace(b)
}

func parseDelimited(body []byte, comma rune) ([]Row, error) {
	body = cleanBody(body)
	if comma == '\t' {
		return rowsFromRecords(splitTSV(string(body))), nil
	}
	r := csv.NewReader(bytes.NewReader(body))
	r.Comma = comma
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	return rowsFromRecords(records), nil
}

// splitTSV splits Google TSV exports, which never quote cells.
func splitTSV(text string) [][]string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	records := make([][]string, 0, len(lines))
	for _, line := range lines {
		records = append(records, strings.Split(line, "\t"))
	}
	return records
}

func trimCell(s string) string {
	return strings.TrimSpace(s)
}
