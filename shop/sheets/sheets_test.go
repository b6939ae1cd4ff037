package sheets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"google.golang.org/api/option"
)

func TestExportFallsBackToCSV(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/spreadsheets/d/SHEET/export" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("gid") != "7" {
			t.Errorf("gid = %q", r.URL.Query().Get("gid"))
		}
		switch r.URL.Query().Get("format") {
		case "tsv":
			w.WriteHeader(http.StatusInternalServerError)
		case "csv":
			w.Header().Set("Content-Type", "text/csv")
			_, _ = w.Write([]byte("\uFEFFproduct,name,price\n" +
				"iPhones,\"iPhone 15, Pro\",999\n" +
				",,\n" +
				"iPhones,iPhone 14\n"))
		}
	}))
	defer srv.Close()

	src := NewExportSource(ExportOptions{BaseURL: srv.URL, Client: srv.Client(), RPS: 1000})
	rows, err := src.Rows(context.Background(), "SHEET", Tab{GID: 7})
	if err != nil {
		t.Fatalf("Rows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %v", rows)
	}
	if rows[0]["name"] != "iPhone 15, Pro" || rows[0]["price"] != "999" {
		t.Fatalf("row 0 = %v", rows[0])
	}
	if v, ok := rows[1]["price"]; !ok || v != "" {
		t.Fatalf("missing trailing cell must read as empty, row 1 = %v", rows[1])
	}
	if hits.Load() != 2 {
		t.Fatalf("hits = %d, want tsv then csv", hits.Load())
	}
}

func TestExportParsesTSV(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("Товар\tНазвание\tЦена\r\nAirPods\tAirPods \"Pro\"\t249\r\n"))
	}))
	defer srv.Close()

	src := NewExportSource(ExportOptions{BaseURL: srv.URL, Client: srv.Client(), RPS: 1000})
	rows, err := src.Rows(context.Background(), "SHEET", Tab{GID: 0, Title: "Audio"})
	if err != nil {
		t.Fatalf("Rows: %v", err)
	}
	if len(rows) != 1 || rows[0]["Название"] != `AirPods "Pro"` {
		t.Fatalf("rows = %v", rows)
	}
}

func TestExportAllAttemptsFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html>sign in</html>"))
	}))
	defer srv.Close()

	src := NewExportSource(ExportOptions{BaseURL: srv.URL, Client: srv.Client(), RPS: 1000})
	if _, err := src.Rows(context.Background(), "SHEET", Tab{}); err == nil {
		t.Fatal("expected an error when every attempt fails")
	}
	if _, err := src.Rows(context.Background(), "", Tab{}); err == nil {
		t.Fatal("expected an error for a blank spreadsheet id")
	}
}

func TestRowsFromRecords(t *testing.T) {
	if rows := rowsFromRecords([][]string{{" ", ""}, {"a", "b"}}); rows != nil {
		t.Fatalf("blank header must yield nothing, got %v", rows)
	}
	rows := rowsFromRecords([][]string{{"a", "", "b"}, {" 1 ", "skip", "2", "extra"}})
	if len(rows) != 1 || rows[0]["a"] != "1" || rows[0]["b"] != "2" || len(rows[0]) != 2 {
		t.Fatalf("rows = %v", rows)
	}
}

func TestAPISource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(r.URL.Path, "/values/"):
			_, _ = w.Write([]byte(`{"range":"Apple!A1:C3","majorDimension":"ROWS","values":[["product","name","price"],["iPhones","iPhone 15","799"]]}`))
		case strings.HasSuffix(r.URL.Path, "/v4/spreadsheets/BOOK"):
			_, _ = w.Write([]byte(`{"sheets":[{"properties":{"sheetId":0,"title":"Apple"}},{"properties":{"sheetId":42,"title":"Audio"}}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	src, err := NewAPISource(context.Background(), APIOptions{ClientOptions: []option.ClientOption{
		option.WithEndpoint(srv.URL + "/"),
		option.WithHTTPClient(srv.Client()),
		option.WithoutAuthentication(),
	}})
	if err != nil {
		t.Fatalf("NewAPISource: %v", err)
	}

	tabs, err := src.ListTabs(context.Background(), "BOOK")
	if err != nil {
		t.Fatalf("ListTabs: %v", err)
	}
	if len(tabs) != 2 || tabs[1].GID != 42 || tabs[1].Title != "Audio" {
		t.Fatalf("tabs = %+v", tabs)
	}

	rows, err := src.Rows(context.Background(), "BOOK", Tab{GID: 0})
	if err != nil {
		t.Fatalf("Rows: %v", err)
	}
	if len(rows) != 1 || rows[0]["name"] != "iPhone 15" {
		t.Fatalf("rows = %v", rows)
	}
}

func TestAPISourceNeedsCredentials(t *testing.T) {
	if _, err := NewAPISource(context.Background(), APIOptions{}); err != ErrNoCredentials {
		t.Fatalf("err = %v, want ErrNoCredentials", err)
	}
}

func TestQuoteRange(t *testing.T) {
	if got := quoteRange("Bob's list"); got != "'Bob''s list'" {
		t.Fatalf("quoteRange = %q", got)
	}
}
