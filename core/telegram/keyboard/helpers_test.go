package keyboard

import "testing"

func TestInlineButtonsRowsMixesLinksAndCallbacks(t *testing.T) {
	markup := InlineButtonsRows(
		[]InlineBtn{{Text: "Catalog", Data: "CATALOG"}, {Text: "Site", URL: "https://example.com"}},
		nil,
		[]InlineBtn{{Text: "Buy", Unique: "buy", Data: "42"}},
	)
	if len(markup.InlineKeyboard) != 2 {
		t.Fatalf("rows = %d, want 2 (empty rows dropped)", len(markup.InlineKeyboard))
	}
	first := markup.InlineKeyboard[0]
	if first[0].Data != "CATALOG" || first[0].URL != "" {
		t.Fatalf("callback button = %+v", first[0])
	}
	if first[1].URL != "https://example.com" || first[1].Data != "" {
		t.Fatalf("link button = %+v", first[1])
	}
	if b := markup.InlineKeyboard[1][0]; b.Unique != "buy" || b.Data != "42" {
		t.Fatalf("unique button = %+v", b)
	}
}

func TestSingleCancelMarkup(t *testing.T) {
	b := SingleCancelMarkup("ADM_CANCEL").InlineKeyboard[0][0]
	if b.Text != CancelLabel || b.Data != "ADM_CANCEL" {
		t.Fatalf("cancel = %+v", b)
	}
	if b := SingleCancelMarkup("X", "Stop").InlineKeyboard[0][0]; b.Text != "Stop" {
		t.Fatalf("label = %q", b.Text)
	}
}
