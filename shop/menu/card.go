package menu

import (
	"strings"

	"github.com/m3rciful/shopbot/core/telegram/format"
	"github.com/m3rciful/shopbot/shop/catalog"
)

const (
	priceOnRequest = "price on request"
	priceFromWord  = "from"
)

// ItemID extracts the button id from an item payload.
func ItemID(payload string) (string, bool) {
	if !strings.HasPrefix(payload, ItemPrefix) {
		return "", false
	}
	id := strings.TrimPrefix(payload, ItemPrefix)
	return id, id != ""
}

// FormatPrice collapses whitespace in price; an empty price asks the user to contact us.
func FormatPrice(price string) string {
	price = strings.Join(strings.Fields(price), " ")
	if price == "" {
		return priceOnRequest
	}
	return price
}

// ItemLine renders the one-line label of an item button.
func ItemLine(b catalog.Button) string {
	parts := []string{strings.TrimSpace(b.Label)}
	var card catalog.ItemCard
	if cb, ok := b.Action.(catalog.Callback); ok && cb.Item != nil {
		card = *cb.Item
	}
	if mem := strings.TrimSpace(card.Memory); mem != "" && mem != "0" {
		if !strings.HasSuffix(strings.ToUpper(mem), "GB") && !strings.HasSuffix(strings.ToUpper(mem), "TB") {
			mem += " GB"
		}
		parts = append(parts, mem)
	}

	var price string
	switch {
	case card.PriceRequest || strings.TrimSpace(card.Price) == "":
		price = priceOnRequest
	case card.PriceFrom:
		price = priceFromWord + " " + FormatPrice(card.Price)
	default:
		price = FormatPrice(card.Price)
	}
	return strings.Join(parts, " ") + " — " + price
}

// ItemCard renders the MarkdownV2 message shown when an item is opened.
func ItemCard(b catalog.Button) string {
	var sb strings.Builder
	sb.WriteString("*")
	sb.WriteString(format.MD2(strings.TrimSpace(b.Label)))
	sb.WriteString("*\n")
	sb.WriteString(format.MD2(ItemLine(b)))
	return sb.String()
}

// ItemRows is the navigation under an item card: back to the item's chapter, then home.
func ItemRows(b catalog.Button) []Row {
	var rows []Row
	if b.Chapter != "" && b.Chapter != catalog.RootChapter && b.Chapter != catalog.HiddenChapter {
		rows = append(rows, Row{{Label: BackLabel, Payload: b.Chapter}})
	}
	return append(rows, Row{{Label: MainLabel, Payload: catalog.RootChapter}})
}
