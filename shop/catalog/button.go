package catalog

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind discriminates the two button variants.
type Kind string

const (
	// KindCallback buttons carry a payload routed back to the bot.
	KindCallback Kind = "callback"
	// KindURL buttons open an external link.
	KindURL Kind = "url"
)

// ParseKind converts user input into a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindCallback:
		return KindCallback, nil
	case KindURL:
		return KindURL, nil
	}
	return "", Invalid("type", "must be callback or url")
}

// Action is the variant part of a Button: either Callback or Link.
type Action interface {
	Kind() Kind
	clone() Action
}

// ItemCard holds product details rendered when an item button is pressed.
type ItemCard struct {
	Memory       string
	Price        string
	PriceFrom    bool
	PriceRequest bool
}

// Callback routes a payload back to the bot.
type Callback struct {
	Payload string
	Item    *ItemCard
}

// Kind implements Action.
func (Callback) Kind() Kind { return KindCallback }

func (c Callback) clone() Action {
	if c.Item != nil {
		item := *c.Item
		c.Item = &item
	}
	return c
}

// Link opens URL; PrefillText is merged into the deep link as the text parameter.
type Link struct {
	URL         string
	PrefillText string
}

// Kind implements Action.
func (Link) Kind() Kind { return KindURL }

func (l Link) clone() Action { return l }

// Button is a single menu entry shown under Chapter.
type Button struct {
	ID      string
	Label   string
	Chapter string
	Action  Action
}

// Kind returns the variant of the button action.
func (b Button) Kind() Kind {
	if b.Action == nil {
		return ""
	}
	return b.Action.Kind()
}

// Payload returns the callback payload and whether the button is a callback.
func (b Button) Payload() (string, bool) {
	cb, ok := b.Action.(Callback)
	if !ok {
		return "", false
	}
	return cb.Payload, true
}

// Clone returns a deep copy.
func (b Button) Clone() Button {
	if b.Action != nil {
		b.Action = b.Action.clone()
	}
	return b
}

// MaxCallbackData is the Telegram limit for inline button callback data, in bytes.
// One oversized payload makes Telegram reject the whole keyboard.
const MaxCallbackData = 64

// Validate checks the fields every stored button must have.
func (b Button) Validate() error {
	if strings.TrimSpace(b.ID) == "" {
		return Invalid("id", "must not be empty")
	}
	if strings.TrimSpace(b.Label) == "" {
		return Invalid("label", "must not be empty")
	}
	if strings.TrimSpace(b.Chapter) == "" {
		return Invalid("chapter", "must not be empty")
	}
	// the chapter doubles as the payload of back buttons
	if len(b.Chapter) > MaxCallbackData {
		return Invalid("chapter", fmt.Sprintf("must be at most %d bytes", MaxCallbackData))
	}
	switch a := b.Action.(type) {
	case Callback:
		if strings.TrimSpace(a.Payload) == "" {
			return Invalid("payload", "must not be empty")
		}
		if len(a.Payload) > MaxCallbackData {
			return Invalid("payload", fmt.Sprintf("must be at most %d bytes, got %d", MaxCallbackData, len(a.Payload)))
		}
	case Link:
		if strings.TrimSpace(a.URL) == "" {
			return Invalid("url", "must not be empty")
		}
	default:
		return Invalid("type", "must be callback or url")
	}
	return nil
}

// NewCallback builds a callback button.
func NewCallback(id, label, chapter, payload string) Button {
	return Button{ID: id, Label: label, Chapter: chapter, Action: Callback{Payload: payload}}
}

// NewLink builds a url button.
func NewLink(id, label, chapter, url string) Button {
	return Button{ID: id, Label: label, Chapter: chapter, Action: Link{URL: url}}
}

// buttonJSON is the flat on-disk shape shared by both variants.
type buttonJSON struct {
	ID           string `json:"id"`
	Label        string `json:"label"`
	Chapter      string `json:"chapter"`
	Type         Kind   `json:"type"`
	Payload      string `json:"payload,omitempty"`
	Memory       string `json:"memory,omitempty"`
	Price        string `json:"price,omitempty"`
	PriceFrom    bool   `json:"priceFrom,omitempty"`
	PriceRequest bool   `json:"priceRequest,omitempty"`
	URL          string `json:"url,omitempty"`
	PrefillText  string `json:"prefillText,omitempty"`
}

// MarshalJSON writes the flat tagged representation.
func (b Button) MarshalJSON() ([]byte, error) {
	raw := buttonJSON{ID: b.ID, Label: b.Label, Chapter: b.Chapter}
	switch a := b.Action.(type) {
	case Callback:
		raw.Type = KindCallback
		raw.Payload = a.Payload
		if a.Item != nil {
			raw.Memory = a.Item.Memory
			raw.Price = a.Item.Price
			raw.PriceFrom = a.Item.PriceFrom
			raw.PriceRequest = a.Item.PriceRequest
		}
	case Link:
		raw.Type = KindURL
		raw.URL = a.URL
		raw.PrefillText = a.PrefillText
	default:
		return nil, fmt.Errorf("button %q: unknown action %T", b.ID, b.Action)
	}
	return json.Marshal(raw)
}

// UnmarshalJSON reads the flat representation, keeping only fields of the tagged variant.
func (b *Button) UnmarshalJSON(data []byte) error {
	var raw buttonJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*b = Button{ID: raw.ID, Label: raw.Label, Chapter: raw.Chapter}
	switch raw.Type {
	case KindCallback:
		cb := Callback{Payload: raw.Payload}
		if raw.Memory != "" || raw.Price != "" || raw.PriceFrom || raw.PriceRequest {
			cb.Item = &ItemCard{
				Memory:       raw.Memory,
				Price:        raw.Price,
				PriceFrom:    raw.PriceFrom,
				PriceRequest: raw.PriceRequest,
			}
		}
		b.Action = cb
	case KindURL:
		b.Action = Link{URL: raw.URL, PrefillText: raw.PrefillText}
	default:
		return fmt.Errorf("button %q: unknown type %q", raw.ID, raw.Type)
	}
	return nil
}
