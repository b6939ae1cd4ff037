package catalog

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

const (
	// RootChapter is the top-level menu.
	RootChapter = "MAIN"
	// ProductGroupChapter lists imported product groups.
	ProductGroupChapter = "PRODUCT_GROUP"
	// HiddenChapter buttons are stored but never rendered.
	HiddenChapter = "HIDDEN"
)

// reservedChapters never need an introducing button.
var reservedChapters = map[string]struct{}{
	RootChapter:         {},
	ProductGroupChapter: {},
	HiddenChapter:       {},
}

// IsReservedChapter reports whether chapter is built in.
func IsReservedChapter(chapter string) bool {
	_, ok := reservedChapters[chapter]
	return ok
}

// Texts groups editable bot texts.
type Texts struct {
	Welcome string `json:"welcome"`
}

// Document is the persisted bot configuration.
type Document struct {
	SuperUserIDs []int64           `json:"superUserIds"`
	AdminUserIDs []int64           `json:"adminUserIds"`
	Texts        Texts             `json:"texts"`
	Buttons      []Button          `json:"buttons"`
	Responses    map[string]string `json:"responses"`
	Parents      map[string]string `json:"parents"`
}

// DefaultWelcome is used for freshly created documents.
const DefaultWelcome = "Hi! I will help you pick a product and get in touch with a manager."

// NewDocument returns an empty, normalized document.
func NewDocument() Document {
	d := Document{Texts: Texts{Welcome: DefaultWelcome}}
	d.normalize()
	return d
}

// Clone returns a deep copy.
func (d Document) Clone() Document {
	out := Document{
		SuperUserIDs: slices.Clone(d.SuperUserIDs),
		AdminUserIDs: slices.Clone(d.AdminUserIDs),
		Texts:        d.Texts,
		Responses:    maps.Clone(d.Responses),
		Parents:      maps.Clone(d.Parents),
	}
	if d.Buttons != nil {
		out.Buttons = make([]Button, len(d.Buttons))
		for i, b := range d.Buttons {
			out.Buttons[i] = b.Clone()
		}
	}
	out.normalize()
	return out
}

// normalize replaces nil collections so that empty documents compare and encode uniformly.
func (d *Document) normalize() {
	if d.SuperUserIDs == nil {
		d.SuperUserIDs = []int64{}
	}
	if d.AdminUserIDs == nil {
		d.AdminUserIDs = []int64{}
	}
	if d.Buttons == nil {
		d.Buttons = []Button{}
	}
	if d.Responses == nil {
		d.Responses = map[string]string{}
	}
	if d.Parents == nil {
		d.Parents = map[string]string{}
	}
}

// IndexOf returns the position of the button with id, or -1.
func (d Document) IndexOf(id string) int {
	return slices.IndexFunc(d.Buttons, func(b Button) bool { return b.ID == id })
}

// Find returns the button with id.
func (d Document) Find(id string) (Button, bool) {
	if i := d.IndexOf(id); i >= 0 {
		return d.Buttons[i], true
	}
	return Button{}, false
}

// ParentOf resolves the parent chapter, defaulting to the root.
func (d Document) ParentOf(chapter string) string {
	if p, ok := d.Parents[chapter]; ok && p != "" {
		return p
	}
	return RootChapter
}

// IsChapter reports whether payload names a chapter that can be opened.
func (d Document) IsChapter(payload string) bool {
	if payload == RootChapter {
		return true
	}
	if payload == HiddenChapter {
		return false
	}
	for _, b := range d.Buttons {
		if b.Chapter == payload {
			return true
		}
	}
	return false
}

// opens maps each chapter to the chapters its callback buttons open, in button order.
func (d Document) opens() map[string][]string {
	known := make(map[string]struct{}, len(d.Buttons))
	for _, b := range d.Buttons {
		known[b.Chapter] = struct{}{}
	}
	out := make(map[string][]string)
	for _, b := range d.Buttons {
		payload, ok := b.Payload()
		if !ok || payload == b.Chapter || payload == RootChapter || payload == HiddenChapter {
			continue
		}
		if _, isChapter := known[payload]; !isChapter && payload != ProductGroupChapter {
			continue
		}
		if !slices.Contains(out[b.Chapter], payload) {
			out[b.Chapter] = append(out[b.Chapter], payload)
		}
	}
	return out
}

// linkParents rebuilds the parent map breadth-first from the root, so each chapter
// gets the parent closest to the root regardless of button order. Chapters no
// reachable button opens have no entry and resolve to the root. The product group
// chapter hangs under the root even before a button links it.
func (d *Document) linkParents() {
	links := d.opens()
	parents := map[string]string{ProductGroupChapter: RootChapter}
	reached := map[string]struct{}{}
	walk := func(start string) {
		reached[start] = struct{}{}
		queue := []string{start}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, next := range links[cur] {
				if _, ok := reached[next]; ok {
					continue
				}
				reached[next] = struct{}{}
				parents[next] = cur
				queue = append(queue, next)
			}
		}
	}
	walk(RootChapter)
	if _, ok := reached[ProductGroupChapter]; !ok {
		walk(ProductGroupChapter)
	}
	d.Parents = parents
}

// Validate checks id uniqueness, button shape and the chapter tree.
func (d Document) Validate() error {
	var errs []error
	seen := make(map[string]struct{}, len(d.Buttons))
	for i, b := range d.Buttons {
		if err := b.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("button #%d: %w", i, err))
			continue
		}
		if _, dup := seen[b.ID]; dup {
			errs = append(errs, fmt.Errorf("button #%d: duplicate id %q", i, b.ID))
		}
		seen[b.ID] = struct{}{}
	}
	if err := d.validateTree(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// validateTree rejects parent cycles and chains that do not end at the root.
func (d Document) validateTree() error {
	if p, ok := d.Parents[RootChapter]; ok && p != "" && p != RootChapter {
		return fmt.Errorf("root chapter %q must not have a parent (got %q)", RootChapter, p)
	}
	for chapter := range d.Parents {
		if chapter == RootChapter {
			continue
		}
		visited := map[string]struct{}{chapter: {}}
		cur := chapter
		for cur != RootChapter {
			next := d.ParentOf(cur)
			if _, loop := visited[next]; loop {
				return fmt.Errorf("chapter %q: parent cycle through %q", chapter, next)
			}
			visited[next] = struct{}{}
			cur = next
		}
	}
	return nil
}

// OrphanChapters lists button chapters that no button opens and that are not reserved.
// Such buttons are stored but unreachable from the root.
func (d Document) OrphanChapters() []string {
	opened := make(map[string]struct{})
	for _, b := range d.Buttons {
		if p, ok := b.Payload(); ok {
			opened[p] = struct{}{}
		}
	}
	var out []string
	seen := make(map[string]struct{})
	for _, b := range d.Buttons {
		if IsReservedChapter(b.Chapter) {
			continue
		}
		if _, ok := opened[b.Chapter]; ok {
			continue
		}
		if _, dup := seen[b.Chapter]; dup {
			continue
		}
		seen[b.Chapter] = struct{}{}
		out = append(out, b.Chapter)
	}
	return out
}
