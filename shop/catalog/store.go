package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/m3rciful/shopbot/core/logger"
)

// Store owns the configuration document. Reads return copies; all mutation goes
// through its methods. Mutators only change memory: callers must Save afterwards.
type Store struct {
	backend Backend

	mu     sync.RWMutex
	doc    Document
	loaded bool
	supers map[int64]struct{}
	admins map[int64]struct{}

	// saveMu serializes Save calls so the last queued write carries the newest snapshot.
	saveMu sync.Mutex
}

// NewStore creates a store over backend. Load must succeed before use.
func NewStore(backend Backend) *Store {
	return &Store{backend: backend}
}

// Load reads and validates the persisted document.
func (s *Store) Load(ctx context.Context) error {
	start := time.Now()
	data, err := s.backend.Read(ctx)
	if err != nil {
		return err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return corrupt(err)
	}
	doc.normalize()
	if err := doc.validateTree(); err != nil {
		return corrupt(err)
	}
	doc.linkParents()
	if err := doc.Validate(); err != nil {
		return corrupt(err)
	}

	s.mu.Lock()
	s.commit(doc)
	s.mu.Unlock()

	attrs := []slog.Attr{
		slog.String("status", "ok"),
		slog.String("backend", s.backend.Name()),
		slog.Int("buttons", len(doc.Buttons)),
		slog.Int("responses", len(doc.Responses)),
		slog.Int("admins", len(doc.AdminUserIDs)),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	}
	if orphans := doc.OrphanChapters(); len(orphans) > 0 {
		preview, truncated := logger.SummarizeStrings(orphans, 6)
		logger.Warn(ctx, "store", "config.orphan_chapters",
			slog.String("chapters", preview),
			slog.Bool("truncated", truncated),
		)
	}
	logger.Info(ctx, "store", "config.loaded", attrs...)
	return nil
}

// LoadOrInit loads the document, writing seed as a fresh document when none exists.
func (s *Store) LoadOrInit(ctx context.Context, seed Document) error {
	err := s.Load(ctx)
	if !errors.Is(err, ErrConfigNotFound) {
		return err
	}
	logger.Warn(ctx, "store", "config.init",
		slog.String("backend", s.backend.Name()),
		slog.String("reason", "not_found"),
	)
	if err := s.SetAll(seed); err != nil {
		return fmt.Errorf("seed document: %w", err)
	}
	return s.Save(ctx)
}

// Get returns a copy of the current document.
func (s *Store) Get() (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return Document{}, ErrNotLoaded
	}
	return s.doc.Clone(), nil
}

// Save persists the in-memory document. Concurrent calls queue behind each other.
func (s *Store) Save(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.RLock()
	if !s.loaded {
		s.mu.RUnlock()
		return ErrNotLoaded
	}
	data, err := json.MarshalIndent(s.doc, "", "  ")
	buttons := len(s.doc.Buttons)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	start := time.Now()
	if err := s.backend.Write(ctx, data); err != nil {
		logger.Error(ctx, "store", "config.save",
			slog.String("status", "fail"),
			slog.String("backend", s.backend.Name()),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("save config: %w", err)
	}
	logger.Debug(ctx, "store", "config.save",
		slog.String("status", "ok"),
		slog.String("backend", s.backend.Name()),
		slog.Int("buttons", buttons),
		slog.Int("bytes", len(data)),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return nil
}

// SetAll replaces the whole document. It does not persist.
func (s *Store) SetAll(doc Document) error {
	next := doc.Clone()
	next.linkParents()
	if err := next.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commit(next)
	return nil
}

// Patch lists the top-level fields Set may replace; nil fields are kept.
// Parents are derived from the buttons and cannot be patched.
type Patch struct {
	SuperUserIDs []int64
	AdminUserIDs []int64
	Texts        *Texts
	Buttons      []Button
	Responses    map[string]string
}

// Set replaces the non-nil fields of p. It does not persist.
func (s *Store) Set(p Patch) error {
	return s.Update(func(d *Document) error {
		if p.SuperUserIDs != nil {
			d.SuperUserIDs = slices.Clone(p.SuperUserIDs)
		}
		if p.AdminUserIDs != nil {
			d.AdminUserIDs = slices.Clone(p.AdminUserIDs)
		}
		if p.Texts != nil {
			d.Texts = *p.Texts
		}
		if p.Buttons != nil {
			d.Buttons = make([]Button, len(p.Buttons))
			for i, b := range p.Buttons {
				d.Buttons[i] = b.Clone()
			}
		}
		if p.Responses != nil {
			d.Responses = maps.Clone(p.Responses)
		}
		return nil
	})
}

// Update applies fn to a working copy and commits it only if fn succeeds and the
// result validates. It does not persist.
func (s *Store) Update(fn func(d *Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return ErrNotLoaded
	}
	next := s.doc.Clone()
	if err := fn(&next); err != nil {
		return err
	}
	next.normalize()
	next.linkParents()
	if err := next.Validate(); err != nil {
		return Invalid("", err.Error())
	}
	s.commit(next)
	return nil
}

// commit installs doc and rebuilds role indexes. Caller holds mu.
func (s *Store) commit(doc Document) {
	s.doc = doc
	s.loaded = true
	s.supers = make(map[int64]struct{}, len(doc.SuperUserIDs))
	for _, id := range doc.SuperUserIDs {
		s.supers[id] = struct{}{}
	}
	s.admins = make(map[int64]struct{}, len(doc.AdminUserIDs))
	for _, id := range doc.AdminUserIDs {
		s.admins[id] = struct{}{}
	}
}

// IsSuper reports whether id is a super user.
func (s *Store) IsSuper(id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.supers[id]
	return ok
}

// IsAdmin reports whether id is an admin; super users are always admins.
func (s *Store) IsAdmin(id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.supers[id]; ok {
		return true
	}
	_, ok := s.admins[id]
	return ok
}

// AddAdmin grants admin rights. It is a no-op for existing admins and super users.
func (s *Store) AddAdmin(id int64) (bool, error) {
	added := false
	err := s.Update(func(d *Document) error {
		if slices.Contains(d.SuperUserIDs, id) || slices.Contains(d.AdminUserIDs, id) {
			return nil
		}
		d.AdminUserIDs = append(d.AdminUserIDs, id)
		added = true
		return nil
	})
	return added, err
}

// RemoveAdmin revokes admin rights; removing a non-admin is a no-op.
// Super status lives in a separate list and is never touched here.
func (s *Store) RemoveAdmin(id int64) (bool, error) {
	removed := false
	err := s.Update(func(d *Document) error {
		before := len(d.AdminUserIDs)
		d.AdminUserIDs = slices.DeleteFunc(d.AdminUserIDs, func(x int64) bool { return x == id })
		removed = len(d.AdminUserIDs) != before
		return nil
	})
	return removed, err
}

// AddButton appends b, failing with ErrDuplicateID if the id is taken.
func (s *Store) AddButton(b Button) error {
	if err := b.Validate(); err != nil {
		return err
	}
	return s.Update(func(d *Document) error {
		if d.IndexOf(b.ID) >= 0 {
			return fmt.Errorf("%w: %s", ErrDuplicateID, b.ID)
		}
		d.Buttons = append(d.Buttons, b.Clone())
		return nil
	})
}

// UpsertButton replaces the button with the same id in place or appends it.
func (s *Store) UpsertButton(b Button) (bool, error) {
	if err := b.Validate(); err != nil {
		return false, err
	}
	added := false
	err := s.Update(func(d *Document) error {
		added = d.Upsert(b)
		return nil
	})
	return added, err
}

// Upsert replaces the button with the same id keeping its position, or appends it.
// It reports whether the button was appended.
func (d *Document) Upsert(b Button) bool {
	if i := d.IndexOf(b.ID); i >= 0 {
		d.Buttons[i] = b.Clone()
		return false
	}
	d.Buttons = append(d.Buttons, b.Clone())
	return true
}

// RemoveButton deletes the button with id. Removing an absent id is a no-op.
func (s *Store) RemoveButton(id string) (bool, error) {
	removed := false
	err := s.Update(func(d *Document) error {
		before := len(d.Buttons)
		d.Buttons = slices.DeleteFunc(d.Buttons, func(b Button) bool { return b.ID == id })
		removed = len(d.Buttons) != before
		return nil
	})
	return removed, err
}

// RenameButton changes the label of an existing button.
func (s *Store) RenameButton(id, label string) error {
	label = strings.TrimSpace(label)
	if label == "" {
		return Invalid("label", "must not be empty")
	}
	return s.EditButton(id, func(b *Button) error {
		b.Label = label
		return nil
	})
}

// EditButton applies fn to the button with id in place.
func (s *Store) EditButton(id string, fn func(b *Button) error) error {
	return s.Update(func(d *Document) error {
		i := d.IndexOf(id)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		b := d.Buttons[i].Clone()
		if err := fn(&b); err != nil {
			return err
		}
		if err := b.Validate(); err != nil {
			return err
		}
		if b.ID != id && d.IndexOf(b.ID) >= 0 {
			return fmt.Errorf("%w: %s", ErrDuplicateID, b.ID)
		}
		d.Buttons[i] = b
		return nil
	})
}

// SetWelcome replaces the welcome text.
func (s *Store) SetWelcome(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return Invalid("welcome", "must not be empty")
	}
	return s.Update(func(d *Document) error {
		d.Texts.Welcome = text
		return nil
	})
}

// SetResponse stores the reply text for a callback payload.
func (s *Store) SetResponse(payload, text string) error {
	payload = strings.TrimSpace(payload)
	text = strings.TrimSpace(text)
	if payload == "" {
		return Invalid("payload", "must not be empty")
	}
	if text == "" {
		return Invalid("text", "must not be empty")
	}
	return s.Update(func(d *Document) error {
		d.Responses[payload] = text
		return nil
	})
}
