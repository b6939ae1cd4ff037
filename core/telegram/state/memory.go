package state

import (
	"log/slog"
	"sync"

	"github.com/m3rciful/shopbot/core/logger"
	tghelpers "github.com/m3rciful/shopbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

type memoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]Session
}

// NewMemoryStore returns a Store backed by a process-local map. Sessions do not
// survive restarts.
func NewMemoryStore() Store {
	return &memoryStore{sessions: make(map[int64]Session)}
}

func (m *memoryStore) Get(userID int64) Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[userID]; ok {
		return s
	}
	return Session{State: StateIdle}
}

func (m *memoryStore) Put(userID int64, s Session) {
	if s.Idle() {
		m.Reset(userID)
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[userID] = s
}

func (m *memoryStore) Reset(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
}

type manager struct {
	Store

	mu       sync.RWMutex
	handlers map[State]tele.HandlerFunc
}

// NewManager wraps store with a state-to-handler table. A nil store gets an
// in-memory one.
func NewManager(store Store) Manager {
	if store == nil {
		store = NewMemoryStore()
	}
	return &manager{Store: store, handlers: make(map[State]tele.HandlerFunc)}
}

// Register associates a state with its handler.
func (m *manager) Register(st State, h tele.HandlerFunc) {
	if h == nil || st == StateIdle {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[st] = h
}

// InProgress reports whether the user currently has an active dialog.
func (m *manager) InProgress(userID int64) bool {
	return !m.Get(userID).Idle()
}

// ManagerHandler executes the handler registered for the user's current state, if any.
func (m *manager) ManagerHandler(c tele.Context) error {
	userID := c.Sender().ID
	current := m.Get(userID).State
	ctx := tghelpers.BuildContext(c)

	m.mu.RLock()
	handler, ok := m.handlers[current]
	m.mu.RUnlock()

	logger.Debug(ctx, "tg", "fsm.manager",
		slog.String("status", logger.Status(nil)),
		slog.Int64("user_id", userID),
		slog.String("state", string(current)),
		slog.Bool("matched", ok),
	)
	if !ok {
		return nil
	}
	return handler(c)
}
