package state

import tele "gopkg.in/telebot.v4"

// State identifies a finite-state-machine step used in conversations.
type State string

const (
	// StateIdle indicates there is no active conversation with the user.
	StateIdle State = "IDLE"
)

// Session stores the dialog state and the values carried between its steps.
type Session struct {
	State State
	// WorkingID references the entity a multi-step dialog operates on.
	WorkingID string
	// WorkingKey names the field being edited in the current step.
	WorkingKey string
}

// Idle reports whether no dialog is active.
func (s Session) Idle() bool {
	return s.State == "" || s.State == StateIdle
}

// Store holds sessions keyed by user id. Get never fails: unknown users are idle.
type Store interface {
	Get(userID int64) Session
	Put(userID int64, s Session)
	Reset(userID int64)
}

// Manager routes free-text updates to the handler registered for the user's state.
type Manager interface {
	Store
	Register(st State, h tele.HandlerFunc)
	InProgress(userID int64) bool
	ManagerHandler(c tele.Context) error
}
