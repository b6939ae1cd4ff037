package state

import "testing"

func TestMemoryStoreDefaultsToIdle(t *testing.T) {
	s := NewMemoryStore()
	if got := s.Get(7); got.State != StateIdle || !got.Idle() {
		t.Fatalf("unknown user session = %+v", got)
	}
}

func TestMemoryStorePutAndReset(t *testing.T) {
	s := NewMemoryStore()
	s.Put(1, Session{State: "EDIT", WorkingID: "btn", WorkingKey: "label"})
	got := s.Get(1)
	if got.State != "EDIT" || got.WorkingID != "btn" || got.WorkingKey != "label" {
		t.Fatalf("session = %+v", got)
	}
	if other := s.Get(2); !other.Idle() {
		t.Fatal("sessions must be per user")
	}

	s.Put(1, Session{State: StateIdle, WorkingID: "stale"})
	if got := s.Get(1); got.WorkingID != "" {
		t.Fatalf("idle put must drop working data, got %+v", got)
	}

	s.Put(1, Session{State: "EDIT"})
	s.Reset(1)
	if !s.Get(1).Idle() {
		t.Fatal("Reset must return the user to idle")
	}
}

func TestManagerInProgress(t *testing.T) {
	m := NewManager(nil)
	if m.InProgress(3) {
		t.Fatal("fresh user must not be in progress")
	}
	m.Put(3, Session{State: "ASK"})
	if !m.InProgress(3) {
		t.Fatal("expected dialog in progress")
	}
	m.Reset(3)
	if m.InProgress(3) {
		t.Fatal("reset user must not be in progress")
	}
}
