package sender

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestDispatcherRunsAndCounts(t *testing.T) {
	d := NewDispatcher(Options{Workers: 2, Rate: -1})
	var calls atomic.Int32
	for range 5 {
		if err := d.Enqueue(context.Background(), "send.text", "sendMessage", func() error {
			calls.Add(1)
			return nil
		}); err != nil {
			t.Fatal(err)
		}
	}
	d.Close()
	if calls.Load() != 5 || d.SentCount() != 5 || d.ErrorCount() != 0 {
		t.Fatalf("calls=%d sent=%d errs=%d", calls.Load(), d.SentCount(), d.ErrorCount())
	}
	if err := d.Enqueue(context.Background(), "x", "", func() error { return nil }); !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("enqueue after close: %v", err)
	}
}

func TestDispatcherRetriesTransientErrors(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 2, RetryBackoff: time.Millisecond, Rate: -1})
	var calls atomic.Int32
	_ = d.Enqueue(context.Background(), "send.text", "sendMessage", func() error {
		if calls.Add(1) < 3 {
			return &net.OpError{Op: "dial", Err: timeoutErr{}}
		}
		return nil
	})
	d.Close()
	if calls.Load() != 3 || d.SentCount() != 1 {
		t.Fatalf("calls=%d sent=%d", calls.Load(), d.SentCount())
	}
}

func TestDispatcherDoesNotRetryAPIErrors(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 3, RetryBackoff: time.Millisecond, Rate: -1})
	var calls atomic.Int32
	_ = d.Enqueue(context.Background(), "send.text", "sendMessage", func() error {
		calls.Add(1)
		return &tele.Error{Code: 400, Description: "Bad Request: chat not found"}
	})
	d.Close()
	if calls.Load() != 1 || d.ErrorCount() != 1 {
		t.Fatalf("calls=%d errs=%d", calls.Load(), d.ErrorCount())
	}
}

func TestEnqueueFull(t *testing.T) {
	block := make(chan struct{})
	d := NewDispatcher(Options{Workers: 1, QueueSize: 1, Rate: -1})
	defer d.Close()
	defer close(block)

	started := make(chan struct{})
	_ = d.Enqueue(context.Background(), "a", "", func() error {
		close(started)
		<-block
		return nil
	})
	<-started
	if err := d.Enqueue(context.Background(), "b", "", func() error { return nil }); err != nil {
		t.Fatalf("second job must fit the queue: %v", err)
	}
	if err := d.Enqueue(context.Background(), "c", "", func() error { return nil }); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("third job: %v", err)
	}
}

func TestClassifyAndRedact(t *testing.T) {
	cases := map[string]error{
		"timeout":  context.DeadlineExceeded,
		"http_4xx": &tele.Error{Code: 403},
		"http_5xx": &tele.Error{Code: 502},
		"dns":      &net.DNSError{Name: "api.telegram.org"},
		"dial":     &net.OpError{Op: "dial", Err: errors.New("refused")},
		"unknown":  errors.New("odd"),
	}
	for want, err := range cases {
		if got := Classify(err); got != want {
			t.Fatalf("Classify(%v) = %q, want %q", err, got, want)
		}
	}
	err := errors.New(`Post "https://api.telegram.org/bot123:ABC-def/sendMessage": EOF`)
	if got := Redact(err); got != `Post "https://api.telegram.org/bot<redacted>/sendMessage": EOF` {
		t.Fatalf("Redact = %q", got)
	}
}
