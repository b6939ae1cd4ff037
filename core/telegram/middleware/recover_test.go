package middleware

import (
	"errors"
	"testing"

	"github.com/m3rciful/shopbot/core/telegram/teletest"

	tele "gopkg.in/telebot.v4"
)

func TestRecoverAnswersPanicWithApology(t *testing.T) {
	h := Recover(RecoverOptions{Apology: "sorry"})(func(tele.Context) error {
		panic("boom")
	})
	c := teletest.NewMessage(1, "hi")
	if err := h(c); err != nil {
		t.Fatalf("panic must be absorbed, got %v", err)
	}
	if texts := c.Texts(); len(texts) != 1 || texts[0] != "sorry" {
		t.Fatalf("sent = %v", texts)
	}
}

func TestRecoverErrorInGroupStaysQuiet(t *testing.T) {
	h := RecoverMiddleware(func(tele.Context) error { return errors.New("db down") })
	c := teletest.NewMessage(1, "hi").InGroup(-5)
	if err := h(c); err != nil {
		t.Fatal(err)
	}
	if len(c.Out) != 0 {
		t.Fatalf("group chats get no apology, sent %v", c.Out)
	}
}

func TestRecoverCallbackAlert(t *testing.T) {
	h := RecoverMiddleware(func(tele.Context) error { return errors.New("x") })
	c := teletest.NewCallback(1, "BUY")
	_ = h(c)
	if len(c.Responses) != 1 || !c.Responses[0].ShowAlert || c.Responses[0].Text != DefaultApology {
		t.Fatalf("responses = %+v", c.Responses)
	}
}

func TestAntiSpamMiddlewareRespondsWithNotice(t *testing.T) {
	g, _ := newTestGate(true)
	calls := 0
	h := AntiSpamMiddleware(g, AntiSpamOptions{TooFastText: "slow down"})(func(tele.Context) error {
		calls++
		return nil
	})

	_ = h(teletest.NewCallback(1, "BUY"))
	second := teletest.NewCallback(1, "BUY")
	_ = h(second)
	if calls != 1 {
		t.Fatalf("downstream calls = %d, want 1", calls)
	}
	if len(second.Responses) != 1 || second.Responses[0].Text != "slow down" {
		t.Fatalf("responses = %+v", second.Responses)
	}

	_ = h(teletest.NewMessage(1, "text"))
	if calls != 2 {
		t.Fatal("messages must bypass the gate")
	}
}
