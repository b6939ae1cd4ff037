package router

import (
	"errors"
	"fmt"
	"testing"

	tg "github.com/m3rciful/shopbot/core/telegram"
	"github.com/m3rciful/shopbot/core/telegram/commands"
	tghelpers "github.com/m3rciful/shopbot/core/telegram/helpers"
	"github.com/m3rciful/shopbot/core/telegram/middleware"
	"github.com/m3rciful/shopbot/core/telegram/teletest"

	tele "gopkg.in/telebot.v4"
)

type codedErr struct{}

func (codedErr) Error() string { return "dup" }
func (codedErr) Code() string  { return "duplicate id" }

type plainErr struct{}

func (*plainErr) Error() string { return "plain" }

func TestErrorCode(t *testing.T) {
	if got := errorCode(fmt.Errorf("wrap: %w", codedErr{})); got != "DUPLICATE_ID" {
		t.Fatalf("wrapped coder = %q", got)
	}
	if got := errorCode(&plainErr{}); got != "PLAINERR" {
		t.Fatalf("type name fallback = %q", got)
	}
	if got := errorCode(nil); got != "" {
		t.Fatalf("nil = %q", got)
	}
}

func TestHandlerName(t *testing.T) {
	if got := handlerName(" /AddBtn Url "); got != "addbtn_url" {
		t.Fatalf("got %q", got)
	}
	if got := handlerName(""); got != "unknown" {
		t.Fatalf("got %q", got)
	}
}

func TestCallbackRouteExactAndDynamic(t *testing.T) {
	reg := tg.NewRegistry()
	var hits []string
	if err := reg.RegisterCallback("ADMIN", func(c tele.Context) error {
		hits = append(hits, "admin")
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	reg.SetCallbackNotFound(func(c tele.Context) error {
		hits = append(hits, "dynamic:"+c.Callback().Data)
		return tghelpers.Respond(c, "alert", true)
	})
	route := CallbackRoute(reg, CallbackOptions{})

	exact := teletest.NewCallback(1, "ADMIN")
	if err := route.Handler(exact); err != nil {
		t.Fatal(err)
	}
	if len(exact.Responses) != 1 || exact.Responses[0].Text != "" {
		t.Fatalf("exact route must be acknowledged once, got %+v", exact.Responses)
	}

	dynamic := teletest.NewCallback(1, "ITEM:X")
	if err := route.Handler(dynamic); err != nil {
		t.Fatal(err)
	}
	if len(dynamic.Responses) != 1 || !dynamic.Responses[0].ShowAlert {
		t.Fatalf("handler answer must not be followed by an ack, got %+v", dynamic.Responses)
	}
	if len(hits) != 2 || hits[0] != "admin" || hits[1] != "dynamic:ITEM:X" {
		t.Fatalf("hits = %v", hits)
	}
}

func TestCallbackRouteErrorBecomesApology(t *testing.T) {
	reg := tg.NewRegistry()
	_ = reg.RegisterCallback("BOOM", func(tele.Context) error { return errors.New("boom") })
	route := CallbackRoute(reg, CallbackOptions{})
	c := teletest.NewCallback(1, "BOOM")
	if err := route.Handler(c); err != nil {
		t.Fatalf("error must be absorbed at the boundary, got %v", err)
	}
	if len(c.Responses) != 1 || c.Responses[0].Text != middleware.DefaultApology {
		t.Fatalf("responses = %+v", c.Responses)
	}
}

type roles map[int64]string

func (r roles) IsAdmin(id int64) bool { return r[id] != "" }
func (r roles) IsSuper(id int64) bool { return r[id] == "super" }

func TestWrapCommandGuards(t *testing.T) {
	access := middleware.AccessOptions{
		Roles: roles{1: "super", 2: "admin"},
		OnReject: func(c tele.Context) error {
			return c.Send("denied")
		},
	}
	ran := 0
	def := commands.Command{
		Description: "x",
		SuperOnly:   true,
		PrivateOnly: true,
		Handler: func(c tele.Context) error {
			ran++
			return nil
		},
	}
	h := WrapCommand("/import", def, access)

	if err := h(teletest.NewMessage(1, "/import")); err != nil || ran != 1 {
		t.Fatalf("super in private: ran=%d err=%v", ran, err)
	}

	admin := teletest.NewMessage(2, "/import")
	_ = h(admin)
	if ran != 1 || len(admin.Texts()) != 1 || admin.Texts()[0] != "denied" {
		t.Fatalf("admin must be rejected: ran=%d out=%v", ran, admin.Texts())
	}

	group := teletest.NewMessage(1, "/import").InGroup(-100)
	_ = h(group)
	if ran != 1 || len(group.Out) != 0 {
		t.Fatalf("group chat must be ignored silently: ran=%d out=%v", ran, group.Out)
	}
}

type fsm struct {
	active bool
	calls  int
}

func (f *fsm) InProgress(int64) bool { return f.active }
func (f *fsm) ManagerHandler(tele.Context) error {
	f.calls++
	return nil
}

func TestTextRoutesPreferDialog(t *testing.T) {
	reg := tg.NewRegistry()
	fallback := 0
	reg.SetTextFallback(func(tele.Context) error {
		fallback++
		return nil
	})
	f := &fsm{}
	route := TextRoutes(f, reg, TextOptions{})[0]

	_ = route.Handler(teletest.NewMessage(1, "hello"))
	f.active = true
	_ = route.Handler(teletest.NewMessage(1, "id | label"))

	if fallback != 1 || f.calls != 1 {
		t.Fatalf("fallback=%d fsm=%d", fallback, f.calls)
	}
}
