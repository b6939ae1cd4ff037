package router

import (
	tg "github.com/m3rciful/shopbot/core/telegram"
	"github.com/m3rciful/shopbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// FSM defines the minimal interface for an FSM manager.
type FSM interface {
	InProgress(userID int64) bool
	ManagerHandler(c tele.Context) error
}

// TextOptions controls fallback behaviour for text updates.
type TextOptions struct {
	UnknownText tele.HandlerFunc
}

// TextRoutes builds the handler for plain text. Users inside a dialog are routed
// to the FSM; everyone else reaches the registry's text fallback.
func TextRoutes(fsmMgr FSM, reg *tg.Registry, opts TextOptions) []tg.Route {
	handler := func(c tele.Context) error {
		if fsmMgr != nil && c.Sender() != nil && fsmMgr.InProgress(c.Sender().ID) {
			return newSummary("fsm").run(c, func() error { return fsmMgr.ManagerHandler(c) })
		}

		if reg != nil {
			if fb := reg.TextFallback(); fb != nil {
				return newSummary("fallback").run(c, func() error { return fb(c) })
			}
		}

		if opts.UnknownText != nil {
			return newSummary("unknown_text").run(c, func() error { return opts.UnknownText(c) })
		}

		sum := newSummary("unknown_text")
		sum.status = "skip"
		sum.log(c, nil)
		return nil
	}

	return []tg.Route{
		{
			Endpoint: tele.OnText,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
		},
	}
}
