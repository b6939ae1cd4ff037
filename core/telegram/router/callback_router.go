package router

import (
	"log/slog"

	tg "github.com/m3rciful/shopbot/core/telegram"
	"github.com/m3rciful/shopbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/shopbot/core/telegram/helpers"
	"github.com/m3rciful/shopbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CallbackOptions customises fallback behaviour for callbacks.
type CallbackOptions struct {
	NotFound tele.HandlerFunc
}

// CallbackRoute returns a handler that routes callbacks through the registry.
// Keys registered in the registry match exactly; everything else goes to the
// registry's not-found handler, which may resolve dynamic payloads.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	handler := func(c tele.Context) error {
		if c.Callback() == nil {
			return nil
		}

		key, _ := callbacks.ParseCallbackData(c.Callback())
		sum := newSummary("callback."+handlerName(key), slog.String("cb_key", key))

		run, ok := reg.GetCallback(key)
		if !ok || run == nil {
			run = reg.CallbackNotFound()
			if run == nil {
				run = opts.NotFound
			}
			sum.handler = "callback.dynamic"
			sum.extras = append(sum.extras, slog.String("reason", "not_found"))
		}

		err := sum.run(c, func() error {
			if run != nil {
				return run(c)
			}
			return nil
		})
		if err == nil && !tghelpers.Answered(c) {
			_ = c.Respond()
		}
		return err
	}
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
	}
}
