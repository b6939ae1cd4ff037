package middleware

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/m3rciful/shopbot/core/logger"
	tghelpers "github.com/m3rciful/shopbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// DefaultApology is sent when a handler fails unexpectedly.
const DefaultApology = "⚠️ Something went wrong. Please try again later."

// RecoverOptions configures Recover.
type RecoverOptions struct {
	Apology string
}

// Recover catches panics and returned errors at the dispatch boundary. Both are
// logged; the user gets an apology (an alert for callbacks, a message in private
// chats) and the error does not propagate further.
func Recover(opts RecoverOptions) tele.MiddlewareFunc {
	apology := opts.Apology
	if apology == "" {
		apology = DefaultApology
	}
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					ctx := tghelpers.BuildContext(c)
					logger.Error(ctx, "tg", "tg.panic",
						slog.String("status", "fail"),
						slog.String("err", fmt.Sprint(r)),
						slog.String("stack", string(debug.Stack())),
					)
					apologize(c, apology)
					err = nil
				}
			}()
			if err := next(c); err != nil {
				ctx := tghelpers.BuildContext(c)
				logger.Error(ctx, "tg", "tg.error",
					slog.String("status", "fail"),
					slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
					slog.String("handler", logger.HandlerFrom(ctx)),
				)
				apologize(c, apology)
			}
			return nil
		}
	}
}

// RecoverMiddleware is Recover with the default apology.
func RecoverMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return Recover(RecoverOptions{})(next)
}

func apologize(c tele.Context, text string) {
	if c.Callback() != nil {
		_ = c.Respond(&tele.CallbackResponse{Text: text, ShowAlert: true})
		return
	}
	if chat := c.Chat(); chat != nil && chat.Type == tele.ChatPrivate {
		_ = c.Send(text)
	}
}
