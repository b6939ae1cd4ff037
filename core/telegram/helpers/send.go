// Package helpers holds the reply helpers handlers use instead of calling
// tele.Context directly: sends go through the shared dispatcher when one is set,
// and callback answers are tracked so the router acknowledges each press once.
package helpers

import (
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/shopbot/core/logger"
	"github.com/m3rciful/shopbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var dispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher routes helper sends through d. nil makes them synchronous.
func SetDispatcher(d *sender.Dispatcher) {
	dispatcher.Store(d)
}

// deliver queues run on the dispatcher. A full or closed queue degrades to a
// synchronous call so the reply is not lost.
func deliver(c tele.Context, action, endpoint string, run func() error) error {
	d := dispatcher.Load()
	if d == nil {
		return run()
	}
	ctx := BuildContext(c)
	err := d.Enqueue(ctx, action, endpoint, run)
	if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
		logger.Warn(ctx, "tg.sender", "queue.fallback",
			slog.String("action", action),
			slog.String("err", err.Error()),
		)
		return run()
	}
	return err
}

func first[T any](xs []*T) *T {
	if len(xs) == 0 {
		return nil
	}
	return xs[0]
}

// SendText sends plain text to the current chat.
func SendText(c tele.Context, text string, opts ...*tele.SendOptions) error {
	o := first(opts)
	return deliver(c, "send.text", "sendMessage", func() error {
		if o == nil {
			return c.Send(text)
		}
		return c.Send(text, o)
	})
}

// SendMD sends Markdown text with optional reply markup.
func SendMD(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	return SendText(c, text, &tele.SendOptions{ParseMode: tele.ModeMarkdown, ReplyMarkup: first(markup)})
}

// EditOrSendText replaces the message under a pressed button with plain text,
// or sends a new message when the update is not a callback.
func EditOrSendText(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	return editOrSend(c, text, &tele.SendOptions{ReplyMarkup: first(markup)})
}

// EditOrSendMD is EditOrSendText with Markdown.
func EditOrSendMD(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	return editOrSend(c, text, &tele.SendOptions{ParseMode: tele.ModeMarkdown, ReplyMarkup: first(markup)})
}

// EditOrSendMD2 is EditOrSendText with MarkdownV2.
func EditOrSendMD2(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	return editOrSend(c, text, &tele.SendOptions{ParseMode: tele.ModeMarkdownV2, ReplyMarkup: first(markup)})
}

func editOrSend(c tele.Context, text string, o *tele.SendOptions) error {
	if c.Callback() == nil {
		return SendText(c, text, o)
	}
	return deliver(c, "edit.text", "editMessageText", func() error {
		return c.EditOrSend(text, o)
	})
}

const answeredKey = "cb_answered"

// Respond answers the pressed button with text, as an alert when asked, and
// marks the callback answered.
func Respond(c tele.Context, text string, alert bool) error {
	if c.Callback() == nil {
		return nil
	}
	c.Set(answeredKey, true)
	return c.Respond(&tele.CallbackResponse{Text: text, ShowAlert: alert})
}

// Answered reports whether Respond already ran for this update.
func Answered(c tele.Context) bool {
	done, _ := c.Get(answeredKey).(bool)
	return done
}
