package middleware

import (
	"sync/atomic"

	tele "gopkg.in/telebot.v4"
)

const statsKey = "send_stats"

// sendStats counts what a handler sent back. Sends may finish on dispatcher
// workers after the handler returned, hence the atomics.
type sendStats struct {
	messages atomic.Int32
	keyboard atomic.Bool
}

func (s *sendStats) record(err error, opts []any) {
	if err != nil {
		return
	}
	s.messages.Add(1)
	if withMarkup(opts) {
		s.keyboard.Store(true)
	}
}

func withMarkup(opts []any) bool {
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.ReplyMarkup:
			if v != nil {
				return true
			}
		case *tele.SendOptions:
			if v != nil && v.ReplyMarkup != nil {
				return true
			}
		}
	}
	return false
}

// countingContext records every successful outgoing message of the update.
type countingContext struct {
	tele.Context
	stats *sendStats
}

func (c countingContext) Send(what any, opts ...any) error {
	err := c.Context.Send(what, opts...)
	c.stats.record(err, opts)
	return err
}

func (c countingContext) Reply(what any, opts ...any) error {
	err := c.Context.Reply(what, opts...)
	c.stats.record(err, opts)
	return err
}

func (c countingContext) Edit(what any, opts ...any) error {
	err := c.Context.Edit(what, opts...)
	c.stats.record(err, opts)
	return err
}

func (c countingContext) EditOrSend(what any, opts ...any) error {
	err := c.Context.EditOrSend(what, opts...)
	c.stats.record(err, opts)
	return err
}

func (c countingContext) EditOrReply(what any, opts ...any) error {
	err := c.Context.EditOrReply(what, opts...)
	c.stats.record(err, opts)
	return err
}

// MessageMetricsMiddleware counts the messages a handler sends and whether any
// carried a keyboard. Counters reads the result.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		stats := &sendStats{}
		c.Set(statsKey, stats)
		return next(countingContext{Context: c, stats: stats})
	}
}

// Counters returns the number of messages sent for the update so far and
// whether one of them had reply markup.
func Counters(c tele.Context) (messages int, keyboard bool) {
	stats, ok := c.Get(statsKey).(*sendStats)
	if !ok {
		return 0, false
	}
	return int(stats.messages.Load()), stats.keyboard.Load()
}
