package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/shopbot/core/logger"
	"github.com/m3rciful/shopbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/shopbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// Verdict is the outcome of a gate check.
type Verdict int

const (
	// Allowed means the trigger may run; the caller must release it afterwards.
	Allowed Verdict = iota
	// Bypassed means the payload is whitelisted and no state was touched.
	Bypassed
	// Locked means a previous trigger of the same key is still running.
	Locked
	// TooFast means the cooldown since the last trigger has not elapsed.
	TooFast
)

func (v Verdict) String() string {
	switch v {
	case Allowed:
		return "allowed"
	case Bypassed:
		return "bypassed"
	case Locked:
		return "locked"
	case TooFast:
		return "too_fast"
	}
	return "unknown"
}

// GateOptions configures a Gate.
type GateOptions struct {
	Cooldown   time.Duration
	EnableLock bool
	Whitelist  []string
	// Now overrides the clock in tests.
	Now func() time.Time
}

type gateKey struct {
	userID int64
	chatID int64
}

type gateEntry struct {
	lastActionAt time.Time
	locked       bool
}

// sweepThreshold bounds the entry map before idle keys are dropped.
const sweepThreshold = 1024

// Gate throttles button presses per (user, chat). State is in-memory only.
type Gate struct {
	opts      GateOptions
	whitelist map[string]struct{}

	mu      sync.Mutex
	entries map[gateKey]*gateEntry
}

// NewGate builds a gate from opts.
func NewGate(opts GateOptions) *Gate {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	wl := make(map[string]struct{}, len(opts.Whitelist))
	for _, p := range opts.Whitelist {
		wl[p] = struct{}{}
	}
	return &Gate{
		opts:      opts,
		whitelist: wl,
		entries:   make(map[gateKey]*gateEntry),
	}
}

// Enter checks a trigger. When the verdict is Allowed the returned release must be
// called once the downstream action finishes; it is safe to call more than once.
func (g *Gate) Enter(userID, chatID int64, payload string) (Verdict, func()) {
	if _, ok := g.whitelist[payload]; ok {
		return Bypassed, func() {}
	}
	key := gateKey{userID: userID, chatID: chatID}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.opts.Now()
	e, ok := g.entries[key]
	if !ok {
		if len(g.entries) >= sweepThreshold {
			g.sweepLocked(now)
		}
		e = &gateEntry{}
		g.entries[key] = e
	}
	if g.opts.EnableLock && e.locked {
		return Locked, func() {}
	}
	if !e.lastActionAt.IsZero() && now.Sub(e.lastActionAt) < g.opts.Cooldown {
		return TooFast, func() {}
	}
	e.locked = g.opts.EnableLock
	e.lastActionAt = now

	var once sync.Once
	return Allowed, func() {
		once.Do(func() {
			g.mu.Lock()
			defer g.mu.Unlock()
			e.locked = false
			e.lastActionAt = g.opts.Now()
		})
	}
}

// sweepLocked drops unlocked entries whose cooldown is long over. Caller holds mu.
func (g *Gate) sweepLocked(now time.Time) {
	horizon := g.opts.Cooldown * 10
	if horizon < time.Minute {
		horizon = time.Minute
	}
	for k, e := range g.entries {
		if !e.locked && now.Sub(e.lastActionAt) > horizon {
			delete(g.entries, k)
		}
	}
}

// AntiSpamOptions customises the rejection notices.
type AntiSpamOptions struct {
	LockedText  string
	TooFastText string
}

const (
	defaultLockedText  = "⏳ Still working on your previous request…"
	defaultTooFastText = "🐢 Too fast, please wait a moment."
)

// AntiSpamMiddleware runs callback presses through g. Other updates pass untouched.
func AntiSpamMiddleware(g *Gate, opts AntiSpamOptions) tele.MiddlewareFunc {
	if opts.LockedText == "" {
		opts.LockedText = defaultLockedText
	}
	if opts.TooFastText == "" {
		opts.TooFastText = defaultTooFastText
	}
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			cb := c.Callback()
			if g == nil || cb == nil || c.Sender() == nil {
				return next(c)
			}
			var chatID int64
			if chat := c.Chat(); chat != nil {
				chatID = chat.ID
			}
			key, _ := callbacks.ParseCallbackData(cb)
			verdict, release := g.Enter(c.Sender().ID, chatID, key)
			switch verdict {
			case Allowed:
				defer release()
				return next(c)
			case Bypassed:
				return next(c)
			}

			ctx := tghelpers.BuildContext(c)
			logger.Warn(ctx, "tg", "antispam.reject",
				slog.String("status", "rate_limited"),
				slog.String("verdict", verdict.String()),
				slog.Int64("user_id", c.Sender().ID),
				slog.Int64("chat_id", chatID),
				slog.String("cb_key", logger.SanitizeLimit(key, 64)),
			)
			text := opts.TooFastText
			if verdict == Locked {
				text = opts.LockedText
			}
			return c.Respond(&tele.CallbackResponse{Text: text})
		}
	}
}
