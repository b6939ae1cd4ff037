package telegram

import (
	"time"

	coreconfig "github.com/m3rciful/shopbot/core/config"
	"github.com/m3rciful/shopbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// MiddlewareOptions tunes DefaultMiddlewares.
type MiddlewareOptions struct {
	Apology  string
	AntiSpam middleware.AntiSpamOptions
	// Now overrides the anti-spam clock in tests.
	Now func() time.Time
}

// DefaultMiddlewares builds the shared middleware chain for bots.
// The anti-spam gate is included when cfg is present; it only inspects callbacks.
func DefaultMiddlewares(cfg *coreconfig.Config, opts MiddlewareOptions) []Middleware {
	mws := []Middleware{
		{Name: "recover", Use: middleware.Recover(middleware.RecoverOptions{Apology: opts.Apology})},
		{Name: "logger", Use: middleware.LoggerMiddleware},
	}

	if cfg != nil {
		gate := middleware.NewGate(middleware.GateOptions{
			Cooldown:   time.Duration(cfg.AntiSpam.CooldownMS) * time.Millisecond,
			EnableLock: cfg.AntiSpam.LockEnabled(),
			Whitelist:  cfg.AntiSpam.Whitelist,
			Now:        opts.Now,
		})
		mws = append(mws, Middleware{
			Name: "anti_spam",
			Use:  middleware.AntiSpamMiddleware(gate, opts.AntiSpam),
		})
	}

	mws = append(mws, Middleware{Name: "metrics", Use: middleware.MessageMetricsMiddleware})
	return mws
}

// Chain applies mws around h, first middleware outermost.
func Chain(h tele.HandlerFunc, mws []Middleware) tele.HandlerFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i].Use != nil {
			h = mws[i].Use(h)
		}
	}
	return h
}
