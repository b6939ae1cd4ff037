package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/shopbot/core/config"
	"github.com/m3rciful/shopbot/core/logger"
	tghelpers "github.com/m3rciful/shopbot/core/telegram/helpers"
	tgsender "github.com/m3rciful/shopbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

// stopTimeout bounds the OnStop hook once the run context is gone.
const stopTimeout = 10 * time.Second

// Middleware is a named global middleware installed with bot.Use.
type Middleware struct {
	Name string
	Use  func(next tele.HandlerFunc) tele.HandlerFunc
}

// Route binds a handler to a telebot endpoint (a command string or an On* constant).
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// RunOptions controls RunTelegram.
type RunOptions struct {
	Config   *coreconfig.Config
	Registry *Registry

	DispatcherOptions tgsender.Options
	// Dispatcher replaces the one built from DispatcherOptions.
	Dispatcher *tgsender.Dispatcher

	Middlewares []Middleware
	Routes      []Route

	DisableWebhookCleanup   bool
	DisableHelperDispatcher bool

	OnStart func(ctx context.Context, rt Runtime) error
	OnStop  func(ctx context.Context, rt Runtime) error
}

// Runtime is what lifecycle hooks get to see.
type Runtime struct {
	Bot        *tele.Bot
	Dispatcher *tgsender.Dispatcher
	Registry   *Registry
}

// RunTelegram builds the bot, wires middlewares and routes, and serves updates
// until ctx is cancelled. Cancellation is a clean stop.
func RunTelegram(ctx context.Context, opts RunOptions) error {
	if opts.Config == nil {
		return errors.New("telegram: nil config provided")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Registry == nil {
		opts.Registry = NewRegistry()
	}

	rt, err := newRuntime(ctx, opts)
	if err != nil {
		return err
	}
	defer releaseDispatcher(ctx, rt.Dispatcher, !opts.DisableHelperDispatcher)

	wire(ctx, rt, opts)
	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, rt); err != nil {
			return err
		}
	}

	serveErr := serve(ctx, rt.Bot)
	if opts.OnStop != nil {
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
		defer cancel()
		if err := opts.OnStop(stopCtx, rt); err != nil {
			return err
		}
	}
	return serveErr
}

func newRuntime(ctx context.Context, opts RunOptions) (Runtime, error) {
	tc := opts.Config.Telegram
	poller := BuildPoller(PollerOptions{
		RunMode:                tc.RunMode,
		LongPollTimeoutSeconds: tc.LongPollTimeoutSeconds,
		Webhook: WebhookOptions{
			Listen:      opts.Config.Webhook.Listen,
			Port:        opts.Config.Webhook.Port,
			URL:         opts.Config.Webhook.URL,
			SecretToken: opts.Config.Webhook.SecretToken,
		},
	})

	start := time.Now()
	bot, err := tele.NewBot(tele.Settings{Token: tc.Token, Poller: poller, Client: BuildHTTPClient(poller)})
	if err != nil {
		return Runtime{}, fmt.Errorf("telegram: bot initialization failed: %w", err)
	}
	attrs := []slog.Attr{slog.Duration("duration", logger.RoundMS(time.Since(start)))}
	switch p := poller.(type) {
	case *tele.Webhook:
		attrs = append(attrs,
			slog.String("mode", "webhook"),
			slog.String("listen", p.Listen),
			slog.String("public_url", p.Endpoint.PublicURL),
		)
	case *tele.LongPoller:
		attrs = append(attrs,
			slog.String("mode", "polling"),
			slog.Duration("timeout", p.Timeout),
		)
	}
	logger.Info(ctx, "tg", "mode", attrs...)

	disp := opts.Dispatcher
	if disp == nil {
		disp = tgsender.NewDispatcher(opts.DispatcherOptions)
	}
	if !opts.DisableHelperDispatcher {
		tghelpers.SetDispatcher(disp)
	}
	return Runtime{Bot: bot, Dispatcher: disp, Registry: opts.Registry}, nil
}

// releaseDispatcher drains queued sends and reports the totals.
func releaseDispatcher(ctx context.Context, d *tgsender.Dispatcher, helper bool) {
	d.Close()
	if helper {
		tghelpers.SetDispatcher(nil)
	}
	logger.Info(ctx, "tg.sender", "sender.stopped",
		slog.Uint64("sent", d.SentCount()),
		slog.Uint64("failed", d.ErrorCount()),
	)
}

// wire installs middlewares, routes and the command menu.
func wire(ctx context.Context, rt Runtime, opts RunOptions) {
	// a webhook left over from a previous deployment blocks getUpdates
	if _, polling := rt.Bot.Poller.(*tele.LongPoller); polling && !opts.DisableWebhookCleanup &&
		strings.EqualFold(opts.Config.Telegram.RunMode, coreconfig.RunModeLongpoll) {
		err := rt.Bot.RemoveWebhook(false)
		logger.Info(ctx, "tg", "delete_webhook", slog.String("status", logger.Status(err)))
		if err != nil {
			logger.Warn(ctx, "tg", "delete_webhook", slog.String("err", tgsender.Redact(err)))
		}
	}

	for _, mw := range opts.Middlewares {
		if mw.Use != nil {
			rt.Bot.Use(mw.Use)
		}
	}
	for _, route := range opts.Routes {
		if route.Endpoint != nil && route.Handler != nil {
			rt.Bot.Handle(route.Endpoint, route.Handler)
		}
	}
	if err := PublishCommands(rt.Bot, rt.Registry); err != nil {
		logger.Warn(ctx, "tg.wire", "commands.publish_failed", slog.String("err", tgsender.Redact(err)))
	}
}

// serve runs the poller until ctx ends or the bot stops by itself.
func serve(ctx context.Context, bot *tele.Bot) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		bot.Start()
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		bot.Stop()
		<-done
	}
	if err := ctx.Err(); !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
