// Package app is the dispatch layer of the shop bot. It turns commands, button
// presses and free text into catalog, dialog and importer calls and renders the
// results as Telegram messages.
package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/m3rciful/shopbot/core/buildinfo"
	"github.com/m3rciful/shopbot/core/logger"
	coretelegram "github.com/m3rciful/shopbot/core/telegram"
	"github.com/m3rciful/shopbot/core/telegram/router"
	tgsender "github.com/m3rciful/shopbot/core/telegram/sender"
	"github.com/m3rciful/shopbot/core/telegram/state"
	"github.com/m3rciful/shopbot/core/telegram/ui"
	"github.com/m3rciful/shopbot/shop/admin"
	"github.com/m3rciful/shopbot/shop/catalog"
	shopconfig "github.com/m3rciful/shopbot/shop/config"
	"github.com/m3rciful/shopbot/shop/importer"
	"github.com/m3rciful/shopbot/shop/sheets"

	tele "gopkg.in/telebot.v4"
)

// Options are the collaborators of an App.
type Options struct {
	Config *shopconfig.Config
	Store  *catalog.Store
	// Sessions holds admin dialogs; nil means in-memory.
	Sessions state.Store
	// Importer runs /import; nil disables it.
	Importer *importer.Importer
	// Tabs lists spreadsheet tabs for /sheets; nil disables it.
	Tabs sheets.Lister
	// Now overrides the anti-spam clock in tests.
	Now func() time.Time
}

// App owns the registry and the handlers of the shop bot.
type App struct {
	cfg      *shopconfig.Config
	store    *catalog.Store
	dialog   *admin.Dialog
	fsm      state.Manager
	importer *importer.Importer
	tabs     sheets.Lister
	reg      *coretelegram.Registry
	now      func() time.Time
	closers  []func() error
}

// New registers every command, callback and dialog state of the bot.
func New(opts Options) (*App, error) {
	if opts.Config == nil {
		return nil, errors.New("app: nil config")
	}
	if opts.Store == nil {
		return nil, errors.New("app: nil catalog store")
	}
	sessions := opts.Sessions
	if sessions == nil {
		sessions = state.NewMemoryStore()
	}

	a := &App{
		cfg:      opts.Config,
		store:    opts.Store,
		dialog:   admin.NewDialog(opts.Store, sessions),
		fsm:      state.NewManager(sessions),
		importer: opts.Importer,
		tabs:     opts.Tabs,
		reg:      coretelegram.NewRegistry(),
		now:      opts.Now,
	}
	if err := a.registerCommands(); err != nil {
		return nil, err
	}
	if err := a.registerCallbacks(); err != nil {
		return nil, err
	}
	a.registerDialog()
	ui.Install(a.reg, a)
	return a, nil
}

// Registry exposes the command and callback registry.
func (a *App) Registry() *coretelegram.Registry { return a.reg }

// Routes builds the telebot endpoints: one per command, one for callbacks and one
// for plain text.
func (a *App) Routes() []coretelegram.Route {
	routes := router.CommandRoutes(a.reg, router.CommandRouteOptions{
		Roles:    a.store,
		OnReject: a.rejectCommand,
	})
	routes = append(routes, router.CallbackRoute(a.reg, router.CallbackOptions{}))
	return append(routes, router.TextRoutes(a.fsm, a.reg, router.TextOptions{})...)
}

// TelegramRunOptions implements the runner's TelegramApp.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	core := a.cfg.CoreConfig()
	return coretelegram.RunOptions{
		Config:   core,
		Registry: a.reg,
		Middlewares: coretelegram.DefaultMiddlewares(core, coretelegram.MiddlewareOptions{
			Now: a.now,
		}),
		DispatcherOptions: tgsender.Options{
			Rate:    core.Telegram.SendRate,
			Workers: core.Telegram.SendWorkers,
		},
		Routes:  a.Routes(),
		OnStart: a.onStart,
	}, nil
}

// Close releases infrastructure acquired during bootstrap.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) onStart(ctx context.Context, _ coretelegram.Runtime) error {
	doc, err := a.store.Get()
	if err != nil {
		return err
	}
	logger.Info(ctx, "app", "catalog.ready",
		slog.String("version", buildinfo.String()),
		slog.Int("buttons", len(doc.Buttons)),
		slog.Int("admins", len(doc.AdminUserIDs)),
		slog.Int("supers", len(doc.SuperUserIDs)),
		slog.Bool("import", a.importer != nil),
		slog.Bool("sheets_api", a.tabs != nil),
	)
	if orphans := doc.OrphanChapters(); len(orphans) > 0 {
		preview, _ := logger.SummarizeStrings(orphans, 6)
		logger.Warn(ctx, "app", "catalog.orphans",
			slog.Int("count", len(orphans)),
			slog.String("chapters", preview),
		)
	}
	return nil
}

// UnknownText implements ui.FallbackProvider.
func (a *App) UnknownText() tele.HandlerFunc { return a.onUnknownText }

// UnknownCallback implements ui.FallbackProvider.
func (a *App) UnknownCallback() tele.HandlerFunc { return a.onPayload }
