package router

import (
	"context"
	"log/slog"

	"github.com/m3rciful/shopbot/core/logger"
	tg "github.com/m3rciful/shopbot/core/telegram"
	"github.com/m3rciful/shopbot/core/telegram/commands"
	"github.com/m3rciful/shopbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CommandRouteOptions configures how commands are wrapped and exposed.
type CommandRouteOptions struct {
	Roles    middleware.Roles
	OnReject tele.HandlerFunc
}

// CommandRoutes prepares command handlers wrapped with shared middleware.
// Aliases are exposed as additional endpoints with the same handler.
func CommandRoutes(reg *tg.Registry, opts CommandRouteOptions) []tg.Route {
	if reg == nil {
		return nil
	}

	access := middleware.AccessOptions{Roles: opts.Roles, OnReject: opts.OnReject}

	routes := make([]tg.Route, 0, len(reg.Commands()))
	aliases := 0
	for cmd, def := range reg.Commands() {
		h := WrapCommand(cmd, def, access)
		routes = append(routes, tg.Route{Endpoint: cmd, Handler: h})
		for _, alias := range def.Aliases {
			if alias == "" {
				continue
			}
			if alias[0] != '/' {
				alias = "/" + alias
			}
			routes = append(routes, tg.Route{Endpoint: alias, Handler: h})
			aliases++
		}
	}

	logger.Info(context.Background(), "tg.wire", "complete",
		slog.Int("commands", len(reg.Commands())),
		slog.Int("aliases", aliases),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)

	return routes
}

// WrapCommand applies summary logging, role and chat guards to one command.
func WrapCommand(name string, def commands.Command, access middleware.AccessOptions) tele.HandlerFunc {
	handler := "cmd." + handlerName(name)
	h := func(c tele.Context) error {
		return newSummary(handler).run(c, func() error { return def.Handler(c) })
	}
	switch {
	case def.SuperOnly:
		h = middleware.SuperOnly(access)(h)
	case def.AdminOnly:
		h = middleware.AdminOnly(access)(h)
	}
	if def.PrivateOnly {
		h = middleware.PrivateOnly(h)
	}
	return middleware.RecoverMiddleware(middleware.LoggerMiddleware(h))
}
