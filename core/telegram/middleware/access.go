package middleware

import tele "gopkg.in/telebot.v4"

// Roles answers membership questions for privileged commands.
type Roles interface {
	IsAdmin(userID int64) bool
	IsSuper(userID int64) bool
}

// AccessOptions defines how role checks should behave.
type AccessOptions struct {
	Roles    Roles
	OnReject tele.HandlerFunc
}

func guard(opts AccessOptions, allow func(userID int64) bool) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if opts.Roles == nil || c.Sender() == nil || !allow(c.Sender().ID) {
				if opts.OnReject != nil {
					return opts.OnReject(c)
				}
				return nil
			}
			return next(c)
		}
	}
}

// AdminOnly lets admins (super users included) reach the handler.
func AdminOnly(opts AccessOptions) tele.MiddlewareFunc {
	return guard(opts, func(id int64) bool { return opts.Roles.IsAdmin(id) })
}

// SuperOnly lets only super users reach the handler.
func SuperOnly(opts AccessOptions) tele.MiddlewareFunc {
	return guard(opts, func(id int64) bool { return opts.Roles.IsSuper(id) })
}

// PrivateOnly drops updates that do not come from a private chat.
func PrivateOnly(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if chat := c.Chat(); chat == nil || chat.Type != tele.ChatPrivate {
			return nil
		}
		return next(c)
	}
}
