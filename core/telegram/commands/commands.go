package commands

import (
	tele "gopkg.in/telebot.v4"
)

// Command represents a bot command with its handler, description, and metadata.
// AdminOnly and SuperOnly restrict the caller's role; PrivateOnly drops the
// command outside private chats.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	AdminOnly   bool
	SuperOnly   bool
	PrivateOnly bool
	Hidden      bool
	Aliases     []string
}

// Restricted reports whether the command needs any role.
func (c Command) Restricted() bool {
	return c.AdminOnly || c.SuperOnly
}
