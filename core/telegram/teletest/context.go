// Package teletest provides an in-memory tele.Context for handler tests.
package teletest

import (
	"sync"

	tele "gopkg.in/telebot.v4"
)

// Sent records one outbound call made through the context.
type Sent struct {
	Method string
	What   any
	Opts   []any
}

// Context implements the parts of tele.Context used by this module's handlers.
// Methods outside that set panic through the nil embedded interface.
type Context struct {
	tele.Context

	UpdateID int
	User     *tele.User
	ChatV    *tele.Chat
	Msg      *tele.Message
	Cb       *tele.Callback

	mu        sync.Mutex
	store     map[string]any
	Out       []Sent
	Responses []*tele.CallbackResponse
}

// NewMessage builds a context for a text message sent in a private chat.
func NewMessage(userID int64, text string) *Context {
	user := &tele.User{ID: userID, FirstName: "Tester"}
	chat := &tele.Chat{ID: userID, Type: tele.ChatPrivate}
	return &Context{
		UpdateID: 1,
		User:     user,
		ChatV:    chat,
		Msg:      &tele.Message{ID: 100, Sender: user, Chat: chat, Text: text},
	}
}

// NewCallback builds a context for a button press carrying raw data.
func NewCallback(userID int64, data string) *Context {
	c := NewMessage(userID, "")
	c.Cb = &tele.Callback{ID: "cb", Sender: c.User, Message: c.Msg, Data: data}
	return c
}

// InGroup moves the update into a group chat.
func (c *Context) InGroup(chatID int64) *Context {
	c.ChatV = &tele.Chat{ID: chatID, Type: tele.ChatGroup}
	if c.Msg != nil {
		c.Msg.Chat = c.ChatV
	}
	return c
}

func (c *Context) Update() tele.Update {
	u := tele.Update{ID: c.UpdateID}
	if c.Cb != nil {
		u.Callback = c.Cb
	} else {
		u.Message = c.Msg
	}
	return u
}

func (c *Context) Sender() *tele.User       { return c.User }
func (c *Context) Chat() *tele.Chat         { return c.ChatV }
func (c *Context) Callback() *tele.Callback { return c.Cb }

func (c *Context) Message() *tele.Message {
	if c.Cb != nil {
		return c.Cb.Message
	}
	return c.Msg
}

func (c *Context) Text() string {
	if c.Msg == nil || c.Cb != nil {
		return ""
	}
	return c.Msg.Text
}

func (c *Context) Get(key string) any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store[key]
}

func (c *Context) Set(key string, val any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = make(map[string]any)
	}
	c.store[key] = val
}

func (c *Context) record(method string, what any, opts []any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Out = append(c.Out, Sent{Method: method, What: what, Opts: opts})
	return nil
}

func (c *Context) Send(what any, opts ...any) error        { return c.record("send", what, opts) }
func (c *Context) Reply(what any, opts ...any) error       { return c.record("reply", what, opts) }
func (c *Context) Edit(what any, opts ...any) error        { return c.record("edit", what, opts) }
func (c *Context) EditOrSend(what any, opts ...any) error  { return c.record("edit_or_send", what, opts) }
func (c *Context) EditOrReply(what any, opts ...any) error { return c.record("edit_or_reply", what, opts) }

func (c *Context) Respond(resp ...*tele.CallbackResponse) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(resp) == 0 {
		resp = []*tele.CallbackResponse{{}}
	}
	c.Responses = append(c.Responses, resp...)
	return nil
}

// Texts returns the string bodies of all recorded outbound calls.
func (c *Context) Texts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.Out))
	for _, s := range c.Out {
		if text, ok := s.What.(string); ok {
			out = append(out, text)
		}
	}
	return out
}

// LastMarkup returns the reply markup of the latest outbound call, if any.
func (c *Context) LastMarkup() *tele.ReplyMarkup {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.Out) == 0 {
		return nil
	}
	for _, o := range c.Out[len(c.Out)-1].Opts {
		switch v := o.(type) {
		case *tele.ReplyMarkup:
			return v
		case *tele.SendOptions:
			if v != nil {
				return v.ReplyMarkup
			}
		}
	}
	return nil
}
