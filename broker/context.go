package broker

import (
	"context"

	"github.com/mrjvadi/litter/codec"
)

// Context is what a handler sees of one inbound message. The decoded body is
// shared between every handler of the message and must not be modified.
type Context struct {
	ctx context.Context
	app *App
	msg *Message
	env *Response
}

// Ctx returns the listen loop's context.
func (c *Context) Ctx() context.Context {
	return c.ctx
}

// App returns the runtime that received the message.
func (c *Context) App() *App {
	return c.app
}

func (c *Context) Channel() string  { return c.msg.Channel }
func (c *Context) Pattern() string  { return c.msg.Pattern }
func (c *Context) Headers() Headers { return c.env.Headers }
func (c *Context) Body() any        { return c.env.Body }

func (c *Context) RequestID() string { return c.env.Headers.String(HeaderRequestID) }

// Bind decodes the body into v.
func (c *Context) Bind(v any) error {
	return codec.Bind(c.env.Body, v)
}

// ReplyAddress is where the reply goes, or "" for a notification.
func (c *Context) ReplyAddress() string {
	if addr := c.env.Headers.String(HeaderResponseQueue); addr != "" {
		return addr
	}
	if id := c.RequestID(); id != "" {
		return ReplyAddress(c.msg.Channel, id)
	}
	return ""
}

// IsRequest reports whether the sender waits for a reply.
func (c *Context) IsRequest() bool {
	return c.ReplyAddress() != ""
}
