package broker

import (
	"context"
	"time"
)

// Group registers and calls channels under a common prefix, joined with ":".
type Group struct {
	app    *App
	prefix string
}

func (g *Group) sub(name string) string {
	if g.prefix == "" || name == "" {
		if name == "" {
			return g.prefix
		}
		return name
	}
	return g.prefix + ":" + name
}

func (g *Group) Group(suffix string) *Group {
	return &Group{app: g.app, prefix: g.sub(suffix)}
}

// Prefix returns the full prefix of the group.
func (g *Group) Prefix() string { return g.prefix }

func (g *Group) Handle(name string, h HandlerFunc) { g.app.Handle(g.sub(name), h) }

func (g *Group) Subscribe(h HandlerFunc, names ...string) {
	for _, name := range names {
		g.app.Handle(g.sub(name), h)
	}
}

func (g *Group) Publish(ctx context.Context, name string, body any, opts ...CallOption) (int64, error) {
	return g.app.Publish(ctx, g.sub(name), body, opts...)
}

func (g *Group) Request(ctx context.Context, name string, body any, timeout time.Duration, opts ...CallOption) (*Response, error) {
	return g.app.Request(ctx, g.sub(name), body, timeout, opts...)
}

func (g *Group) IterRequest(ctx context.Context, name string, body any, timeout time.Duration, maxCount int, opts ...CallOption) (*ReplyIterator, error) {
	return g.app.IterRequest(ctx, g.sub(name), body, timeout, maxCount, opts...)
}
