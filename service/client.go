package service

import (
	"context"
	"fmt"
	"time"

	"github.com/mrjvadi/litter/broker"
)

// Call invokes a request endpoint of appName and binds the reply body into
// Resp.
func Call[Req, Resp any](ctx context.Context, app *broker.App, appName, endpoint string, req Req, timeout time.Duration, opts ...broker.CallOption) (Resp, error) {
	var out Resp
	resp, err := app.Request(ctx, Channel(appName, endpoint), req, timeout, opts...)
	if err != nil {
		return out, err
	}
	if err := resp.Bind(&out); err != nil {
		return out, fmt.Errorf("call %s: %w", Channel(appName, endpoint), err)
	}
	return out, nil
}

// Notify publishes req to an endpoint of appName without waiting.
func Notify[Req any](ctx context.Context, app *broker.App, appName, endpoint string, req Req, opts ...broker.CallOption) error {
	_, err := app.Publish(ctx, Channel(appName, endpoint), req, opts...)
	return err
}

// Proxy calls the endpoints of one remote application with positional and
// named arguments.
type Proxy struct {
	app     *broker.App
	appName string
	timeout time.Duration
	opts    []broker.CallOption
}

type ProxyOption func(*Proxy)

// WithTimeout sets how long calls that return a value wait for the reply.
// A non-positive d makes those calls fail with broker.ErrInvalidTimeout.
func WithTimeout(d time.Duration) ProxyOption {
	return func(p *Proxy) {
		p.timeout = d
	}
}

// WithCallOptions applies opts to every call made through the proxy.
func WithCallOptions(opts ...broker.CallOption) ProxyOption {
	return func(p *Proxy) {
		p.opts = append(p.opts, opts...)
	}
}

func NewProxy(app *broker.App, appName string, opts ...ProxyOption) *Proxy {
	p := &Proxy{app: app, appName: appName, timeout: broker.DefaultRequestTimeout}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Invoke calls endpoint. When returns is set it waits for the reply and
// returns its body; otherwise it publishes and returns nil.
func (p *Proxy) Invoke(ctx context.Context, endpoint string, returns bool, args []any, kwargs map[string]any) (any, error) {
	body := make(map[string]any, len(kwargs)+1)
	for k, v := range kwargs {
		body[k] = v
	}
	if args == nil {
		args = []any{}
	}
	body[PositionalKey] = args

	channel := Channel(p.appName, endpoint)
	if !returns {
		_, err := p.app.Publish(ctx, channel, body, p.opts...)
		return nil, err
	}
	resp, err := p.app.Request(ctx, channel, body, p.timeout, p.opts...)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Func is a remote endpoint bound to a proxy.
type Func func(ctx context.Context, args ...any) (any, error)

// Func binds endpoint so it can be called like a local function with
// positional arguments.
func (p *Proxy) Func(endpoint string, returns bool) Func {
	return func(ctx context.Context, args ...any) (any, error) {
		return p.Invoke(ctx, endpoint, returns, args, nil)
	}
}
