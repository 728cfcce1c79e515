package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mrjvadi/litter/broker"
	"github.com/mrjvadi/litter/codec"
)

// Method is an endpoint that binds the body into Req and replies with the
// returned Resp.
func Method[Req, Resp any](name string, fn func(ctx context.Context, req Req) (Resp, error)) Endpoint {
	return Endpoint{
		Name: name,
		Handler: func(c *broker.Context) (any, error) {
			var req Req
			if err := c.Bind(&req); err != nil {
				return nil, &ArgumentError{Endpoint: name, Err: err}
			}
			logInvoke(c, name)
			return fn(c.Ctx(), req)
		},
	}
}

// Notification is an endpoint with nothing to reply. Called as a request it
// replies with an empty body once fn returns.
func Notification[Req any](name string, fn func(ctx context.Context, req Req) error) Endpoint {
	return Endpoint{
		Name: name,
		Handler: func(c *broker.Context) (any, error) {
			var req Req
			if err := c.Bind(&req); err != nil {
				return nil, &ArgumentError{Endpoint: name, Err: err}
			}
			logInvoke(c, name)
			return nil, fn(c.Ctx(), req)
		},
	}
}

// Args are the arguments of a dynamic call: the list found under
// PositionalKey and every other body key.
type Args struct {
	Positional []any
	Named      map[string]any
}

// Len is the number of positional arguments.
func (a Args) Len() int { return len(a.Positional) }

// Arg returns positional argument i, or nil when there are fewer.
func (a Args) Arg(i int) any {
	if i < 0 || i >= len(a.Positional) {
		return nil
	}
	return a.Positional[i]
}

// Bind decodes the named arguments into v.
func (a Args) Bind(v any) error {
	return codec.Bind(a.Named, v)
}

// Dynamic is an endpoint taking untyped positional and named arguments.
func Dynamic(name string, fn func(ctx context.Context, args Args) (any, error)) Endpoint {
	return Endpoint{
		Name: name,
		Handler: func(c *broker.Context) (any, error) {
			args, err := splitArgs(c.Body())
			if err != nil {
				return nil, &ArgumentError{Endpoint: name, Err: err}
			}
			if ce := c.App().Logger().Check(zap.DebugLevel, "invoke"); ce != nil {
				ce.Write(zap.String("endpoint", name), zap.Any("args", args.Positional), zap.Any("kwargs", args.Named))
			}
			return fn(c.Ctx(), args)
		},
	}
}

// splitArgs copies the body so the decoded message shared with other
// handlers is left alone.
func splitArgs(body any) (Args, error) {
	args := Args{Named: map[string]any{}}
	if body == nil {
		return args, nil
	}
	m, ok := body.(map[string]any)
	if !ok {
		return args, fmt.Errorf("body is %T, want a mapping", body)
	}
	for k, v := range m {
		if k != PositionalKey {
			args.Named[k] = v
			continue
		}
		switch p := v.(type) {
		case nil:
		case []any:
			args.Positional = append([]any(nil), p...)
		default:
			return args, fmt.Errorf("%q is %T, want a list", PositionalKey, v)
		}
	}
	return args, nil
}

func logInvoke(c *broker.Context, name string) {
	c.App().Logger().Debug("invoke", zap.String("endpoint", name), zap.String("request_id", c.RequestID()))
}
