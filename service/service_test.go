package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrjvadi/litter/broker"
)

type addRequest struct {
	A int `json:"a"`
	B int `json:"b"`
}

type addResponse struct {
	Sum int `json:"sum"`
}

type calculator struct {
	logged chan string
}

func (c *calculator) Endpoints() []Endpoint {
	return []Endpoint{
		Method("add", func(ctx context.Context, req addRequest) (addResponse, error) {
			return addResponse{Sum: req.A + req.B}, nil
		}),
		Method("div", func(ctx context.Context, req addRequest) (int, error) {
			if req.B == 0 {
				return 0, errors.New("division by zero")
			}
			return req.A / req.B, nil
		}),
		Notification("log", func(ctx context.Context, line string) error {
			c.logged <- line
			return nil
		}),
		Dynamic("describe", func(ctx context.Context, args Args) (any, error) {
			return map[string]any{"n": args.Len(), "first": args.Arg(0), "named": args.Named}, nil
		}),
	}
}

func newApp(t *testing.T, mr *miniredis.Miniredis) *broker.App {
	t.Helper()
	a := broker.New(broker.WithPollInterval(20 * time.Millisecond))
	require.NoError(t, a.Connect(context.Background(), broker.Credentials{Addr: mr.Addr()}, ""))
	t.Cleanup(func() { _ = a.Disconnect() })
	return a
}

func startCalculator(t *testing.T, mr *miniredis.Miniredis) *calculator {
	t.Helper()
	calc := &calculator{logged: make(chan string, 1)}
	server := newApp(t, mr)
	require.NoError(t, Adapt(context.Background(), server, calc, "calc", true))
	assert.Equal(t, "calc", server.AppName())
	assert.Equal(t, []string{"calc:add", "calc:div", "calc:log", "calc:describe"}, server.Patterns())
	return calc
}

func TestCallTypedEndpoint(t *testing.T) {
	mr := miniredis.RunT(t)
	startCalculator(t, mr)
	client := newApp(t, mr)

	out, err := Call[addRequest, addResponse](context.Background(), client, "calc", "add", addRequest{A: 2, B: 40}, 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 42, out.Sum)
}

func TestCallSurfacesRemoteFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	startCalculator(t, mr)
	client := newApp(t, mr)

	_, err := Call[addRequest, int](context.Background(), client, "calc", "div", addRequest{A: 1}, 2*time.Second)
	var re *broker.RemoteError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "division by zero", re.Message)
}

func TestCallWithUnfitBodyIsTypeError(t *testing.T) {
	mr := miniredis.RunT(t)
	startCalculator(t, mr)
	client := newApp(t, mr)

	_, err := Call[string, addResponse](context.Background(), client, "calc", "add", "not a struct", 2*time.Second)
	var re *broker.RemoteError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "TypeError", re.Type)
	assert.Contains(t, re.Message, "add")
}

func TestNotifyReachesNotificationEndpoint(t *testing.T) {
	mr := miniredis.RunT(t)
	calc := startCalculator(t, mr)
	client := newApp(t, mr)

	require.NoError(t, Notify(context.Background(), client, "calc", "log", "hello"))
	select {
	case line := <-calc.logged:
		assert.Equal(t, "hello", line)
	case <-time.After(2 * time.Second):
		t.Fatal("notification not delivered")
	}
}

func TestProxyPacksArguments(t *testing.T) {
	mr := miniredis.RunT(t)
	startCalculator(t, mr)
	client := newApp(t, mr)
	p := NewProxy(client, "calc", WithTimeout(2*time.Second))

	got, err := p.Invoke(context.Background(), "describe", true, []any{"x", 2}, map[string]any{"flag": true})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"n":     int64(2),
		"first": "x",
		"named": map[string]any{"flag": true},
	}, got)

	describe := p.Func("describe", true)
	got, err = describe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.(map[string]any)["n"])
}

func TestProxyWithoutReturnPublishes(t *testing.T) {
	mr := miniredis.RunT(t)
	startCalculator(t, mr)

	watcher := newApp(t, mr)
	bodies := make(chan any, 1)
	watcher.Handle("calc:fire", func(c *broker.Context) (any, error) {
		bodies <- c.Body()
		return nil, nil
	})
	require.NoError(t, watcher.ListenBackground(context.Background()))

	client := newApp(t, mr)
	got, err := NewProxy(client, "calc").Func("fire", false)(context.Background(), "a", "b")
	require.NoError(t, err)
	assert.Nil(t, got)

	select {
	case body := <-bodies:
		assert.Equal(t, map[string]any{PositionalKey: []any{"a", "b"}}, body)
	case <-time.After(2 * time.Second):
		t.Fatal("publish not seen")
	}
}

func TestProxyRejectsNonPositiveTimeout(t *testing.T) {
	mr := miniredis.RunT(t)
	startCalculator(t, mr)
	client := newApp(t, mr)

	for _, d := range []time.Duration{0, -time.Second} {
		_, err := NewProxy(client, "calc", WithTimeout(d)).Invoke(context.Background(), "describe", true, nil, nil)
		assert.ErrorIs(t, err, broker.ErrInvalidTimeout, d)
		assert.ErrorIs(t, err, broker.ErrConfig, d)
	}
}

func TestAdaptRejectsBadNames(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	noop := Dynamic("ok", func(context.Context, Args) (any, error) { return nil, nil })

	for _, name := range []string{"", "two words", "calc*", "c?lc", "[calc]"} {
		err := Adapt(ctx, newApp(t, mr), Endpoints{noop}, name, true)
		assert.ErrorIs(t, err, broker.ErrInvalidChannel, name)
		assert.ErrorIs(t, err, broker.ErrConfig, name)
	}

	err := Adapt(ctx, newApp(t, mr), Endpoints{noop, noop}, "calc", true)
	assert.ErrorIs(t, err, broker.ErrConfig)

	err = Adapt(ctx, newApp(t, mr), Endpoints{{Name: "bare"}}, "calc", true)
	assert.ErrorIs(t, err, broker.ErrConfig)

	err = Adapt(ctx, newApp(t, mr), Endpoints{{Name: "with space", Handler: noop.Handler}}, "calc", true)
	assert.ErrorIs(t, err, broker.ErrInvalidChannel)
}

func TestAdaptForegroundReturnsOnCancel(t *testing.T) {
	mr := miniredis.RunT(t)
	app := newApp(t, mr)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- Adapt(ctx, app, &calculator{}, "calc", false) }()

	require.Eventually(t, func() bool { return app.State() == broker.StateListening }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("adapt did not return")
	}
	assert.False(t, app.Connected())
}

func TestSplitArgs(t *testing.T) {
	args, err := splitArgs(nil)
	require.NoError(t, err)
	assert.Zero(t, args.Len())
	assert.Nil(t, args.Arg(0))

	body := map[string]any{PositionalKey: []any{int64(1)}, "k": "v"}
	args, err = splitArgs(body)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1)}, args.Positional)
	assert.Equal(t, map[string]any{"k": "v"}, args.Named)
	assert.Contains(t, body, PositionalKey)

	var named struct {
		K string `json:"k"`
	}
	require.NoError(t, args.Bind(&named))
	assert.Equal(t, "v", named.K)

	_, err = splitArgs("scalar")
	assert.Error(t, err)
	_, err = splitArgs(map[string]any{PositionalKey: "not a list"})
	assert.Error(t, err)
}
