package broker

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T, mr *miniredis.Miniredis, name string, opts ...Option) *App {
	t.Helper()
	a := New(append([]Option{WithPollInterval(20 * time.Millisecond)}, opts...)...)
	require.NoError(t, a.Connect(context.Background(), Credentials{Addr: mr.Addr()}, name))
	t.Cleanup(func() { _ = a.Disconnect() })
	return a
}

func listen(t *testing.T, a *App) {
	t.Helper()
	require.NoError(t, a.ListenBackground(context.Background()))
}

type valueError struct{ msg string }

func (e *valueError) Error() string     { return e.msg }
func (e *valueError) ErrorType() string { return "ValueError" }

func echo(c *Context) (any, error) {
	var args struct {
		Positional []any `json:"_"`
	}
	if err := c.Bind(&args); err != nil {
		return nil, err
	}
	return args.Positional[0], nil
}
