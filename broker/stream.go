package broker

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// consume is the single reader: it takes messages off the subscription in
// arrival order and hands every matching handler to the worker pool.
func (a *App) consume(ctx context.Context, sub Subscription) {
	defer close(a.done)
	defer a.state.Store(int32(StateStopped))

	for {
		msg, err := sub.Receive(ctx, a.pollInterval)
		if err != nil {
			if ctx.Err() != nil {
				a.wlog.Info("listen loop cancelled")
				a.wg.Wait()
				_ = a.Disconnect()
				return
			}
			if !errors.Is(err, ErrClosed) {
				a.wlog.Error("receive failed", zap.Error(err))
			}
			a.wg.Wait()
			return
		}
		if msg == nil {
			if !a.Connected() {
				a.wg.Wait()
				return
			}
			continue
		}
		a.dispatch(ctx, msg)
	}
}

func (a *App) dispatch(ctx context.Context, msg *Message) {
	if msg.Kind != kindMessage && msg.Kind != kindPMessage {
		return
	}
	handlers := a.handlersFor(msg.Key())
	if len(handlers) == 0 {
		a.wlog.Debug("no handler", zap.String("channel", msg.Channel), zap.String("pattern", msg.Pattern))
		return
	}

	env, err := decodeEnvelope(msg.Payload)
	if err != nil {
		a.wlog.Error("dropping undecodable message", zap.String("channel", msg.Channel), zap.Error(err))
		a.metrics.decodeFailed(msg.Key())
		return
	}

	for _, h := range handlers {
		c := &Context{ctx: ctx, app: a, msg: msg, env: env}
		a.metrics.dispatched(msg.Key())
		a.withConcurrency(func() {
			a.process(c, h)
		})
	}
}

// withConcurrency blocks while every worker slot is taken.
func (a *App) withConcurrency(fn func()) {
	a.sem <- struct{}{}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer func() { <-a.sem }()
		fn()
	}()
}
