package broker

import (
	"context"

	"go.uber.org/zap"
)

// Listen subscribes to every registered pattern and runs the listen loop on
// the calling goroutine until ctx is cancelled or the App is disconnected.
// When Connect was not called and WithCredentials was given, Listen connects
// first. Only one listen loop may ever run per App.
func (a *App) Listen(ctx context.Context) error {
	sub, err := a.startListening(ctx)
	if err != nil {
		return err
	}
	a.consume(ctx, sub)
	return nil
}

// ListenBackground is Listen on its own goroutine. It returns once the
// subscription is confirmed, so messages published afterwards are received.
func (a *App) ListenBackground(ctx context.Context) error {
	sub, err := a.startListening(ctx)
	if err != nil {
		return err
	}
	go a.consume(ctx, sub)
	return nil
}

func (a *App) startListening(ctx context.Context) (sub Subscription, err error) {
	if !a.state.CompareAndSwap(int32(StateIdle), int32(StateListening)) {
		return nil, ErrAlreadyListening
	}
	defer func() {
		if err != nil {
			a.state.Store(int32(StateIdle))
		}
	}()

	if !a.Connected() && a.creds != nil {
		if err := a.Connect(ctx, *a.creds, ""); err != nil {
			return nil, err
		}
	}
	conn, err := a.connection()
	if err != nil {
		return nil, err
	}

	a.sem = make(chan struct{}, a.maxJobs)
	a.wlog = a.logger.Named(a.AppName())

	patterns := a.Patterns()
	if len(patterns) == 0 {
		a.wlog.Warn("no channel to listen")
	}
	sub, err = conn.PSubscribe(ctx, patterns...)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.sub = sub
	a.mu.Unlock()

	a.wlog.Debug("registered channels", zap.Strings("patterns", patterns))
	a.wlog.Info("listening", zap.Int("workers", a.maxJobs))
	return sub, nil
}
