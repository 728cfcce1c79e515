package broker

import (
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Option func(*App)

func WithLogger(l *zap.Logger) Option {
	return func(a *App) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithMaxJobs sets the number of handlers that may run at once. It is fixed
// for the life of the App.
func WithMaxJobs(n int) Option {
	return func(a *App) {
		if n > 0 {
			a.maxJobs = n
		}
	}
}

// WithPollInterval bounds how long the listen loop waits for a message before
// checking whether it should stop.
func WithPollInterval(d time.Duration) Option {
	return func(a *App) {
		if d > 0 {
			a.pollInterval = d
		}
	}
}

func WithAppName(name string) Option {
	return func(a *App) {
		a.appName = name
	}
}

// WithCredentials lets Listen connect on its own when Connect was not called.
func WithCredentials(creds Credentials) Option {
	return func(a *App) {
		a.creds = &creds
	}
}

func WithDialer(d Dialer) Option {
	return func(a *App) {
		if d != nil {
			a.dial = d
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(a *App) {
		a.metrics = m
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(a *App) {
		if tp != nil {
			a.tracer = tp.Tracer(tracerName)
		}
	}
}
