// Package broker is a request/response runtime over a publish/subscribe
// broker. Processes register handlers for channel patterns and listen; other
// processes publish notifications to those channels or issue requests that
// block until a correlated reply arrives on a per-request reply list.
package broker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	DefaultMaxJobs        = 4
	DefaultPollInterval   = 500 * time.Millisecond
	DefaultRequestTimeout = 15 * time.Second

	tracerName = "github.com/mrjvadi/litter/broker"
)

// State of the listen loop.
type State int32

const (
	StateIdle State = iota
	StateListening
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// App owns one broker connection, the application name stamped on everything
// it sends, the handler registry and the listen loop. Create one per process
// (or per test) and share it.
type App struct {
	mu      sync.RWMutex
	conn    Conn
	sub     Subscription
	appName string

	// registry
	regMu    sync.RWMutex
	handlers map[string][]HandlerFunc
	patterns []string

	// listen loop
	state        atomic.Int32
	sem          chan struct{}
	wg           sync.WaitGroup
	maxJobs      int
	pollInterval time.Duration
	done         chan struct{}
	wlog         *zap.Logger

	creds   *Credentials
	dial    Dialer
	logger  *zap.Logger
	metrics *Metrics
	tracer  trace.Tracer
}

func New(options ...Option) *App {
	a := &App{
		handlers:     make(map[string][]HandlerFunc),
		maxJobs:      DefaultMaxJobs,
		pollInterval: DefaultPollInterval,
		done:         make(chan struct{}),
		dial:         DialRedis,
		logger:       zap.NewNop(),
		tracer:       otel.GetTracerProvider().Tracer(tracerName),
	}
	for _, opt := range options {
		opt(a)
	}
	return a
}

// Connect establishes the broker connection. It is a no-op while a connection
// is live, in which case the application name is left as it is.
func (a *App) Connect(ctx context.Context, creds Credentials, appName string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.conn != nil {
		a.logger.Debug("already connected", zap.String("app", a.appName))
		return nil
	}
	conn, err := a.dial(ctx, creds)
	if err != nil {
		return err
	}
	a.conn = conn
	if appName != "" {
		a.setAppNameLocked(appName)
	}
	a.logger.Info("broker connected",
		zap.String("addr", creds.Addr),
		zap.Int("db", creds.DB),
		zap.String("app", a.appNameLocked()))
	return nil
}

// Disconnect releases the connection. It is safe to call more than once and
// from any goroutine.
func (a *App) Disconnect() error {
	a.mu.Lock()
	conn, sub := a.conn, a.sub
	a.conn, a.sub = nil, nil
	a.mu.Unlock()

	if conn == nil {
		return nil
	}
	if sub != nil {
		_ = sub.Close()
	}
	err := conn.Close()
	a.logger.Info("broker disconnected")
	return err
}

func (a *App) Connected() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.conn != nil
}

// AppName returns the identity of this process, generating a unique one the
// first time it is needed if none was set.
func (a *App) AppName() string {
	a.mu.RLock()
	name := a.appName
	a.mu.RUnlock()
	if name != "" {
		return name
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	return a.appNameLocked()
}

func (a *App) SetAppName(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.setAppNameLocked(name)
}

func (a *App) appNameLocked() string {
	if a.appName == "" {
		a.setAppNameLocked(fallbackAppName())
	}
	return a.appName
}

func (a *App) setAppNameLocked(name string) {
	if name == a.appName {
		return
	}
	a.appName = name
	a.logger.Info("app name changed", zap.String("app", name))
}

// Logger returns the logger the App was built with.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// State reports where the listen loop is.
func (a *App) State() State {
	return State(a.state.Load())
}

// Done is closed when the listen loop has stopped.
func (a *App) Done() <-chan struct{} {
	return a.done
}

func (a *App) connection() (Conn, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.conn == nil {
		return nil, ErrNotConnected
	}
	return a.conn, nil
}

// Group returns a view of the App that prefixes every channel with prefix.
func (a *App) Group(prefix string) *Group {
	return &Group{app: a, prefix: prefix}
}
