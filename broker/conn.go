package broker

import (
	"context"
	"time"
)

// Conn is the broker substrate the runtime is built on. Any pub/sub system
// offering these primitives can back an App; the default is Redis.
type Conn interface {
	// Publish sends payload to channel and returns the number of receivers.
	Publish(ctx context.Context, channel, payload string) (int64, error)
	// PSubscribe subscribes to patterns and returns once the broker has
	// confirmed every one of them.
	PSubscribe(ctx context.Context, patterns ...string) (Subscription, error)
	// BPop blocks until key holds an element or timeout elapses. ok is false
	// on timeout.
	BPop(ctx context.Context, key string, timeout time.Duration) (payload string, ok bool, err error)
	// Push appends payload to the list at key and sets its time to live.
	Push(ctx context.Context, key, payload string, ttl time.Duration) error
	Close() error
}

// Subscription delivers messages for the patterns it was created with.
type Subscription interface {
	// Receive waits up to timeout for the next message. It returns a nil
	// message and nil error when nothing arrived in time, and ErrClosed once
	// the subscription is gone.
	Receive(ctx context.Context, timeout time.Duration) (*Message, error)
	Close() error
}

// Message is a raw broker delivery.
type Message struct {
	Kind    string // "message" or "pmessage"
	Channel string
	Pattern string
	Payload string
}

// Key is what the registry dispatches on: the literal channel for direct
// messages and the subscribing pattern for pattern messages.
func (m *Message) Key() string {
	if m.Kind == kindPMessage {
		return m.Pattern
	}
	return m.Channel
}

// Credentials locate and authenticate against the broker.
type Credentials struct {
	Addr     string
	Username string
	Password string
	DB       int
}

// Dialer opens a Conn. DialRedis is used unless WithDialer says otherwise.
type Dialer func(ctx context.Context, creds Credentials) (Conn, error)
