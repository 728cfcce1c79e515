package broker

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotConnected is returned by operations that need a broker connection
	// before Connect has succeeded.
	ErrNotConnected = errors.New("broker: not connected, call Connect first")

	// ErrTimeout is matched by every *TimeoutError.
	ErrTimeout = errors.New("broker: request timed out")

	// ErrClosed is returned by a Subscription after it has been closed.
	ErrClosed = errors.New("broker: subscription closed")

	// SkipReply is returned by a handler that looks at a message without
	// answering it, even when the message is a request.
	SkipReply = errors.New("broker: skip reply")

	// ErrConfig is wrapped by every configuration error below.
	ErrConfig = errors.New("broker: configuration error")

	ErrAlreadyListening = fmt.Errorf("%w: listen loop already started", ErrConfig)
	ErrInvalidChannel   = fmt.Errorf("%w: invalid channel name", ErrConfig)
	ErrInvalidTimeout   = fmt.Errorf("%w: timeout must be positive", ErrConfig)
)

// TimeoutError reports a request that got no reply within its deadline.
type TimeoutError struct {
	Channel string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("broker: request %s timed out (%s)", e.Channel, e.Timeout)
}

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// RemoteError reports that the remote handler failed. Only the type name and
// message cross the wire.
type RemoteError struct {
	Type     string
	Message  string
	Response *Response
}

func (e *RemoteError) Error() string {
	return e.Type + ": " + e.Message
}

func invalidChannel(channel string) error {
	return fmt.Errorf("%w %q", ErrInvalidChannel, channel)
}
