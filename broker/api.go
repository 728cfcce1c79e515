package broker

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type CallOption func(*callOptions)

type callOptions struct {
	headers Headers
}

// WithHeaders adds headers to the outgoing envelope. Reserved headers set by
// the runtime take precedence, except the request timeout.
func WithHeaders(h Headers) CallOption {
	return func(o *callOptions) {
		for k, v := range h {
			o.headers[k] = v
		}
	}
}

func WithHeader(key string, value any) CallOption {
	return func(o *callOptions) {
		o.headers[key] = value
	}
}

func applyCallOptions(opts []CallOption) callOptions {
	o := callOptions{headers: Headers{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func validateChannel(channel string) error {
	if channel == "" || strings.IndexFunc(channel, unicode.IsSpace) >= 0 {
		return invalidChannel(channel)
	}
	return nil
}

// Publish sends body to channel without waiting for anyone. The returned count
// is how many subscribers the broker delivered to; zero is not an error.
func (a *App) Publish(ctx context.Context, channel string, body any, opts ...CallOption) (int64, error) {
	if err := validateChannel(channel); err != nil {
		return 0, err
	}
	o := applyCallOptions(opts)
	return a.publish(ctx, channel, body, o.headers)
}

func (a *App) publish(ctx context.Context, channel string, body any, headers Headers) (int64, error) {
	conn, err := a.connection()
	if err != nil {
		return 0, err
	}

	headers[HeaderName] = a.AppName()
	headers[HeaderDatetime] = time.Now().Format(time.RFC3339Nano)
	payload, err := encodeEnvelope(headers, body)
	if err != nil {
		return 0, fmt.Errorf("publish %s: %w", channel, err)
	}

	ctx, span := a.tracer.Start(ctx, "litter.publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(attribute.String("litter.channel", channel)))
	defer span.End()

	n, err := conn.Publish(ctx, channel, payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("publish %s: %w", channel, err)
	}
	return n, nil
}

// ticket correlates one outgoing request with its reply list.
type ticket struct {
	requestID string
	replyTo   string
	wait      time.Duration
}

func newTicket(channel string, timeout time.Duration, headers Headers) ticket {
	t := ticket{requestID: newRequestID()}
	t.replyTo = ReplyAddress(channel, t.requestID)

	headers[HeaderRequestID] = t.requestID
	headers[HeaderResponseQueue] = t.replyTo
	if !headers.Has(HeaderRequestTimeout) {
		headers[HeaderRequestTimeout] = wholeSeconds(timeout)
	}
	t.wait, _ = requestTimeout(headers)
	if t.wait <= 0 {
		t.wait = timeout
	}
	return t
}

// Request publishes body to channel and blocks until the reply arrives or
// timeout passes. Timeouts are rounded up to whole seconds.
//
// No reply yields a *TimeoutError, after a best-effort notice on
// "{channel}:timeout". A reply carrying an exception yields a *RemoteError.
func (a *App) Request(ctx context.Context, channel string, body any, timeout time.Duration, opts ...CallOption) (*Response, error) {
	if timeout <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTimeout, timeout)
	}
	if err := validateChannel(channel); err != nil {
		return nil, err
	}
	conn, err := a.connection()
	if err != nil {
		return nil, err
	}

	o := applyCallOptions(opts)
	t := newTicket(channel, timeout, o.headers)

	ctx, span := a.tracer.Start(ctx, "litter.request",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("litter.channel", channel),
			attribute.String("litter.request_id", t.requestID),
		))
	defer span.End()

	start := time.Now()
	resp, err := a.roundTrip(ctx, conn, channel, body, o.headers, t)
	a.metrics.requested(channel, err, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return resp, nil
}

func (a *App) roundTrip(ctx context.Context, conn Conn, channel string, body any, headers Headers, t ticket) (*Response, error) {
	if _, err := a.publish(ctx, channel, body, headers); err != nil {
		return nil, err
	}

	payload, ok, err := conn.BPop(ctx, t.replyTo, time.Duration(wholeSeconds(t.wait))*time.Second)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", channel, err)
	}
	if !ok {
		if _, err := a.publish(context.WithoutCancel(ctx), channel+":timeout", body, headers.Clone()); err != nil {
			a.logger.Debug("timeout notice not published", zap.String("channel", channel), zap.Error(err))
		}
		return nil, &TimeoutError{Channel: channel, Timeout: t.wait}
	}

	resp, err := decodeEnvelope(payload)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", channel, err)
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	return resp, nil
}

// IterRequest publishes body to channel and returns an iterator over the
// replies of every handler that answers. Each Next waits up to timeout;
// iteration ends at the first wait that sees nothing, or after maxCount
// replies when maxCount > 0. Replies carrying exceptions are yielded as they
// are.
func (a *App) IterRequest(ctx context.Context, channel string, body any, timeout time.Duration, maxCount int, opts ...CallOption) (*ReplyIterator, error) {
	if timeout <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTimeout, timeout)
	}
	if err := validateChannel(channel); err != nil {
		return nil, err
	}
	conn, err := a.connection()
	if err != nil {
		return nil, err
	}

	o := applyCallOptions(opts)
	o.headers[HeaderRequestTimeout] = wholeSeconds(timeout)
	t := newTicket(channel, timeout, o.headers)

	if _, err := a.publish(ctx, channel, body, o.headers); err != nil {
		return nil, err
	}
	return &ReplyIterator{
		conn:    conn,
		channel: channel,
		ticket:  t,
		max:     maxCount,
		metrics: a.metrics,
	}, nil
}
