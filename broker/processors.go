package broker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/mrjvadi/litter/codec"
)

// panicError carries a recovered handler panic back as an ordinary failure.
type panicError struct {
	value any
	stack []byte
}

func (e *panicError) Error() string     { return fmt.Sprint(e.value) }
func (e *panicError) ErrorType() string { return "panic" }

// process runs one handler on a worker and then completes the message.
func (a *App) process(c *Context, h HandlerFunc) {
	ctx, span := a.tracer.Start(c.ctx, "litter.handle",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("litter.channel", c.Channel()),
			attribute.String("litter.pattern", c.Pattern()),
			attribute.String("litter.request_id", c.RequestID()),
		))
	defer span.End()
	c.ctx = ctx

	start := time.Now()
	ret, err := invoke(c, h)
	failure := err
	if errors.Is(err, SkipReply) {
		failure = nil
	}
	a.metrics.handled(c.msg.Key(), failure, time.Since(start))
	if failure != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	a.complete(c, ret, err)
}

func invoke(c *Context, h HandlerFunc) (ret any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r, stack: debug.Stack()}
		}
	}()
	return h(c)
}

// complete turns a handler outcome into a reply when the sender asked for one.
func (a *App) complete(c *Context, ret any, err error) {
	if errors.Is(err, SkipReply) {
		return
	}
	if err != nil {
		fields := []zap.Field{zap.String("channel", c.Channel()), zap.Error(err)}
		if pe, ok := err.(*panicError); ok {
			fields = append(fields, zap.ByteString("stack", pe.stack))
		}
		a.wlog.Error("exception while handling message", fields...)
		if !c.IsRequest() {
			return
		}
		a.reply(c, nil, Headers{
			HeaderExceptionType:    codec.TypeName(err),
			HeaderExceptionMessage: err.Error(),
		})
		return
	}

	if !c.IsRequest() {
		if ret != nil {
			a.wlog.Warn("unhandled response", zap.String("channel", c.Channel()), zap.Any("response", ret))
		}
		return
	}

	var headers Headers
	if r, ok := ret.(*Response); ok {
		ret = nil
		if r != nil {
			headers, ret = r.Headers, r.Body
		}
	}
	a.reply(c, ret, headers)
}

func (a *App) reply(c *Context, body any, extra Headers) {
	addr := c.ReplyAddress()
	headers := extra.Clone()
	headers[HeaderPublishChannel] = c.Channel()
	headers[HeaderRequestID] = c.RequestID()
	headers[HeaderName] = a.AppName()
	headers[HeaderResponseQueue] = addr
	headers[HeaderDatetime] = time.Now().Format(time.RFC3339Nano)

	payload, err := encodeEnvelope(headers, body)
	if err != nil {
		a.wlog.Error("reply body not encodable", zap.String("channel", c.Channel()), zap.Error(err))
		headers[HeaderExceptionType] = codec.TypeName(err)
		headers[HeaderExceptionMessage] = err.Error()
		body = nil
		if payload, err = encodeEnvelope(headers, nil); err != nil {
			a.wlog.Error("reply headers not encodable", zap.Error(err))
			return
		}
	}

	ttl, ok := requestTimeout(c.Headers())
	if !ok {
		ttl = DefaultRequestTimeout
	}

	conn, err := a.connection()
	if err != nil {
		a.wlog.Error("cannot reply", zap.String("reply_to", addr), zap.Error(err))
		return
	}
	ctx := context.WithoutCancel(c.ctx)
	if err := conn.Push(ctx, addr, payload, time.Duration(wholeSeconds(ttl))*time.Second); err != nil {
		a.wlog.Error("reply push failed", zap.String("reply_to", addr), zap.Error(err))
		return
	}
	a.metrics.replied(headers.Has(HeaderExceptionType))

	observed := map[string]any{fieldHeaders: map[string]any(headers), fieldBody: body}
	if _, err := a.publish(ctx, c.Channel()+":response", observed, Headers{}); err != nil {
		a.wlog.Debug("response observation not published", zap.Error(err))
	}
}
