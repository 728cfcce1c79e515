package broker

import (
	"errors"
	"math"
	"strconv"
	"time"

	"github.com/mrjvadi/litter/codec"
)

// Response is a decoded envelope: a reply to a request, or the content of any
// message seen on a channel.
type Response struct {
	Headers Headers
	Body    any
}

func (r *Response) RequestID() string    { return r.Headers.String(HeaderRequestID) }
func (r *Response) ReplyAddress() string { return r.Headers.String(HeaderResponseQueue) }

// Success reports whether the reply carries no exception.
func (r *Response) Success() bool { return !r.Headers.Has(HeaderExceptionType) }

func (r *Response) ExceptionType() string    { return r.Headers.String(HeaderExceptionType) }
func (r *Response) ExceptionMessage() string { return r.Headers.String(HeaderExceptionMessage) }

// Bind decodes the body into v.
func (r *Response) Bind(v any) error {
	return codec.Bind(r.Body, v)
}

// Err returns a *RemoteError when the reply carries an exception.
func (r *Response) Err() error {
	if r.Success() {
		return nil
	}
	return &RemoteError{Type: r.ExceptionType(), Message: r.ExceptionMessage(), Response: r}
}

func encodeEnvelope(headers Headers, body any) (string, error) {
	return codec.Encode(map[string]any{
		fieldHeaders: map[string]any(headers),
		fieldBody:    body,
	})
}

func decodeEnvelope(payload string) (*Response, error) {
	v, err := codec.Decode(payload)
	if err != nil {
		return nil, err
	}
	doc, ok := v.(map[string]any)
	if !ok {
		return nil, &codec.DecodeError{Value: payload, Err: errors.New("envelope is not an object")}
	}
	resp := &Response{Headers: Headers{}, Body: doc[fieldBody]}
	if h, ok := doc[fieldHeaders].(map[string]any); ok {
		resp.Headers = h
	}
	return resp, nil
}

// requestTimeout reads the caller's timeout header, which is a number of
// seconds.
func requestTimeout(h Headers) (time.Duration, bool) {
	var secs float64
	switch v := h[HeaderRequestTimeout].(type) {
	case int64:
		secs = float64(v)
	case int:
		secs = float64(v)
	case float64:
		secs = v
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		secs = f
	default:
		return 0, false
	}
	if secs <= 0 || math.IsNaN(secs) || math.IsInf(secs, 0) {
		return 0, false
	}
	return time.Duration(secs * float64(time.Second)), true
}

// wholeSeconds rounds d up to a whole number of seconds, the resolution of
// blocking pops and key expiry.
func wholeSeconds(d time.Duration) int64 {
	secs := int64(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}
	return secs
}

// ReplyAddress is the list a request's reply is pushed to.
func ReplyAddress(channel, requestID string) string {
	return ReplyPrefix + channel + ":" + requestID
}
