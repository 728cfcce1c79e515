package broker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrjvadi/litter/codec"
)

func TestRequestTimeoutHeader(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  time.Duration
		ok    bool
	}{
		{"int64", int64(3), 3 * time.Second, true},
		{"int", 2, 2 * time.Second, true},
		{"float", 1.5, 1500 * time.Millisecond, true},
		{"string", "4", 4 * time.Second, true},
		{"absent", nil, 0, false},
		{"zero", int64(0), 0, false},
		{"negative", -1.0, 0, false},
		{"garbage", "soon", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := Headers{}
			if tt.value != nil {
				h[HeaderRequestTimeout] = tt.value
			}
			got, ok := requestTimeout(h)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWholeSecondsRoundsUp(t *testing.T) {
	assert.Equal(t, int64(1), wholeSeconds(time.Millisecond))
	assert.Equal(t, int64(1), wholeSeconds(time.Second))
	assert.Equal(t, int64(2), wholeSeconds(1001*time.Millisecond))
	assert.Equal(t, int64(15), wholeSeconds(DefaultRequestTimeout))
}

func TestReplyAddress(t *testing.T) {
	assert.Equal(t, "LRQ:svc:echo:abc", ReplyAddress("svc:echo", "abc"))
}

func TestEnvelopeRoundTrip(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	payload, err := encodeEnvelope(Headers{HeaderName: "n", HeaderRequestTimeout: 5}, map[string]any{"at": at})
	require.NoError(t, err)

	resp, err := decodeEnvelope(payload)
	require.NoError(t, err)
	assert.Equal(t, "n", resp.Headers.String(HeaderName))
	assert.Equal(t, int64(5), resp.Headers[HeaderRequestTimeout])

	var body struct {
		At time.Time `json:"at"`
	}
	require.NoError(t, resp.Bind(&body))
	assert.True(t, body.At.Equal(at))
}

func TestDecodeEnvelopeRejectsNonObjects(t *testing.T) {
	_, err := decodeEnvelope(`[1, 2]`)
	assert.ErrorIs(t, err, codec.ErrDecode)

	resp, err := decodeEnvelope(`{"body": "bare"}`)
	require.NoError(t, err)
	assert.Empty(t, resp.Headers)
	assert.Equal(t, "bare", resp.Body)
}

func TestResponseErr(t *testing.T) {
	ok := &Response{Headers: Headers{}}
	assert.NoError(t, ok.Err())
	assert.True(t, ok.Success())

	failed := &Response{Headers: Headers{HeaderExceptionType: "KeyError", HeaderExceptionMessage: "'k'"}}
	err := failed.Err()
	var re *RemoteError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "KeyError: 'k'", err.Error())
	assert.Same(t, failed, re.Response)
}

func TestContextReplyAddress(t *testing.T) {
	msg := &Message{Kind: kindPMessage, Channel: "svc:a", Pattern: "svc:*"}

	explicit := &Context{msg: msg, env: &Response{Headers: Headers{HeaderResponseQueue: "LRQ:elsewhere:1", HeaderRequestID: "1"}}}
	assert.Equal(t, "LRQ:elsewhere:1", explicit.ReplyAddress())
	assert.True(t, explicit.IsRequest())

	derived := &Context{msg: msg, env: &Response{Headers: Headers{HeaderRequestID: "7"}}}
	assert.Equal(t, "LRQ:svc:a:7", derived.ReplyAddress())

	notification := &Context{msg: msg, env: &Response{Headers: Headers{}}}
	assert.Empty(t, notification.ReplyAddress())
	assert.False(t, notification.IsRequest())
}

func TestHeadersClone(t *testing.T) {
	var nilHeaders Headers
	assert.NotNil(t, nilHeaders.Clone())

	h := Headers{"a": "1", "n": int64(2)}
	c := h.Clone()
	c["a"] = "changed"
	assert.Equal(t, "1", h.String("a"))
	assert.Empty(t, h.String("n"))
	assert.True(t, h.Has("n"))
}
