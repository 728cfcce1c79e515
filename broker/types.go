package broker

// Header keys and the reply prefix are part of the wire format shared with
// every other process on the broker.
const (
	HeaderName             = "litter-name"
	HeaderDatetime         = "litter-datetime"
	HeaderRequestID        = "litter-request-id"
	HeaderResponseQueue    = "litter-response-queue"
	HeaderRequestTimeout   = "litter-request-timeout"
	HeaderPublishChannel   = "litter-publish-channel"
	HeaderExceptionType    = "litter-exception-type"
	HeaderExceptionMessage = "litter-exception-message"

	ReplyPrefix = "LRQ:"

	fieldHeaders = "headers"
	fieldBody    = "body"

	kindMessage  = "message"
	kindPMessage = "pmessage"
)

// HandlerFunc handles one inbound message. A non-nil result is sent back as
// the reply body when the message is a request; returning a *Response also
// merges its headers into the reply.
type HandlerFunc func(c *Context) (any, error)

// Headers carries envelope metadata. Values are strings or numbers.
type Headers map[string]any

// Clone returns a shallow copy; a nil receiver yields an empty map.
func (h Headers) Clone() Headers {
	out := make(Headers, len(h)+4)
	for k, v := range h {
		out[k] = v
	}
	return out
}

// String returns the header value as a string, or "" when absent or not a string.
func (h Headers) String(key string) string {
	s, _ := h[key].(string)
	return s
}

// Has reports whether key is present.
func (h Headers) Has(key string) bool {
	_, ok := h[key]
	return ok
}
