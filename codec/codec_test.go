package codec

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, v any) any {
	t.Helper()
	s, err := Encode(v)
	require.NoError(t, err)
	out, err := Decode(s)
	require.NoError(t, err)
	return out
}

func TestRoundTripPlainValues(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{"null", nil},
		{"bool", true},
		{"integer", int64(42)},
		{"negative", int64(-7)},
		{"float", 1.25},
		{"string", "hello, 世界"},
		{"sequence", []any{int64(1), "two", false, nil}},
		{"mapping", map[string]any{"a": int64(1), "b": "x"}},
		{"nested", map[string]any{
			"list": []any{map[string]any{"k": []any{"v"}}},
			"blob": []byte{0, 1, 2, 0xff},
		}},
		{"bytes", []byte("raw\x00bytes")},
		{"empty bytes", []byte{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.value, roundTrip(t, tt.value))
		})
	}
}

func TestRoundTripTimestampKeepsOffset(t *testing.T) {
	zone := time.FixedZone("", 8*60*60)
	at := time.Date(2024, 5, 1, 12, 30, 0, 123456000, zone)

	out := roundTrip(t, map[string]any{"at": at, "list": []any{at}})
	m, ok := out.(map[string]any)
	require.True(t, ok)

	for _, got := range []any{m["at"], m["list"].([]any)[0]} {
		ts, ok := got.(time.Time)
		require.True(t, ok, "expected time.Time, got %T", got)
		assert.True(t, ts.Equal(at))
		_, offset := ts.Zone()
		assert.Equal(t, 8*60*60, offset)
	}
}

func TestEncodeTagsNonNativeValues(t *testing.T) {
	at := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	s, err := Encode(map[string]any{"at": at, "blob": []byte("hi")})
	require.NoError(t, err)

	assert.Contains(t, s, `"<`+"\u200b"+`lt-p:dtm>:2020-01-02T03:04:05Z"`)
	assert.Contains(t, s, `"<`+"\u200b"+`lt-p:b64>:aGk="`)
}

func TestEncodePathIsPlainString(t *testing.T) {
	out := roundTrip(t, map[string]any{"file": Path("/var/data/a.txt")})
	assert.Equal(t, map[string]any{"file": "/var/data/a.txt"}, out)
}

type valueError struct{ msg string }

func (e *valueError) Error() string { return e.msg }

type namedError struct{}

func (namedError) Error() string     { return "bad" }
func (namedError) ErrorType() string { return "ValueError" }

func TestEncodeErrorIsOneWayText(t *testing.T) {
	out := roundTrip(t, []any{&valueError{msg: "bad input"}, namedError{}})
	assert.Equal(t, []any{"*codec.valueError: bad input", "ValueError: bad"}, out)
}

type inner struct {
	Seen time.Time `json:"seen"`
}

type payload struct {
	inner
	Embedded
	Name    string            `json:"name"`
	Count   int               `json:"count,omitempty"`
	Data    []byte            `json:"data"`
	Tags    map[string]string `json:"tags"`
	Skipped string            `json:"-"`
	Plain   float32
	hidden  int
}

type Embedded struct {
	Kind string `json:"kind"`
}

func TestEncodeStructFollowsJSONTags(t *testing.T) {
	seen := time.Date(2022, 3, 4, 5, 6, 7, 0, time.UTC)
	p := payload{
		inner:    inner{Seen: seen},
		Embedded: Embedded{Kind: "k"},
		Name:     "n",
		Data:     []byte{1},
		Tags:     map[string]string{"a": "b"},
		Skipped:  "x",
		Plain:    0.5,
		hidden:   3,
	}
	out := roundTrip(t, p).(map[string]any)

	got, ok := out["seen"].(time.Time)
	require.True(t, ok, "promoted field from unexported embedded struct")
	assert.True(t, got.Equal(seen))
	delete(out, "seen")

	assert.Equal(t, map[string]any{
		"kind":  "k",
		"name":  "n",
		"data":  []byte{1},
		"tags":  map[string]any{"a": "b"},
		"Plain": 0.5,
	}, out)
}

func TestBindKeepsPromotedFields(t *testing.T) {
	seen := time.Date(2022, 3, 4, 5, 6, 7, 0, time.UTC)
	src := roundTrip(t, payload{inner: inner{Seen: seen}, Name: "n"})

	var dst payload
	require.NoError(t, Bind(src, &dst))
	assert.True(t, dst.Seen.Equal(seen))
	assert.Equal(t, "n", dst.Name)
}

func TestBindIntoStruct(t *testing.T) {
	at := time.Date(2021, 6, 7, 8, 9, 10, 0, time.FixedZone("", -5*60*60))
	src := roundTrip(t, map[string]any{"seen": at, "name": "n", "count": 3, "data": []byte("xyz")})

	var dst struct {
		Seen  time.Time `json:"seen"`
		Name  string    `json:"name"`
		Count int       `json:"count"`
		Data  []byte    `json:"data"`
	}
	require.NoError(t, Bind(src, &dst))
	assert.True(t, dst.Seen.Equal(at))
	assert.Equal(t, "n", dst.Name)
	assert.Equal(t, 3, dst.Count)
	assert.Equal(t, []byte("xyz"), dst.Data)
}

func TestDecodeForeignPayload(t *testing.T) {
	raw := `{"headers": {"litter-name": "py"}, "body": {"at": "<` + "\u200b" + `lt-p:dtm>:2024-05-01T12:30:00.123456+08:00", "n": 1.5, "i": 3}}`
	v, err := Decode(raw)
	require.NoError(t, err)

	body := v.(map[string]any)["body"].(map[string]any)
	at, ok := body["at"].(time.Time)
	require.True(t, ok)
	assert.Equal(t, 123456000, at.Nanosecond())
	assert.Equal(t, 1.5, body["n"])
	assert.Equal(t, int64(3), body["i"])
}

func TestDecodeNaiveTimestampAsLocal(t *testing.T) {
	v, err := Decode(`"<` + "\u200b" + `lt-p:dtm>:2024-05-01T12:30:00.5"`)
	require.NoError(t, err)
	at := v.(time.Time)
	assert.Equal(t, time.Local, at.Location())
	assert.Equal(t, 12, at.Hour())
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		tag  string
	}{
		{"bad base64", `{"b": "<` + "\u200b" + `lt-p:b64>:***"}`, TagBase64},
		{"bad timestamp", `["<` + "\u200b" + `lt-p:dtm>:yesterday"]`, TagDatetime},
		{"not json", `{"headers":`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrDecode))

			var de *DecodeError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, tt.tag, de.Tag)
		})
	}
}

func TestDecodeLeavesUnknownMarkersAlone(t *testing.T) {
	s := "<\u200blt-p:xyz>:payload"
	v, err := Decode(`"` + s + `"`)
	require.NoError(t, err)
	assert.Equal(t, s, v)
}

func TestEncodeUnsupportedType(t *testing.T) {
	_, err := Encode(map[string]any{"ch": make(chan int)})
	var ue *UnsupportedTypeError
	require.True(t, errors.As(err, &ue))
	assert.True(t, strings.Contains(ue.Error(), "chan int"))
}

func TestTypeName(t *testing.T) {
	assert.Equal(t, "*errors.errorString", TypeName(errors.New("x")))
	assert.Equal(t, "ValueError", TypeName(namedError{}))
}
