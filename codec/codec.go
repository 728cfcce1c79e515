// Package codec turns values into the text payloads carried by the broker and
// back again.
//
// The substrate is JSON. Values JSON cannot carry losslessly are written as
// strings behind a reserved marker (a tag guarded by a zero-width space) so
// the decoder can restore them:
//
//	time.Time  -> "<\u200blt-p:dtm>:" + RFC 3339 timestamp with offset
//	[]byte     -> "<\u200blt-p:b64>:" + standard base64
//
// Path values are written as plain strings and come back as strings. Errors
// are written one way as "{type}: {message}" and are never decoded back.
// Integers decode as int64 and other numbers as float64.
package codec

import (
	"encoding"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

const (
	TagDatetime = "dtm"
	TagBase64   = "b64"

	marker         = "<\u200blt-p:"
	prefixDatetime = marker + TagDatetime + ">:"
	prefixBase64   = marker + TagBase64 + ">:"
)

// Path is a filesystem path. It is encoded as a plain string.
type Path string

var (
	wire = sonic.Config{
		SortMapKeys:      true,
		CompactMarshaler: true,
		CopyString:       true,
		ValidateString:   true,
		UseNumber:        true,
	}.Froze()

	bind = sonic.ConfigStd
)

var timeType = reflect.TypeOf(time.Time{})

// Encode renders v as a broker message.
func Encode(v any) (string, error) {
	n, err := normalize(v)
	if err != nil {
		return "", err
	}
	return wire.MarshalToString(n)
}

// Decode parses a broker message and restores every tagged string leaf to its
// typed form.
func Decode(s string) (any, error) {
	var v any
	if err := wire.UnmarshalFromString(s, &v); err != nil {
		return nil, &DecodeError{Value: truncate(s), Err: err}
	}
	return restore(v)
}

// Bind copies a decoded value into dst, which follows encoding/json rules.
// Timestamps and byte blobs bind to time.Time and []byte fields.
func Bind(src any, dst any) error {
	b, err := bind.Marshal(src)
	if err != nil {
		return fmt.Errorf("codec: bind: %w", err)
	}
	if err := bind.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("codec: bind: %w", err)
	}
	return nil
}

// TypeName returns the name an error travels under: ErrorType() when the error
// provides one, otherwise its Go type.
func TypeName(err error) string {
	var named interface{ ErrorType() string }
	if errors.As(err, &named) {
		return named.ErrorType()
	}
	return fmt.Sprintf("%T", err)
}

func normalize(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case string, bool, json.Number,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return x, nil
	case time.Time:
		return prefixDatetime + x.Format(time.RFC3339Nano), nil
	case *time.Time:
		if x == nil {
			return nil, nil
		}
		return prefixDatetime + x.Format(time.RFC3339Nano), nil
	case []byte:
		if x == nil {
			return nil, nil
		}
		return prefixBase64 + base64.StdEncoding.EncodeToString(x), nil
	case Path:
		return string(x), nil
	case error:
		if rv := reflect.ValueOf(x); rv.Kind() == reflect.Pointer && rv.IsNil() {
			return nil, nil
		}
		return TypeName(x) + ": " + x.Error(), nil
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			n, err := normalize(e)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			n, err := normalize(e)
			if err != nil {
				return nil, err
			}
			out[k] = n
		}
		return out, nil
	case json.Marshaler, encoding.TextMarshaler:
		return x, nil
	}
	return normalizeValue(reflect.ValueOf(v))
}

func normalizeValue(rv reflect.Value) (any, error) {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
		return normalize(rv.Elem().Interface())
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint(), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.String:
		return rv.String(), nil
	case reflect.Slice:
		if rv.IsNil() {
			return nil, nil
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return normalize(rv.Bytes())
		}
		fallthrough
	case reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			n, err := normalize(rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case reflect.Map:
		if rv.IsNil() {
			return nil, nil
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k, err := mapKey(iter.Key())
			if err != nil {
				return nil, err
			}
			n, err := normalize(iter.Value().Interface())
			if err != nil {
				return nil, err
			}
			out[k] = n
		}
		return out, nil
	case reflect.Struct:
		if rv.Type().ConvertibleTo(timeType) {
			return normalize(rv.Convert(timeType).Interface())
		}
		out := make(map[string]any)
		if err := structFields(rv, out); err != nil {
			return nil, err
		}
		return out, nil
	}
	return nil, &UnsupportedTypeError{Type: rv.Type()}
}

func mapKey(k reflect.Value) (string, error) {
	switch k.Kind() {
	case reflect.String:
		return k.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(k.Uint(), 10), nil
	}
	return "", &UnsupportedTypeError{Type: k.Type()}
}

// structFields flattens the exported fields of rv into out, honouring json
// tags the way encoding/json does for names, "-" and omitempty.
func structFields(rv reflect.Value, out map[string]any) error {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		tag := f.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		fv := rv.Field(i)

		// Exported fields promoted from an embedded struct are flattened
		// even when the embedded type itself is unexported.
		if f.Anonymous && name == "" {
			ft := f.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct && ft != timeType {
				if fv.Kind() == reflect.Pointer {
					if fv.IsNil() {
						continue
					}
					fv = fv.Elem()
				}
				if err := structFields(fv, out); err != nil {
					return err
				}
				continue
			}
		}
		if !f.IsExported() {
			continue
		}
		if name == "" {
			name = f.Name
		}
		if strings.Contains(opts, "omitempty") && isEmpty(fv) {
			continue
		}
		n, err := normalize(fv.Interface())
		if err != nil {
			return fmt.Errorf("field %s: %w", f.Name, err)
		}
		out[name] = n
	}
	return nil
}

func isEmpty(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Interface, reflect.Pointer:
		return v.IsNil()
	}
	return false
}

func restore(v any) (any, error) {
	switch x := v.(type) {
	case map[string]any:
		for k, e := range x {
			r, err := restore(e)
			if err != nil {
				return nil, err
			}
			x[k] = r
		}
		return x, nil
	case []any:
		for i, e := range x {
			r, err := restore(e)
			if err != nil {
				return nil, err
			}
			x[i] = r
		}
		return x, nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i, nil
		}
		f, err := x.Float64()
		if err != nil {
			return nil, &DecodeError{Value: x.String(), Err: err}
		}
		return f, nil
	case string:
		return restoreString(x)
	}
	return v, nil
}

func restoreString(s string) (any, error) {
	if !strings.HasPrefix(s, marker) {
		return s, nil
	}
	switch {
	case strings.HasPrefix(s, prefixDatetime):
		raw := s[len(prefixDatetime):]
		t, err := parseTime(raw)
		if err != nil {
			return nil, &DecodeError{Tag: TagDatetime, Value: raw, Err: err}
		}
		return t, nil
	case strings.HasPrefix(s, prefixBase64):
		raw := s[len(prefixBase64):]
		b, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return nil, &DecodeError{Tag: TagBase64, Value: truncate(raw), Err: err}
		}
		return b, nil
	}
	return s, nil
}

// Peers that send naive timestamps are read in local time.
var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err == nil {
		return t, nil
	}
	if t, lerr := time.Parse("2006-01-02 15:04:05.999999999Z07:00", s); lerr == nil {
		return t, nil
	}
	for _, layout := range localLayouts {
		if t, lerr := time.ParseInLocation(layout, s, time.Local); lerr == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

func truncate(s string) string {
	const max = 64
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
