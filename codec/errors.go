package codec

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrDecode is matched by every *DecodeError.
var ErrDecode = errors.New("codec: decode error")

// DecodeError reports a payload that is not valid JSON or a tagged value whose
// rendering cannot be parsed.
type DecodeError struct {
	Tag   string
	Value string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Tag == "" {
		return fmt.Sprintf("codec: decode %q: %v", e.Value, e.Err)
	}
	return fmt.Sprintf("codec: decode %s value %q: %v", e.Tag, e.Value, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// UnsupportedTypeError is returned by Encode for values with no wire form
// (channels, functions, complex numbers, maps with non-scalar keys).
type UnsupportedTypeError struct {
	Type reflect.Type
}

func (e *UnsupportedTypeError) Error() string {
	return "codec: unsupported type " + e.Type.String()
}
