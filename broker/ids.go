package broker

import (
	"encoding/hex"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// newRequestID returns 32 hex characters.
func newRequestID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

func fallbackAppName() string {
	return "<unknown_client:" + ulid.Make().String() + ">"
}
