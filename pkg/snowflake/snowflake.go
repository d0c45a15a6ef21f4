// Package snowflake decodes 64-bit distributed IDs into creation-order
// timestamps. The high 42 bits of an ID carry milliseconds since the
// service epoch; the low 22 bits carry worker and sequence numbers and
// contribute nothing to wall-clock time.
package snowflake

import (
	"fmt"
	"strconv"
	"time"
)

// Epoch is the service epoch in milliseconds since the Unix epoch
// (2015-01-01T00:00:00Z).
const Epoch int64 = 1420070400000

// timestampShift is the number of low bits reserved for worker/sequence data.
const timestampShift = 22

// ID is a server-assigned snowflake. The zero value means "no ID", which is
// how pending messages and never-written channels are represented.
type ID uint64

// Parse converts the canonical string form of a snowflake into an ID.
func Parse(s string) (ID, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid snowflake %q: %w", s, err)
	}
	return ID(n), nil
}

// IsZero reports whether the ID is unset.
func (id ID) IsZero() bool {
	return id == 0
}

// Time recovers the creation timestamp encoded in the ID. Only relative
// ordering between IDs from the same issuer is guaranteed, not exact
// wall-clock precision.
func (id ID) Time() time.Time {
	ms := int64(id>>timestampShift) + Epoch
	return time.UnixMilli(ms)
}

// Before reports whether id was created before other by encoded timestamp.
func (id ID) Before(other ID) bool {
	return id>>timestampShift < other>>timestampShift
}

// After reports whether id was created after other by encoded timestamp.
func (id ID) After(other ID) bool {
	return id>>timestampShift > other>>timestampShift
}

// String returns the canonical decimal form used on the wire.
func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// MarshalJSON encodes the ID as a JSON string. Snowflakes exceed the safe
// integer range of JSON consumers, so the wire form is always a string.
func (id ID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.String() + `"`), nil
}

// UnmarshalJSON accepts both the string wire form and a bare integer.
func (id *ID) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	if s == "" || s == "null" {
		*id = 0
		return nil
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
