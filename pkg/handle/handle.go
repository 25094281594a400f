// Package handle implements the correlation handle that identifies a
// suspended exchange between its forward and response-channel requests.
//
// A handle is a generation-checked index into a per-process table rather
// than a raw address: the low 32 bits hold the slot index plus one, the high
// bits hold the slot generation. Releasing a slot bumps its generation, so
// a handle that has been used once, or that belongs to an exchange that has
// already finished, never resolves again. Handle 0 never resolves.
package handle

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rhuss/jsonhandler/pkg/api"
)

// MaxLength is the longest textual handle Parse accepts.
const MaxLength = 31

// Handle is an opaque, process-local identity of a suspended exchange.
type Handle int64

// String returns the decimal form used in envelopes and headers.
func (h Handle) String() string {
	return strconv.FormatInt(int64(h), 10)
}

func (h Handle) index() (uint32, bool) {
	low := uint32(uint64(h) & 0xffffffff)
	if low == 0 {
		return 0, false
	}
	return low - 1, true
}

func (h Handle) generation() uint32 {
	return uint32(uint64(h) >> 32)
}

func makeHandle(index, gen uint32) Handle {
	return Handle(int64(gen)<<32 | int64(index+1))
}

// Parse decodes a handle received in a header. Decimal and C-style
// prefixed forms (0x hexadecimal, leading 0 octal) are accepted. The whole
// string must be consumed and fit in 64 bits; anything else is
// api.ErrMalformedHandle.
func Parse(s string) (Handle, error) {
	if s == "" {
		return 0, fmt.Errorf("%w: empty value", api.ErrMalformedHandle)
	}
	if len(s) > MaxLength {
		return 0, fmt.Errorf("%w: length %d exceeds %d", api.ErrMalformedHandle, len(s), MaxLength)
	}
	// strconv accepts digit separators with base 0.
	if strings.ContainsRune(s, '_') {
		return 0, fmt.Errorf("%w: value %q", api.ErrMalformedHandle, s)
	}
	v, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: value %q", api.ErrMalformedHandle, s)
	}
	return Handle(v), nil
}
