// Package envelope converts an Exchange into the api.Envelope handed to the
// external handler.
package envelope

import (
	"encoding/hex"
	"fmt"
	"unicode/utf8"

	"github.com/rhuss/jsonhandler/pkg/api"
	"github.com/rhuss/jsonhandler/pkg/document"
	"github.com/rhuss/jsonhandler/pkg/exchange"
	"github.com/rhuss/jsonhandler/pkg/handle"
)

// Build describes ex as an envelope carrying h. It has no side effects.
//
// Headers with the same name collapse to the last occurrence. The body is
// reported as a file path when spooled, as text when it is valid UTF-8
// (including the empty body), and as lowercase hex otherwise.
func Build(ex *exchange.Exchange, h handle.Handle) *api.Envelope {
	env := &api.Envelope{
		Meta: api.Meta{
			RequestHandle: int64(h),
			URI:           ex.URI,
			Args:          ex.Args,
			UnparsedURI:   ex.UnparsedURI,
			Method:        ex.Method,
			Protocol:      ex.Protocol,
		},
		Headers: make(map[string]string, len(ex.Header)),
		Data:    buildData(ex.Body),
	}
	for _, f := range ex.Header {
		env.Headers[f.Name] = f.Value
	}
	return env
}

func buildData(b *exchange.Body) api.Data {
	if b.Spooled() {
		path := b.Path()
		return api.Data{File: &path}
	}
	raw := b.Bytes()
	if utf8.Valid(raw) {
		text := string(raw)
		return api.Data{UTF8: &text}
	}
	encoded := HexEncode(raw)
	return api.Data{Hex: &encoded}
}

// HexEncode returns the lowercase hex form of b, two characters per byte.
func HexEncode(b []byte) string {
	return hex.EncodeToString(b)
}

// HexDecode reverses HexEncode.
func HexDecode(s string) ([]byte, error) {
	return hex.DecodeString(s)
}

// Encode serializes env as an indented document with lib.
func Encode(lib document.Library, env *api.Envelope) ([]byte, error) {
	data, err := lib.MarshalIndent(env)
	if err != nil {
		return nil, fmt.Errorf("encoding envelope with %s: %w", lib.Name(), err)
	}
	return data, nil
}

// Decode parses an envelope produced by Encode.
func Decode(lib document.Library, data []byte) (*api.Envelope, error) {
	var env api.Envelope
	if err := lib.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decoding envelope with %s: %w", lib.Name(), err)
	}
	return &env, nil
}
