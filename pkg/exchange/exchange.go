package exchange

import (
	"net/http"
	"sort"
	"strings"
)

// HeaderField is one header occurrence.
type HeaderField struct {
	Name  string
	Value string
}

// Header is an ordered multimap of header fields. Duplicate names are kept
// in arrival order.
type Header []HeaderField

// Get returns the first value for name, compared case-insensitively.
func (h Header) Get(name string) (string, bool) {
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			return f.Value, true
		}
	}
	return "", false
}

// Exchange is an inbound HTTP transaction as seen by the bridge.
type Exchange struct {
	URI         string // decoded path
	Args        string // raw query string
	UnparsedURI string // request target as received
	Method      string
	Protocol    string
	Header      Header
	Body        *Body
}

// Close releases the body.
func (e *Exchange) Close() error {
	if e == nil || e.Body == nil {
		return nil
	}
	return e.Body.Close()
}

// headerFields flattens h into fields sorted by canonical name. Values of
// one name keep their arrival order.
func headerFields(h http.Header) Header {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)

	var out Header
	for _, name := range names {
		for _, v := range h[name] {
			out = append(out, HeaderField{Name: name, Value: v})
		}
	}
	return out
}
