// Package document provides the structured-document libraries used to
// serialize envelopes. A library is chosen by name at configuration time,
// so deployments can swap JSON implementations without rebuilding callers.
//
// Built-in libraries:
//   - "encoding/json": the standard library encoder (default)
//   - "jsoniter": github.com/json-iterator/go in standard-compatible mode
//   - "segmentio": github.com/segmentio/encoding/json
//
// Serialized documents can be queried without decoding through Lookup,
// which is backed by github.com/tidwall/gjson.
package document

import (
	"fmt"
	"sort"
	"sync"

	"github.com/tidwall/gjson"

	"github.com/rhuss/jsonhandler/pkg/api"
)

// DefaultLibrary is used when no library name is configured.
const DefaultLibrary = "encoding/json"

// Library builds and parses structured documents.
type Library interface {
	// Name returns the registered name of the library.
	Name() string

	// MarshalIndent serializes v as an indented document.
	MarshalIndent(v any) ([]byte, error)

	// Unmarshal parses data into v.
	Unmarshal(data []byte, v any) error
}

var (
	mu        sync.RWMutex
	libraries = map[string]Library{}
)

func init() {
	Register(stdLibrary{})
	Register(jsoniterLibrary{})
	Register(segmentioLibrary{})
}

// Register makes lib available to Bind under lib.Name(). Registering a
// name twice replaces the earlier library.
func Register(lib Library) {
	mu.Lock()
	defer mu.Unlock()
	libraries[lib.Name()] = lib
}

// Bind returns the library registered under name. An empty name selects
// DefaultLibrary. Unknown names return api.ErrLibraryNotFound.
func Bind(name string) (Library, error) {
	if name == "" {
		name = DefaultLibrary
	}
	mu.RLock()
	defer mu.RUnlock()
	lib, ok := libraries[name]
	if !ok {
		return nil, fmt.Errorf("%w: document library %q", api.ErrLibraryNotFound, name)
	}
	return lib, nil
}

// Names returns the registered library names in sorted order.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(libraries))
	for name := range libraries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup reads the value at path (gjson syntax, e.g. "meta.requestHandle")
// from a serialized document.
func Lookup(doc []byte, path string) gjson.Result {
	return gjson.GetBytes(doc, path)
}
