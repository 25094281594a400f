package binding

import (
	"fmt"
	"log/slog"

	"github.com/rhuss/jsonhandler/pkg/api"
	"github.com/rhuss/jsonhandler/pkg/debug"
)

// SymbolSubmit is the entry point receiving a serialized envelope:
//
//	int submit_json_request(const char* req_json);
//
// It returns 0 when the request was accepted.
const SymbolSubmit = "submit_json_request"

// Symbols lists every entry point a handler library must export.
var Symbols = []string{SymbolSubmit}

// Library is an opened shared object.
type Library interface {
	// Lookup returns the address of the named symbol.
	Lookup(name string) (uintptr, error)
}

// Loader opens shared objects by file name.
type Loader interface {
	Open(filename string) (Library, error)
}

// Table holds the bound entry points of one handler library.
type Table struct {
	library  string
	filename string
	submit   func(string) int32
}

// Library returns the configured library name.
func (t *Table) Library() string { return t.library }

// Filename returns the shared object file that was opened.
func (t *Table) Filename() string { return t.filename }

// Submit passes envelope to submit_json_request and returns its result.
func (t *Table) Submit(envelope string) int {
	return int(t.submit(envelope))
}

// Bind opens the handler library named name with the platform loader.
func Bind(name string) (*Table, error) {
	return BindWith(defaultLoader{}, name)
}

// BindWith opens the handler library with loader. Failures wrap
// api.ErrLibraryNotFound or are an *api.SymbolMissingError.
func BindWith(loader Loader, name string) (*Table, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: no handler library configured", api.ErrLibraryNotFound)
	}
	filename := LibraryFilename(name)

	lib, err := loader.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", api.ErrLibraryNotFound, filename, err)
	}

	addrs := make(map[string]uintptr, len(Symbols))
	for _, sym := range Symbols {
		addr, err := lib.Lookup(sym)
		if err != nil || addr == 0 {
			slog.Error("handler library symbol missing", "library", filename, "symbol", sym, "error", err)
			return nil, &api.SymbolMissingError{Library: filename, Name: sym}
		}
		debug.Log("binding", "symbol resolved", "library", filename, "symbol", sym)
		addrs[sym] = addr
	}

	t := &Table{library: name, filename: filename}
	registerFunc(&t.submit, addrs[SymbolSubmit])
	slog.Info("handler library bound", "library", filename, "symbols", len(Symbols))
	return t, nil
}

// NewTable builds a Table around an in-process submit function. It is
// used where the handler is linked into the binary rather than loaded.
func NewTable(name string, submit func(envelope string) int) *Table {
	return &Table{
		library:  name,
		filename: name,
		submit:   func(s string) int32 { return int32(submit(s)) },
	}
}
