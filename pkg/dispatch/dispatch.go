package dispatch

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rhuss/jsonhandler/pkg/api"
	"github.com/rhuss/jsonhandler/pkg/binding"
)

// Backend names accepted by New.
const (
	BackendLibrary = "library"
	BackendHTTP    = "http"
	BackendNATS    = "nats"
	BackendEcho    = "echo"
)

// Dispatcher submits an envelope and reports the handler's exit code.
// An error means the handler could not be reached at all.
type Dispatcher interface {
	Submit(ctx context.Context, envelope []byte) (int, error)
}

// Func is an adapter that allows using an ordinary function as a Dispatcher.
type Func func(ctx context.Context, envelope []byte) (int, error)

// Submit calls f(ctx, envelope).
func (f Func) Submit(ctx context.Context, envelope []byte) (int, error) {
	return f(ctx, envelope)
}

// Options selects and configures a backend.
type Options struct {
	Backend string

	// Library names the handler library for the library backend.
	Library string
	// Loader overrides the platform loader. Nil uses dlopen.
	Loader binding.Loader
	// Reentrant lets the library be called concurrently.
	Reentrant bool

	// URL is the handler endpoint for the http backend.
	URL     string
	Timeout time.Duration

	NATSURL     string
	NATSSubject string

	// ResponseURL and CorrelationHeader configure the echo backend.
	ResponseURL       string
	CorrelationHeader string
}

// New builds the Dispatcher named by opts.Backend. An empty backend
// selects the library backend.
func New(opts Options) (Dispatcher, error) {
	switch opts.Backend {
	case BackendLibrary, "":
		var (
			t   *binding.Table
			err error
		)
		if opts.Loader != nil {
			t, err = binding.BindWith(opts.Loader, opts.Library)
		} else {
			t, err = binding.Bind(opts.Library)
		}
		if err != nil {
			return nil, err
		}
		lib := NewLibrary(t)
		lib.Reentrant = opts.Reentrant
		return lib, nil
	case BackendHTTP:
		if opts.URL == "" {
			return nil, fmt.Errorf("http backend requires a handler url")
		}
		return NewHTTP(opts.URL, opts.Timeout), nil
	case BackendNATS:
		n, err := NewNATS(opts.NATSURL, opts.NATSSubject, opts.Timeout)
		if err != nil {
			return nil, err
		}
		return n, nil
	case BackendEcho:
		if opts.ResponseURL == "" {
			return nil, fmt.Errorf("echo backend requires a response url")
		}
		return NewEcho(opts.ResponseURL, opts.CorrelationHeader, opts.Timeout), nil
	default:
		return nil, fmt.Errorf("%w: unknown handler backend %q", api.ErrLibraryNotFound, opts.Backend)
	}
}

// Close releases backend resources when d holds any.
func Close(d Dispatcher) error {
	if c, ok := d.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
