package exchange

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rhuss/jsonhandler/pkg/api"
)

// DefaultMemoryLimit is the largest body kept in memory when no limit is
// configured.
const DefaultMemoryLimit = 1 << 20

// SpoolOptions controls where request bodies are buffered.
type SpoolOptions struct {
	// MemoryLimit is the largest body kept in memory. Larger bodies are
	// written to a temporary file. Zero means DefaultMemoryLimit; a negative
	// value spools every non-empty body.
	MemoryLimit int64

	// TempDir is the directory for spooled bodies. Empty means os.TempDir().
	TempDir string
}

func (o SpoolOptions) limit() int64 {
	switch {
	case o.MemoryLimit == 0:
		return DefaultMemoryLimit
	case o.MemoryLimit < 0:
		return 0
	default:
		return o.MemoryLimit
	}
}

// Body is a request body held in memory or in a spooled file.
type Body struct {
	data []byte
	path string
	size int64
}

// NewBody returns an in-memory body holding data.
func NewBody(data []byte) *Body {
	return &Body{data: data, size: int64(len(data))}
}

// Spooled reports whether the body lives in a file.
func (b *Body) Spooled() bool {
	return b != nil && b.path != ""
}

// Path returns the absolute path of a spooled body, or "".
func (b *Body) Path() string {
	if b == nil {
		return ""
	}
	return b.path
}

// Bytes returns the in-memory content. It is nil for spooled bodies.
func (b *Body) Bytes() []byte {
	if b == nil {
		return nil
	}
	return b.data
}

// Size returns the body length in bytes.
func (b *Body) Size() int64 {
	if b == nil {
		return 0
	}
	return b.size
}

// Open returns a reader over the full body.
func (b *Body) Open() (io.ReadCloser, error) {
	if !b.Spooled() {
		return io.NopCloser(bytes.NewReader(b.Bytes())), nil
	}
	f, err := os.Open(b.path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening spooled body: %v", api.ErrBodyAccess, err)
	}
	return f, nil
}

// Detach moves the content into a new Body and leaves b empty. In-memory
// content is copied into a fresh buffer; a spooled file changes owner.
func (b *Body) Detach() *Body {
	if b == nil {
		return NewBody(nil)
	}
	out := &Body{path: b.path, size: b.size}
	if b.path == "" {
		out.data = bytes.Clone(b.data)
	}
	b.data, b.path, b.size = nil, "", 0
	return out
}

// Close removes the spooled file, if any.
func (b *Body) Close() error {
	if b == nil || b.path == "" {
		return nil
	}
	path := b.path
	b.path = ""
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// ReadBody buffers r into a Body according to opts.
func ReadBody(r io.Reader, opts SpoolOptions) (*Body, error) {
	limit := opts.limit()

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, limit+1))
	if err != nil {
		return nil, bodyError(err)
	}
	if n <= limit {
		return &Body{data: buf.Bytes(), size: n}, nil
	}

	f, err := os.CreateTemp(opts.TempDir, "jsonhandler-body-*")
	if err != nil {
		return nil, fmt.Errorf("%w: creating spool file: %v", api.ErrBodyAccess, err)
	}
	path, err := filepath.Abs(f.Name())
	if err != nil {
		path = f.Name()
	}
	body := &Body{path: path}

	written, err := io.Copy(f, io.MultiReader(&buf, r))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		body.Close()
		return nil, bodyError(err)
	}
	body.size = written
	return body, nil
}

// bodyError keeps *http.MaxBytesError visible to callers and classifies
// everything else as api.ErrBodyAccess.
func bodyError(err error) error {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return err
	}
	return fmt.Errorf("%w: %v", api.ErrBodyAccess, err)
}
