package api

// Envelope is the document handed to the external handler for every
// forwarded exchange. It is built once and never modified.
type Envelope struct {
	Meta    Meta              `json:"meta"`
	Headers map[string]string `json:"headers"`
	Data    Data              `json:"data"`
}

// Meta carries the request line of the forwarded exchange and the handle
// the handler must echo back on the response channel.
type Meta struct {
	RequestHandle int64  `json:"requestHandle"`
	URI           string `json:"uri"`
	Args          string `json:"args"`
	UnparsedURI   string `json:"unparsedUri"`
	Method        string `json:"method"`
	Protocol      string `json:"protocol"`
}

// Data describes the request body. Exactly one field is non-nil: File when
// the body was spooled to disk, UTF8 when the bytes are valid text, Hex
// otherwise. Nil fields serialize as JSON null.
type Data struct {
	UTF8 *string `json:"utf8"`
	Hex  *string `json:"hex"`
	File *string `json:"file"`
}

// Kind reports which representation is set: "file", "utf8", "hex", or ""
// when none is.
func (d Data) Kind() string {
	switch {
	case d.File != nil:
		return "file"
	case d.UTF8 != nil:
		return "utf8"
	case d.Hex != nil:
		return "hex"
	default:
		return ""
	}
}

// Valid reports whether exactly one representation is set.
func (d Data) Valid() bool {
	n := 0
	for _, p := range []*string{d.UTF8, d.Hex, d.File} {
		if p != nil {
			n++
		}
	}
	return n == 1
}
