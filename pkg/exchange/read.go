package exchange

import "net/http"

// Read captures r as an Exchange, consuming its body.
func Read(r *http.Request, opts SpoolOptions) (*Exchange, error) {
	ex := &Exchange{
		URI:         r.URL.Path,
		Args:        r.URL.RawQuery,
		UnparsedURI: r.RequestURI,
		Method:      r.Method,
		Protocol:    r.Proto,
	}
	h := r.Header
	if r.Host != "" && h.Get("Host") == "" {
		h = h.Clone()
		h.Set("Host", r.Host)
	}
	ex.Header = headerFields(h)
	if ex.UnparsedURI == "" {
		ex.UnparsedURI = r.URL.RequestURI()
	}

	if r.Body == nil || r.Body == http.NoBody {
		ex.Body = NewBody(nil)
		return ex, nil
	}
	body, err := ReadBody(r.Body, opts)
	if err != nil {
		return nil, err
	}
	ex.Body = body
	return ex, nil
}
