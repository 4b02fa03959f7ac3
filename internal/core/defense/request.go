package defense

import (
	"net/http"
	"net/url"
)

// Request is the view of an HTTP request the stages inspect.
type Request struct {
	Identity   string     // Client identity (IP address)
	Method     string     // HTTP method
	RawURL     string     // Request URI as received
	DecodedURL string     // RawURL with percent-escapes decoded
	Query      url.Values // Parsed query values
	Header     http.Header
}

// NewRequest builds a Request from r for the given identity.
func NewRequest(r *http.Request, identity string) *Request {
	raw := r.RequestURI
	if raw == "" && r.URL != nil {
		raw = r.URL.RequestURI()
	}

	decoded, err := url.PathUnescape(raw)
	if err != nil {
		decoded = raw
	}

	var query url.Values
	if r.URL != nil {
		// ParseQuery keeps the values it could decode.
		query, _ = url.ParseQuery(r.URL.RawQuery)
	}

	if identity == "" {
		identity = "unknown"
	}

	return &Request{
		Identity:   identity,
		Method:     r.Method,
		RawURL:     raw,
		DecodedURL: decoded,
		Query:      query,
		Header:     r.Header,
	}
}
