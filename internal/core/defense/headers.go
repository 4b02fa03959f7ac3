package defense

import "net/http"

// SecurityHeaders are set on every allowed response.
var SecurityHeaders = [...][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"X-XSS-Protection", "1; mode=block"},
	{"Strict-Transport-Security", "max-age=31536000; includeSubDomains"},
	{"Content-Security-Policy", "default-src 'self'"},
}

// ApplySecurityHeaders sets SecurityHeaders on h.
func ApplySecurityHeaders(h http.Header) {
	for _, kv := range SecurityHeaders {
		h.Set(kv[0], kv[1])
	}
}
