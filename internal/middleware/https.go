// Package middleware holds small, composable HTTP wrappers for the
// admin/metrics/webhook surface.
package middleware

import (
	"net/http"
	"strings"
)

// ForceHTTPS wraps h. If the request is plain HTTP and the host is not
// "localhost", it issues a 308 Permanent Redirect to the HTTPS version of
// the same URL. Otherwise it calls the next handler unchanged.
//
// Unlike the multi-tenant original this wrapper serves one bot identity
// behind one host, so there is no per-host existence check to consult
// first.
func ForceHTTPS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.TLS != nil || stripPort(r.Host) == "localhost" {
			h.ServeHTTP(w, r)
			return
		}

		target := "https://" + r.Host + r.URL.RequestURI()
		http.Redirect(w, r, target, http.StatusPermanentRedirect)
	})
}

// stripPort removes the :port suffix from Host when present.
func stripPort(h string) string {
	if i := strings.IndexByte(h, ':'); i != -1 {
		return h[:i]
	}
	return h
}
