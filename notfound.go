package tinycdn

import (
	"net/http"
	"strings"
)

// serveNotFound implements spec.md §7's negotiation: HTML, then JSON, then
// plain text, chosen by substring presence in Accept — matching §4.6's
// Accept-Encoding matching style rather than a full q-value parser.
func (a *Assets) serveNotFound(w http.ResponseWriter, req *http.Request, _ error) {
	accept := req.Header.Get("Accept")

	switch {
	case strings.Contains(accept, "text/html"):
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(a.cfg.notFoundHTML))

	case strings.Contains(accept, "application/json"):
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(a.cfg.notFoundJSON))

	default:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(a.cfg.notFoundText))
	}
}

// writeNotAllowed implements spec.md §1's supplemented method filtering:
// only GET and HEAD are meaningful for a static-asset handler.
func (a *Assets) writeNotAllowed(w http.ResponseWriter) {
	w.Header().Set("Allow", "GET, HEAD")
	http.Error(w, methodNotAllowed.String(), int(methodNotAllowed))
}
