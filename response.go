package tinycdn

import (
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// defaultMIMEType is used when mime.TypeByExtension has no mapping for the
// cleaned URL's extension, per spec.md §4.6 step 7.
const defaultMIMEType = "application/octet-stream"

// servedBy is the value of the X-Served-By header on every response,
// spec.md §4.6 step 7.
const servedBy = "tinyCDN"

// serve implements spec.md §4.6 step 7 for a single responder. The header
// set built here is specific to this responder only in that If-None-Match
// and the HEAD/GET distinction are read from req; everything derived from
// d is identical across every responder attached to the same channel.
func (a *Assets) serve(w http.ResponseWriter, req *http.Request, d dispatch) {
	h := w.Header()

	h.Set("Content-Type", contentType(d.cleanURL))
	h.Set("Content-Length", strconv.FormatInt(d.st.Size, 10))
	h.Set("Last-Modified", httpDate(d.st.LastModified))
	h.Set("X-Served-By", servedBy)

	if d.g != groupRaw {
		h.Set("Content-Encoding", string(d.g))
		h.Set("Vary", "Accept-Encoding")
	}

	if a.cfg.corsOrigin != "" {
		h.Set("Access-Control-Allow-Origin", a.cfg.corsOrigin)
	}

	if a.cfg.etagEnabled && d.etag != "" {
		h.Set("ETag", d.etag)
		if a.cfg.maxAge > 0 {
			h.Set("Cache-Control", "public, max-age="+strconv.Itoa(a.cfg.maxAgeS))
			h.Set("Expires", httpDate(time.Now().Add(a.cfg.maxAge)))
		}

		if inm := req.Header.Get("If-None-Match"); inm != "" && inm == d.etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	if req.Method == http.MethodHead {
		return
	}

	a.writeBody(w, d)
}

// writeBody opens its own stream onto the artifact named by d.target — one
// open read stream per responder, as spec.md §4.6 requires even when many
// responders were coalesced onto the same producer.
func (a *Assets) writeBody(w http.ResponseWriter, d dispatch) {
	ops := a.destOps
	if d.g == groupRaw {
		ops = a.sourceOps
	}

	body, err := ops.Open(d.target)
	if err != nil {
		a.logger().Error("tinycdn: open body stream failed", zap.Error(err))
		return
	}
	defer body.Close()

	if _, err := io.Copy(w, body); err != nil {
		a.logger().Error("tinycdn: stream body failed", zap.Error(err))
	}
}

func contentType(cleanURL string) string {
	ext := extOf(cleanURL)
	if ext == "" {
		return defaultMIMEType
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return defaultMIMEType
}

// extOf duplicates filepath.Ext's semantics without importing path/filepath
// here, since cleanURL is always a "/"-separated URL path, not a platform
// path (see resolved.sanitize/relPath for where that translation happens).
func extOf(cleanURL string) string {
	for i := len(cleanURL) - 1; i >= 0 && cleanURL[i] != '/'; i-- {
		if cleanURL[i] == '.' {
			return cleanURL[i:]
		}
	}
	return ""
}
