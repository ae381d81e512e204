package tinycdn

import (
	"path/filepath"
	"strings"

	rpath "github.com/rickb777/path"
)

const indexPage = "index.html"

// group names the encoding bucket a request resolves to.
type group string

const (
	groupRaw     group = "raw"
	groupGzip    group = "gzip"
	groupDeflate group = "deflate"
)

// sanitize implements spec.md §4.2: strip the query string and rewrite a
// trailing "/" to "/index.html" when autoIndex is on (otherwise report a
// directory request). The result is still a "/"-separated URL path;
// relPath does the translation to the platform separator.
//
// rawURL is the full request URL path (already stripped of scheme/host by
// net/http); stripPrefix follows the teacher's StripOff/path.Drop
// convention for discarding a cache-busting URL segment before lookup.
func (r *resolved) sanitize(rawURL string) (cleanURL string, isDirectory bool) {
	u := rawURL
	if i := strings.IndexByte(u, '?'); i >= 0 {
		u = u[:i]
	}

	if r.stripPrefix > 0 {
		u = rpath.Drop(u, r.stripPrefix)
		if !strings.HasPrefix(u, "/") {
			u = "/" + u
		}
	}

	if strings.HasSuffix(u, "/") {
		if r.autoIndex {
			u += indexPage
		} else {
			return u, true
		}
	}

	return u, false
}

// relPath converts a sanitized URL into a filesystem-style relative path
// (no leading slash, platform separators).
func relPath(cleanURL string) string {
	rel := strings.TrimPrefix(cleanURL, "/")
	if filepath.Separator != '/' {
		rel = strings.ReplaceAll(rel, "/", string(filepath.Separator))
	}
	return rel
}

// chooseGroup implements spec.md §3's encoding-group precedence: gzip wins
// over deflate when both are advertised; a non-compressible extension (or
// compression disabled entirely) always resolves to raw.
func (r *resolved) chooseGroup(cleanURL, acceptEncoding string) group {
	if !r.compressionEnabled || !r.isCompressible(cleanURL) {
		return groupRaw
	}

	accept := commaSeparatedList(acceptEncoding)
	switch {
	case accept.Contains("gzip"):
		return groupGzip
	case accept.Contains("deflate"):
		return groupDeflate
	default:
		return groupRaw
	}
}

func (r *resolved) isCompressible(cleanURL string) bool {
	ext := filepath.Ext(cleanURL)
	if ext == "" {
		return false
	}
	_, ok := r.compressible[ext]
	return ok
}

// channelKey is the single-flight key across which concurrent requests for
// the same (asset, encoding) are coalesced: "group:url".
func channelKey(g group, cleanURL string) string {
	return string(g) + ":" + cleanURL
}
