package tinycdn

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/rickb777/tinycdn/internal/converger"
	"github.com/rickb777/tinycdn/internal/fsops"
)

// dispatch is the outcome of one channel's production episode: everything
// every coalesced responder needs to write its own response. It is built
// once (spec.md §4.6 step 7) and only ever read afterwards, so it is safe
// to share across goroutines without copying.
type dispatch struct {
	cleanURL string
	g        group
	target   string
	st       fsops.Stat
	etag     string
}

// ServeHTTP implements the full request state machine of spec.md §4.6.
func (a *Assets) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		a.logger().Debug("method not allowed",
			zap.String("method", req.Method), zap.String("url", req.URL.Path),
			zap.Stringer("headers", headerStringer(req.Header)))
		a.writeNotAllowed(w)
		return
	}

	cleanURL, isDirectory := a.cfg.sanitize(req.URL.Path)
	if isDirectory {
		a.serveNotFound(w, req, errDirectoryRequest)
		return
	}

	g := a.cfg.chooseGroup(cleanURL, req.Header.Get("Accept-Encoding"))
	key := channelKey(g, cleanURL)

	v, held, err := a.channels.Do(key, func() (interface{}, error) {
		return a.produce(cleanURL, g)
	})
	if err != nil {
		if a.cfg.onError != nil {
			a.cfg.onError(err, cleanURL, held)
		}
		a.serveNotFound(w, req, err)
		return
	}

	d := v.(dispatch)
	a.serve(w, req, d)

	if a.cfg.onResponse != nil {
		a.cfg.onResponse(nil, cleanURL)
	}
}

// produce runs the leader-only portion of the state machine: stat, and if
// necessary materialize the compressed artifact and/or etag sidecar. It is
// only ever invoked once per channel episode, however many responders are
// attached (golang.org/x/sync/singleflight.Group's contract).
func (a *Assets) produce(cleanURL string, g group) (dispatch, error) {
	rel := relPath(cleanURL)

	target := rel
	targetTree := converger.TreeSource
	if g != groupRaw {
		target = rel + "." + string(g)
		targetTree = converger.TreeDest
	}

	st, err := a.conv.Stat(targetTree, target)
	switch {
	case err != nil && g == groupRaw:
		return dispatch{}, err

	case err != nil:
		st, err = a.materializeCompressed(rel, target, string(g))
		if err != nil {
			return dispatch{}, err
		}

	case !st.IsFile:
		return dispatch{}, errNotFile
	}

	etag, err := a.etagFor(rel, target, string(g))
	if err != nil {
		return dispatch{}, err
	}

	return dispatch{cleanURL: cleanURL, g: g, target: target, st: st, etag: etag}, nil
}

// materializeCompressed implements spec.md §4.6 step 5: verify the source
// exists, build the compressed artifact next to it in the destination tree,
// then re-stat the now-materialized target (the tail-call back into
// "primary stat" that the spec describes).
func (a *Assets) materializeCompressed(sourcePath, targetPath, g string) (fsops.Stat, error) {
	if _, err := a.conv.Stat(converger.TreeSource, sourcePath); err != nil {
		return fsops.Stat{}, err
	}

	if err := a.conv.MkdirAll("", targetPath); err != nil {
		return fsops.Stat{}, err
	}

	if err := a.conv.WriteStream(sourcePath, targetPath, g, a.cfg.level); err != nil {
		return fsops.Stat{}, err
	}

	return a.conv.Stat(converger.TreeDest, targetPath)
}

// etagFor implements spec.md §4.6 step 6. An empty, nil-error return means
// ETag support is disabled for this response.
func (a *Assets) etagFor(rel, target, g string) (string, error) {
	if !a.cfg.etagEnabled {
		return "", nil
	}

	sidecar := rel + "." + g + "." + a.cfg.algorithm.Name

	if content, err := a.conv.ReadFile(sidecar); err == nil {
		return string(content), nil
	}

	tree := converger.TreeSource
	if g != string(groupRaw) {
		tree = converger.TreeDest
	}
	etag, err := a.conv.Hash(tree, a.cfg.algorithm, target)
	if err != nil {
		return "", err
	}

	if err := a.conv.MkdirAll("", sidecar); err != nil {
		return "", err
	}
	if err := a.conv.WriteFile(sidecar, []byte(etag)); err != nil {
		return "", err
	}

	return etag, nil
}

// httpDate renders t the way Last-Modified/Expires need it.
func httpDate(t time.Time) string {
	return t.UTC().Format(http.TimeFormat)
}
