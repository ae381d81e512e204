package tinycdn

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rickb777/expect"
	"github.com/spf13/afero"
)

// countingFs wraps an afero.Fs and counts calls to Create, so a test can
// assert a write-producing path ran exactly once despite many concurrent
// callers.
type countingFs struct {
	afero.Fs
	created int32
}

func (c *countingFs) Create(name string) (afero.File, error) {
	atomic.AddInt32(&c.created, 1)
	return c.Fs.Create(name)
}

func newTestAssets(t *testing.T, cfg Config) *Assets {
	t.Helper()
	a, err := New(cfg)
	expect.Error(err).Not().ToHaveOccurred(t)
	return a
}

func TestNewRequiresSourceAndDest(t *testing.T) {
	_, err := New(Config{})
	expect.Error(err).ToHaveOccurred(t)

	_, err = New(Config{Source: afero.NewMemMapFs()})
	expect.Error(err).ToHaveOccurred(t)
}

func TestServeHTTPRawFile(t *testing.T) {
	source := afero.NewMemMapFs()
	expect.Error(afero.WriteFile(source, "/app.js", []byte("console.log(1)"), 0644)).Not().ToHaveOccurred(t)

	a := newTestAssets(t, Config{Source: source, Dest: afero.NewMemMapFs()})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/app.js", nil)
	a.ServeHTTP(w, req)

	expect.Number(w.Code).ToBe(t, http.StatusOK)
	expect.String(w.Body.String()).ToBe(t, "console.log(1)")
	expect.String(w.Header().Get("X-Served-By")).ToBe(t, "tinyCDN")
}

func TestServeHTTPHeadHasNoBody(t *testing.T) {
	source := afero.NewMemMapFs()
	expect.Error(afero.WriteFile(source, "/app.js", []byte("console.log(1)"), 0644)).Not().ToHaveOccurred(t)

	a := newTestAssets(t, Config{Source: source, Dest: afero.NewMemMapFs()})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodHead, "/app.js", nil)
	a.ServeHTTP(w, req)

	expect.Number(w.Code).ToBe(t, http.StatusOK)
	expect.Number(w.Body.Len()).ToBe(t, 0)
	expect.String(w.Header().Get("Content-Length")).ToBe(t, "14")
}

func TestServeHTTPMissingFileIs404(t *testing.T) {
	a := newTestAssets(t, Config{Source: afero.NewMemMapFs(), Dest: afero.NewMemMapFs()})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/missing.js", nil)
	req.Header.Set("Accept", "text/plain")
	a.ServeHTTP(w, req)

	expect.Number(w.Code).ToBe(t, http.StatusNotFound)
	expect.String(w.Body.String()).ToBe(t, "Not Found")
}

func TestServeHTTPNotFoundNegotiatesJSON(t *testing.T) {
	a := newTestAssets(t, Config{Source: afero.NewMemMapFs(), Dest: afero.NewMemMapFs()})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/missing.js", nil)
	req.Header.Set("Accept", "application/json")
	a.ServeHTTP(w, req)

	expect.Number(w.Code).ToBe(t, http.StatusNotFound)
	expect.String(w.Body.String()).ToBe(t, `{"error":"Not found"}`)
}

func TestServeHTTPMethodNotAllowed(t *testing.T) {
	a := newTestAssets(t, Config{Source: afero.NewMemMapFs(), Dest: afero.NewMemMapFs()})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/app.js", nil)
	a.ServeHTTP(w, req)

	expect.Number(w.Code).ToBe(t, http.StatusMethodNotAllowed)
	expect.String(w.Header().Get("Allow")).ToBe(t, "GET, HEAD")
}

func TestServeHTTPDirectoryWithoutAutoIndexIs404(t *testing.T) {
	no := false
	a := newTestAssets(t, Config{Source: afero.NewMemMapFs(), Dest: afero.NewMemMapFs(), AutoIndex: &no})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/css/", nil)
	a.ServeHTTP(w, req)

	expect.Number(w.Code).ToBe(t, http.StatusNotFound)
}

func TestServeHTTPAutoIndexRewritesToIndexHTML(t *testing.T) {
	source := afero.NewMemMapFs()
	expect.Error(afero.WriteFile(source, "/css/index.html", []byte("<html/>"), 0644)).Not().ToHaveOccurred(t)

	a := newTestAssets(t, Config{Source: source, Dest: afero.NewMemMapFs()})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/css/", nil)
	a.ServeHTTP(w, req)

	expect.Number(w.Code).ToBe(t, http.StatusOK)
	expect.String(w.Body.String()).ToBe(t, "<html/>")
}

func TestServeHTTPETagRoundTrip(t *testing.T) {
	source := afero.NewMemMapFs()
	expect.Error(afero.WriteFile(source, "/app.js", []byte("console.log(1)"), 0644)).Not().ToHaveOccurred(t)

	dest := afero.NewMemMapFs()
	a := newTestAssets(t, Config{Source: source, Dest: dest, ETag: "true"})

	w1 := httptest.NewRecorder()
	a.ServeHTTP(w1, httptest.NewRequest(http.MethodGet, "/app.js", nil))
	expect.Number(w1.Code).ToBe(t, http.StatusOK)
	etag := w1.Header().Get("ETag")
	expect.String(etag).Not().ToBe(t, "")

	// The sidecar should now exist, so a second producer call (issued by a
	// fresh request, not a coalesced one) takes the readFile branch of
	// spec.md §4.6 step 6 rather than recomputing the hash.
	w2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodGet, "/app.js", nil)
	req2.Header.Set("If-None-Match", etag)
	a.ServeHTTP(w2, req2)

	expect.Number(w2.Code).ToBe(t, http.StatusNotModified)
	expect.Number(w2.Body.Len()).ToBe(t, 0)
}

func TestServeHTTPCompressesCompressibleExtensions(t *testing.T) {
	source := afero.NewMemMapFs()
	body := strings.Repeat("console.log(1);", 50)
	expect.Error(afero.WriteFile(source, "/app.js", []byte(body), 0644)).Not().ToHaveOccurred(t)

	a := newTestAssets(t, Config{Source: source, Dest: afero.NewMemMapFs(), Compression: "best"})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/app.js", nil)
	req.Header.Set("Accept-Encoding", "gzip, deflate")
	a.ServeHTTP(w, req)

	expect.Number(w.Code).ToBe(t, http.StatusOK)
	expect.String(w.Header().Get("Content-Encoding")).ToBe(t, "gzip")
	expect.String(w.Header().Get("Vary")).ToBe(t, "Accept-Encoding")

	gz, err := gzip.NewReader(w.Body)
	expect.Error(err).Not().ToHaveOccurred(t)
	decompressed, err := io.ReadAll(gz)
	expect.Error(err).Not().ToHaveOccurred(t)
	expect.String(string(decompressed)).ToBe(t, body)
}

// TestServeHTTPCoalescesConcurrentCompressibleRequests exercises spec.md
// §8's concurrency scenario directly: many simultaneous GETs for the same
// compressible asset must share one producer. internal/fsops.Ops.WriteStream
// is single-flighted per target path, so the destination filesystem should
// see exactly one Create call no matter how many responders were attached,
// and every responder should receive the same ETag.
func TestServeHTTPCoalescesConcurrentCompressibleRequests(t *testing.T) {
	source := afero.NewMemMapFs()
	body := strings.Repeat("console.log(1);", 50)
	expect.Error(afero.WriteFile(source, "/big.js", []byte(body), 0644)).Not().ToHaveOccurred(t)

	dest := &countingFs{Fs: afero.NewMemMapFs()}
	a := newTestAssets(t, Config{Source: source, Dest: dest, Compression: "best", ETag: "true"})

	const n = 100
	recorders := make([]*httptest.ResponseRecorder, n)
	start := make(chan struct{})
	var wg sync.WaitGroup

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/big.js", nil)
			req.Header.Set("Accept-Encoding", "gzip")
			a.ServeHTTP(w, req)
			recorders[i] = w
		}(i)
	}
	close(start)
	wg.Wait()

	var etag string
	for i, w := range recorders {
		expect.Number(w.Code).ToBe(t, http.StatusOK)
		got := w.Header().Get("ETag")
		expect.String(got).Not().ToBe(t, "")
		if i == 0 {
			etag = got
		} else {
			expect.String(got).ToBe(t, etag)
		}
	}

	expect.Number(int(atomic.LoadInt32(&dest.created))).ToBe(t, 1)
}

func TestServeHTTPSkipsCompressionForNonCompressibleExtension(t *testing.T) {
	source := afero.NewMemMapFs()
	expect.Error(afero.WriteFile(source, "/logo.png", []byte{0x89, 'P', 'N', 'G'}, 0644)).Not().ToHaveOccurred(t)

	a := newTestAssets(t, Config{Source: source, Dest: afero.NewMemMapFs(), Compression: "best"})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/logo.png", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	a.ServeHTTP(w, req)

	expect.Number(w.Code).ToBe(t, http.StatusOK)
	expect.String(w.Header().Get("Content-Encoding")).ToBe(t, "")
}
