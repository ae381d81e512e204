package converger

import (
	"net"
	"testing"

	"github.com/rickb777/expect"
	"github.com/spf13/afero"

	"github.com/rickb777/tinycdn/internal/compress"
	"github.com/rickb777/tinycdn/internal/digest"
	"github.com/rickb777/tinycdn/internal/fsops"
)

func TestLocalStatAndWriteStream(t *testing.T) {
	source := afero.NewMemMapFs()
	expect.Error(afero.WriteFile(source, "/app.js", []byte("console.log(1)"), 0644)).Not().ToHaveOccurred(t)

	local := &Local{SourceOps: fsops.New(source), DestOps: fsops.New(afero.NewMemMapFs())}

	err := local.WriteStream("/app.js", "/app.js.gzip", "gzip", compress.DefaultCompression)
	expect.Error(err).Not().ToHaveOccurred(t)

	st, err := local.Stat(TreeDest, "/app.js.gzip")
	expect.Error(err).Not().ToHaveOccurred(t)
	expect.Any(st.IsFile).ToBe(t, true)

	sha256, err := digest.Resolve("sha256")
	expect.Error(err).Not().ToHaveOccurred(t)
	hash, err := local.Hash(TreeSource, sha256, "/app.js")
	expect.Error(err).Not().ToHaveOccurred(t)
	expect.Number(len(hash)).ToBe(t, 64)
}

// TestWorkerMasterRoundTrip exercises the full IPC path: a Worker dialing a
// Master over a TCP loopback connection, with each reply matched to its
// request by id.
func TestWorkerMasterRoundTrip(t *testing.T) {
	source := afero.NewMemMapFs()
	expect.Error(afero.WriteFile(source, "/app.js", []byte("console.log(1)"), 0644)).Not().ToHaveOccurred(t)

	local := &Local{SourceOps: fsops.New(source), DestOps: fsops.New(afero.NewMemMapFs())}
	master := &Master{Local: local}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	expect.Error(err).Not().ToHaveOccurred(t)
	defer ln.Close()

	go master.Serve(ln)

	worker := &Worker{Dial: func() (net.Conn, error) { return net.Dial("tcp", ln.Addr().String()) }}

	st, err := worker.Stat(TreeSource, "/app.js")
	expect.Error(err).Not().ToHaveOccurred(t)
	expect.Number(st.Size).ToBe(t, int64(14))
	expect.Any(st.IsFile).ToBe(t, true)

	_, err = worker.Stat(TreeSource, "/missing.js")
	expect.Error(err).ToHaveOccurred(t)
}
