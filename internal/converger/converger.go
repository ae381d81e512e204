// Package converger implements the master-bound file authority described
// in spec.md §4.5. When a process runs standalone, Local collapses to a
// pass-through over the two local fsops.Ops trees. When clustering is
// enabled, Worker proxies every file-producing operation to a single
// Master process over a length-prefixed JSON connection, so that at most
// one producer for any given destination path exists cluster-wide.
package converger

import (
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/rickb777/tinycdn/internal/compress"
	"github.com/rickb777/tinycdn/internal/digest"
	"github.com/rickb777/tinycdn/internal/fsops"
)

// Tree names which of the two filesystems an action targets.
type Tree string

const (
	TreeSource Tree = "source"
	TreeDest   Tree = "dest"
)

// Converger is the file authority consulted by the request state machine
// for every operation that can mutate the destination tree (plus source
// stat, which is proxied too so a cluster-wide single-flight holds even for
// the initial existence check).
type Converger interface {
	Stat(tree Tree, path string) (fsops.Stat, error)
	ReadFile(path string) ([]byte, error)
	MkdirAll(root, file string) error
	WriteFile(path string, data []byte) error
	WriteStream(sourcePath, targetPath, group string, level compress.Level) error
	Hash(tree Tree, algorithm Algorithm, path string) (string, error)
}

// Algorithm is re-exported here so callers of this package don't need to
// import internal/digest directly just to name a hash.
type Algorithm = digest.Algorithm

//-------------------------------------------------------------------------------------------------
// Local: single-process pass-through.
//-------------------------------------------------------------------------------------------------

// Local implements Converger directly over local fsops.Ops, with no IPC.
// This is what a single-worker (ignoreCluster, or no cluster at all)
// deployment uses; the single-flight registries inside sourceOps/destOps
// already provide every guarantee spec.md §5 asks for within one process.
type Local struct {
	SourceOps *fsops.Ops
	DestOps   *fsops.Ops
}

var _ Converger = (*Local)(nil)

func (l *Local) Stat(tree Tree, path string) (fsops.Stat, error) {
	if tree == TreeSource {
		return l.SourceOps.Stat(path)
	}
	return l.DestOps.Stat(path)
}

func (l *Local) ReadFile(path string) ([]byte, error) {
	return l.DestOps.ReadFile(path)
}

func (l *Local) MkdirAll(root, file string) error {
	return l.DestOps.MkdirAll(root, file)
}

func (l *Local) WriteFile(path string, data []byte) error {
	return l.DestOps.WriteFile(path, data)
}

func (l *Local) WriteStream(sourcePath, targetPath, group string, level compress.Level) error {
	return l.DestOps.WriteStream(l.SourceOps, sourcePath, targetPath, group, level)
}

func (l *Local) Hash(tree Tree, algorithm Algorithm, path string) (string, error) {
	ops := l.DestOps
	if tree == TreeSource {
		ops = l.SourceOps
	}
	f, err := ops.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return algorithm.Stream(f)
}

//-------------------------------------------------------------------------------------------------
// Worker: forwards everything to Master over the wire.
//-------------------------------------------------------------------------------------------------

// Worker is the Converger used by a clustered worker process. Every call
// obtains a connection from Dial, sends a Request tagged with a fresh uuid,
// blocks for the matching Result, and closes the connection.
type Worker struct {
	Dial   func() (net.Conn, error)
	Logger *zap.Logger
}

var _ Converger = (*Worker)(nil)

func (w *Worker) call(action Action, args Arguments) (Result, error) {
	conn, err := w.Dial()
	if err != nil {
		return Result{}, errors.Wrap(err, "dial converger master")
	}
	defer conn.Close()

	req := Request{ID: uuid.NewString(), Type: string(action), Action: action, Arguments: args}
	if err := writeFrame(conn, req); err != nil {
		return Result{}, err
	}

	var res Result
	if err := readFrame(conn, &res); err != nil {
		return Result{}, err
	}
	if res.ID != req.ID {
		return Result{}, errors.Errorf("converger: reply id mismatch, want %s got %s", req.ID, res.ID)
	}
	if res.Failed {
		if w.Logger != nil {
			w.Logger.Warn("converger action failed", zap.String("action", string(action)), zap.String("message", res.Message))
		}
		return res, errors.Errorf("converger: %s failed", action)
	}
	return res, nil
}

func (w *Worker) Stat(tree Tree, path string) (fsops.Stat, error) {
	res, err := w.call(ActionGetStats, Arguments{Root: string(tree), Path: path})
	if err != nil {
		return fsops.Stat{}, err
	}
	lastModified, _ := time.Parse(time.RFC1123, res.Stat.LastModified)
	return fsops.Stat{Size: res.Stat.Size, LastModified: lastModified, IsFile: res.Stat.File}, nil
}

func (w *Worker) ReadFile(path string) ([]byte, error) {
	res, err := w.call(ActionGetFileContent, Arguments{Path: path})
	if err != nil {
		return nil, err
	}
	return res.Content, nil
}

func (w *Worker) MkdirAll(root, file string) error {
	_, err := w.call(ActionMkDir, Arguments{Root: root, Path: file})
	return err
}

func (w *Worker) WriteFile(path string, data []byte) error {
	_, err := w.call(ActionWriteFile, Arguments{Path: path, Content: data})
	return err
}

func (w *Worker) WriteStream(sourcePath, targetPath, group string, level compress.Level) error {
	_, err := w.call(ActionWriteStream, Arguments{SourcePath: sourcePath, TargetPath: targetPath, Group: group, Level: int(level)})
	return err
}

func (w *Worker) Hash(tree Tree, algorithm Algorithm, path string) (string, error) {
	res, err := w.call(ActionGetHash, Arguments{Root: string(tree), Path: path, Algorithm: algorithm.Name})
	if err != nil {
		return "", err
	}
	return string(res.Content), nil
}
