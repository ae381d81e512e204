package converger

import (
	"io"
	"net"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/rickb777/tinycdn/internal/compress"
	"github.com/rickb777/tinycdn/internal/digest"
)

// Master is the single process that owns the destination tree under
// clustering. It applies every Action locally (reusing Local, so it gets
// the same single-flight guarantees a standalone process has) and posts the
// serialized Result back to whichever worker asked, by connection — there
// is one reply per request, matching the worker's blocking call().
type Master struct {
	Local     *Local
	Algorithm digest.Algorithm
	Logger    *zap.Logger
}

// Serve accepts connections on ln until it is closed or ctx-like shutdown
// happens via ln.Close() from the caller. Each connection carries exactly
// one request/response pair, following caddyserver/caddy's pattern
// (listen_unix.go) of keeping the transport itself dumb and putting
// protocol framing in the application layer.
func (m *Master) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go m.handle(conn)
	}
}

func (m *Master) handle(conn net.Conn) {
	defer conn.Close()

	var req Request
	if err := readFrame(conn, &req); err != nil {
		if err != io.EOF && m.Logger != nil {
			m.Logger.Warn("converger master: bad frame", zap.Error(err))
		}
		return
	}

	res := m.apply(req)
	if err := writeFrame(conn, res); err != nil && m.Logger != nil {
		m.Logger.Warn("converger master: write reply failed", zap.Error(err))
	}
}

func (m *Master) apply(req Request) Result {
	res := Result{ID: req.ID}

	fail := func(err error) Result {
		res.Failed = true
		if err != nil {
			res.Message = err.Error()
		}
		return res
	}

	switch req.Action {
	case ActionGetStats:
		tree := Tree(req.Arguments.Root)
		if tree == "" {
			tree = TreeDest
		}
		st, err := m.Local.Stat(tree, req.Arguments.Path)
		if err != nil {
			return fail(err)
		}
		res.Stat = StatResult{Size: st.Size, LastModified: st.LastModified.UTC().Format(time.RFC1123), File: st.IsFile}
		return res

	case ActionGetFileContent:
		content, err := m.Local.ReadFile(req.Arguments.Path)
		if err != nil {
			return fail(err)
		}
		res.Content = content
		return res

	case ActionMkDir:
		if err := m.Local.MkdirAll(req.Arguments.Root, req.Arguments.Path); err != nil {
			return fail(err)
		}
		return res

	case ActionWriteFile:
		if err := m.Local.WriteFile(req.Arguments.Path, req.Arguments.Content); err != nil {
			return fail(err)
		}
		return res

	case ActionWriteStream:
		level := compress.Level(req.Arguments.Level)
		if err := m.Local.WriteStream(req.Arguments.SourcePath, req.Arguments.TargetPath, req.Arguments.Group, level); err != nil {
			return fail(err)
		}
		return res

	case ActionGetHash:
		tree := Tree(req.Arguments.Root)
		if tree == "" {
			tree = TreeDest
		}
		hash, err := m.Local.Hash(tree, m.Algorithm, req.Arguments.Path)
		if err != nil {
			return fail(err)
		}
		res.Content = []byte(hash)
		return res

	default:
		return fail(errors.Errorf("converger master: unknown action %q", req.Action))
	}
}
