package converger

import (
	"encoding/binary"
	"io"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Action names an operation the worker asks the master to perform. These
// mirror spec.md §6's IPC action enum exactly.
type Action string

const (
	ActionGetStats      Action = "getStats"
	ActionGetFileContent Action = "getFileContent"
	ActionMkDir         Action = "mkDir"
	ActionWriteFile     Action = "writeFile"
	ActionWriteStream   Action = "writeStream"
	ActionGetHash       Action = "getHash"
)

// Arguments carries the union of parameters any action needs. Only the
// fields relevant to Action are populated; this keeps the wire format a
// single flat struct instead of a tagged union, matching the source's own
// "tinyCDNInfo" envelope.
type Arguments struct {
	Root       string `json:"root,omitempty"`
	Path       string `json:"path,omitempty"`
	SourcePath string `json:"sourcePath,omitempty"`
	TargetPath string `json:"targetPath,omitempty"`
	Group      string `json:"group,omitempty"`
	Level      int    `json:"level,omitempty"`
	Algorithm  string `json:"algorithm,omitempty"`
	Content    []byte `json:"content,omitempty"`
}

// Request is a worker->master message: {id, type, action, arguments}.
type Request struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Action    Action    `json:"action"`
	Arguments Arguments `json:"arguments"`
}

// StatResult is the lossy reduction of fsops.Stat that crosses the wire:
// {size, lastModified, file}.
type StatResult struct {
	Size         int64  `json:"size"`
	LastModified string `json:"lastModified"`
	File         bool   `json:"file"`
}

// Result is a master->worker reply, addressed back to the originating
// request's ID. Errors are reduced to a boolean presence flag on the wire
// (per spec.md §4.5's lossiness policy); Message carries the master-side
// error text, which the worker only writes to its log — the worker's
// control flow looks at Failed alone.
type Result struct {
	ID      string     `json:"id"`
	Failed  bool       `json:"failed"`
	Message string     `json:"message,omitempty"`
	Stat    StatResult `json:"stat,omitempty"`
	Content []byte     `json:"content,omitempty"`
}

// writeFrame and readFrame implement a trivial length-prefixed framing over
// a net.Conn, following the same "reuse the listener, keep the wire format
// minimal" spirit as caddyserver/caddy's listen_unix.go. 4-byte big-endian
// length prefix, then a json-iterator-encoded payload.
func writeFrame(w io.Writer, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "encode frame")
	}
	var lenPrefix [4]byte
	binary.BigEndian.PutUint32(lenPrefix[:], uint32(len(b)))
	if _, err := w.Write(lenPrefix[:]); err != nil {
		return errors.Wrap(err, "write frame length")
	}
	if _, err := w.Write(b); err != nil {
		return errors.Wrap(err, "write frame body")
	}
	return nil
}

func readFrame(r io.Reader, v interface{}) error {
	var lenPrefix [4]byte
	if _, err := io.ReadFull(r, lenPrefix[:]); err != nil {
		return errors.Wrap(err, "read frame length")
	}
	n := binary.BigEndian.Uint32(lenPrefix[:])
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return errors.Wrap(err, "read frame body")
	}
	return errors.Wrap(json.Unmarshal(buf, v), "decode frame")
}
