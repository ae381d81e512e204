// Package fsops provides the single-flighted filesystem primitives that the
// request state machine builds on: stat, readFile, mkdirAll, writeFile and
// writeStream. Every primitive is wrapped in its own golang.org/x/sync/singleflight
// group keyed by the target path, so N concurrent callers for the same path
// cause exactly one syscall (or one compression/hash pass for writeStream).
package fsops

import (
	"io"
	"path"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"golang.org/x/sync/singleflight"

	"github.com/rickb777/tinycdn/internal/compress"
)

// Stat is the lossy, wire-friendly reduction of os.FileInfo used throughout
// the request state machine and (when clustering is enabled) serialized
// across the converger IPC boundary.
type Stat struct {
	Size         int64
	LastModified time.Time
	IsFile       bool
}

// Ops bundles the single-flighted primitives for one afero.Fs. A process
// normally owns two: one for the source tree, one for the destination tree.
type Ops struct {
	fs afero.Fs

	statGroup   singleflight.Group
	readGroup   singleflight.Group
	mkdirGroup  singleflight.Group
	writeGroup  singleflight.Group
	streamGroup singleflight.Group
}

// New wraps fs with single-flighted primitives.
func New(fs afero.Fs) *Ops {
	return &Ops{fs: fs}
}

// FS returns the underlying filesystem, for callers that need to open files
// directly.
func (o *Ops) FS() afero.Fs {
	return o.fs
}

// Stat stats path, coalescing concurrent callers for the same path.
func (o *Ops) Stat(filePath string) (Stat, error) {
	v, err, _ := o.statGroup.Do(filePath, func() (interface{}, error) {
		fi, err := o.fs.Stat(filePath)
		if err != nil {
			return Stat{}, errors.Wrapf(err, "stat %s", filePath)
		}
		return Stat{Size: fi.Size(), LastModified: fi.ModTime(), IsFile: !fi.IsDir()}, nil
	})
	return v.(Stat), err
}

// ReadFile reads the whole of path, coalescing concurrent callers. It is
// used only for sidecar (ETag) contents, which are always small.
func (o *Ops) ReadFile(filePath string) ([]byte, error) {
	v, err, _ := o.readGroup.Do(filePath, func() (interface{}, error) {
		b, err := afero.ReadFile(o.fs, filePath)
		if err != nil {
			return []byte(nil), errors.Wrapf(err, "read %s", filePath)
		}
		return b, nil
	})
	return v.([]byte), err
}

// MkdirAll ensures every intermediate directory between root (assumed to
// already exist) and the parent of file, one path component at a time.
// "already exists" is treated as success; any other mkdir error fails the
// whole chain. Each component is itself single-flighted, so concurrent
// materializations of sibling assets don't race to create the same
// directory.
func (o *Ops) MkdirAll(root, file string) error {
	rel := strings.TrimPrefix(path.Dir(file), root)
	rel = strings.Trim(rel, "/")
	if rel == "" || rel == "." {
		return nil
	}

	segments := strings.Split(rel, "/")
	current := root
	for _, segment := range segments {
		current = path.Join(current, segment)
		if err := o.mkdirComponent(current); err != nil {
			return err
		}
	}
	return nil
}

func (o *Ops) mkdirComponent(dir string) error {
	_, err, _ := o.mkdirGroup.Do(dir, func() (interface{}, error) {
		err := o.fs.Mkdir(dir, 0755)
		if err == nil {
			return nil, nil
		}
		// "already exists" is success; anything else, including a file
		// occupying the name, is a real failure.
		if fi, statErr := o.fs.Stat(dir); statErr == nil && fi.IsDir() {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "mkdir %s", dir)
	})
	return err
}

// WriteFile creates or truncates path with the given contents, coalescing
// concurrent callers writing the identical path (the second writer simply
// observes the first writer's completion and result).
func (o *Ops) WriteFile(filePath string, data []byte) error {
	_, err, _ := o.writeGroup.Do(filePath, func() (interface{}, error) {
		err := afero.WriteFile(o.fs, filePath, data, 0644)
		return nil, errors.Wrapf(err, "write %s", filePath)
	})
	return err
}

// WriteStream opens sourcePath for streaming read on sourceOps, pipes it
// through the codec selected by group at the given level, and writes the
// result to targetPath on o. Completion of the single-flight call signals
// success; any stage error fails every attached caller.
func (o *Ops) WriteStream(sourceOps *Ops, sourcePath, targetPath string, group string, level compress.Level) error {
	_, err, _ := o.streamGroup.Do(targetPath, func() (interface{}, error) {
		src, err := sourceOps.fs.Open(sourcePath)
		if err != nil {
			return nil, errors.Wrapf(err, "open source %s", sourcePath)
		}
		defer src.Close()

		dst, err := o.fs.Create(targetPath)
		if err != nil {
			return nil, errors.Wrapf(err, "create %s", targetPath)
		}

		if err := compress.Stream(src, dst, group, level); err != nil {
			dst.Close()
			return nil, errors.Wrapf(err, "compress %s -> %s", sourcePath, targetPath)
		}
		return nil, errors.Wrapf(dst.Close(), "close %s", targetPath)
	})
	return err
}

// Open opens path for streaming read; used by response assembly to pipe the
// served artifact to the client. It deliberately bypasses single-flight:
// the contract is one open read stream per responder.
func (o *Ops) Open(filePath string) (io.ReadCloser, error) {
	f, err := o.fs.Open(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", filePath)
	}
	return f, nil
}
