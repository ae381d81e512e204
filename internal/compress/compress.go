// Package compress implements the streaming compression pipeline: it pipes
// a source reader through gzip or deflate, at a configurable level, into a
// destination writer. It deliberately uses github.com/klauspost/compress
// rather than the standard library's compress/gzip and compress/flate — the
// same substitution caddyserver/caddy makes in its own precompressed-asset
// encoders (modules/caddyhttp/encode/gzip).
package compress

import (
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// Level is a resolved compression level, already translated from the
// operator-facing "best"|"speed"|"no"|"default" strings or a literal
// integer. Its values reuse the stdlib-compatible flate constants so it can
// be passed straight through to klauspost/compress.
type Level int

const (
	NoCompression      Level = flate.NoCompression
	BestSpeed          Level = flate.BestSpeed
	BestCompression    Level = flate.BestCompression
	DefaultCompression Level = flate.DefaultCompression
)

// ParseLevel resolves an operator-supplied compression setting per spec:
// the strings "best", "speed", "no" and "default" map to level constants;
// an int is taken literally; anything else resolves to DefaultCompression.
func ParseLevel(v interface{}) Level {
	switch t := v.(type) {
	case string:
		switch t {
		case "best":
			return BestCompression
		case "speed":
			return BestSpeed
		case "no":
			return NoCompression
		default:
			return DefaultCompression
		}
	case int:
		return Level(t)
	case Level:
		return t
	default:
		return DefaultCompression
	}
}

// Stream pipes src through the codec named by group ("gzip" or "deflate")
// at the given level, writing the result to dst. Any stage error aborts the
// whole pipeline.
func Stream(src io.Reader, dst io.Writer, group string, level Level) error {
	switch group {
	case "gzip":
		w, err := gzip.NewWriterLevel(dst, int(level))
		if err != nil {
			return errors.Wrap(err, "create gzip writer")
		}
		if _, err := io.Copy(w, src); err != nil {
			w.Close()
			return errors.Wrap(err, "gzip copy")
		}
		return errors.Wrap(w.Close(), "gzip close")

	case "deflate":
		w, err := flate.NewWriter(dst, int(level))
		if err != nil {
			return errors.Wrap(err, "create deflate writer")
		}
		if _, err := io.Copy(w, src); err != nil {
			w.Close()
			return errors.Wrap(err, "deflate copy")
		}
		return errors.Wrap(w.Close(), "deflate close")

	default:
		return errors.Errorf("compress: unknown group %q", group)
	}
}
