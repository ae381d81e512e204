package compress

import (
	"bytes"
	"compress/gzip"
	"io"
	"strings"
	"testing"

	"github.com/rickb777/expect"
)

func TestParseLevel(t *testing.T) {
	expect.Number(int(ParseLevel("best"))).ToBe(t, int(BestCompression))
	expect.Number(int(ParseLevel("speed"))).ToBe(t, int(BestSpeed))
	expect.Number(int(ParseLevel("no"))).ToBe(t, int(NoCompression))
	expect.Number(int(ParseLevel("anything else"))).ToBe(t, int(DefaultCompression))
	expect.Number(int(ParseLevel(3))).ToBe(t, 3)
}

func TestStreamGzipRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	err := Stream(strings.NewReader("hello world"), &buf, "gzip", DefaultCompression)
	expect.Error(err).Not().ToHaveOccurred(t)

	r, err := gzip.NewReader(&buf)
	expect.Error(err).Not().ToHaveOccurred(t)
	out, err := io.ReadAll(r)
	expect.Error(err).Not().ToHaveOccurred(t)
	expect.String(string(out)).ToBe(t, "hello world")
}

func TestStreamUnknownGroupFails(t *testing.T) {
	var buf bytes.Buffer
	err := Stream(strings.NewReader("x"), &buf, "br", DefaultCompression)
	expect.Error(err).ToHaveOccurred(t)
}
