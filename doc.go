// MIT License
//
// Copyright (c) 2016 Rick Beton
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

/*
Package tinycdn is a caching static-asset HTTP handler: a tiny CDN.

It serves files from a read-only source tree while lazily building a
write-through derivative cache in a separate destination tree. The first
request for a compressible asset causes a gzip or deflate variant to be
compressed once and written to disk; when ETag support is enabled, the first
request under any encoding also causes a content-hash sidecar to be written,
which is used for the ETag header on every later request.

	h, err := tinycdn.New(tinycdn.Config{
		Source: afero.NewBasePathFs(afero.NewOsFs(), "./assets"),
		Dest:   afero.NewBasePathFs(afero.NewOsFs(), "./cache"),
		Compression: "default",
		ETag:        "sha256",
		MaxAge:      10 * 365 * 24 * time.Hour,
	})

h is an http.Handler and can be used alongside other handlers.

# Request coalescing

Many concurrent requests for the same asset under the same encoding perform
the stat, the compression and the hashing at most once; later requests for
the same (asset, encoding) pair attach to the in-flight result rather than
repeating the work. Under a multi-process deployment, the same guarantee
holds across the whole cluster: every file-producing operation is forwarded
to a single converger process that owns the destination tree.

# Gzipped and deflated content

Unlike a build-time precompression step, tinycdn computes the compressed
variant on first qualifying request, not ahead of time. It never compresses
extensions outside the configured compressible set, and it never compresses
on the fly per-response: once written, a compressed artifact is reused by
every subsequent request.

# Conditional requests

When ETag support is enabled, a sidecar file next to each artifact holds the
hex digest used as the ETag value. A client that has cached the asset and
replays it with If-None-Match receives a 304 with no body.

# Cache control

MaxAge governs both the Cache-Control max-age and the Expires header. There
is no server-side invalidation: replacing a file in the source tree does not
invalidate artifacts already written to the destination tree. Operators who
need that must delete the destination tree out of band.
*/
package tinycdn
