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

package tinycdn_test

import (
	"log"
	"net/http"
	"time"

	"github.com/spf13/afero"

	"github.com/rickb777/tinycdn"
)

func ExampleNew() {
	// A simple webserver: source assets live on disk, derivative (compressed,
	// etag-sidecar) artifacts are cached in a separate ./cache directory.
	source := afero.NewBasePathFs(afero.NewOsFs(), "./assets")
	dest := afero.NewBasePathFs(afero.NewOsFs(), "./cache")

	a, err := tinycdn.New(tinycdn.Config{
		Source:      source,
		Dest:        dest,
		Compression: "best",
		ETag:        "true",
		MaxAge:      time.Hour,
	})
	if err != nil {
		log.Fatal(err)
	}

	log.Fatal(http.ListenAndServe(":8080", a))
}

func ExampleNew_inMemory() {
	// Serving entirely out of memory, useful for tests and small embedded
	// deployments.
	fs := afero.NewMemMapFs()

	a, err := tinycdn.New(tinycdn.Config{
		Source: fs,
		Dest:   afero.NewMemMapFs(),
	})
	if err != nil {
		log.Fatal(err)
	}

	log.Fatal(http.ListenAndServe(":8080", a))
}
