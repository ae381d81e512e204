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

// Command tinycdnd serves a directory tree as a caching, compressing,
// etag-aware static-asset CDN.
package main

import (
	"flag"
	"net"
	"net/http"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/rickb777/tinycdn"
)

func main() {
	var (
		addr         = flag.String("addr", ":8080", "listen address")
		source       = flag.String("source", ".", "read-only asset root")
		dest         = flag.String("dest", "./.tinycdn-cache", "derivative cache root")
		compression  = flag.String("compression", "", "best|speed|no|default, empty disables compression")
		etag         = flag.String("etag", "true", "hash algorithm, or empty to disable")
		maxAge       = flag.Duration("max-age", tinycdn.DefaultMaxAge, "Cache-Control max-age")
		stripPrefix  = flag.Int("strip-prefix", 0, "leading URL path segments to drop")
		corsOrigin   = flag.String("cors-origin", "", "Access-Control-Allow-Origin value, empty to omit")
		clusterAddr  = flag.String("cluster-listen", "", "if set, run as the converger master on this address")
		clusterDial  = flag.String("cluster-dial", "", "if set, run as a worker dialing the converger master at this address")
	)
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg := tinycdn.Config{
		Source:                   afero.NewBasePathFs(afero.NewOsFs(), *source),
		Dest:                     afero.NewBasePathFs(afero.NewOsFs(), *dest),
		ETag:                     *etag,
		MaxAge:                   *maxAge,
		StripPrefix:              *stripPrefix,
		AccessControlAllowOrigin: *corsOrigin,
		Logger:                   logger,
	}
	if *compression != "" {
		cfg.Compression = *compression
	}

	var listener net.Listener
	switch {
	case *clusterAddr != "":
		ln, err := net.Listen("tcp", *clusterAddr)
		if err != nil {
			logger.Fatal("listen for converger master failed", zap.Error(err))
		}
		listener = ln
		cfg.Cluster = tinycdn.ClusterConfig{IsMaster: true, Listen: ln}

	case *clusterDial != "":
		dialAddr := *clusterDial
		cfg.Cluster = tinycdn.ClusterConfig{
			Dial: func() (net.Conn, error) { return net.DialTimeout("tcp", dialAddr, 5*time.Second) },
		}
	}

	a, err := tinycdn.New(cfg)
	if err != nil {
		logger.Fatal("configure tinycdn failed", zap.Error(err))
	}

	if listener != nil {
		go func() {
			if err := a.Serve(listener); err != nil {
				logger.Error("converger master stopped", zap.Error(err))
			}
		}()
	}

	logger.Info("tinycdn listening", zap.String("addr", *addr))
	if err := http.ListenAndServe(*addr, a); err != nil {
		logger.Fatal("serve failed", zap.Error(err))
	}
}
