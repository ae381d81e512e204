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

package tinycdn

import (
	"net"
	"net/http"

	"go.uber.org/zap"

	"github.com/rickb777/tinycdn/afero2"
	"github.com/rickb777/tinycdn/internal/converger"
	"github.com/rickb777/tinycdn/internal/fsops"
)

// Assets is the tiny-CDN request handler. Build one with New and use it as
// an http.Handler, either standalone or mounted under a prefix alongside
// other handlers.
type Assets struct {
	cfg      resolved
	channels *channelRegistry
	conv     converger.Converger

	// sourceOps/destOps read bodies directly off the shared trees for
	// response streaming. This bypasses the converger deliberately: the
	// converger's job is to serialize writes cluster-wide, not to proxy
	// the (already-materialized, read-only) bytes of a response body
	// through the master process.
	sourceOps *fsops.Ops
	destOps   *fsops.Ops

	// master is non-nil only for a process configured as the cluster's
	// converger authority; Serve must be run for clustering to take effect.
	master *converger.Master
}

// Type conformance proof.
var _ http.Handler = &Assets{}

// New builds an Assets handler from cfg. Per spec.md §7, it fails fatally
// if Source/Dest are missing, or if ETag names an algorithm and the
// fallback preference order yields nothing usable (this cannot actually
// happen with this package's builtin hash table, but the check is kept in
// case a future build excludes one of the crypto/* packages via build
// tags).
func New(cfg Config) (*Assets, error) {
	r, err := resolve(cfg)
	if err != nil {
		return nil, err
	}

	// afero2.AferoAdapter normalizes leading-slash handling so source and
	// dest behave consistently whichever afero.Fs implementation the
	// caller chose (afero.NewMemMapFs() in tests is the most sensitive
	// to this; afero.NewOsFs() in production tolerates either form).
	sourceOps := fsops.New(afero2.AferoAdapter{Inner: r.source})
	destOps := fsops.New(afero2.AferoAdapter{Inner: r.dest})
	local := &converger.Local{SourceOps: sourceOps, DestOps: destOps}

	a := &Assets{
		cfg:       r,
		channels:  newChannelRegistry(),
		sourceOps: sourceOps,
		destOps:   destOps,
	}

	switch {
	case !cfg.Cluster.enabled():
		a.conv = local

	case cfg.Cluster.IsMaster:
		a.conv = local
		a.master = &converger.Master{Local: local, Algorithm: r.algorithm, Logger: r.logger}

	default:
		a.conv = &converger.Worker{Dial: cfg.Cluster.Dial, Logger: r.logger}
	}

	return a, nil
}

// Serve runs the converger's master accept loop on ln until it closes or
// errors. It is a no-op returning nil when a was not built with
// Cluster.IsMaster set. A master process typically runs this instead of
// (or alongside) ServeHTTP.
func (a *Assets) Serve(ln net.Listener) error {
	if a.master == nil {
		return nil
	}
	return a.master.Serve(ln)
}

func (a *Assets) logger() *zap.Logger {
	return a.cfg.logger
}
