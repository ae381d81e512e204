package tinycdn

import (
	"net"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/rickb777/tinycdn/internal/compress"
	"github.com/rickb777/tinycdn/internal/digest"
)

// defaultCompressibleExtensions is used when Compression is configured but
// CompressibleExtensions is left empty, per spec.md §6.
var defaultCompressibleExtensions = []string{"js", "css", "txt", "html", "svg", "md", "htm", "xml", "json", "yml"}

// DefaultMaxAge is spec.md §6's default max-age, in seconds (355 days).
const DefaultMaxAge = 30672000 * time.Second

// ClusterConfig configures the multi-worker converger. A zero value (or
// Disabled) means the process runs as its own single-worker authority.
type ClusterConfig struct {
	// Disabled corresponds to spec.md's "ignoreCluster".
	Disabled bool

	// IsMaster selects whether this process owns the destination tree
	// (true) or forwards every file-producing call to one (false).
	IsMaster bool

	// Dial is used by a worker process to connect to the master's
	// converger listener. Required when IsMaster is false and Disabled
	// is false.
	Dial func() (net.Conn, error)

	// Listen is the master process's listener for worker connections.
	// Required when IsMaster is true. New only uses it to decide that
	// clustering is enabled; connections are accepted by Assets.Serve on
	// the listener passed to it.
	Listen net.Listener
}

func (c ClusterConfig) enabled() bool {
	return !c.Disabled && (c.Dial != nil || c.Listen != nil)
}

// Config holds every operator-facing option from spec.md §6. Zero values
// pick the documented defaults.
type Config struct {
	// Source is the read-only asset root. Required.
	Source afero.Fs

	// Dest is the read-write derivative cache root. Required, and should
	// differ from Source.
	Dest afero.Fs

	// Compression is "best"|"speed"|"no"|"default", an integer 1-9, or nil
	// to disable the compression path entirely (every request is then
	// served raw).
	Compression interface{}

	// CompressibleExtensions overrides the default compressible extension
	// set. Entries may carry a leading dot or not; both are equivalent.
	CompressibleExtensions []string

	// ETag is "" to disable, "true" to mean sha256, or an explicit algorithm
	// name. A name with no matching algorithm falls back to the strongest
	// available one (sha512).
	ETag string

	// MaxAge is the Cache-Control/Expires lifetime. Zero means
	// DefaultMaxAge; use NoMaxAge to disable caching headers altogether.
	MaxAge time.Duration

	// MaxListeners is accepted and stored but has no effect: every
	// responder opens its own read stream, so no stream is ever shared
	// between consumers and there is nothing for it to bound.
	MaxListeners int

	// AutoIndex enables "/" -> "/index.html" rewriting. Defaults to true;
	// set explicitly via a *bool so "false" can be distinguished from
	// "unset".
	AutoIndex *bool

	// StripPrefix drops this many leading URL path segments before asset
	// lookup (see SPEC_FULL.md's "Supplemented features").
	StripPrefix int

	// Cluster configures the converger's IPC topology.
	Cluster ClusterConfig

	// AccessControlAllowOrigin, when non-empty, is echoed verbatim as
	// Access-Control-Allow-Origin on every 200 and 304 asset response; 404
	// and 405 responses do not carry it.
	AccessControlAllowOrigin string

	// NotFoundHTML, NotFoundJSON and NotFoundText are served, content
	// negotiated against Accept, in place of the literal defaults.
	NotFoundHTML string
	NotFoundJSON string
	NotFoundText string

	// OnResponse and OnError are observability hooks, per spec.md §6.
	OnResponse func(err error, url string)
	OnError    func(err error, url string, held int)

	// Logger receives structured diagnostics. Defaults to a no-op logger.
	Logger *zap.Logger
}

// NoMaxAge disables Cache-Control/Expires headers entirely.
const NoMaxAge time.Duration = -1

// resolved is the immutable, validated rendering of Config built once by
// New and consulted by every request thereafter — nothing below is
// re-evaluated per request.
type resolved struct {
	source afero.Fs
	dest   afero.Fs

	compressionEnabled bool
	level              compress.Level
	compressible       map[string]struct{}

	etagEnabled bool
	algorithm   digest.Algorithm

	maxAge       time.Duration
	maxAgeS      int
	maxListeners int
	autoIndex    bool
	stripPrefix  int

	corsOrigin string

	notFoundHTML string
	notFoundJSON string
	notFoundText string

	onResponse func(err error, url string)
	onError    func(err error, url string, held int)
	logger     *zap.Logger
}

func resolve(cfg Config) (resolved, error) {
	r := resolved{
		source:       cfg.Source,
		dest:         cfg.Dest,
		stripPrefix:  cfg.StripPrefix,
		corsOrigin:   cfg.AccessControlAllowOrigin,
		onResponse:   cfg.OnResponse,
		onError:      cfg.OnError,
		notFoundHTML: firstNonEmpty(cfg.NotFoundHTML, "Not Found"),
		notFoundJSON: firstNonEmpty(cfg.NotFoundJSON, `{"error":"Not found"}`),
		notFoundText: firstNonEmpty(cfg.NotFoundText, "Not Found"),
	}

	if r.source == nil || r.dest == nil {
		return resolved{}, errConfigMissingDirs
	}

	r.logger = cfg.Logger
	if r.logger == nil {
		r.logger = zap.NewNop()
	}

	if cfg.Compression != nil {
		r.compressionEnabled = true
		r.level = compress.ParseLevel(cfg.Compression)
		exts := cfg.CompressibleExtensions
		if len(exts) == 0 {
			exts = defaultCompressibleExtensions
		}
		r.compressible = make(map[string]struct{}, len(exts))
		for _, ext := range exts {
			r.compressible[normalizeExtension(ext)] = struct{}{}
		}
	}

	if cfg.ETag != "" {
		algo, err := digest.Resolve(cfg.ETag)
		if err != nil {
			return resolved{}, err
		}
		r.etagEnabled = true
		r.algorithm = algo
	}

	switch {
	case cfg.MaxAge == NoMaxAge:
		r.maxAge = 0
	case cfg.MaxAge == 0:
		r.maxAge = DefaultMaxAge
	default:
		r.maxAge = cfg.MaxAge
	}
	r.maxAgeS = int(r.maxAge / time.Second)

	r.maxListeners = cfg.MaxListeners

	r.autoIndex = true
	if cfg.AutoIndex != nil {
		r.autoIndex = *cfg.AutoIndex
	}

	return r, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func normalizeExtension(ext string) string {
	if len(ext) > 0 && ext[0] == '.' {
		return ext
	}
	return "." + ext
}
