// Package digest implements the hash pipeline: streaming a reader through
// an incremental cryptographic digest and returning a lowercase hex string.
// The algorithm is operator-configurable; if unavailable, the strongest
// algorithm from a fixed preference order is substituted.
package digest

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// preferenceOrder is consulted, strongest first, when the operator's
// requested algorithm isn't available.
var preferenceOrder = []string{"sha512", "sha384", "sha256", "sha224", "sha1", "md5"}

var constructors = map[string]func() hash.Hash{
	"sha512": sha512.New,
	"sha384": sha512.New384,
	"sha256": sha256.New,
	"sha224": sha256.New224,
	"sha1":   sha1.New,
	"md5":    md5.New,
}

// Name reports the resolved, lowercase algorithm name for a given operator
// request (e.g. "SHA256" -> "sha256"). Resolve should be used for the
// constructor; Name exists so callers can name the sidecar file's suffix.
type Algorithm struct {
	Name string
	New  func() hash.Hash
}

// Resolve selects the hash algorithm named by the operator, falling back
// through preferenceOrder (strongest first) when it is unavailable. An
// empty or "true" name means "sha256", per spec.md's ETag configuration
// rules. It fails only if no algorithm in the preference order is known,
// which cannot happen with this package's builtin constructor table but is
// kept as a defensive error path for future algorithm removal.
func Resolve(requested string) (Algorithm, error) {
	name := strings.ToLower(strings.TrimSpace(requested))
	if name == "" || name == "true" {
		name = "sha256"
	}

	if ctor, ok := constructors[name]; ok {
		return Algorithm{Name: name, New: ctor}, nil
	}

	for _, candidate := range preferenceOrder {
		if ctor, ok := constructors[candidate]; ok {
			return Algorithm{Name: candidate, New: ctor}, nil
		}
	}

	return Algorithm{}, errors.Errorf("digest: no hash algorithm available (wanted %q)", requested)
}

// Stream computes the lowercase hex digest of everything read from src.
func (a Algorithm) Stream(src io.Reader) (string, error) {
	h := a.New()
	if _, err := io.Copy(h, src); err != nil {
		return "", errors.Wrap(err, "digest stream")
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
