package codegen

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const (
	DefaultHashPrefixLength = 8
	// HashWidenStep is how many hex characters each collision attempt adds.
	HashWidenStep = 4
	maxHashLength = sha256.Size * 2
)

type hashGenerator struct {
	prefix int
}

type HashOption func(*hashGenerator)

// WithPrefixLength sets the code width used on the first attempt.
// Values outside [4, 64] are ignored.
func WithPrefixLength(n int) HashOption {
	return func(g *hashGenerator) {
		if n >= 4 && n <= maxHashLength {
			g.prefix = n
		}
	}
}

// NewHash returns the content-derived generator: the code is a hex prefix of
// the SHA-256 digest of the URL. Attempt n uses a prefix HashWidenStep*n
// characters longer than the first, capped at the full digest.
func NewHash(opts ...HashOption) Generator {
	g := &hashGenerator{prefix: DefaultHashPrefixLength}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *hashGenerator) Generate(originalURL string, attempt int) (string, error) {
	originalURL = strings.TrimSpace(originalURL)
	if err := checkScheme(originalURL); err != nil {
		return "", err
	}
	if attempt < 0 {
		attempt = 0
	}

	sum := sha256.Sum256([]byte(originalURL))
	digest := hex.EncodeToString(sum[:])

	width := min(g.prefix+attempt*HashWidenStep, maxHashLength)
	return digest[:width], nil
}

func (g *hashGenerator) Deterministic() bool { return true }
