package codegen

import (
	"crypto/rand"
	"strings"
)

const (
	base62Chars         = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	DefaultRandomLength = 6
	maxRandomLength     = 64

	// Bytes at or above this value are rejected so every alphabet symbol is
	// equally likely (248 = 4 * 62).
	rejectionBound = 256 - 256%len(base62Chars)
)

type randomGenerator struct {
	length int
}

// NewRandom returns a generator drawing length base62 characters from
// crypto/rand. Lengths outside [1, 64] fall back to DefaultRandomLength.
func NewRandom(length int) Generator {
	if length <= 0 || length > maxRandomLength {
		length = DefaultRandomLength
	}
	return &randomGenerator{length: length}
}

func (g *randomGenerator) Generate(originalURL string, _ int) (string, error) {
	if err := checkScheme(strings.TrimSpace(originalURL)); err != nil {
		return "", err
	}

	code := make([]byte, 0, g.length)
	buf := make([]byte, g.length*2)
	for len(code) < g.length {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= rejectionBound {
				continue
			}
			code = append(code, base62Chars[int(b)%len(base62Chars)])
			if len(code) == g.length {
				break
			}
		}
	}
	return string(code), nil
}

func (g *randomGenerator) Deterministic() bool { return false }
