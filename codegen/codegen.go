// Package codegen derives short codes for URLs.
// Generators are pure and safe for concurrent use; checking a code against
// existing links is the caller's job.
package codegen

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidURL is returned when the input does not start with http:// or https://.
var ErrInvalidURL = errors.New("url must start with http:// or https://")

// Strategy names accepted by New.
const (
	StrategyHash   = "hash"
	StrategyRandom = "random"
)

// Generator produces a candidate short code for originalURL.
//
// attempt starts at 0 and grows each time the caller finds the previous
// candidate owned by a different URL. Deterministic generators use it to
// derive a different, still reproducible, code; random ones ignore it.
type Generator interface {
	Generate(originalURL string, attempt int) (string, error)

	// Deterministic reports whether the same URL always yields the same
	// sequence of codes, which makes re-submission idempotent.
	Deterministic() bool
}

// Options tunes the generator built by New. Zero values select defaults.
type Options struct {
	HashPrefixLength int
	RandomLength     int
}

// New returns the generator registered under strategy.
func New(strategy string, opts Options) (Generator, error) {
	switch strings.ToLower(strings.TrimSpace(strategy)) {
	case "", StrategyHash:
		return NewHash(WithPrefixLength(opts.HashPrefixLength)), nil
	case StrategyRandom:
		return NewRandom(opts.RandomLength), nil
	default:
		return nil, fmt.Errorf("unknown code strategy %q (must be one of: %s, %s)", strategy, StrategyHash, StrategyRandom)
	}
}

func checkScheme(originalURL string) error {
	if strings.HasPrefix(originalURL, "http://") || strings.HasPrefix(originalURL, "https://") {
		return nil
	}
	return ErrInvalidURL
}
