package shortener

import "errors"

var (
	ErrInvalidURL = errors.New("invalid url")
	ErrNotFound   = errors.New("short link not found")

	// ErrCodeCollision means a deterministic code is already held by a
	// different URL.
	ErrCodeCollision = errors.New("short code belongs to a different url")
	// ErrDuplicateCode means a randomly drawn code is already taken.
	ErrDuplicateCode       = errors.New("short code already taken")
	ErrGenerationExhausted = errors.New("could not generate a unique short code")
)
