package shortener

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	MaxURLLength       = 400
	MaxShortCodeLength = 64
	MaxPasswordLength  = 72 // bcrypt ignores anything longer
	MaxUserAgentLength = 200
	MaxIPAddressLength = 45
)

func validateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("%w: url cannot be empty", ErrInvalidURL)
	}
	if len(rawURL) > MaxURLLength {
		return fmt.Errorf("%w: url too long (max %d characters)", ErrInvalidURL, MaxURLLength)
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: invalid url format", ErrInvalidURL)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("%w: url scheme must be http or https", ErrInvalidURL)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("%w: url must include host", ErrInvalidURL)
	}
	return nil
}

// validCode rejects codes no generator could have produced, so they never
// reach the store.
func validCode(code string) bool {
	if code == "" || len(code) > MaxShortCodeLength {
		return false
	}
	return !strings.ContainsAny(code, "/?# \t\r\n")
}
