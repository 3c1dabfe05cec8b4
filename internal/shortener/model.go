package shortener

import (
	"time"

	"github.com/google/uuid"

	"github.com/sundayezeilo/shortlink/internal/errx"
)

type Link struct {
	ID           uuid.UUID
	OriginalURL  string
	ShortCode    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	ExpiresAt    time.Time
	VisitCount   int64
	PasswordHash string // bcrypt hash; empty when the link is public
}

// Protected reports whether resolving the link requires a password.
func (l Link) Protected() bool { return l.PasswordHash != "" }

// ExpiredAt reports whether the link has reached its expiry at now. The
// expiry instant itself is expired, so a zero TTL never redirects.
func (l Link) ExpiredAt(now time.Time) bool { return !now.Before(l.ExpiresAt) }

type AccessEvent struct {
	ID         uuid.UUID
	ShortCode  string
	AccessedAt time.Time
	IPAddress  string
	UserAgent  string
}

// RequestMeta describes the client behind a resolution.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// CreateLinkRequest represents the parameters for creating a new link.
// ExpiresAt wins over TTLHours; with neither, the default TTL applies.
type CreateLinkRequest struct {
	OriginalURL string
	TTLHours    *int
	ExpiresAt   *time.Time
	Password    string
}

type Summary struct {
	OriginalURL string
	ShortCode   string
	VisitCount  int64
	Events      []AccessEvent
}

type OutcomeKind uint8

const (
	OutcomeNotFound OutcomeKind = iota
	OutcomeRedirect
	OutcomeExpired
	OutcomePasswordRequired
	OutcomePasswordIncorrect
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeNotFound:
		return "not_found"
	case OutcomeRedirect:
		return "redirect"
	case OutcomeExpired:
		return "expired"
	case OutcomePasswordRequired:
		return "password_required"
	case OutcomePasswordIncorrect:
		return "password_incorrect"
	default:
		return "unknown"
	}
}

// ErrorKind is the error kind a blocked outcome is reported as. A redirect
// has no error kind.
func (k OutcomeKind) ErrorKind() errx.Kind {
	switch k {
	case OutcomeRedirect:
		return errx.Unknown
	case OutcomeExpired:
		return errx.Gone
	case OutcomePasswordRequired, OutcomePasswordIncorrect:
		return errx.Forbidden
	default:
		return errx.NotFound
	}
}

// Outcome is the result of a resolution. Link is zero for OutcomeNotFound.
// RecordErr is set when the visit was counted but its access event could not
// be stored.
type Outcome struct {
	Kind      OutcomeKind
	Link      Link
	Event     AccessEvent
	RecordErr error
}
