package shortener

import "context"

// LinkRepository persists links. Implementations translate store failures
// into errx kinds wrapping the package sentinels.
type LinkRepository interface {
	// InsertLink fails with ErrDuplicateCode when the code is taken.
	InsertLink(ctx context.Context, link Link) (Link, error)
	// UpsertLink inserts the link or, when the same URL already owns the code,
	// refreshes its expiry, password and updated_at. The bool reports whether
	// a new row was created. A code owned by a different URL yields
	// ErrCodeCollision.
	UpsertLink(ctx context.Context, link Link) (Link, bool, error)
	GetLink(ctx context.Context, code string) (Link, error)
	// FindByURL returns the links among codes already registered to
	// originalURL.
	FindByURL(ctx context.Context, originalURL string, codes []string) ([]Link, error)
	IncrementVisits(ctx context.Context, code string) (int64, error)
	// DeleteLink is a no-op for unknown codes.
	DeleteLink(ctx context.Context, code string) error
}

// EventRepository persists access events.
type EventRepository interface {
	// AppendEvent fails with ErrNotFound when the link does not exist.
	AppendEvent(ctx context.Context, event AccessEvent) (AccessEvent, error)
	ListEvents(ctx context.Context, code string) ([]AccessEvent, error)
}

type Repository interface {
	LinkRepository
	EventRepository
}
