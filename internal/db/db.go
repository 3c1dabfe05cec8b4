// Package db defines the row types and query contract shared by the
// PostgreSQL and SQLite adapters. Adapters translate driver errors into the
// sentinels below so callers never import a driver package.
package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNoRows reports that a query matched nothing. UpsertLink also returns
	// it when the short code is already held by a different URL.
	ErrNoRows = errors.New("db: no rows in result set")
	// ErrUniqueViolation reports a links_short_code_unique violation.
	ErrUniqueViolation = errors.New("db: unique constraint violated")
	// ErrForeignKeyViolation reports an access event pointing at a missing link.
	ErrForeignKeyViolation = errors.New("db: foreign key constraint violated")
)

type Link struct {
	ID           uuid.UUID
	OriginalURL  string
	ShortCode    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	ExpiresAt    time.Time
	VisitCount   int64
	PasswordHash *string
}

type AccessEvent struct {
	ID         uuid.UUID
	ShortCode  string
	AccessedAt time.Time
	IPAddress  string
	UserAgent  string
}

type UpsertLinkParams struct {
	ID           uuid.UUID
	OriginalURL  string
	ShortCode    string
	Now          time.Time
	ExpiresAt    time.Time
	PasswordHash *string
}

type InsertAccessEventParams struct {
	ID         uuid.UUID
	ShortCode  string
	AccessedAt time.Time
	IPAddress  string
	UserAgent  string
}

// Querier is implemented by postgres.Queries and sqlite.Queries.
type Querier interface {
	// InsertLink inserts a new row and fails with ErrUniqueViolation when the
	// short code is taken.
	InsertLink(ctx context.Context, arg UpsertLinkParams) (Link, error)
	// UpsertLink inserts, or, when a row with the same short code and the same
	// original URL exists, refreshes its expiry, password and updated_at in the
	// same statement. created_at, short_code and visit_count are never touched.
	UpsertLink(ctx context.Context, arg UpsertLinkParams) (Link, error)
	GetLinkByShortCode(ctx context.Context, shortCode string) (Link, error)
	// ListLinksByURL returns the rows among shortCodes whose original URL is
	// originalURL, in no particular order.
	ListLinksByURL(ctx context.Context, originalURL string, shortCodes []string) ([]Link, error)
	// IncrementVisitCount adds one server-side and returns the new count.
	IncrementVisitCount(ctx context.Context, shortCode string) (int64, error)
	// DeleteLinkByShortCode removes the link and, by cascade, its events.
	DeleteLinkByShortCode(ctx context.Context, shortCode string) (int64, error)
	InsertAccessEvent(ctx context.Context, arg InsertAccessEventParams) (AccessEvent, error)
	// ListAccessEvents returns events oldest first.
	ListAccessEvents(ctx context.Context, shortCode string) ([]AccessEvent, error)
}
