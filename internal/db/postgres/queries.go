package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/sundayezeilo/shortlink/internal/db"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

var _ db.Querier = (*Queries)(nil)

const linkColumns = `id, original_url, short_code, created_at, updated_at, expires_at, visit_count, password_hash`

const insertLink = `
INSERT INTO links (id, original_url, short_code, created_at, updated_at, expires_at, password_hash)
VALUES ($1, $2, $3, $4, $4, $5, $6)
RETURNING ` + linkColumns

func (q *Queries) InsertLink(ctx context.Context, arg db.UpsertLinkParams) (db.Link, error) {
	row := q.db.QueryRow(ctx, insertLink,
		arg.ID, arg.OriginalURL, arg.ShortCode, arg.Now, arg.ExpiresAt, arg.PasswordHash)
	return scanLink(row)
}

// The WHERE clause turns a conflict with a different URL into "no row".
const upsertLink = `
INSERT INTO links (id, original_url, short_code, created_at, updated_at, expires_at, password_hash)
VALUES ($1, $2, $3, $4, $4, $5, $6)
ON CONFLICT (short_code) DO UPDATE
SET expires_at    = EXCLUDED.expires_at,
    password_hash = EXCLUDED.password_hash,
    updated_at    = EXCLUDED.updated_at
WHERE links.original_url = EXCLUDED.original_url
RETURNING ` + linkColumns

func (q *Queries) UpsertLink(ctx context.Context, arg db.UpsertLinkParams) (db.Link, error) {
	row := q.db.QueryRow(ctx, upsertLink,
		arg.ID, arg.OriginalURL, arg.ShortCode, arg.Now, arg.ExpiresAt, arg.PasswordHash)
	return scanLink(row)
}

const getLinkByShortCode = `SELECT ` + linkColumns + ` FROM links WHERE short_code = $1`

func (q *Queries) GetLinkByShortCode(ctx context.Context, shortCode string) (db.Link, error) {
	return scanLink(q.db.QueryRow(ctx, getLinkByShortCode, shortCode))
}

const listLinksByURL = `SELECT ` + linkColumns + ` FROM links
WHERE original_url = $1 AND short_code = ANY($2)`

func (q *Queries) ListLinksByURL(ctx context.Context, originalURL string, shortCodes []string) ([]db.Link, error) {
	rows, err := q.db.Query(ctx, listLinksByURL, originalURL, shortCodes)
	if err != nil {
		return nil, mapError(err)
	}
	links, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (db.Link, error) {
		return scanLink(row)
	})
	if err != nil {
		return nil, mapError(err)
	}
	return links, nil
}

const incrementVisitCount = `
UPDATE links SET visit_count = visit_count + 1
WHERE short_code = $1
RETURNING visit_count`

func (q *Queries) IncrementVisitCount(ctx context.Context, shortCode string) (int64, error) {
	var count int64
	if err := q.db.QueryRow(ctx, incrementVisitCount, shortCode).Scan(&count); err != nil {
		return 0, mapError(err)
	}
	return count, nil
}

const deleteLinkByShortCode = `DELETE FROM links WHERE short_code = $1`

func (q *Queries) DeleteLinkByShortCode(ctx context.Context, shortCode string) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteLinkByShortCode, shortCode)
	if err != nil {
		return 0, mapError(err)
	}
	return tag.RowsAffected(), nil
}

const insertAccessEvent = `
INSERT INTO access_events (id, short_code, accessed_at, ip_address, user_agent)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, short_code, accessed_at, ip_address, user_agent`

func (q *Queries) InsertAccessEvent(ctx context.Context, arg db.InsertAccessEventParams) (db.AccessEvent, error) {
	var e db.AccessEvent
	err := q.db.QueryRow(ctx, insertAccessEvent,
		arg.ID, arg.ShortCode, arg.AccessedAt, arg.IPAddress, arg.UserAgent,
	).Scan(&e.ID, &e.ShortCode, &e.AccessedAt, &e.IPAddress, &e.UserAgent)
	if err != nil {
		return db.AccessEvent{}, mapError(err)
	}
	return e, nil
}

const listAccessEvents = `
SELECT id, short_code, accessed_at, ip_address, user_agent
FROM access_events
WHERE short_code = $1
ORDER BY accessed_at ASC, id ASC`

func (q *Queries) ListAccessEvents(ctx context.Context, shortCode string) ([]db.AccessEvent, error) {
	rows, err := q.db.Query(ctx, listAccessEvents, shortCode)
	if err != nil {
		return nil, mapError(err)
	}
	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (db.AccessEvent, error) {
		var e db.AccessEvent
		err := row.Scan(&e.ID, &e.ShortCode, &e.AccessedAt, &e.IPAddress, &e.UserAgent)
		return e, err
	})
	if err != nil {
		return nil, mapError(err)
	}
	return events, nil
}

func scanLink(row pgx.Row) (db.Link, error) {
	var (
		l    db.Link
		hash pgtype.Text
	)
	err := row.Scan(&l.ID, &l.OriginalURL, &l.ShortCode, &l.CreatedAt, &l.UpdatedAt, &l.ExpiresAt, &l.VisitCount, &hash)
	if err != nil {
		return db.Link{}, mapError(err)
	}
	l.PasswordHash = textPtr(hash)
	return l, nil
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := t.String
	return &s
}
