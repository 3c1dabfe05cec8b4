package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sundayezeilo/shortlink/internal/db"
)

// DBTX is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries stores timestamps as unix nanoseconds in INTEGER columns.
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
VALUES (?1, ?2, ?3, ?4, ?4, ?5, ?6)
RETURNING ` + linkColumns

func (q *Queries) InsertLink(ctx context.Context, arg db.UpsertLinkParams) (db.Link, error) {
	row := q.db.QueryRowContext(ctx, insertLink, linkArgs(arg)...)
	return scanLink(row)
}

const upsertLink = `
INSERT INTO links (id, original_url, short_code, created_at, updated_at, expires_at, password_hash)
VALUES (?1, ?2, ?3, ?4, ?4, ?5, ?6)
ON CONFLICT (short_code) DO UPDATE
SET expires_at    = excluded.expires_at,
    password_hash = excluded.password_hash,
    updated_at    = excluded.updated_at
WHERE links.original_url = excluded.original_url
RETURNING ` + linkColumns

func (q *Queries) UpsertLink(ctx context.Context, arg db.UpsertLinkParams) (db.Link, error) {
	row := q.db.QueryRowContext(ctx, upsertLink, linkArgs(arg)...)
	return scanLink(row)
}

const getLinkByShortCode = `SELECT ` + linkColumns + ` FROM links WHERE short_code = ?1`

func (q *Queries) GetLinkByShortCode(ctx context.Context, shortCode string) (db.Link, error) {
	return scanLink(q.db.QueryRowContext(ctx, getLinkByShortCode, shortCode))
}

const listLinksByURL = `SELECT ` + linkColumns + ` FROM links
WHERE original_url = ?1 AND short_code IN (%s)`

func (q *Queries) ListLinksByURL(ctx context.Context, originalURL string, shortCodes []string) ([]db.Link, error) {
	if len(shortCodes) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(shortCodes))
	args := make([]any, 0, len(shortCodes)+1)
	args = append(args, originalURL)
	for i, code := range shortCodes {
		placeholders[i] = fmt.Sprintf("?%d", i+2)
		args = append(args, code)
	}

	rows, err := q.db.QueryContext(ctx, fmt.Sprintf(listLinksByURL, strings.Join(placeholders, ", ")), args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var links []db.Link
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return links, nil
}

const incrementVisitCount = `
UPDATE links SET visit_count = visit_count + 1
WHERE short_code = ?1
RETURNING visit_count`

func (q *Queries) IncrementVisitCount(ctx context.Context, shortCode string) (int64, error) {
	var count int64
	if err := q.db.QueryRowContext(ctx, incrementVisitCount, shortCode).Scan(&count); err != nil {
		return 0, mapError(err)
	}
	return count, nil
}

const deleteLinkByShortCode = `DELETE FROM links WHERE short_code = ?1`

func (q *Queries) DeleteLinkByShortCode(ctx context.Context, shortCode string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteLinkByShortCode, shortCode)
	if err != nil {
		return 0, mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, mapError(err)
	}
	return n, nil
}

const insertAccessEvent = `
INSERT INTO access_events (id, short_code, accessed_at, ip_address, user_agent)
VALUES (?1, ?2, ?3, ?4, ?5)`

func (q *Queries) InsertAccessEvent(ctx context.Context, arg db.InsertAccessEventParams) (db.AccessEvent, error) {
	_, err := q.db.ExecContext(ctx, insertAccessEvent,
		arg.ID.String(), arg.ShortCode, arg.AccessedAt.UnixMicro(), arg.IPAddress, arg.UserAgent)
	if err != nil {
		return db.AccessEvent{}, mapError(err)
	}
	return db.AccessEvent{
		ID:         arg.ID,
		ShortCode:  arg.ShortCode,
		AccessedAt: fromMicros(arg.AccessedAt.UnixMicro()),
		IPAddress:  arg.IPAddress,
		UserAgent:  arg.UserAgent,
	}, nil
}

const listAccessEvents = `
SELECT id, short_code, accessed_at, ip_address, user_agent
FROM access_events
WHERE short_code = ?1
ORDER BY accessed_at ASC, id ASC`

func (q *Queries) ListAccessEvents(ctx context.Context, shortCode string) ([]db.AccessEvent, error) {
	rows, err := q.db.QueryContext(ctx, listAccessEvents, shortCode)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var events []db.AccessEvent
	for rows.Next() {
		var (
			e          db.AccessEvent
			id         string
			accessedAt int64
		)
		if err := rows.Scan(&id, &e.ShortCode, &accessedAt, &e.IPAddress, &e.UserAgent); err != nil {
			return nil, mapError(err)
		}
		if e.ID, err = uuid.Parse(id); err != nil {
			return nil, err
		}
		e.AccessedAt = fromMicros(accessedAt)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return events, nil
}

func linkArgs(arg db.UpsertLinkParams) []any {
	var hash any
	if arg.PasswordHash != nil {
		hash = *arg.PasswordHash
	}
	return []any{
		arg.ID.String(),
		arg.OriginalURL,
		arg.ShortCode,
		arg.Now.UnixMicro(),
		arg.ExpiresAt.UnixMicro(),
		hash,
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLink(row scanner) (db.Link, error) {
	var (
		l                              db.Link
		id                             string
		createdAt, updatedAt, expireAt int64
		hash                           sql.NullString
	)
	err := row.Scan(&id, &l.OriginalURL, &l.ShortCode, &createdAt, &updatedAt, &expireAt, &l.VisitCount, &hash)
	if err != nil {
		return db.Link{}, mapError(err)
	}
	if l.ID, err = uuid.Parse(id); err != nil {
		return db.Link{}, err
	}
	l.CreatedAt = fromMicros(createdAt)
	l.UpdatedAt = fromMicros(updatedAt)
	l.ExpiresAt = fromMicros(expireAt)
	if hash.Valid {
		l.PasswordHash = &hash.String
	}
	return l, nil
}

// Timestamps are stored as unix microseconds, which covers every year a
// time.Time can represent at the precision PostgreSQL keeps.
func fromMicros(us int64) time.Time {
	return time.UnixMicro(us).UTC()
}
