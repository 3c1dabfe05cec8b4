package shortener

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/sundayezeilo/shortlink/internal/db"
	"github.com/sundayezeilo/shortlink/internal/errx"
	"github.com/sundayezeilo/shortlink/internal/idgen"
)

type repo struct {
	q   db.Querier
	ids idgen.Generator
}

// RepositoryConfig holds configuration for the repository
type RepositoryConfig struct {
	IDGenerator idgen.Generator
}

// NewRepository returns a Repository backed by either store adapter.
func NewRepository(q db.Querier, config *RepositoryConfig) Repository {
	if config == nil {
		config = &RepositoryConfig{}
	}

	// UUID v7 keeps inserts index-local.
	ids := config.IDGenerator
	if ids == nil {
		ids = idgen.NewV7(idgen.WithRetries(1))
	}

	return &repo{
		q:   q,
		ids: ids,
	}
}

func toDomainLink(x db.Link) Link {
	l := Link{
		ID:          x.ID,
		OriginalURL: x.OriginalURL,
		ShortCode:   x.ShortCode,
		CreatedAt:   x.CreatedAt,
		UpdatedAt:   x.UpdatedAt,
		ExpiresAt:   x.ExpiresAt,
		VisitCount:  x.VisitCount,
	}
	if x.PasswordHash != nil {
		l.PasswordHash = *x.PasswordHash
	}
	return l
}

func toDomainEvent(x db.AccessEvent) AccessEvent {
	return AccessEvent{
		ID:         x.ID,
		ShortCode:  x.ShortCode,
		AccessedAt: x.AccessedAt,
		IPAddress:  x.IPAddress,
		UserAgent:  x.UserAgent,
	}
}

func mapRepoError(op string, err error) error {
	switch {
	case errors.Is(err, db.ErrNoRows), errors.Is(err, db.ErrForeignKeyViolation):
		return errx.E(op, errx.NotFound, fmt.Errorf("%w: %w", ErrNotFound, err))

	case errors.Is(err, db.ErrUniqueViolation):
		return errx.E(op, errx.Conflict, fmt.Errorf("%w: %w", ErrDuplicateCode, err))

	default:
		return errx.E(op, errx.Unavailable, err)
	}
}

func (r *repo) linkParams(link Link) (db.UpsertLinkParams, error) {
	if link.ID == uuid.Nil {
		id, err := r.ids.Generate()
		if err != nil {
			return db.UpsertLinkParams{}, err
		}
		link.ID = id
	}

	p := db.UpsertLinkParams{
		ID:          link.ID,
		OriginalURL: link.OriginalURL,
		ShortCode:   link.ShortCode,
		Now:         link.CreatedAt,
		ExpiresAt:   link.ExpiresAt,
	}
	if link.PasswordHash != "" {
		hash := link.PasswordHash
		p.PasswordHash = &hash
	}
	return p, nil
}

func (r *repo) InsertLink(ctx context.Context, link Link) (Link, error) {
	const op = "shortener.repo.InsertLink"

	p, err := r.linkParams(link)
	if err != nil {
		return Link{}, errx.E(op, errx.Internal, err)
	}

	row, err := r.q.InsertLink(ctx, p)
	if err != nil {
		return Link{}, mapRepoError(op, err)
	}
	return toDomainLink(row), nil
}

func (r *repo) UpsertLink(ctx context.Context, link Link) (Link, bool, error) {
	const op = "shortener.repo.UpsertLink"

	p, err := r.linkParams(link)
	if err != nil {
		return Link{}, false, errx.E(op, errx.Internal, err)
	}

	row, err := r.q.UpsertLink(ctx, p)
	if errors.Is(err, db.ErrNoRows) {
		return Link{}, false, errx.E(op, errx.Conflict, ErrCodeCollision)
	}
	if err != nil {
		return Link{}, false, mapRepoError(op, err)
	}
	// An existing row keeps its own id.
	return toDomainLink(row), row.ID == p.ID, nil
}

func (r *repo) GetLink(ctx context.Context, code string) (Link, error) {
	const op = "shortener.repo.GetLink"

	row, err := r.q.GetLinkByShortCode(ctx, code)
	if err != nil {
		return Link{}, mapRepoError(op, err)
	}
	return toDomainLink(row), nil
}

func (r *repo) FindByURL(ctx context.Context, originalURL string, codes []string) ([]Link, error) {
	const op = "shortener.repo.FindByURL"

	if len(codes) == 0 {
		return nil, nil
	}
	rows, err := r.q.ListLinksByURL(ctx, originalURL, codes)
	if err != nil {
		return nil, mapRepoError(op, err)
	}

	links := make([]Link, 0, len(rows))
	for _, row := range rows {
		links = append(links, toDomainLink(row))
	}
	return links, nil
}

func (r *repo) IncrementVisits(ctx context.Context, code string) (int64, error) {
	const op = "shortener.repo.IncrementVisits"

	count, err := r.q.IncrementVisitCount(ctx, code)
	if err != nil {
		return 0, mapRepoError(op, err)
	}
	return count, nil
}

func (r *repo) DeleteLink(ctx context.Context, code string) error {
	const op = "shortener.repo.DeleteLink"

	if _, err := r.q.DeleteLinkByShortCode(ctx, code); err != nil {
		return mapRepoError(op, err)
	}
	return nil
}

func (r *repo) AppendEvent(ctx context.Context, event AccessEvent) (AccessEvent, error) {
	const op = "shortener.repo.AppendEvent"

	if event.ID == uuid.Nil {
		id, err := r.ids.Generate()
		if err != nil {
			return AccessEvent{}, errx.E(op, errx.Internal, err)
		}
		event.ID = id
	}

	row, err := r.q.InsertAccessEvent(ctx, db.InsertAccessEventParams{
		ID:         event.ID,
		ShortCode:  event.ShortCode,
		AccessedAt: event.AccessedAt,
		IPAddress:  event.IPAddress,
		UserAgent:  event.UserAgent,
	})
	if err != nil {
		return AccessEvent{}, mapRepoError(op, err)
	}
	return toDomainEvent(row), nil
}

func (r *repo) ListEvents(ctx context.Context, code string) ([]AccessEvent, error) {
	const op = "shortener.repo.ListEvents"

	rows, err := r.q.ListAccessEvents(ctx, code)
	if err != nil {
		return nil, mapRepoError(op, err)
	}

	events := make([]AccessEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, toDomainEvent(row))
	}
	return events, nil
}
