package shortener

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sundayezeilo/shortlink/internal/errx"
	"github.com/sundayezeilo/shortlink/internal/retry"
)

/***************
 * Mocks
 ***************/

// mockRepository implements Repository with overridable funcs.
type mockRepository struct {
	insertLinkFunc      func(ctx context.Context, link Link) (Link, error)
	upsertLinkFunc      func(ctx context.Context, link Link) (Link, bool, error)
	getLinkFunc         func(ctx context.Context, code string) (Link, error)
	findByURLFunc       func(ctx context.Context, originalURL string, codes []string) ([]Link, error)
	incrementVisitsFunc func(ctx context.Context, code string) (int64, error)
	deleteLinkFunc      func(ctx context.Context, code string) error
	appendEventFunc     func(ctx context.Context, event AccessEvent) (AccessEvent, error)
	listEventsFunc      func(ctx context.Context, code string) ([]AccessEvent, error)
}

func (m *mockRepository) InsertLink(ctx context.Context, link Link) (Link, error) {
	if m.insertLinkFunc != nil {
		return m.insertLinkFunc(ctx, link)
	}
	link.ID = uuid.New()
	return link, nil
}

func (m *mockRepository) UpsertLink(ctx context.Context, link Link) (Link, bool, error) {
	if m.upsertLinkFunc != nil {
		return m.upsertLinkFunc(ctx, link)
	}
	link.ID = uuid.New()
	return link, true, nil
}

func (m *mockRepository) GetLink(ctx context.Context, code string) (Link, error) {
	if m.getLinkFunc != nil {
		return m.getLinkFunc(ctx, code)
	}
	return Link{}, errx.E("repo.GetLink", errx.NotFound, ErrNotFound)
}

func (m *mockRepository) FindByURL(ctx context.Context, originalURL string, codes []string) ([]Link, error) {
	if m.findByURLFunc != nil {
		return m.findByURLFunc(ctx, originalURL, codes)
	}
	return nil, nil
}

func (m *mockRepository) IncrementVisits(ctx context.Context, code string) (int64, error) {
	if m.incrementVisitsFunc != nil {
		return m.incrementVisitsFunc(ctx, code)
	}
	return 1, nil
}

func (m *mockRepository) DeleteLink(ctx context.Context, code string) error {
	if m.deleteLinkFunc != nil {
		return m.deleteLinkFunc(ctx, code)
	}
	return nil
}

func (m *mockRepository) AppendEvent(ctx context.Context, event AccessEvent) (AccessEvent, error) {
	if m.appendEventFunc != nil {
		return m.appendEventFunc(ctx, event)
	}
	event.ID = uuid.New()
	return event, nil
}

func (m *mockRepository) ListEvents(ctx context.Context, code string) ([]AccessEvent, error) {
	if m.listEventsFunc != nil {
		return m.listEventsFunc(ctx, code)
	}
	return nil, nil
}

// mockGenerator returns codes in order; attempts beyond the list reuse the last.
type mockGenerator struct {
	codes         []string
	deterministic bool
	err           error
	attempts      []int
}

func (m *mockGenerator) Generate(_ string, attempt int) (string, error) {
	m.attempts = append(m.attempts, attempt)
	if m.err != nil {
		return "", m.err
	}
	idx := min(len(m.attempts)-1, len(m.codes)-1)
	return m.codes[idx], nil
}

func (m *mockGenerator) Deterministic() bool { return m.deterministic }

/***************
 * Helpers
 ***************/

var fixedNow = time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)

func clockAt(t time.Time) func() time.Time { return func() time.Time { return t } }

func noRetry() *retry.Policy { return &retry.Policy{} }

func quickRetry(n uint64) *retry.Policy {
	return &retry.Policy{MaxRetries: n, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
}

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func unavailable(op string) error {
	return errx.E(op, errx.Unavailable, errors.New("connection reset"))
}

func ptr[T any](v T) *T { return &v }
