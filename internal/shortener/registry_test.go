package shortener

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/sundayezeilo/shortlink/codegen"
	"github.com/sundayezeilo/shortlink/internal/errx"
)

func newTestRegistry(repo LinkRepository, gen codegen.Generator) *Registry {
	return NewRegistry(repo, &RegistryConfig{
		Generator:    gen,
		PasswordCost: bcrypt.MinCost,
		Retry:        noRetry(),
		Clock:        clockAt(fixedNow),
	})
}

func TestRegistry_Upsert_Validation(t *testing.T) {
	repo := &mockRepository{
		upsertLinkFunc: func(ctx context.Context, link Link) (Link, bool, error) {
			t.Fatal("store must not be reached for invalid input")
			return Link{}, false, nil
		},
	}
	reg := newTestRegistry(repo, codegen.NewHash())

	tests := []struct {
		name    string
		req     CreateLinkRequest
		wantURL bool
	}{
		{name: "not a url", req: CreateLinkRequest{OriginalURL: "not-a-url"}, wantURL: true},
		{name: "ftp", req: CreateLinkRequest{OriginalURL: "ftp://example.com"}, wantURL: true},
		{name: "negative ttl", req: CreateLinkRequest{OriginalURL: "https://example.com", TTLHours: ptr(-1)}},
		{name: "ttl above max", req: CreateLinkRequest{OriginalURL: "https://example.com", TTLHours: ptr(DefaultMaxTTLHours + 1)}},
		{name: "password too long", req: CreateLinkRequest{OriginalURL: "https://example.com", Password: string(make([]byte, MaxPasswordLength+1))}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := reg.Upsert(context.Background(), tt.req)
			if errx.KindOf(err) != errx.Invalid {
				t.Fatalf("Upsert() kind = %v, want Invalid (err %v)", errx.KindOf(err), err)
			}
			if tt.wantURL && !errors.Is(err, ErrInvalidURL) {
				t.Errorf("Upsert() error = %v, want ErrInvalidURL", err)
			}
		})
	}
}

func TestRegistry_Upsert_Expiry(t *testing.T) {
	explicit := fixedNow.Add(-time.Hour)

	tests := []struct {
		name string
		req  CreateLinkRequest
		want time.Time
	}{
		{name: "default 24h", req: CreateLinkRequest{}, want: fixedNow.Add(24 * time.Hour)},
		{name: "ttl hours", req: CreateLinkRequest{TTLHours: ptr(3)}, want: fixedNow.Add(3 * time.Hour)},
		{name: "zero ttl", req: CreateLinkRequest{TTLHours: ptr(0)}, want: fixedNow},
		{
			name: "max ttl past the duration range",
			req:  CreateLinkRequest{TTLHours: ptr(DefaultMaxTTLHours)},
			want: fixedNow.AddDate(0, 0, DefaultMaxTTLHours/24).Add(time.Duration(DefaultMaxTTLHours%24) * time.Hour),
		},
		{name: "explicit wins over ttl", req: CreateLinkRequest{TTLHours: ptr(3), ExpiresAt: &explicit}, want: explicit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stored Link
			repo := &mockRepository{
				upsertLinkFunc: func(ctx context.Context, link Link) (Link, bool, error) {
					stored = link
					return link, true, nil
				},
			}
			tt.req.OriginalURL = "https://example.com"

			link, _, err := newTestRegistry(repo, codegen.NewHash()).Upsert(context.Background(), tt.req)
			if err != nil {
				t.Fatalf("Upsert() error: %v", err)
			}
			if link.ExpiresAt.Before(fixedNow) {
				t.Errorf("ExpiresAt = %v is before creation", link.ExpiresAt)
			}
			if !link.ExpiresAt.Equal(tt.want) || !stored.ExpiresAt.Equal(tt.want) {
				t.Errorf("ExpiresAt = %v, want %v", link.ExpiresAt, tt.want)
			}
			if !stored.CreatedAt.Equal(fixedNow) || !stored.UpdatedAt.Equal(fixedNow) {
				t.Errorf("timestamps = %v / %v, want %v", stored.CreatedAt, stored.UpdatedAt, fixedNow)
			}
		})
	}
}

func TestRegistry_Upsert_Deterministic(t *testing.T) {
	t.Run("example url gets the sha-256 prefix", func(t *testing.T) {
		repo := &mockRepository{}
		link, inserted, err := newTestRegistry(repo, codegen.NewHash()).
			Upsert(context.Background(), CreateLinkRequest{OriginalURL: "  https://example.com "})
		if err != nil {
			t.Fatalf("Upsert() error: %v", err)
		}
		if link.ShortCode != "100680ad" || !inserted {
			t.Errorf("Upsert() = %q, %v; want 100680ad, true", link.ShortCode, inserted)
		}
		if link.OriginalURL != "https://example.com" {
			t.Errorf("OriginalURL = %q, want trimmed", link.OriginalURL)
		}
	})

	t.Run("re-submission reports no insert", func(t *testing.T) {
		repo := &mockRepository{
			upsertLinkFunc: func(ctx context.Context, link Link) (Link, bool, error) {
				return link, false, nil
			},
		}
		_, inserted, err := newTestRegistry(repo, codegen.NewHash()).
			Upsert(context.Background(), CreateLinkRequest{OriginalURL: "https://example.com"})
		if err != nil || inserted {
			t.Errorf("Upsert() inserted = %v, err = %v; want false, nil", inserted, err)
		}
	})

	t.Run("collision widens the code", func(t *testing.T) {
		var codes []string
		repo := &mockRepository{
			upsertLinkFunc: func(ctx context.Context, link Link) (Link, bool, error) {
				codes = append(codes, link.ShortCode)
				if len(codes) < 3 {
					return Link{}, false, errx.E("repo.UpsertLink", errx.Conflict, ErrCodeCollision)
				}
				return link, true, nil
			},
		}
		link, _, err := newTestRegistry(repo, codegen.NewHash()).
			Upsert(context.Background(), CreateLinkRequest{OriginalURL: "https://example.com"})
		if err != nil {
			t.Fatalf("Upsert() error: %v", err)
		}
		if len(codes) != 3 || len(codes[0]) != 8 || len(codes[1]) != 12 || len(link.ShortCode) != 16 {
			t.Errorf("codes = %v, final %q", codes, link.ShortCode)
		}
	})

	t.Run("persistent collision is exhausted", func(t *testing.T) {
		calls := 0
		repo := &mockRepository{
			upsertLinkFunc: func(ctx context.Context, link Link) (Link, bool, error) {
				calls++
				return Link{}, false, errx.E("repo.UpsertLink", errx.Conflict, ErrCodeCollision)
			},
		}
		_, _, err := newTestRegistry(repo, codegen.NewHash()).
			Upsert(context.Background(), CreateLinkRequest{OriginalURL: "https://example.com"})
		if errx.KindOf(err) != errx.Exhausted || !errors.Is(err, ErrCodeCollision) {
			t.Fatalf("Upsert() error = %v, want Exhausted ErrCodeCollision", err)
		}
		if calls != DefaultMaxAttempts {
			t.Errorf("store calls = %d, want %d", calls, DefaultMaxAttempts)
		}
	})

	t.Run("store failure is not retried", func(t *testing.T) {
		calls := 0
		repo := &mockRepository{
			upsertLinkFunc: func(ctx context.Context, link Link) (Link, bool, error) {
				calls++
				return Link{}, false, unavailable("repo.UpsertLink")
			},
		}
		_, _, err := newTestRegistry(repo, codegen.NewHash()).
			Upsert(context.Background(), CreateLinkRequest{OriginalURL: "https://example.com"})
		if errx.KindOf(err) != errx.Unavailable || calls != 1 {
			t.Errorf("kind = %v, calls = %d; want Unavailable, 1", errx.KindOf(err), calls)
		}
	})
}

// memLinks is a map-backed LinkRepository with the deterministic upsert rules.
type memLinks struct {
	mockRepository
	rows    map[string]Link
	upserts []string
}

func newMemLinks() *memLinks {
	m := &memLinks{rows: map[string]Link{}}
	m.upsertLinkFunc = func(ctx context.Context, link Link) (Link, bool, error) {
		m.upserts = append(m.upserts, link.ShortCode)
		if row, ok := m.rows[link.ShortCode]; ok {
			if row.OriginalURL != link.OriginalURL {
				return Link{}, false, errx.E("repo.UpsertLink", errx.Conflict, ErrCodeCollision)
			}
			row.UpdatedAt, row.ExpiresAt = link.UpdatedAt, link.ExpiresAt
			m.rows[link.ShortCode] = row
			return row, false, nil
		}
		m.rows[link.ShortCode] = link
		return link, true, nil
	}
	m.findByURLFunc = func(ctx context.Context, originalURL string, codes []string) ([]Link, error) {
		var out []Link
		for _, code := range codes {
			if row, ok := m.rows[code]; ok && row.OriginalURL == originalURL {
				out = append(out, row)
			}
		}
		return out, nil
	}
	m.deleteLinkFunc = func(ctx context.Context, code string) error {
		delete(m.rows, code)
		return nil
	}
	return m
}

func TestRegistry_Upsert_WidenedCodeIsStable(t *testing.T) {
	const url = "https://example.com"
	gen := codegen.NewHash()
	narrow, _ := gen.Generate(url, 0)
	wide, _ := gen.Generate(url, 1)

	store := newMemLinks()
	store.rows[narrow] = Link{OriginalURL: "https://other.example", ShortCode: narrow}
	reg := newTestRegistry(store, gen)

	first, inserted, err := reg.Upsert(context.Background(), CreateLinkRequest{OriginalURL: url})
	if err != nil || !inserted || first.ShortCode != wide {
		t.Fatalf("Upsert() = %q, %v, %v; want %q, true", first.ShortCode, inserted, err, wide)
	}

	if err := reg.DeleteByCode(context.Background(), narrow); err != nil {
		t.Fatalf("DeleteByCode() error: %v", err)
	}
	store.upserts = nil

	again, inserted, err := reg.Upsert(context.Background(), CreateLinkRequest{OriginalURL: url})
	if err != nil {
		t.Fatalf("Upsert() error: %v", err)
	}
	if again.ShortCode != wide || inserted {
		t.Errorf("Upsert() = %q, inserted=%v; want %q, false", again.ShortCode, inserted, wide)
	}
	if len(store.upserts) != 1 || store.upserts[0] != wide {
		t.Errorf("upserts = %v, want only %q", store.upserts, wide)
	}
	if len(store.rows) != 1 {
		t.Errorf("rows = %d, want 1", len(store.rows))
	}
}

func TestRegistry_Upsert_ChainLookup(t *testing.T) {
	t.Run("looks up the whole chain", func(t *testing.T) {
		var got []string
		repo := &mockRepository{
			findByURLFunc: func(ctx context.Context, originalURL string, codes []string) ([]Link, error) {
				got = codes
				return nil, nil
			},
		}
		if _, _, err := newTestRegistry(repo, codegen.NewHash()).
			Upsert(context.Background(), CreateLinkRequest{OriginalURL: "https://example.com"}); err != nil {
			t.Fatalf("Upsert() error: %v", err)
		}
		if len(got) != DefaultMaxAttempts || got[0] != "100680ad" {
			t.Errorf("chain = %v", got)
		}
	})

	t.Run("lookup failure stops the upsert", func(t *testing.T) {
		repo := &mockRepository{
			findByURLFunc: func(ctx context.Context, originalURL string, codes []string) ([]Link, error) {
				return nil, unavailable("repo.FindByURL")
			},
			upsertLinkFunc: func(ctx context.Context, link Link) (Link, bool, error) {
				t.Fatal("store must not be reached")
				return Link{}, false, nil
			},
		}
		_, _, err := newTestRegistry(repo, codegen.NewHash()).
			Upsert(context.Background(), CreateLinkRequest{OriginalURL: "https://example.com"})
		if errx.KindOf(err) != errx.Unavailable {
			t.Errorf("kind = %v, want Unavailable", errx.KindOf(err))
		}
	})

	t.Run("random strategy skips the lookup", func(t *testing.T) {
		repo := &mockRepository{
			findByURLFunc: func(ctx context.Context, originalURL string, codes []string) ([]Link, error) {
				t.Error("FindByURL called for random codes")
				return nil, nil
			},
		}
		gen := &mockGenerator{codes: []string{"abc123"}}
		if _, _, err := newTestRegistry(repo, gen).
			Upsert(context.Background(), CreateLinkRequest{OriginalURL: "https://example.com"}); err != nil {
			t.Fatalf("Upsert() error: %v", err)
		}
	})
}

func TestRegistry_Upsert_Random(t *testing.T) {
	t.Run("duplicate draws again", func(t *testing.T) {
		gen := &mockGenerator{codes: []string{"taken1", "taken2", "free01"}}
		repo := &mockRepository{
			insertLinkFunc: func(ctx context.Context, link Link) (Link, error) {
				if link.ShortCode != "free01" {
					return Link{}, errx.E("repo.InsertLink", errx.Conflict, ErrDuplicateCode)
				}
				return link, nil
			},
		}
		link, inserted, err := newTestRegistry(repo, gen).
			Upsert(context.Background(), CreateLinkRequest{OriginalURL: "https://example.com"})
		if err != nil {
			t.Fatalf("Upsert() error: %v", err)
		}
		if link.ShortCode != "free01" || !inserted || len(gen.attempts) != 3 {
			t.Errorf("Upsert() = %q inserted=%v after %d draws", link.ShortCode, inserted, len(gen.attempts))
		}
	})

	t.Run("exhaustion", func(t *testing.T) {
		gen := &mockGenerator{codes: []string{"taken1"}}
		repo := &mockRepository{
			insertLinkFunc: func(ctx context.Context, link Link) (Link, error) {
				return Link{}, errx.E("repo.InsertLink", errx.Conflict, ErrDuplicateCode)
			},
		}
		reg := NewRegistry(repo, &RegistryConfig{Generator: gen, MaxAttempts: 2, Retry: noRetry()})
		_, _, err := reg.Upsert(context.Background(), CreateLinkRequest{OriginalURL: "https://example.com"})
		if !errors.Is(err, ErrGenerationExhausted) || errx.KindOf(err) != errx.Exhausted {
			t.Fatalf("Upsert() error = %v, want Exhausted ErrGenerationExhausted", err)
		}
		if len(gen.attempts) != 2 {
			t.Errorf("draws = %d, want 2", len(gen.attempts))
		}
	})

	t.Run("generator failure", func(t *testing.T) {
		gen := &mockGenerator{err: errors.New("entropy unavailable")}
		_, _, err := newTestRegistry(&mockRepository{}, gen).
			Upsert(context.Background(), CreateLinkRequest{OriginalURL: "https://example.com"})
		if errx.KindOf(err) != errx.Internal {
			t.Errorf("kind = %v, want Internal", errx.KindOf(err))
		}
	})
}

func TestRegistry_Upsert_Password(t *testing.T) {
	var stored Link
	repo := &mockRepository{
		upsertLinkFunc: func(ctx context.Context, link Link) (Link, bool, error) {
			stored = link
			return link, true, nil
		},
	}
	reg := newTestRegistry(repo, codegen.NewHash())

	link, _, err := reg.Upsert(context.Background(), CreateLinkRequest{OriginalURL: "https://example.com", Password: "hunter2"})
	if err != nil {
		t.Fatalf("Upsert() error: %v", err)
	}
	if !link.Protected() || stored.PasswordHash == "hunter2" {
		t.Fatalf("password not hashed: %q", stored.PasswordHash)
	}
	if !passwordMatches(stored.PasswordHash, "hunter2") || passwordMatches(stored.PasswordHash, "hunter3") {
		t.Error("stored hash does not verify the original password")
	}

	if _, _, err := reg.Upsert(context.Background(), CreateLinkRequest{OriginalURL: "https://example.com"}); err != nil {
		t.Fatalf("Upsert() error: %v", err)
	}
	if stored.Protected() {
		t.Error("re-submission without a password must clear it")
	}
}

func TestRegistry_Lookup(t *testing.T) {
	t.Run("invalid code never reaches the store", func(t *testing.T) {
		repo := &mockRepository{
			getLinkFunc: func(ctx context.Context, code string) (Link, error) {
				t.Fatal("unexpected store call")
				return Link{}, nil
			},
		}
		_, err := newTestRegistry(repo, nil).Lookup(context.Background(), "")
		if !errors.Is(err, ErrNotFound) || errx.KindOf(err) != errx.NotFound {
			t.Errorf("Lookup() error = %v, want NotFound", err)
		}
	})

	t.Run("transient failures are retried", func(t *testing.T) {
		calls := 0
		repo := &mockRepository{
			getLinkFunc: func(ctx context.Context, code string) (Link, error) {
				calls++
				if calls < 3 {
					return Link{}, unavailable("repo.GetLink")
				}
				return Link{ShortCode: code}, nil
			},
		}
		reg := NewRegistry(repo, &RegistryConfig{Retry: quickRetry(3)})
		link, err := reg.Lookup(context.Background(), "abc123")
		if err != nil || link.ShortCode != "abc123" {
			t.Fatalf("Lookup() = %+v, %v", link, err)
		}
		if calls != 3 {
			t.Errorf("calls = %d, want 3", calls)
		}
	})

	t.Run("not found is not retried", func(t *testing.T) {
		calls := 0
		repo := &mockRepository{
			getLinkFunc: func(ctx context.Context, code string) (Link, error) {
				calls++
				return Link{}, errx.E("repo.GetLink", errx.NotFound, ErrNotFound)
			},
		}
		reg := NewRegistry(repo, &RegistryConfig{Retry: quickRetry(3)})
		if _, err := reg.Lookup(context.Background(), "abc123"); errx.KindOf(err) != errx.NotFound {
			t.Errorf("Lookup() kind = %v, want NotFound", errx.KindOf(err))
		}
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
	})
}

func TestRegistry_DeleteByCode(t *testing.T) {
	var deleted []string
	repo := &mockRepository{
		deleteLinkFunc: func(ctx context.Context, code string) error {
			deleted = append(deleted, code)
			return nil
		},
	}
	reg := newTestRegistry(repo, nil)

	for range 2 {
		if err := reg.DeleteByCode(context.Background(), "abc123"); err != nil {
			t.Fatalf("DeleteByCode() error: %v", err)
		}
	}
	if err := reg.DeleteByCode(context.Background(), ""); err != nil {
		t.Fatalf("DeleteByCode(\"\") error: %v", err)
	}
	if len(deleted) != 2 {
		t.Errorf("store deletes = %v, want two", deleted)
	}
}
