package shortener

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sundayezeilo/shortlink/codegen"
	"github.com/sundayezeilo/shortlink/internal/errx"
	"github.com/sundayezeilo/shortlink/internal/retry"
)

const (
	DefaultMaxAttempts = 5
	DefaultTTL         = 24 * time.Hour
	DefaultMaxTTLHours = 10_000_000
)

// RegistryConfig holds configuration for the registry. Zero values select
// defaults.
type RegistryConfig struct {
	Generator    codegen.Generator
	MaxAttempts  int
	DefaultTTL   time.Duration
	MaxTTLHours  int
	PasswordCost int
	Retry        *retry.Policy
	Clock        func() time.Time
}

// Registry owns the short-code namespace.
type Registry struct {
	repo        LinkRepository
	gen         codegen.Generator
	maxAttempts int
	defaultTTL  time.Duration
	maxTTLHours int
	passwords   passwordHasher
	retry       retry.Policy
	now         func() time.Time
}

func NewRegistry(repo LinkRepository, config *RegistryConfig) *Registry {
	if config == nil {
		config = &RegistryConfig{}
	}

	gen := config.Generator
	if gen == nil {
		gen = codegen.NewHash()
	}

	attempts := config.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}

	ttl := config.DefaultTTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	maxTTL := config.MaxTTLHours
	if maxTTL <= 0 {
		maxTTL = DefaultMaxTTLHours
	}

	policy := retry.DefaultPolicy()
	if config.Retry != nil {
		policy = *config.Retry
	}

	return &Registry{
		repo:        repo,
		gen:         gen,
		maxAttempts: attempts,
		defaultTTL:  ttl,
		maxTTLHours: maxTTL,
		passwords:   newPasswordHasher(config.PasswordCost),
		retry:       policy,
		now:         clockOrDefault(config.Clock),
	}
}

// clockOrDefault truncates to microseconds, the precision PostgreSQL keeps.
func clockOrDefault(clock func() time.Time) func() time.Time {
	if clock == nil {
		clock = time.Now
	}
	return func() time.Time { return clock().UTC().Truncate(time.Microsecond) }
}

// Upsert registers req.OriginalURL and returns its link. The bool is true when
// a new link was created and false when a deterministic re-submission
// refreshed an existing one.
func (r *Registry) Upsert(ctx context.Context, req CreateLinkRequest) (Link, bool, error) {
	const op = "shortener.Registry.Upsert"

	originalURL := strings.TrimSpace(req.OriginalURL)
	if err := validateURL(originalURL); err != nil {
		return Link{}, false, errx.E(op, errx.Invalid, err)
	}

	now := r.now()
	expiresAt, err := r.expiry(now, req)
	if err != nil {
		return Link{}, false, errx.E(op, errx.Invalid, err)
	}

	hash, err := r.passwords.hash(req.Password)
	if err != nil {
		return Link{}, false, errx.E(op, errx.Invalid, err)
	}

	deterministic := r.gen.Deterministic()
	start := 0
	if deterministic {
		if start, err = r.ownedAttempt(ctx, originalURL); err != nil {
			return Link{}, false, errx.Wrap(op, err)
		}
	}

	for attempt := start; attempt < r.maxAttempts; attempt++ {
		code, err := r.generate(originalURL, attempt)
		if err != nil {
			return Link{}, false, errx.Wrap(op, err)
		}

		link := Link{
			OriginalURL:  originalURL,
			ShortCode:    code,
			CreatedAt:    now,
			UpdatedAt:    now,
			ExpiresAt:    expiresAt,
			PasswordHash: hash,
		}

		if deterministic {
			saved, inserted, err := r.repo.UpsertLink(ctx, link)
			if err == nil {
				return saved, inserted, nil
			}
			if !errors.Is(err, ErrCodeCollision) {
				return Link{}, false, errx.Wrap(op, err)
			}
			continue
		}

		saved, err := r.repo.InsertLink(ctx, link)
		if err == nil {
			return saved, true, nil
		}
		if !errors.Is(err, ErrDuplicateCode) {
			return Link{}, false, errx.Wrap(op, err)
		}
	}

	if deterministic {
		return Link{}, false, errx.E(op, errx.Exhausted,
			fmt.Errorf("%w after %d attempts", ErrCodeCollision, r.maxAttempts))
	}
	return Link{}, false, errx.E(op, errx.Exhausted,
		fmt.Errorf("%w after %d attempts", ErrGenerationExhausted, r.maxAttempts))
}

func (r *Registry) expiry(now time.Time, req CreateLinkRequest) (time.Time, error) {
	if req.ExpiresAt != nil {
		return req.ExpiresAt.UTC().Truncate(time.Microsecond), nil
	}
	if req.TTLHours != nil {
		hours := *req.TTLHours
		if hours < 0 || hours > r.maxTTLHours {
			return time.Time{}, fmt.Errorf("ttl_hours must be between 0 and %d", r.maxTTLHours)
		}
		// Whole days go through AddDate; hours beyond ~292 years overflow a Duration.
		return now.AddDate(0, 0, hours/24).Add(time.Duration(hours%24) * time.Hour), nil
	}
	return now.Add(r.defaultTTL), nil
}

func (r *Registry) generate(originalURL string, attempt int) (string, error) {
	const op = "shortener.Registry.generate"

	code, err := r.gen.Generate(originalURL, attempt)
	if err != nil {
		if errors.Is(err, codegen.ErrInvalidURL) {
			return "", errx.E(op, errx.Invalid, fmt.Errorf("%w: %w", ErrInvalidURL, err))
		}
		return "", errx.E(op, errx.Internal, err)
	}
	return code, nil
}

// ownedAttempt returns the first attempt whose code is already registered to
// originalURL, or 0 when none is. A URL that once widened past a collision
// keeps its wider code even after the narrower owner is deleted.
func (r *Registry) ownedAttempt(ctx context.Context, originalURL string) (int, error) {
	const op = "shortener.Registry.ownedAttempt"

	chain := make([]string, 0, r.maxAttempts)
	for attempt := range r.maxAttempts {
		code, err := r.generate(originalURL, attempt)
		if err != nil {
			return 0, errx.Wrap(op, err)
		}
		chain = append(chain, code)
	}

	owned, err := retry.Value(ctx, r.retry, errx.Retryable, func() ([]Link, error) {
		return r.repo.FindByURL(ctx, originalURL, chain)
	})
	if err != nil {
		return 0, errx.Wrap(op, err)
	}

	for attempt, code := range chain {
		for _, link := range owned {
			if link.ShortCode == code {
				return attempt, nil
			}
		}
	}
	return 0, nil
}

// Lookup returns the link registered under code.
func (r *Registry) Lookup(ctx context.Context, code string) (Link, error) {
	const op = "shortener.Registry.Lookup"

	if !validCode(code) {
		return Link{}, errx.E(op, errx.NotFound, ErrNotFound)
	}

	link, err := retry.Value(ctx, r.retry, errx.Retryable, func() (Link, error) {
		return r.repo.GetLink(ctx, code)
	})
	if err != nil {
		return Link{}, errx.Wrap(op, err)
	}
	return link, nil
}

// IncrementVisits atomically adds one visit and returns the new count.
func (r *Registry) IncrementVisits(ctx context.Context, code string) (int64, error) {
	const op = "shortener.Registry.IncrementVisits"

	count, err := retry.Value(ctx, r.retry, errx.Retryable, func() (int64, error) {
		return r.repo.IncrementVisits(ctx, code)
	})
	if err != nil {
		return 0, errx.Wrap(op, err)
	}
	return count, nil
}

// DeleteByCode removes the link and its access events. Unknown codes are
// ignored.
func (r *Registry) DeleteByCode(ctx context.Context, code string) error {
	const op = "shortener.Registry.DeleteByCode"

	if !validCode(code) {
		return nil
	}
	if err := r.repo.DeleteLink(ctx, code); err != nil {
		return errx.Wrap(op, err)
	}
	return nil
}
