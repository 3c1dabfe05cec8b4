package shortener

import (
	"context"
	"log/slog"
	"time"

	"github.com/sundayezeilo/shortlink/internal/errx"
)

type ResolverConfig struct {
	Logger *slog.Logger
	Clock  func() time.Time
}

// Resolver turns a short code into a redirect, counting the visit and
// logging the access on success.
type Resolver struct {
	registry *Registry
	recorder *Recorder
	logger   *slog.Logger
	now      func() time.Time
}

func NewResolver(registry *Registry, recorder *Recorder, config *ResolverConfig) *Resolver {
	if config == nil {
		config = &ResolverConfig{}
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Resolver{
		registry: registry,
		recorder: recorder,
		logger:   logger,
		now:      clockOrDefault(config.Clock),
	}
}

// Resolve checks existence, expiry and password in that order. Only a
// Redirect outcome counts a visit and appends an access event. The error is
// reserved for store failures; every client-facing result is an Outcome.
func (r *Resolver) Resolve(ctx context.Context, code, password string, meta RequestMeta) (Outcome, error) {
	const op = "shortener.Resolver.Resolve"

	link, err := r.registry.Lookup(ctx, code)
	if err != nil {
		if errx.KindOf(err) == errx.NotFound {
			return Outcome{Kind: OutcomeNotFound}, nil
		}
		return Outcome{}, errx.Wrap(op, err)
	}

	if link.ExpiredAt(r.now()) {
		return Outcome{Kind: OutcomeExpired, Link: link}, nil
	}

	if link.Protected() {
		if password == "" {
			return Outcome{Kind: OutcomePasswordRequired, Link: link}, nil
		}
		if !passwordMatches(link.PasswordHash, password) {
			return Outcome{Kind: OutcomePasswordIncorrect, Link: link}, nil
		}
	}

	count, err := r.registry.IncrementVisits(ctx, code)
	if err != nil {
		// Deleted between lookup and increment.
		if errx.KindOf(err) == errx.NotFound {
			return Outcome{Kind: OutcomeNotFound}, nil
		}
		return Outcome{}, errx.Wrap(op, err)
	}
	link.VisitCount = count

	out := Outcome{Kind: OutcomeRedirect, Link: link}

	event, err := r.recorder.Append(ctx, code, meta)
	if err != nil {
		r.logger.WarnContext(ctx, "failed to record access",
			"short_code", code,
			"error", err.Error(),
			"error_kind", errx.KindOf(err),
		)
		out.RecordErr = err
		return out, nil
	}
	out.Event = event
	return out, nil
}
