package shortener

import (
	"context"
	"log/slog"
	"time"

	"github.com/sundayezeilo/shortlink/codegen"
	"github.com/sundayezeilo/shortlink/internal/errx"
	"github.com/sundayezeilo/shortlink/internal/retry"
)

// Service defines the business logic operations for URL shortening.
type Service interface {
	// Create registers a URL. The bool is false when an identical
	// deterministic submission refreshed an existing link.
	Create(ctx context.Context, req CreateLinkRequest) (Link, bool, error)
	Get(ctx context.Context, code string) (Link, error)
	Resolve(ctx context.Context, code, password string, meta RequestMeta) (Outcome, error)
	Summarize(ctx context.Context, code string) (Summary, error)
	Delete(ctx context.Context, code string) error
}

// service composes the registry, recorder, resolver and aggregator.
type service struct {
	registry   *Registry
	resolver   *Resolver
	aggregator *Aggregator
}

// ServiceConfig holds configuration for the service. Zero values select
// defaults.
type ServiceConfig struct {
	Generator    codegen.Generator
	MaxAttempts  int
	DefaultTTL   time.Duration
	MaxTTLHours  int
	PasswordCost int
	Retry        *retry.Policy
	Logger       *slog.Logger
	Clock        func() time.Time
}

// NewService creates a new service instance.
func NewService(repo Repository, config *ServiceConfig) Service {
	if config == nil {
		config = &ServiceConfig{}
	}

	registry := NewRegistry(repo, &RegistryConfig{
		Generator:    config.Generator,
		MaxAttempts:  config.MaxAttempts,
		DefaultTTL:   config.DefaultTTL,
		MaxTTLHours:  config.MaxTTLHours,
		PasswordCost: config.PasswordCost,
		Retry:        config.Retry,
		Clock:        config.Clock,
	})
	recorder := NewRecorder(repo, &RecorderConfig{
		Retry: config.Retry,
		Clock: config.Clock,
	})

	return &service{
		registry: registry,
		resolver: NewResolver(registry, recorder, &ResolverConfig{
			Logger: config.Logger,
			Clock:  config.Clock,
		}),
		aggregator: NewAggregator(registry, recorder),
	}
}

func (s *service) Create(ctx context.Context, req CreateLinkRequest) (Link, bool, error) {
	const op = "shortener.service.Create"

	link, inserted, err := s.registry.Upsert(ctx, req)
	if err != nil {
		return Link{}, false, errx.Wrap(op, err)
	}
	return link, inserted, nil
}

func (s *service) Get(ctx context.Context, code string) (Link, error) {
	const op = "shortener.service.Get"

	link, err := s.registry.Lookup(ctx, code)
	if err != nil {
		return Link{}, errx.Wrap(op, err)
	}
	return link, nil
}

func (s *service) Resolve(ctx context.Context, code, password string, meta RequestMeta) (Outcome, error) {
	const op = "shortener.service.Resolve"

	out, err := s.resolver.Resolve(ctx, code, password, meta)
	if err != nil {
		return Outcome{}, errx.Wrap(op, err)
	}
	return out, nil
}

func (s *service) Summarize(ctx context.Context, code string) (Summary, error) {
	const op = "shortener.service.Summarize"

	summary, err := s.aggregator.Summarize(ctx, code)
	if err != nil {
		return Summary{}, errx.Wrap(op, err)
	}
	return summary, nil
}

func (s *service) Delete(ctx context.Context, code string) error {
	const op = "shortener.service.Delete"

	if err := s.registry.DeleteByCode(ctx, code); err != nil {
		return errx.Wrap(op, err)
	}
	return nil
}
