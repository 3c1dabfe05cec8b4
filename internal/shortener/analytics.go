package shortener

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/sundayezeilo/shortlink/internal/errx"
)

// Aggregator builds read-only usage summaries. Expired links are still
// summarised.
type Aggregator struct {
	registry *Registry
	recorder *Recorder
}

func NewAggregator(registry *Registry, recorder *Recorder) *Aggregator {
	return &Aggregator{registry: registry, recorder: recorder}
}

func (a *Aggregator) Summarize(ctx context.Context, code string) (Summary, error) {
	const op = "shortener.Aggregator.Summarize"

	var (
		link   Link
		events []AccessEvent
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		link, err = a.registry.Lookup(gctx, code)
		return err
	})
	g.Go(func() error {
		var err error
		events, err = a.recorder.ListFor(gctx, code)
		return err
	})
	if err := g.Wait(); err != nil {
		return Summary{}, errx.Wrap(op, err)
	}

	return Summary{
		OriginalURL: link.OriginalURL,
		ShortCode:   link.ShortCode,
		VisitCount:  link.VisitCount,
		Events:      events,
	}, nil
}
