package shortener

import (
	"bytes"
	"context"
	"net/netip"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sundayezeilo/shortlink/internal/errx"
	"github.com/sundayezeilo/shortlink/internal/retry"
)

type RecorderConfig struct {
	Retry *retry.Policy
	Clock func() time.Time
}

// Recorder keeps the append-only access log.
type Recorder struct {
	repo  EventRepository
	retry retry.Policy
	now   func() time.Time
}

func NewRecorder(repo EventRepository, config *RecorderConfig) *Recorder {
	if config == nil {
		config = &RecorderConfig{}
	}

	policy := retry.DefaultPolicy()
	if config.Retry != nil {
		policy = *config.Retry
	}

	return &Recorder{
		repo:  repo,
		retry: policy,
		now:   clockOrDefault(config.Clock),
	}
}

// Append stores one access event for code. Appends are not retried.
func (r *Recorder) Append(ctx context.Context, code string, meta RequestMeta) (AccessEvent, error) {
	const op = "shortener.Recorder.Append"

	event, err := r.repo.AppendEvent(ctx, AccessEvent{
		ShortCode:  code,
		AccessedAt: r.now(),
		IPAddress:  normalizeIP(meta.IPAddress),
		UserAgent:  truncate(strings.TrimSpace(meta.UserAgent), MaxUserAgentLength),
	})
	if err != nil {
		return AccessEvent{}, errx.Wrap(op, err)
	}
	return event, nil
}

// ListFor returns the events recorded for code, oldest first. Unknown codes
// yield an empty slice.
func (r *Recorder) ListFor(ctx context.Context, code string) ([]AccessEvent, error) {
	const op = "shortener.Recorder.ListFor"

	if !validCode(code) {
		return []AccessEvent{}, nil
	}

	events, err := retry.Value(ctx, r.retry, errx.Retryable, func() ([]AccessEvent, error) {
		return r.repo.ListEvents(ctx, code)
	})
	if err != nil {
		return nil, errx.Wrap(op, err)
	}
	if events == nil {
		events = []AccessEvent{}
	}

	slices.SortStableFunc(events, func(a, b AccessEvent) int {
		if c := a.AccessedAt.Compare(b.AccessedAt); c != 0 {
			return c
		}
		return bytes.Compare(a.ID[:], b.ID[:])
	})
	return events, nil
}

// normalizeIP canonicalises parseable addresses and truncates anything else.
func normalizeIP(raw string) string {
	raw = strings.TrimSpace(raw)
	if addr, err := netip.ParseAddr(raw); err == nil {
		return addr.Unmap().String()
	}
	return truncate(raw, MaxIPAddressLength)
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
