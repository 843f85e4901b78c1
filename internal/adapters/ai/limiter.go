package ai

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"leverguard/internal/domain/risk"
	"leverguard/internal/metrics"
	"leverguard/pkg/errors"
)

// limitedNarrator bounds a narrator's request rate and per-call latency
type limitedNarrator struct {
	provider string
	next     risk.Narrator
	limiter  *rate.Limiter
	timeout  time.Duration
}

func newLimitedNarrator(provider string, next risk.Narrator, perMinute int, timeout time.Duration) *limitedNarrator {
	limit := rate.Inf
	burst := 1
	if perMinute > 0 {
		limit = rate.Limit(float64(perMinute) / 60.0)
		burst = max(1, perMinute/10)
	}
	return &limitedNarrator{
		provider: provider,
		next:     next,
		limiter:  rate.NewLimiter(limit, burst),
		timeout:  timeout,
	}
}

func (l *limitedNarrator) Narrate(ctx context.Context, req risk.NarrativeRequest) (text string, err error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	start := time.Now()
	defer func() { metrics.RecordNarrativeCall(l.provider, time.Since(start), err) }()

	if err = l.limiter.Wait(ctx); err != nil {
		return "", errors.Wrapf(errors.ErrNarrativeUnavailable, "%s rate limit: %v", l.provider, err)
	}

	text, err = l.next.Narrate(ctx, req)
	if err != nil {
		return "", err
	}
	if text == "" {
		err = errors.Wrapf(errors.ErrNarrativeUnavailable, "%s returned empty text", l.provider)
		return "", err
	}
	return text, nil
}
