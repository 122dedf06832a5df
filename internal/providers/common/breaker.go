package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/AI-Template-SDK/aeo-insights/internal/analysis"
)

// ErrListerUnavailable is returned while the breaker is open.
var ErrListerUnavailable = errors.New("brand lister unavailable")

// BreakerLister stops calling a failing lister until a cooldown passes.
type BreakerLister struct {
	next analysis.BrandLister
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerLister trips after failures consecutive errors and probes again after cooldown.
func NewBreakerLister(next analysis.BrandLister, failures uint32, cooldown time.Duration, logger zerolog.Logger) *BreakerLister {
	if failures == 0 {
		failures = 5
	}
	if cooldown <= 0 {
		cooldown = time.Minute
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        next.Name(),
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("lister", name).Str("from", from.String()).Str("to", to.String()).
				Msg("[BreakerLister] circuit state changed")
		},
	})
	return &BreakerLister{next: next, cb: cb}
}

func (b *BreakerLister) ListBrands(ctx context.Context, responseText string) (string, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.ListBrands(ctx, responseText)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", fmt.Errorf("%s: %w", b.next.Name(), ErrListerUnavailable)
	}
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

func (b *BreakerLister) Name() string { return b.next.Name() }

// State exposes the breaker state for health reporting.
func (b *BreakerLister) State() gobreaker.State { return b.cb.State() }
