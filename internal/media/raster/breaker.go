package raster

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/listenupapp/bookshelf-server/internal/logger"
	"github.com/listenupapp/bookshelf-server/internal/metrics"
)

// BreakerSettings tune the per-renderer circuit breaker.
type BreakerSettings struct {
	// ConsecutiveFailures opens the circuit.
	ConsecutiveFailures uint32
	// Cooldown is how long the circuit stays open before a trial request.
	Cooldown time.Duration
}

// DefaultBreakerSettings opens after five straight failures for a minute.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		ConsecutiveFailures: 5,
		Cooldown:            time.Minute,
	}
}

type breakerRasterizer struct {
	next Rasterizer
	cb   *gobreaker.CircuitBreaker[image.Image]
}

// WithBreaker guards next with a circuit breaker. An open circuit reports
// ErrUnavailable so the chain moves on to the next renderer. Missing
// binaries and empty pages do not count as failures.
func WithBreaker(next Rasterizer, settings BreakerSettings, log *slog.Logger) Rasterizer {
	log = logger.OrDiscard(log)
	name := "raster-" + next.Name()
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[image.Image](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     settings.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.ConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ErrUnavailable) ||
				errors.Is(err, ErrNoImage) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("renderer circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})

	return &breakerRasterizer{next: next, cb: cb}
}

func (b *breakerRasterizer) Name() string {
	return b.next.Name()
}

func (b *breakerRasterizer) Render(ctx context.Context, pdf []byte) (image.Image, error) {
	img, err := b.cb.Execute(func() (image.Image, error) {
		return b.next.Render(ctx, pdf)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, errors.Join(ErrUnavailable, err)
	}
	return img, err
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 2
	default:
		return 0
	}
}
