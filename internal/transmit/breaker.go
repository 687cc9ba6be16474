package transmit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ach-batch-backend/internal/ach"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

var ErrUnavailable = errors.New("transmission endpoint unavailable")

type Transmitter interface {
	Transmit(ctx context.Context, f *ach.File) error
}

type BreakerConfig struct {
	ConsecutiveFailures uint32
	Timeout             time.Duration
}

var DefaultBreakerConfig = BreakerConfig{
	ConsecutiveFailures: 3,
	Timeout:             time.Minute,
}

// Breaker stops calling a failing transmitter until Timeout has passed.
type Breaker struct {
	next    Transmitter
	breaker *gobreaker.CircuitBreaker
}

func NewBreaker(name string, next Transmitter, cfg BreakerConfig, logger *zap.Logger) *Breaker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = DefaultBreakerConfig.ConsecutiveFailures
	}
	return &Breaker{
		next: next,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Timeout:     cfg.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("transmit breaker state changed",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			},
		}),
	}
}

func (b *Breaker) Transmit(ctx context.Context, f *ach.File) error {
	_, err := b.breaker.Execute(func() (interface{}, error) {
		return nil, b.next.Transmit(ctx, f)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}

func (b *Breaker) State() gobreaker.State {
	return b.breaker.State()
}
