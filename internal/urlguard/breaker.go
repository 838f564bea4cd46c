package urlguard

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ErrVendorUnavailable reports that the breaker is open and lookups are skipped.
var ErrVendorUnavailable = errors.New("reputation vendor unavailable")

// BreakerSettings tunes the circuit breaker around a reputation vendor.
type BreakerSettings struct {
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
	Interval            time.Duration
}

func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		ConsecutiveFailures: 5,
		OpenTimeout:         30 * time.Second,
		Interval:            time.Minute,
	}
}

// BreakerLookup stops calling a failing vendor for a while. An open breaker
// fails fast with gobreaker.ErrOpenState, which the Guard maps to review.
type BreakerLookup struct {
	next Lookup
	cb   *gobreaker.CircuitBreaker
}

func NewBreakerLookup(next Lookup, settings BreakerSettings, logger *zap.Logger) *BreakerLookup {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "reputation",
		MaxRequests: 1,
		Interval:    settings.Interval,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("reputation breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &BreakerLookup{next: next, cb: cb}
}

func (b *BreakerLookup) Lookup(ctx context.Context, rawURL string) (Reputation, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Lookup(ctx, rawURL)
	})
	if err != nil {
		return Reputation{}, err
	}

	return res.(Reputation), nil
}

func (b *BreakerLookup) State() string {
	return b.cb.State().String()
}

// Ping fails while the breaker is open.
func (b *BreakerLookup) Ping(context.Context) error {
	if b.cb.State() == gobreaker.StateOpen {
		return ErrVendorUnavailable
	}

	return nil
}
