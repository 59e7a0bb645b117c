package receipt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abgdnv/gopos/internal/pos/model"
	"github.com/sony/gobreaker/v2"
)

// BreakerSettings configures when a failing printer is taken out of service.
type BreakerSettings struct {
	// ConsecutiveFailures trips the breaker.
	ConsecutiveFailures uint32
	// OpenTimeout is how long prints fail fast before one trial print is let through.
	OpenTimeout time.Duration
}

// BreakerPrinter wraps a Printer in a circuit breaker, so a jammed or offline
// printer does not slow down every finalized sale.
type BreakerPrinter struct {
	next Printer
	cb   *gobreaker.CircuitBreaker[struct{}]
}

// NewBreakerPrinter wraps next.
func NewBreakerPrinter(next Printer, s BreakerSettings) *BreakerPrinter {
	st := gobreaker.Settings{
		Name:        "receipt-printer",
		MaxRequests: 1,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.ConsecutiveFailures
		},
		// A cancelled request says nothing about the printer.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
	}
	return &BreakerPrinter{next: next, cb: gobreaker.NewCircuitBreaker[struct{}](st)}
}

// Print forwards to the wrapped printer unless the breaker is open.
func (p *BreakerPrinter) Print(ctx context.Context, sale model.FinalizedSale) error {
	_, err := p.cb.Execute(func() (struct{}, error) {
		return struct{}{}, p.next.Print(ctx, sale)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("receipt printer unavailable: %w", err)
	}
	return err
}

// State reports the breaker state.
func (p *BreakerPrinter) State() gobreaker.State {
	return p.cb.State()
}
