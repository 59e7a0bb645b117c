package receipt

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/abgdnv/gopos/internal/pos/model"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyPrinter fails while broken is set and counts calls.
type flakyPrinter struct {
	mu     sync.Mutex
	broken bool
	calls  int
}

func (p *flakyPrinter) Print(ctx context.Context, _ model.FinalizedSale) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.broken {
		return errors.New("out of paper")
	}
	return nil
}

func (p *flakyPrinter) setBroken(b bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.broken = b
}

func TestBreakerPrinter_TripsAndRecovers(t *testing.T) {
	// given
	inner := &flakyPrinter{broken: true}
	p := NewBreakerPrinter(inner, BreakerSettings{ConsecutiveFailures: 2, OpenTimeout: 50 * time.Millisecond})
	ctx := context.Background()

	// when the printer keeps failing
	require.ErrorContains(t, p.Print(ctx, finalized()), "out of paper")
	require.ErrorContains(t, p.Print(ctx, finalized()), "out of paper")
	err := p.Print(ctx, finalized())

	// then the breaker opens and stops calling it
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.ErrorContains(t, err, "receipt printer unavailable")
	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, gobreaker.StateOpen, p.State())

	// when the printer is fixed and the open timeout has passed
	inner.setBroken(false)
	time.Sleep(80 * time.Millisecond)

	// then one trial print closes the breaker again
	require.NoError(t, p.Print(ctx, finalized()))
	assert.Equal(t, gobreaker.StateClosed, p.State())
	assert.Equal(t, 3, inner.calls)
}

func TestBreakerPrinter_CancellationDoesNotTrip(t *testing.T) {
	inner := &flakyPrinter{}
	p := NewBreakerPrinter(inner, BreakerSettings{ConsecutiveFailures: 1, OpenTimeout: time.Minute})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, p.Print(ctx, finalized()), context.Canceled)
	require.ErrorIs(t, p.Print(ctx, finalized()), context.Canceled)

	assert.Equal(t, gobreaker.StateClosed, p.State())
	assert.NoError(t, p.Print(context.Background(), finalized()))
}
