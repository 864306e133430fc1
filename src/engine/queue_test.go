package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tradeengine/src/signal"
)

func queuedSignal(t *testing.T) *signal.TradeSignal {
	t.Helper()
	sig, err := signal.New("AAPL", signal.SideBuy, 10, "momentum_v2", time.Now().UTC(), signal.Params{})
	require.NoError(t, err)
	return sig
}

func TestQueuePopPrefersCancellationOverQueuedItems(t *testing.T) {
	q := newSignalQueue()
	require.True(t, q.push(queuedSignal(t)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A cancelled consumer must not steal the item: it stays queued so the
	// shutdown drain can fail it with the proper reason.
	sig, ok := q.pop(ctx)
	require.False(t, ok)
	require.Nil(t, sig)
	require.Equal(t, 1, q.len())

	drained := q.drain()
	require.Len(t, drained, 1)
	require.Equal(t, "AAPL", drained[0].Ticker)
}

func TestQueuePushAfterCloseRejected(t *testing.T) {
	q := newSignalQueue()
	q.close()

	require.False(t, q.push(queuedSignal(t)))
	require.Zero(t, q.len())

	sig, ok := q.pop(context.Background())
	require.False(t, ok)
	require.Nil(t, sig)
}

func TestQueueFIFOOrder(t *testing.T) {
	q := newSignalQueue()
	first := queuedSignal(t)
	second := queuedSignal(t)
	require.True(t, q.push(first))
	require.True(t, q.push(second))

	got, ok := q.pop(context.Background())
	require.True(t, ok)
	require.Same(t, first, got)

	got, ok = q.pop(context.Background())
	require.True(t, ok)
	require.Same(t, second, got)
}
