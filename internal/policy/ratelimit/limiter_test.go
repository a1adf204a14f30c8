package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLimiter_OneInFlightPerHost(t *testing.T) {
	t.Parallel()

	l := New(Config{GlobalInFlight: 8, PerHostInFlight: 1})
	var (
		current atomic.Int32
		peak    atomic.Int32
		wg      sync.WaitGroup
	)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(context.Background(), "https://acme.example/careers")
			if err != nil {
				return
			}
			n := current.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			current.Add(-1)
			release()
		}()
	}
	wg.Wait()
	require.Equal(t, int32(1), peak.Load())
}

func TestLimiter_DistinctHostsRunConcurrently(t *testing.T) {
	t.Parallel()

	l := New(Config{GlobalInFlight: 2, PerHostInFlight: 1})
	r1, err := l.Acquire(context.Background(), "https://a.example/")
	require.NoError(t, err)
	r2, err := l.Acquire(context.Background(), "https://b.example/")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx, "https://c.example/")
	require.ErrorIs(t, err, context.DeadlineExceeded, "global cap reached")

	r1()
	r1() // release is idempotent
	r3, err := l.Acquire(context.Background(), "https://c.example/")
	require.NoError(t, err)
	r2()
	r3()
}

func TestLimiter_CanceledWaitReleasesHostSlot(t *testing.T) {
	t.Parallel()

	l := New(Config{GlobalInFlight: 1, PerHostInFlight: 1})
	hold, err := l.Acquire(context.Background(), "https://a.example/")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx, "https://b.example/")
	require.Error(t, err)

	hold()
	release, err := l.Acquire(context.Background(), "https://b.example/")
	require.NoError(t, err)
	release()
}

func TestLimiter_PerHostRate(t *testing.T) {
	t.Parallel()

	l := New(Config{GlobalInFlight: 4, PerHostInFlight: 4, PerHostRPS: 10, PerHostBurst: 1})
	ctx := context.Background()

	release, err := l.Acquire(ctx, "https://test.example")
	require.NoError(t, err)
	release()

	start := time.Now()
	release, err = l.Acquire(ctx, "https://test.example")
	require.NoError(t, err)
	release()
	require.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestLimiter_EvictsIdleHosts(t *testing.T) {
	t.Parallel()

	l := New(Config{PerHostRPS: 2, PerHostBurst: 1})
	require.Equal(t, time.Minute, l.idle)
	now := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	ctx := context.Background()
	busy, err := l.Acquire(ctx, "https://busy.example/jobs")
	require.NoError(t, err)
	for _, host := range []string{"a.example", "b.example", "c.example"} {
		release, err := l.Acquire(ctx, "https://"+host+"/careers")
		require.NoError(t, err)
		release()
	}
	require.Equal(t, 4, l.Hosts())

	now = now.Add(30 * time.Second)
	release, err := l.Acquire(ctx, "https://d.example/")
	require.NoError(t, err)
	release()
	require.Equal(t, 5, l.Hosts(), "slots younger than the idle window are kept")

	now = now.Add(2 * time.Minute)
	release, err = l.Acquire(ctx, "https://e.example/")
	require.NoError(t, err)
	release()
	require.Equal(t, 2, l.Hosts(), "only the in-use slot and the new one remain")
	busy()
}

func TestIdleWindowCoversSlowRates(t *testing.T) {
	t.Parallel()

	require.Equal(t, time.Minute, idleWindow(Config{PerHostBurst: 1}))
	require.Equal(t, 200*time.Second, idleWindow(Config{PerHostRPS: 0.5, PerHostBurst: 100}))
}
