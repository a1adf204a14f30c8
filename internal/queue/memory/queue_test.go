package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/careerwatch/internal/crawler"
)

func TestQueueEnqueueDequeue(t *testing.T) {
	t.Parallel()

	q := NewQueue[crawler.SeedCompany](1)
	result := make(chan crawler.SeedCompany, 1)
	errCh := make(chan error, 1)

	go func() {
		item, err := q.Dequeue(context.Background())
		if err != nil {
			errCh <- err
			return
		}
		result <- item
	}()

	require.NoError(t, q.Enqueue(context.Background(), crawler.SeedCompany{Name: "Acme"}))
	select {
	case err := <-errCh:
		t.Fatalf("Dequeue() error = %v", err)
	case got := <-result:
		require.Equal(t, "Acme", got.Name)
	case <-time.After(time.Second):
		t.Fatal("dequeue did not return item")
	}
}

func TestQueueCancelationErrors(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewQueue[int](1).Dequeue(ctx)
	require.EqualError(t, err, "dequeue canceled: context canceled")

	full := NewQueue[int](1)
	require.NoError(t, full.Enqueue(context.Background(), 1))
	require.EqualError(t, full.Enqueue(ctx, 2), "enqueue canceled: context canceled")
}

func TestQueueCloseDrainsThenReportsClosed(t *testing.T) {
	t.Parallel()

	q := NewQueue[int](2)
	require.NoError(t, q.Enqueue(context.Background(), 1))
	require.NoError(t, q.Enqueue(context.Background(), 2))
	require.Equal(t, 2, q.Len())
	q.Close()
	q.Close()

	require.ErrorIs(t, q.Enqueue(context.Background(), 3), ErrClosed)
	for _, want := range []int{1, 2} {
		got, err := q.Dequeue(context.Background())
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := q.Dequeue(context.Background())
	require.ErrorIs(t, err, ErrClosed)
}
