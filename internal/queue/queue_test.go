package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_FIFO(t *testing.T) {
	q := New[int]()
	for i := 0; i < 5; i++ {
		q.Push(i)
	}
	require.Equal(t, 5, q.Len())

	ctx := context.Background()
	for want := 0; want < 5; want++ {
		got, err := q.Pop(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, 0, q.Len())
}

func TestQueue_PopBlocksUntilPush(t *testing.T) {
	q := New[string]()
	done := make(chan string, 1)

	go func() {
		v, err := q.Pop(context.Background())
		if err == nil {
			done <- v
		}
	}()

	select {
	case <-done:
		t.Fatal("pop returned before push")
	case <-time.After(50 * time.Millisecond):
	}

	q.Push("job")
	select {
	case v := <-done:
		assert.Equal(t, "job", v)
	case <-time.After(time.Second):
		t.Fatal("pop did not return after push")
	}
}

func TestQueue_PopHonoursContext(t *testing.T) {
	q := New[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.Pop(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// Several blocked consumers must all be woken when pushes coalesce into one signal.
func TestQueue_WakesAllWaiters(t *testing.T) {
	q := New[int]()
	const n = 8

	var wg sync.WaitGroup
	results := make(chan int, n)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := q.Pop(ctx)
			if err == nil {
				results <- v
			}
		}()
	}

	time.Sleep(20 * time.Millisecond)
	for i := 0; i < n; i++ {
		q.Push(i)
	}
	wg.Wait()
	close(results)

	seen := map[int]bool{}
	for v := range results {
		seen[v] = true
	}
	assert.Len(t, seen, n)
}
