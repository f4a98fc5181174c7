package workqueue

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueFIFO(t *testing.T) {
	q := New[int]()
	for i := 0; i < 5; i++ {
		q.Submit(i)
	}
	for i := 0; i < 5; i++ {
		item, ok := q.Pop()
		require.True(t, ok)
		assert.Equal(t, i, item)
	}
}

func TestQueuePopBlocksUntilSubmit(t *testing.T) {
	q := New[string]()
	done := make(chan string, 1)

	go func() {
		item, ok := q.Pop()
		if ok {
			done <- item
		}
	}()

	time.Sleep(10 * time.Millisecond)
	q.Submit("hello")

	select {
	case got := <-done:
		assert.Equal(t, "hello", got)
	case <-time.After(2 * time.Second):
		t.Fatal("Pop never returned submitted item")
	}
}

func TestQueueCloseDrains(t *testing.T) {
	q := New[int]()
	q.Submit(1)
	q.Submit(2)
	q.Close()

	item, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, 1, item)

	item, ok = q.Pop()
	require.True(t, ok)
	assert.Equal(t, 2, item)

	_, ok = q.Pop()
	assert.False(t, ok, "queue should report drained after close and empty")
}

func TestQueueCloseWakesBlockedWorkers(t *testing.T) {
	q := New[int]()
	var wg sync.WaitGroup
	results := make(chan bool, 4)

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok := q.Pop()
			results <- ok
		}()
	}

	time.Sleep(10 * time.Millisecond)
	q.Close()
	wg.Wait()
	close(results)

	for ok := range results {
		assert.False(t, ok)
	}
}
