package match

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEvent is a simple event type for testing.
type TestEvent struct {
	ID    int64
	Value int64
}

type simpleHandler[T any] struct {
	fn func(T)
}

func (h *simpleHandler[T]) OnEvent(e T) {
	h.fn(e)
}

func startRingBuffer[T any](t *testing.T, rb *RingBuffer[T]) {
	t.Helper()

	go rb.Run()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = rb.Shutdown(ctx)
	})
}

func TestRingBuffer_BasicOperations(t *testing.T) {
	var processed []int64
	var mu sync.Mutex

	handler := &simpleHandler[*TestEvent]{
		fn: func(e *TestEvent) {
			mu.Lock()
			processed = append(processed, e.ID)
			mu.Unlock()
		},
	}

	rb := NewRingBuffer[*TestEvent](16, handler)
	startRingBuffer(t, rb)

	// more events than slots, so the producer has to wait for the consumer
	for i := int64(0); i < 100; i++ {
		require.True(t, rb.Publish(&TestEvent{ID: i, Value: i * 10}))
	}

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(processed) == 100
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for i, id := range processed {
		assert.Equal(t, int64(i), id)
	}
}

func TestRingBuffer_ConcurrentPublish(t *testing.T) {
	const (
		producers   = 8
		perProducer = 500
	)

	var count atomic.Int64
	lastSeen := make([]int64, producers)
	for i := range lastSeen {
		lastSeen[i] = -1
	}
	outOfOrder := atomic.Bool{}

	handler := &simpleHandler[TestEvent]{
		fn: func(e TestEvent) {
			// events of one producer keep their relative order
			if e.Value <= lastSeen[e.ID] {
				outOfOrder.Store(true)
			}
			lastSeen[e.ID] = e.Value
			count.Add(1)
		},
	}

	rb := NewRingBuffer[TestEvent](64, handler)
	startRingBuffer(t, rb)

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(producer int64) {
			defer wg.Done()
			for i := int64(0); i < perProducer; i++ {
				rb.Publish(TestEvent{ID: producer, Value: i})
			}
		}(int64(p))
	}
	wg.Wait()

	assert.Eventually(t, func() bool {
		return count.Load() == producers*perProducer
	}, 2*time.Second, 5*time.Millisecond)
	assert.False(t, outOfOrder.Load())
	assert.Equal(t, int64(producers*perProducer-1), rb.ProducerSequence())
}

func TestRingBuffer_ShutdownDrainsPending(t *testing.T) {
	var count atomic.Int64
	release := make(chan struct{})

	handler := &simpleHandler[int]{
		fn: func(int) {
			<-release
			count.Add(1)
		},
	}

	rb := NewRingBuffer[int](16, handler)
	go rb.Run()

	for i := 0; i < 10; i++ {
		require.True(t, rb.Publish(i))
	}

	assert.Eventually(t, func() bool {
		return rb.GetPendingEvents() == 10
	}, time.Second, time.Millisecond)

	close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, rb.Shutdown(ctx))

	assert.Equal(t, int64(10), count.Load())
	assert.Equal(t, int64(0), rb.GetPendingEvents())
	assert.False(t, rb.Publish(11), "publish after shutdown is rejected")
}

func TestRingBuffer_PublishRacingShutdown(t *testing.T) {
	for round := 0; round < 100; round++ {
		var handled atomic.Int64
		rb := NewRingBuffer[int](8, &simpleHandler[int]{fn: func(int) { handled.Add(1) }})
		go rb.Run()

		var accepted atomic.Int64
		var wg sync.WaitGroup
		for p := 0; p < 8; p++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 50; i++ {
					if rb.Publish(i) {
						accepted.Add(1)
					}
				}
			}()
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		require.NoError(t, rb.Shutdown(ctx))
		cancel()
		wg.Wait()

		require.Equal(t, accepted.Load(), handled.Load(), "round %d: every accepted event is handled", round)
	}
}

func TestRingBuffer_ShutdownTimeout(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	handler := &simpleHandler[int]{
		fn: func(int) {
			<-block
		},
	}

	rb := NewRingBuffer[int](4, handler)
	go rb.Run()
	require.True(t, rb.Publish(1))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, rb.Shutdown(ctx), ErrDisruptorTimeout)
}

func TestRingBuffer_SequenceMonitoring(t *testing.T) {
	rb := NewRingBuffer[int](8, &simpleHandler[int]{fn: func(int) {}})

	assert.Equal(t, int64(-1), rb.ProducerSequence())
	assert.Equal(t, int64(-1), rb.ConsumerSequence())

	// nothing consumes yet
	rb.Publish(1)
	rb.Publish(2)
	rb.Publish(3)
	assert.Equal(t, int64(2), rb.ProducerSequence())
	assert.Equal(t, int64(3), rb.GetPendingEvents())

	startRingBuffer(t, rb)
	assert.Eventually(t, func() bool {
		return rb.ConsumerSequence() == 2
	}, time.Second, time.Millisecond)
}

func TestRingBuffer_PowerOf2Validation(t *testing.T) {
	handler := &simpleHandler[int]{fn: func(int) {}}

	for _, size := range []int64{0, -4, 3, 100, 1000} {
		assert.Panics(t, func() {
			NewRingBuffer[int](size, handler)
		}, "size %d", size)
	}

	for _, size := range []int64{1, 2, 1024, 4096} {
		assert.NotPanics(t, func() {
			NewRingBuffer[int](size, handler)
		}, "size %d", size)
	}
}

func BenchmarkDisruptor(b *testing.B) {
	var count atomic.Int64
	rb := NewRingBuffer[int](1024, &simpleHandler[int]{fn: func(int) { count.Add(1) }})
	go rb.Run()

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			rb.Publish(1)
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = rb.Shutdown(ctx)
}

func BenchmarkChannel(b *testing.B) {
	ch := make(chan int, 1024)
	done := make(chan struct{})
	go func() {
		for range ch {
		}
		close(done)
	}()

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			ch <- 1
		}
	})

	close(ch)
	<-done
}
