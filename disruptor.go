package match

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"
	"time"
)

// ErrDisruptorTimeout is returned when shutdown times out
var ErrDisruptorTimeout = errors.New("disruptor: shutdown timeout")

// idleSpins is how many empty polls the consumer makes before it starts sleeping.
const idleSpins = 256

// EventHandler consumes the events of a RingBuffer, one at a time, on the consumer goroutine.
type EventHandler[T any] interface {
	OnEvent(event T)
}

// RingBuffer is a multi-producer single-consumer ring buffer.
// Events are handed to the handler in the order their sequence was claimed.
type RingBuffer[T any] struct {
	// Cache line padding to avoid false sharing
	_                [56]byte
	producerSequence atomic.Int64
	_                [56]byte
	consumerSequence atomic.Int64
	_                [56]byte

	buffer     []T
	bufferMask int64
	capacity   int64

	// published[i] holds the sequence last committed into slot i
	published []int64

	handler EventHandler[T]

	isShutdown atomic.Bool
	stopped    atomic.Bool
	inFlight   atomic.Int64 // producers between the shutdown check and their commit
	done       chan struct{}
}

// NewRingBuffer creates a new MPSC RingBuffer.
// capacity must be a power of 2.
func NewRingBuffer[T any](capacity int64, handler EventHandler[T]) *RingBuffer[T] {
	if capacity <= 0 || (capacity&(capacity-1)) != 0 {
		panic("size must be a power of 2")
	}

	rb := &RingBuffer[T]{
		buffer:     make([]T, capacity),
		published:  make([]int64, capacity),
		capacity:   capacity,
		bufferMask: capacity - 1,
		handler:    handler,
		done:       make(chan struct{}),
	}

	rb.producerSequence.Store(-1)
	rb.consumerSequence.Store(-1)

	for i := range rb.published {
		atomic.StoreInt64(&rb.published[i], -1)
	}

	return rb
}

// Publish writes an event into the ring. It is safe for concurrent producers
// and blocks while the ring is full. It returns false once Shutdown has been called.
func (rb *RingBuffer[T]) Publish(event T) bool {
	// Registered before the shutdown check, so Shutdown either sees this
	// producer in flight or the producer sees the shutdown.
	rb.inFlight.Add(1)
	defer rb.inFlight.Add(-1)

	if rb.isShutdown.Load() {
		return false
	}

	var nextSeq int64
	for {
		// Claim a sequence
		currentProducerSeq := rb.producerSequence.Load()
		nextSeq = currentProducerSeq + 1

		// The producer may not lap the consumer
		wrapPoint := nextSeq - rb.capacity
		if wrapPoint > rb.consumerSequence.Load() {
			runtime.Gosched()
			continue
		}

		if rb.producerSequence.CompareAndSwap(currentProducerSeq, nextSeq) {
			break
		}
		runtime.Gosched()
	}

	index := nextSeq & rb.bufferMask
	rb.buffer[index] = event

	// Commit: make the slot visible to the consumer
	atomic.StoreInt64(&rb.published[index], nextSeq)
	return true
}

// Run consumes events until Shutdown completes. It blocks; call it on its own goroutine.
func (rb *RingBuffer[T]) Run() {
	defer close(rb.done)

	nextConsumerSeq := rb.consumerSequence.Load() + 1
	idle := 0

	for {
		availableSeq := rb.producerSequence.Load()

		if nextConsumerSeq > availableSeq {
			if rb.stopped.Load() {
				return
			}

			idle++
			if idle < idleSpins {
				runtime.Gosched()
			} else {
				time.Sleep(50 * time.Microsecond)
			}
			continue
		}
		idle = 0

		for nextConsumerSeq <= availableSeq {
			index := nextConsumerSeq & rb.bufferMask

			// Wait for the producer that claimed this slot to commit it
			for atomic.LoadInt64(&rb.published[index]) != nextConsumerSeq {
				runtime.Gosched()
			}

			event := rb.buffer[index]
			var zero T
			rb.buffer[index] = zero
			rb.handler.OnEvent(event)

			rb.consumerSequence.Store(nextConsumerSeq)
			nextConsumerSeq++
		}
	}
}

// Shutdown stops accepting new events and waits until every event already
// claimed has been handled and the consumer has returned.
func (rb *RingBuffer[T]) Shutdown(ctx context.Context) error {
	rb.isShutdown.Store(true)

	// Wait for producers that passed the shutdown check to commit their event
	for rb.inFlight.Load() > 0 {
		select {
		case <-ctx.Done():
			return ErrDisruptorTimeout
		default:
			runtime.Gosched()
		}
	}

	for rb.ConsumerSequence() < rb.ProducerSequence() {
		select {
		case <-ctx.Done():
			return ErrDisruptorTimeout
		default:
			runtime.Gosched()
		}
	}

	rb.stopped.Store(true)

	select {
	case <-rb.done:
		return nil
	case <-ctx.Done():
		return ErrDisruptorTimeout
	}
}

// ConsumerSequence returns the sequence of the last handled event.
func (rb *RingBuffer[T]) ConsumerSequence() int64 {
	return rb.consumerSequence.Load()
}

// ProducerSequence returns the sequence of the last claimed event.
func (rb *RingBuffer[T]) ProducerSequence() int64 {
	return rb.producerSequence.Load()
}

// GetPendingEvents returns the number of claimed events not yet handled.
func (rb *RingBuffer[T]) GetPendingEvents() int64 {
	producerSeq := rb.producerSequence.Load()
	consumerSeq := rb.consumerSequence.Load()
	return producerSeq - consumerSeq
}
