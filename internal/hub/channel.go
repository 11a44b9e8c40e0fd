package hub

import (
	"context"
	"sync"
	"time"

	"github.com/eapache/queue"
)

// DropPolicy selects which reading is discarded when a send times out
// against a full channel.
type DropPolicy string

// Supported drop policies.
const (
	// DropOldest evicts the oldest queued reading to make room for the
	// incoming one. Control decisions prefer fresh data, so this is the
	// default.
	DropOldest DropPolicy = "drop_oldest"

	// DropNewest discards the incoming reading and keeps the queue as-is.
	DropNewest DropPolicy = "drop_newest"
)

// Valid reports whether the policy is one of the supported policies.
func (p DropPolicy) Valid() bool {
	return p == DropOldest || p == DropNewest
}

// DropFunc is invoked exactly once for every reading discarded by the
// drop policy. It is called without internal locks held and must not
// block for long; the controller wires it to event emission.
type DropFunc func(dropped Reading, policy DropPolicy)

// ReadingChannel is the bounded, thread-safe hand-off between N sensor
// producers and the single controller consumer.
//
// A plain Go channel cannot express the required saturation behaviour
// (block with timeout, then evict-oldest with per-drop accounting), so
// the buffer is a ring queue guarded by a mutex with two condition
// variables. FIFO order is preserved across the buffer; no reading is
// delivered twice, and none is discarded without the DropFunc firing.
//
// Closing semantics: after Close, pending and future sends fail fast
// with ErrChannelClosed; Receive drains the remaining buffered readings
// before reporting ErrChannelClosed.
type ReadingChannel struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond

	buf         *queue.Queue
	capacity    int
	sendTimeout time.Duration
	policy      DropPolicy

	closed bool
	onDrop DropFunc
}

// NewReadingChannel creates a bounded channel.
//
// Parameters:
//   - capacity: maximum buffered readings (minimum 1 enforced)
//   - sendTimeout: how long Send blocks on a full buffer before the drop
//     policy applies
//   - policy: DropOldest or DropNewest (invalid values fall back to
//     DropOldest)
func NewReadingChannel(capacity int, sendTimeout time.Duration, policy DropPolicy) *ReadingChannel {
	if capacity < 1 {
		capacity = 1
	}
	if !policy.Valid() {
		policy = DropOldest
	}
	c := &ReadingChannel{
		buf:         queue.New(),
		capacity:    capacity,
		sendTimeout: sendTimeout,
		policy:      policy,
	}
	c.notEmpty = sync.NewCond(&c.mu)
	c.notFull = sync.NewCond(&c.mu)
	return c
}

// SetOnDrop registers the drop accounting callback. Must be called
// before producers start sending.
func (c *ReadingChannel) SetOnDrop(fn DropFunc) {
	c.mu.Lock()
	c.onDrop = fn
	c.mu.Unlock()
}

// Send enqueues a reading, blocking up to the configured send timeout if
// the buffer is full. On timeout the drop policy applies and the evicted
// reading is reported through the drop callback; Send itself still
// returns nil because the loss has been accounted.
//
// Returns:
//   - error: ErrChannelClosed if the channel is closed, nil otherwise
func (c *ReadingChannel) Send(r Reading) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrChannelClosed
	}

	deadline := time.Now().Add(c.sendTimeout)
	for c.buf.Length() >= c.capacity && !c.closed {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		// sync.Cond has no timed wait; a timer broadcast bounds the wait.
		// Spurious wakeups are fine, the loop re-checks every condition.
		timer := time.AfterFunc(remaining, c.notFull.Broadcast)
		c.notFull.Wait()
		timer.Stop()
	}

	if c.closed {
		c.mu.Unlock()
		return ErrChannelClosed
	}

	var dropped *Reading
	if c.buf.Length() >= c.capacity {
		switch c.policy {
		case DropNewest:
			dropped = &r
		default:
			oldest, _ := c.buf.Remove().(Reading)
			dropped = &oldest
			c.buf.Add(r)
			c.notEmpty.Signal()
		}
	} else {
		c.buf.Add(r)
		c.notEmpty.Signal()
	}
	onDrop := c.onDrop
	policy := c.policy
	c.mu.Unlock()

	if dropped != nil && onDrop != nil {
		onDrop(*dropped, policy)
	}
	return nil
}

// Receive blocks until a reading is available, the context is cancelled,
// or the channel is closed and fully drained.
//
// Returns:
//   - Reading: the oldest buffered reading
//   - error: ctx.Err() on cancellation, ErrChannelClosed once closed and
//     empty, nil otherwise
func (c *ReadingChannel) Receive(ctx context.Context) (Reading, error) {
	c.mu.Lock()
	for c.buf.Length() == 0 && !c.closed {
		if ctx.Err() != nil {
			c.mu.Unlock()
			return Reading{}, ctx.Err()
		}
		stop := context.AfterFunc(ctx, c.notEmpty.Broadcast)
		c.notEmpty.Wait()
		stop()
	}

	if c.buf.Length() == 0 {
		// Closed and drained.
		c.mu.Unlock()
		return Reading{}, ErrChannelClosed
	}

	r, _ := c.buf.Remove().(Reading)
	c.notFull.Signal()
	c.mu.Unlock()
	return r, nil
}

// Close marks the channel closed and wakes all blocked senders and
// receivers. Safe to call more than once. Buffered readings remain
// receivable until drained.
func (c *ReadingChannel) Close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		c.notEmpty.Broadcast()
		c.notFull.Broadcast()
	}
	c.mu.Unlock()
}

// Len returns the number of buffered readings.
func (c *ReadingChannel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Length()
}

// Cap returns the channel capacity.
func (c *ReadingChannel) Cap() int {
	return c.capacity
}
