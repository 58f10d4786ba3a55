// If you are AI: This file implements SubscriberChannel, the bounded per-subscriber queue.
// Dequeue suspends on a doorbell channel instead of busy-polling a ring buffer.

package subscriber

import (
	"errors"
	"sync"
	"time"

	"github.com/streamforge/origind/internal/core/packet"
)

// OverflowPolicy selects the behavior when a channel's queue is full.
type OverflowPolicy uint8

const (
	// DropOldest discards the oldest non-prelude packet to make room for the
	// newest one. Intended for best-effort live viewers (RTMP play, HTTP-FLV).
	DropOldest OverflowPolicy = iota
	// DisconnectSlow closes the channel outright on overflow. Intended for
	// strict-ordering consumers such as the HLS segmenter.
	DisconnectSlow
)

// EnqueueResult reports the outcome of a non-blocking TryEnqueue.
type EnqueueResult uint8

const (
	// Accepted means the packet was queued.
	Accepted EnqueueResult = iota
	// Dropped means the packet (or an older one in its place) was discarded
	// but the channel remains open.
	Dropped
	// ChannelClosed means the channel is closed and will accept nothing more.
	ChannelClosed
)

// ErrClosed is returned by Dequeue once the channel has been closed and
// drained.
var ErrClosed = errors.New("subscriber channel closed")

// ErrIdleTimeout is returned by DequeueTimeout when no packet arrives
// within the requested duration.
var ErrIdleTimeout = errors.New("subscriber channel idle timeout")

// Channel is a bounded queue of shared Packet references belonging to one
// egress consumer. It is owned by the egress session; the StreamHub holds
// only an enqueue handle (TryEnqueue), so the hub never needs to reach back
// into a consumer it doesn't otherwise keep alive.
type Channel struct {
	id       uint64
	policy   OverflowPolicy
	capacity int

	mu           sync.Mutex
	queue        []*packet.Packet
	preludeCount int // leading queue entries still protected from DropOldest
	closed       bool
	wake         chan struct{} // buffered size-1 "there is work" doorbell consumed by Dequeue

	dropped uint64
}

// New creates a Channel with the given identifier (used only for logging),
// capacity, and overflow policy.
func New(id uint64, capacity int, policy OverflowPolicy) *Channel {
	if capacity <= 0 {
		capacity = 256
	}
	return &Channel{
		id:       id,
		policy:   policy,
		capacity: capacity,
		wake:     make(chan struct{}, 1),
	}
}

// ID returns the channel's identifier.
func (c *Channel) ID() uint64 { return c.id }

// Dropped returns the number of packets dropped due to backpressure.
func (c *Channel) Dropped() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

// TryEnqueue attempts to add a packet without blocking. Never suspends —
// this is the hot fan-out path, called by the hub on a snapshot of its
// subscribers after it releases its own lock, and publish must never
// suspend waiting on a slow subscriber.
func (c *Channel) TryEnqueue(p *packet.Packet) EnqueueResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ChannelClosed
	}

	if len(c.queue) < c.capacity {
		c.queue = append(c.queue, p)
		c.signalLocked()
		return Accepted
	}

	switch c.policy {
	case DisconnectSlow:
		c.closeLocked()
		return ChannelClosed
	default: // DropOldest
		c.dropOldestLocked()
		c.queue = append(c.queue, p)
		c.dropped++
		c.signalLocked()
		return Dropped
	}
}

// dropOldestLocked discards the oldest packet outside the still-unconsumed
// prelude prefix (tracked by preludeCount). It never removes one of the
// first preludeCount entries, so a decoder's prelude burst always survives
// overflow intact. If the entire queue is prelude (pathological tiny
// capacity), nothing is dropped and the caller grows past capacity instead.
func (c *Channel) dropOldestLocked() {
	if c.preludeCount >= len(c.queue) {
		return
	}
	idx := c.preludeCount
	c.queue = append(c.queue[:idx:idx], c.queue[idx+1:]...)
}

// EnqueuePrelude enqueues the prelude burst unconditionally, growing past
// capacity if necessary rather than dropping a packet a decoder needs, and
// marks those entries as protected so dropOldestLocked skips over them
// until they are dequeued.
func (c *Channel) EnqueuePrelude(packets []*packet.Packet) {
	if len(packets) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.queue = append(c.queue, packets...)
	c.preludeCount += len(packets)
	c.signalLocked()
}

// Dequeue suspends until a packet is available or the channel closes.
func (c *Channel) Dequeue() (*packet.Packet, error) {
	for {
		c.mu.Lock()
		if len(c.queue) > 0 {
			p := c.queue[0]
			c.queue = c.queue[1:]
			c.shrinkPreludeLocked()
			c.mu.Unlock()
			return p, nil
		}
		if c.closed {
			c.mu.Unlock()
			return nil, ErrClosed
		}
		c.mu.Unlock()
		<-c.wake
	}
}

// DequeueTimeout suspends until a packet is available, the channel closes,
// or d elapses, whichever comes first. Used by egress sessions to enforce
// a per-dequeue idle timeout: a viewer that stalls mid-read (e.g. a dead
// TCP peer) is closed instead of leaking its Channel forever.
func (c *Channel) DequeueTimeout(d time.Duration) (*packet.Packet, error) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	for {
		c.mu.Lock()
		if len(c.queue) > 0 {
			p := c.queue[0]
			c.queue = c.queue[1:]
			c.shrinkPreludeLocked()
			c.mu.Unlock()
			return p, nil
		}
		if c.closed {
			c.mu.Unlock()
			return nil, ErrClosed
		}
		c.mu.Unlock()

		select {
		case <-c.wake:
		case <-timer.C:
			return nil, ErrIdleTimeout
		}
	}
}

// shrinkPreludeLocked accounts for a just-dequeued packet at the old
// queue[0]: if it came from the protected prelude prefix, that prefix is
// now one entry shorter.
func (c *Channel) shrinkPreludeLocked() {
	if c.preludeCount > 0 {
		c.preludeCount--
	}
}

// Closed reports whether the channel has been closed.
func (c *Channel) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Close idempotently closes the channel. Queued-but-undelivered packets are
// discarded; a subsequent Dequeue observes closure.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Channel) closeLocked() {
	if c.closed {
		return
	}
	c.closed = true
	c.queue = nil
	c.preludeCount = 0
	c.signalLocked()
}

// signalLocked wakes any goroutine blocked in Dequeue. Uses a size-1
// buffered channel as a doorbell: a pending signal is enough regardless of
// how many enqueues happened before the waiter next checks the queue.
func (c *Channel) signalLocked() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}
