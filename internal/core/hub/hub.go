// If you are AI: This file implements StreamHub, the single-publisher/many-subscriber fanout point for one stream.
// It owns the StartupContext prelude cache and hands out SubscriberChannel enqueue handles.

package hub

import (
	"sync"

	"github.com/streamforge/origind/internal/core/packet"
	"github.com/streamforge/origind/internal/core/startup"
	"github.com/streamforge/origind/internal/core/subscriber"
)

// PublisherToken is returned by AcquirePublisher and must be presented to
// ReleasePublisher and Publish, preventing a stale publisher (e.g. one whose
// connection is being torn down concurrently with a new publish attempt)
// from affecting a hub it no longer owns.
type PublisherToken uint64

// Config bounds the resources a Hub allocates for its subscribers and its
// GOP cache.
type Config struct {
	GOPCacheEnabled   bool
	GOPCacheMaxFrames int
	ChannelCapacity   int
	OverflowPolicy    subscriber.OverflowPolicy
}

// Hub is the fanout point for exactly one live stream: one publisher and any
// number of subscribers. Publish never blocks on a subscriber; each
// subscriber's backpressure is resolved entirely within its own Channel.
type Hub struct {
	key StreamKey
	cfg Config

	mu          sync.RWMutex
	publisherID PublisherToken
	hasPub      bool
	nextSubID   uint64
	subs        map[uint64]*subscriber.Channel
	prelude     *startup.Context
}

// New creates an empty Hub for the given key and configuration.
func New(key StreamKey, cfg Config) *Hub {
	if cfg.ChannelCapacity <= 0 {
		cfg.ChannelCapacity = 256
	}
	return &Hub{
		key:     key,
		cfg:     cfg,
		subs:    make(map[uint64]*subscriber.Channel),
		prelude: startup.New(cfg.GOPCacheEnabled, cfg.GOPCacheMaxFrames),
	}
}

// Key returns the hub's stream key.
func (h *Hub) Key() StreamKey { return h.key }

// AcquirePublisher attaches a publisher if none is currently attached. The
// second return value is false if a publisher already holds the hub.
func (h *Hub) AcquirePublisher() (PublisherToken, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.hasPub {
		return 0, false
	}
	h.publisherID++
	h.hasPub = true
	return h.publisherID, true
}

// ReleasePublisher detaches the publisher holding token, if it still holds
// the hub, and resets the prelude cache — sequence headers and the GOP
// cache belong to that publisher's session and must not leak to the next.
// A stale token (from a publisher already superseded) is a no-op.
func (h *Hub) ReleasePublisher(token PublisherToken) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.hasPub || token != h.publisherID {
		return
	}
	h.hasPub = false
	h.prelude.Reset()
}

// HasPublisher reports whether a publisher currently holds the hub.
func (h *Hub) HasPublisher() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.hasPub
}

// Publish fans a packet out to every subscriber and records it in the
// prelude cache if applicable. Must be called only by the publisher
// currently holding token; a stale token is silently dropped so a
// superseded publisher goroutine that hasn't noticed teardown yet cannot
// contaminate the next publisher's stream.
//
// Never blocks on a subscriber: each Channel's TryEnqueue resolves
// backpressure internally (DropOldest or DisconnectSlow), so one slow
// reader cannot stall the publish loop for everyone else.
func (h *Hub) Publish(token PublisherToken, p *packet.Packet) {
	h.mu.Lock()
	if !h.hasPub || token != h.publisherID {
		h.mu.Unlock()
		return
	}
	h.prelude.Observe(p)
	subs := make([]*subscriber.Channel, 0, len(h.subs))
	for _, c := range h.subs {
		subs = append(subs, c)
	}
	h.mu.Unlock()

	for _, c := range subs {
		if c.TryEnqueue(p) == subscriber.ChannelClosed {
			h.removeClosed(c.ID())
		}
	}
}

// Subscribe registers a new subscriber, using the hub's default overflow
// policy, and returns its Channel already primed with the current prelude
// (sequence headers plus any cached GOP) so the caller can begin dequeuing
// immediately without racing a concurrent Publish for the prelude packets.
func (h *Hub) Subscribe() *subscriber.Channel {
	return h.SubscribeWithPolicy(h.cfg.OverflowPolicy)
}

// SubscribeWithPolicy is Subscribe with an overflow policy chosen per
// consumer rather than inherited from the hub's default — e.g. the HLS
// segmenter always requires DisconnectSlow regardless of what live viewers
// on the same hub are configured with, since a torn TS segment is worse
// than disconnecting a slow writer.
func (h *Hub) SubscribeWithPolicy(policy subscriber.OverflowPolicy) *subscriber.Channel {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextSubID
	h.nextSubID++

	ch := subscriber.New(id, h.cfg.ChannelCapacity, policy)
	ch.EnqueuePrelude(h.prelude.Prelude())
	h.subs[id] = ch
	return ch
}

// Unsubscribe removes and closes a subscriber's channel.
func (h *Hub) Unsubscribe(id uint64) {
	h.mu.Lock()
	ch, ok := h.subs[id]
	delete(h.subs, id)
	h.mu.Unlock()
	if ok {
		ch.Close()
	}
}

func (h *Hub) removeClosed(id uint64) {
	h.mu.Lock()
	delete(h.subs, id)
	h.mu.Unlock()
}

// SubscriberCount returns the number of currently attached subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// IsEmpty reports whether the hub has neither a publisher nor subscribers,
// making it eligible for removal from the registry.
func (h *Hub) IsEmpty() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return !h.hasPub && len(h.subs) == 0
}
