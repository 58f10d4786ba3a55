// If you are AI: This file implements StartupContext, the per-stream cached prelude.
// It caches codec sequence headers and an optional GOP cache so late-joining subscribers
// can decode from their very first received frame.

package startup

import "github.com/streamforge/origind/internal/core/packet"

// Context holds the cached prelude for one StreamHub: the most recent video
// and audio sequence headers, the most recent metadata packet, and
// optionally the ordered packet sequence from the last keyframe to the
// present (the "GOP cache"). It is mutated only by the owning hub, under
// the hub's lock — Context itself does no locking.
//
// Invariant: the first packet of the GOP cache, if non-empty, is always a
// video keyframe (enforced by Observe: the cache is only ever started by a
// keyframe and cleared wholesale on overflow).
type Context struct {
	videoSeqHeader *packet.Packet
	audioSeqHeader *packet.Packet
	metadata       *packet.Packet

	gopCacheEnabled bool
	gopCacheMax     int
	gopCache        []*packet.Packet
}

// New creates an empty Context. gopCacheEnabled mirrors the `full_gop`
// configuration option; gopCacheMax bounds the cache by frame count
// (spec's documented resolution for unbounded-GOP behavior).
func New(gopCacheEnabled bool, gopCacheMax int) *Context {
	return &Context{
		gopCacheEnabled: gopCacheEnabled,
		gopCacheMax:     gopCacheMax,
	}
}

// Reset clears all cached state. Called by the hub when a publisher
// disconnects, since sequence headers and GOP state belong to that
// publisher's session and must not leak into the next one.
func (c *Context) Reset() {
	c.videoSeqHeader = nil
	c.audioSeqHeader = nil
	c.metadata = nil
	c.gopCache = nil
}

// Observe updates cached state from a newly published packet. Sequence
// headers replace their dedicated slot and are never pushed into the GOP
// cache. Non-header video packets extend the GOP cache starting from the
// most recent keyframe; if the cache would exceed its configured cap, it is
// dropped and rebuilt from the next keyframe rather than silently growing
// past the cap or reordering.
func (c *Context) Observe(p *packet.Packet) {
	if p == nil {
		return
	}

	if p.IsSequenceHeader {
		switch p.Kind {
		case packet.KindVideo:
			c.videoSeqHeader = p
		case packet.KindAudio:
			c.audioSeqHeader = p
		}
		return
	}

	if p.Kind == packet.KindMetadata {
		c.metadata = p
		return
	}

	if !c.gopCacheEnabled || p.Kind != packet.KindVideo {
		return
	}

	if p.IsKeyframe {
		c.gopCache = []*packet.Packet{p}
		return
	}

	if len(c.gopCache) == 0 {
		// No keyframe observed yet this generation; nothing to extend.
		return
	}

	if c.gopCacheMax > 0 && len(c.gopCache) >= c.gopCacheMax {
		// Cap exceeded: drop the partial GOP rather than reorder or grow
		// unbounded. The cache restarts cleanly at the next keyframe.
		c.gopCache = nil
		return
	}

	c.gopCache = append(c.gopCache, p)
}

// Prelude returns the ordered packet sequence a new subscriber must receive
// before any live packet: metadata (if any), video sequence header (if
// any), audio sequence header (if any), then the entire GOP cache in
// order. This is the minimum prefix that lets a subscriber decode
// correctly starting at its first regular packet.
func (c *Context) Prelude() []*packet.Packet {
	var out []*packet.Packet
	if c.metadata != nil {
		out = append(out, c.metadata)
	}
	if c.videoSeqHeader != nil {
		out = append(out, c.videoSeqHeader)
	}
	if c.audioSeqHeader != nil {
		out = append(out, c.audioSeqHeader)
	}
	out = append(out, c.gopCache...)
	return out
}

// GOPCacheLen reports the current GOP cache length, for tests and metrics.
func (c *Context) GOPCacheLen() int {
	return len(c.gopCache)
}
