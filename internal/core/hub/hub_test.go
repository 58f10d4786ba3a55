package hub

import (
	"testing"

	"github.com/streamforge/origind/internal/core/packet"
	"github.com/streamforge/origind/internal/core/subscriber"
)

func testCfg() Config {
	return Config{
		GOPCacheEnabled:   true,
		GOPCacheMaxFrames: 100,
		ChannelCapacity:   16,
		OverflowPolicy:    subscriber.DropOldest,
	}
}

// TestAtMostOnePublisher verifies at most one publisher can hold a hub at a time.
func TestAtMostOnePublisher(t *testing.T) {
	h := New(NewStreamKey("live", "a"), testCfg())

	tok1, ok := h.AcquirePublisher()
	if !ok {
		t.Fatal("first AcquirePublisher should succeed")
	}
	if _, ok := h.AcquirePublisher(); ok {
		t.Fatal("second AcquirePublisher should fail while the first holds the hub")
	}

	h.ReleasePublisher(tok1)
	if _, ok := h.AcquirePublisher(); !ok {
		t.Fatal("AcquirePublisher should succeed again after release")
	}
}

// TestStaleTokenRejected verifies that a publish using a token from before
// release_publisher (or from a superseded publisher) is rejected silently.
func TestStaleTokenRejected(t *testing.T) {
	h := New(NewStreamKey("live", "a"), testCfg())
	tok1, _ := h.AcquirePublisher()
	h.ReleasePublisher(tok1)
	tok2, _ := h.AcquirePublisher()

	ch := h.Subscribe()
	h.Publish(tok1, packet.New(packet.KindVideo, 7, 0, false, true, []byte{1}))
	h.Publish(tok2, packet.New(packet.KindVideo, 7, 1, false, true, []byte{2}))

	p, err := ch.Dequeue()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.TimestampMS != 1 {
		t.Errorf("stale-token publish leaked into stream: got ts=%d, want 1", p.TimestampMS)
	}
}

// TestSubscribeReceivesPreludeThenLive verifies that a subscriber's first
// dequeues are exactly the prelude, then live packets.
func TestSubscribeReceivesPreludeThenLive(t *testing.T) {
	h := New(NewStreamKey("live", "a"), testCfg())
	tok, _ := h.AcquirePublisher()

	h.Publish(tok, packet.New(packet.KindVideo, 7, 0, true, false, []byte{0})) // seq header
	h.Publish(tok, packet.New(packet.KindVideo, 7, 0, false, true, []byte{1})) // keyframe K

	ch := h.Subscribe()
	h.Publish(tok, packet.New(packet.KindVideo, 7, 33, false, false, []byte{2})) // live P

	var got []uint32
	for i := 0; i < 3; i++ {
		p, err := ch.Dequeue()
		if err != nil {
			t.Fatalf("unexpected dequeue error: %v", err)
		}
		got = append(got, p.TimestampMS)
	}
	want := []uint32{0, 0, 33}
	for i, w := range want {
		if got[i] != w {
			t.Errorf("dequeue[%d] = %d, want %d (%v)", i, got[i], w, got)
		}
	}
}

// TestUnsubscribeClosesChannel verifies unsubscribe removes and closes the
// subscriber idempotently.
func TestUnsubscribeClosesChannel(t *testing.T) {
	h := New(NewStreamKey("live", "a"), testCfg())
	ch := h.Subscribe()
	if h.SubscriberCount() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", h.SubscriberCount())
	}

	h.Unsubscribe(0)
	h.Unsubscribe(0) // idempotent
	if h.SubscriberCount() != 0 {
		t.Fatalf("expected 0 subscribers after unsubscribe, got %d", h.SubscriberCount())
	}
	if !ch.Closed() {
		t.Error("channel should be closed after unsubscribe")
	}
}

// TestReleasePublisherClosesSubscriberGOPCache verifies that release_publisher
// drops startup state so a new publisher never inherits stale sequence headers.
func TestReleasePublisherClosesSubscriberGOPCache(t *testing.T) {
	h := New(NewStreamKey("live", "a"), testCfg())
	tok, _ := h.AcquirePublisher()
	h.Publish(tok, packet.New(packet.KindVideo, 7, 0, true, false, []byte{0}))
	h.Publish(tok, packet.New(packet.KindVideo, 7, 0, false, true, []byte{1}))
	h.ReleasePublisher(tok)

	ch := h.Subscribe()
	if !ch.Closed() {
		ch.Close()
	}
	// A subscribe on the same hub after release primes from an empty prelude:
	// its first packet is the new publisher's, not the old sequence header.
	tok2, _ := h.AcquirePublisher()
	ch2 := h.Subscribe()
	h.Publish(tok2, packet.New(packet.KindVideo, 7, 5, false, false, []byte{9}))
	p, err := ch2.Dequeue()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.TimestampMS != 5 {
		t.Errorf("subscriber after release got unexpected first packet ts=%d", p.TimestampMS)
	}
}

// TestClosedSubscriberRemovedLazilyOnFanout verifies the DisconnectSlow
// lazy-removal path: a channel closed by backpressure is dropped from the
// hub's subscriber set by the fanout that finds it closed, not by Close.
func TestClosedSubscriberRemovedLazilyOnFanout(t *testing.T) {
	cfg := testCfg()
	cfg.ChannelCapacity = 1
	cfg.OverflowPolicy = subscriber.DisconnectSlow
	h := New(NewStreamKey("live", "a"), cfg)
	tok, _ := h.AcquirePublisher()

	h.Subscribe() // never dequeues

	h.Publish(tok, packet.New(packet.KindVideo, 7, 0, false, false, []byte{1}))
	h.Publish(tok, packet.New(packet.KindVideo, 7, 1, false, false, []byte{2})) // overflow closes it and this fanout removes it
	h.Publish(tok, packet.New(packet.KindVideo, 7, 2, false, false, []byte{3}))

	if h.SubscriberCount() != 0 {
		t.Errorf("expected closed subscriber to be lazily removed, count=%d", h.SubscriberCount())
	}
}
