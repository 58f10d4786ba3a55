package subscriber

import (
	"testing"
	"time"

	"github.com/streamforge/origind/internal/core/packet"
)

func pkt(ts uint32) *packet.Packet {
	return packet.New(packet.KindVideo, 7, ts, false, false, []byte{byte(ts)})
}

func keyPkt(ts uint32) *packet.Packet {
	return packet.New(packet.KindVideo, 7, ts, false, true, []byte{byte(ts)})
}

// TestDropOldestKeepsPreludeAndNewest verifies that with capacity 4 and
// DropOldest, publishing a prelude keyframe K followed by five more packets
// without any consumption leaves [K, P3, P4, P5] once drained: the prelude
// keyframe survives overflow and only the non-prelude tail is trimmed.
func TestDropOldestKeepsPreludeAndNewest(t *testing.T) {
	ch := New(1, 4, DropOldest)

	ch.EnqueuePrelude([]*packet.Packet{keyPkt(0)})
	for _, ts := range []uint32{1, 2, 3, 4, 5} {
		ch.TryEnqueue(pkt(ts))
	}

	var got []uint32
	for {
		p, err := ch.Dequeue()
		if err != nil {
			break
		}
		got = append(got, p.TimestampMS)
		if len(got) == 4 {
			break
		}
	}

	want := []uint32{0, 3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: got ts=%d, want ts=%d (%v)", i, got[i], want[i], got)
		}
	}
}

func TestDisconnectSlowClosesOnOverflow(t *testing.T) {
	ch := New(2, 2, DisconnectSlow)

	if r := ch.TryEnqueue(pkt(1)); r != Accepted {
		t.Fatalf("expected Accepted, got %v", r)
	}
	if r := ch.TryEnqueue(pkt(2)); r != Accepted {
		t.Fatalf("expected Accepted, got %v", r)
	}
	if r := ch.TryEnqueue(pkt(3)); r != ChannelClosed {
		t.Fatalf("expected ChannelClosed on overflow, got %v", r)
	}
	if !ch.Closed() {
		t.Error("channel should report closed after DisconnectSlow overflow")
	}
}

func TestTryEnqueueAfterCloseReportsChannelClosed(t *testing.T) {
	ch := New(3, 4, DropOldest)
	ch.Close()
	if r := ch.TryEnqueue(pkt(1)); r != ChannelClosed {
		t.Errorf("expected ChannelClosed, got %v", r)
	}
}

func TestDequeueUnblocksOnEnqueue(t *testing.T) {
	ch := New(4, 4, DropOldest)

	done := make(chan *packet.Packet, 1)
	go func() {
		p, err := ch.Dequeue()
		if err != nil {
			done <- nil
			return
		}
		done <- p
	}()

	time.Sleep(10 * time.Millisecond)
	ch.TryEnqueue(pkt(42))

	select {
	case p := <-done:
		if p == nil || p.TimestampMS != 42 {
			t.Errorf("expected packet ts=42, got %+v", p)
		}
	case <-time.After(time.Second):
		t.Fatal("Dequeue did not unblock after enqueue")
	}
}

func TestDequeueUnblocksOnClose(t *testing.T) {
	ch := New(5, 4, DropOldest)

	errc := make(chan error, 1)
	go func() {
		_, err := ch.Dequeue()
		errc <- err
	}()

	time.Sleep(10 * time.Millisecond)
	ch.Close()

	select {
	case err := <-errc:
		if err != ErrClosed {
			t.Errorf("expected ErrClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Dequeue did not unblock after close")
	}
}

func TestEnqueuePreludeGrowsPastCapacity(t *testing.T) {
	ch := New(6, 2, DropOldest)
	prelude := []*packet.Packet{keyPkt(0), pkt(1), pkt(2), pkt(3)}
	ch.EnqueuePrelude(prelude)

	for i := range prelude {
		p, err := ch.Dequeue()
		if err != nil {
			t.Fatalf("unexpected error draining prelude: %v", err)
		}
		if p.TimestampMS != prelude[i].TimestampMS {
			t.Errorf("prelude packet %d: got ts=%d, want ts=%d", i, p.TimestampMS, prelude[i].TimestampMS)
		}
	}
}
