package ingest

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/streamforge/origind/internal/core/hub"
	"github.com/streamforge/origind/internal/core/protocol/amf0"
	rtmpprotocol "github.com/streamforge/origind/internal/core/protocol/rtmp"
	"github.com/streamforge/origind/internal/core/registry"
	"github.com/streamforge/origind/internal/core/subscriber"
)

func testRegistry() *registry.Registry {
	return registry.New(hub.Config{
		ChannelCapacity: 16,
		OverflowPolicy:  subscriber.DropOldest,
	})
}

// TestHandlePublishAcquiresHub drives a Session through connect/createStream/
// publish over a net.Pipe and verifies the registry now holds a live
// publisher for the requested stream key.
func TestHandlePublishAcquiresHub(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	reg := testRegistry()
	session := NewSession(serverConn, reg, nil, time.Second)

	done := make(chan error, 1)
	go func() {
		done <- session.PerformHandshake()
	}()

	if err := rtmpprotocol.PerformClientHandshake(clientConn); err != nil {
		t.Fatalf("client handshake: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("server handshake: %v", err)
	}
	go drainContinuously(clientConn)

	connectCmd := amf0.Array{"connect", float64(1), amf0.Object{"app": "live"}}
	if err := session.HandleConnect(connectCmd); err != nil {
		t.Fatalf("HandleConnect: %v", err)
	}

	createCmd := amf0.Array{"createStream", float64(2), nil}
	if err := session.HandleCreateStream(createCmd); err != nil {
		t.Fatalf("HandleCreateStream: %v", err)
	}

	publishCmd := amf0.Array{"publish", float64(3), nil, "mystream", "live"}
	if err := session.HandlePublish(publishCmd, 1); err != nil {
		t.Fatalf("HandlePublish: %v", err)
	}

	key := hub.NewStreamKey("live", "mystream")
	h, err := reg.LookupForSubscriber(key)
	if err != nil {
		t.Fatalf("expected hub for %s, got error: %v", key, err)
	}
	if !h.HasPublisher() {
		t.Error("expected hub to have a live publisher after HandlePublish")
	}

	session.HandleMediaMessage(rtmpprotocol.MessageTypeVideo, 0, []byte{0x17, 0x00, 0, 0, 0})
	ch := h.Subscribe()
	p, err := ch.Dequeue()
	if err != nil {
		t.Fatalf("dequeue after publish: %v", err)
	}
	if p.TimestampMS != 0 {
		t.Errorf("expected timestamp 0, got %d", p.TimestampMS)
	}

	session.Close()
	if h.HasPublisher() {
		t.Error("expected publisher released after session Close")
	}
}

// TestHandlePlayDeliversPublishedPacket drives one session through publish
// and a second session through play on the same stream, and verifies a
// packet published on the first arrives on the second's connection.
func TestHandlePlayDeliversPublishedPacket(t *testing.T) {
	pubServer, pubClient := net.Pipe()
	defer pubServer.Close()
	defer pubClient.Close()
	playServer, playClient := net.Pipe()
	defer playServer.Close()
	defer playClient.Close()

	reg := testRegistry()

	pub := NewSession(pubServer, reg, nil, time.Second)
	done := make(chan error, 1)
	go func() { done <- pub.PerformHandshake() }()
	if err := rtmpprotocol.PerformClientHandshake(pubClient); err != nil {
		t.Fatalf("publisher client handshake: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("publisher server handshake: %v", err)
	}
	go drainContinuously(pubClient)
	if err := pub.HandleConnect(amf0.Array{"connect", float64(1), amf0.Object{"app": "live"}}); err != nil {
		t.Fatalf("publisher HandleConnect: %v", err)
	}
	if err := pub.HandleCreateStream(amf0.Array{"createStream", float64(2), nil}); err != nil {
		t.Fatalf("publisher HandleCreateStream: %v", err)
	}
	if err := pub.HandlePublish(amf0.Array{"publish", float64(3), nil, "mystream", "live"}, 1); err != nil {
		t.Fatalf("HandlePublish: %v", err)
	}

	player := NewSession(playServer, reg, nil, time.Second)
	go func() { done <- player.PerformHandshake() }()
	if err := rtmpprotocol.PerformClientHandshake(playClient); err != nil {
		t.Fatalf("player client handshake: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("player server handshake: %v", err)
	}
	videoTS := make(chan uint32, 1)
	go func() {
		parser := rtmpprotocol.NewChunkParser()
		for {
			csID, err := parser.ReadChunk(playClient)
			if err != nil {
				return
			}
			if _, msgType, ts, _, ok := parser.GetCompleteMessage(csID); ok && msgType == rtmpprotocol.MessageTypeVideo {
				videoTS <- ts
				drainContinuously(playClient)
				return
			}
		}
	}()
	if err := player.HandleConnect(amf0.Array{"connect", float64(1), amf0.Object{"app": "live"}}); err != nil {
		t.Fatalf("player HandleConnect: %v", err)
	}
	if err := player.HandleCreateStream(amf0.Array{"createStream", float64(2), nil}); err != nil {
		t.Fatalf("player HandleCreateStream: %v", err)
	}
	if err := player.HandlePlay(amf0.Array{"play", float64(3), nil, "mystream"}, 1); err != nil {
		t.Fatalf("HandlePlay: %v", err)
	}

	pub.HandleMediaMessage(rtmpprotocol.MessageTypeVideo, 7, []byte{0x17, 1, 0, 0, 0})

	select {
	case ts := <-videoTS:
		if ts != 7 {
			t.Errorf("expected video timestamp 7 on the player's connection, got %d", ts)
		}
	case <-time.After(time.Second):
		t.Fatal("published video packet did not arrive on the player's connection")
	}
	pub.Close()
	player.Close()
}

// TestExtractStreamNameFallsBackWithoutNullObject covers clients that omit
// the null command-object element in the publish command.
func TestExtractStreamNameFallsBackWithoutNullObject(t *testing.T) {
	cmd := amf0.Array{"publish", float64(1), "mystream"}
	if got := extractStreamName(cmd); got != "mystream" {
		t.Errorf("expected mystream, got %q", got)
	}
}

// drainContinuously reads and discards from conn until it errors, so the
// play pump's writes on the other end of a net.Pipe never block.
func drainContinuously(conn net.Conn) {
	buf := make([]byte, 4096)
	for {
		if _, err := conn.Read(buf); err != nil {
			return
		}
	}
}

// drainServerWrites reads and discards whatever the server session wrote to
// the client side, bounding the read with a short deadline since the
// in-memory pipe would otherwise block once no more bytes are pending.
func drainServerWrites(t *testing.T, clientConn net.Conn) {
	t.Helper()
	clientConn.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
	buf := make([]byte, 4096)
	var total bytes.Buffer
	for {
		n, err := clientConn.Read(buf)
		if n > 0 {
			total.Write(buf[:n])
		}
		if err != nil {
			break
		}
	}
	clientConn.SetReadDeadline(time.Time{})
}
