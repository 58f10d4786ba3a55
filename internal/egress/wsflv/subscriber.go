// If you are AI: This file implements the WebSocket-FLV subscriber: reads
// Packets from the hub and writes FLV tags as binary WebSocket frames.

package wsflv

import (
	"time"

	"github.com/streamforge/origind/internal/core/hub"
	"github.com/streamforge/origind/internal/core/protocol/flv"
	"github.com/streamforge/origind/internal/core/subscriber"
)

// WebSocketConn is the subset of *websocket.Conn this package needs, kept
// as an interface so tests can substitute a fake.
type WebSocketConn interface {
	WriteMessage(messageType int, data []byte) error
}

const binaryMessage = 2 // websocket.BinaryMessage, avoiding the gorilla import in this file

// Subscriber streams one WebSocket-FLV client.
type Subscriber struct {
	conn          WebSocketConn
	hub           *hub.Hub
	ch            *subscriber.Channel
	idleTimeout   time.Duration
	headerWritten bool
}

// NewSubscriber creates a Subscriber that attaches to h once ProcessMessages
// is called.
func NewSubscriber(conn WebSocketConn, h *hub.Hub, idleTimeout time.Duration) *Subscriber {
	return &Subscriber{conn: conn, hub: h, idleTimeout: idleTimeout}
}

// WriteHeader writes the FLV file header plus the zero PreviousTagSize as a
// single binary WebSocket frame.
func (s *Subscriber) WriteHeader(hasAudio, hasVideo bool) error {
	if s.headerWritten {
		return nil
	}
	header := flv.NewHeader(hasAudio, hasVideo).Bytes()
	frame := make([]byte, len(header)+4)
	copy(frame, header)
	if err := s.conn.WriteMessage(binaryMessage, frame); err != nil {
		return err
	}
	s.headerWritten = true
	return nil
}

// ProcessMessages subscribes to the hub with DropOldest (a slow WebSocket
// reader must never stall the publish loop) and writes one FLV tag per
// binary frame until Dequeue errors.
func (s *Subscriber) ProcessMessages() error {
	s.ch = s.hub.SubscribeWithPolicy(subscriber.DropOldest)

	for {
		p, err := s.ch.DequeueTimeout(s.idleTimeout)
		if err != nil {
			return err
		}
		tag := flv.MuxPacket(p)
		if tag == nil {
			continue
		}
		if err := s.conn.WriteMessage(binaryMessage, tag.Bytes()); err != nil {
			return err
		}
	}
}

// Detach unsubscribes from the hub, if attached.
func (s *Subscriber) Detach() {
	if s.ch != nil {
		s.hub.Unsubscribe(s.ch.ID())
		s.ch = nil
	}
}
