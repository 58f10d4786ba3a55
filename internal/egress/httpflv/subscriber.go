// If you are AI: This file implements the HTTP-FLV subscriber: reads Packets
// from the hub and writes FLV tags to the HTTP response body.

package httpflv

import (
	"bufio"
	"io"
	"time"

	"github.com/streamforge/origind/internal/core/hub"
	"github.com/streamforge/origind/internal/core/protocol/flv"
	"github.com/streamforge/origind/internal/core/subscriber"
)

// Subscriber streams one HTTP-FLV client: pulls Packets from a Channel and
// writes FLV tags to the wrapped writer until the client disconnects, the
// publisher goes away, or the per-dequeue idle timeout trips.
type Subscriber struct {
	writer        *bufio.Writer
	hub           *hub.Hub
	ch            *subscriber.Channel
	idleTimeout   time.Duration
	headerWritten bool
}

// NewSubscriber creates a Subscriber for h; it subscribes to h when
// ProcessMessages is called.
func NewSubscriber(w io.Writer, h *hub.Hub, idleTimeout time.Duration) *Subscriber {
	return &Subscriber{
		writer:      bufio.NewWriter(w),
		hub:         h,
		idleTimeout: idleTimeout,
	}
}

// WriteHeader writes the FLV file header plus the zero PreviousTagSize
// preceding the first tag. Must be called before ProcessMessages.
func (s *Subscriber) WriteHeader(hasAudio, hasVideo bool) error {
	if s.headerWritten {
		return nil
	}
	header := flv.NewHeader(hasAudio, hasVideo)
	if _, err := s.writer.Write(header.Bytes()); err != nil {
		return err
	}
	if _, err := s.writer.Write(make([]byte, 4)); err != nil {
		return err
	}
	if err := s.writer.Flush(); err != nil {
		return err
	}
	s.headerWritten = true
	return nil
}

// ProcessMessages subscribes to the hub (best-effort DropOldest: a slow
// HTTP client must never stall the publish loop) and writes FLV tags until
// Dequeue errors — closed channel or idle timeout. The hub does not close
// the channel when the publisher leaves, so that case ends by idle timeout.
func (s *Subscriber) ProcessMessages(flusher interface{ Flush() }) error {
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
		if _, err := s.writer.Write(tag.Bytes()); err != nil {
			return err
		}
		if err := s.writer.Flush(); err != nil {
			return err
		}
		flusher.Flush()
	}
}

// Detach unsubscribes from the hub, if attached.
func (s *Subscriber) Detach() {
	if s.ch != nil {
		s.hub.Unsubscribe(s.ch.ID())
		s.ch = nil
	}
}
