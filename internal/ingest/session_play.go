// If you are AI: This file implements the RTMP play side of Session — looking
// up a stream to subscribe to and pumping its Packets back over the same
// connection a publish would have used, since ingest and playback share one
// configured rtmp_port.

package ingest

import (
	"context"
	"fmt"
	"log"

	"github.com/streamforge/origind/internal/core/hub"
	"github.com/streamforge/origind/internal/core/packet"
	"github.com/streamforge/origind/internal/core/protocol/amf0"
	rtmpprotocol "github.com/streamforge/origind/internal/core/protocol/rtmp"
	"github.com/streamforge/origind/internal/core/subscriber"
)

// HandlePlay handles the play command: looks up the hub for the requested
// stream, subscribes with DropOldest (a slow RTMP viewer must never stall
// the publish loop), and starts a goroutine pumping Packets onto the
// connection as audio/video/data messages framed on streamID.
func (s *Session) HandlePlay(command amf0.Array, streamID uint32) error {
	streamName := extractPlayName(command)
	if streamName == "" {
		return fmt.Errorf("stream name not found in play command")
	}
	app := s.GetApp()
	key := hub.NewStreamKey(app, streamName)

	if err := s.authenticator.AuthorizeSubscribe(context.Background(), key.String()); err != nil {
		s.sendOnStatus(streamID, "error", "NetStream.Play.Unauthorized", err.Error())
		return err
	}

	h, err := s.registry.LookupForSubscriber(key)
	if err != nil {
		s.sendOnStatus(streamID, "error", "NetStream.Play.StreamNotFound", err.Error())
		return err
	}

	if err := s.WriteMessage(2, rtmpprotocol.MessageTypeUserCtrl, 0, 0, rtmpprotocol.CreateStreamBegin(streamID)); err != nil {
		log.Printf("ingest: failed to send StreamBegin for play: %v", err)
	}
	if err := s.sendOnStatus(streamID, "status", "NetStream.Play.Start", "Start playing"); err != nil {
		return err
	}

	s.ch = h.SubscribeWithPolicy(subscriber.DropOldest)
	s.playStop = make(chan struct{})
	go s.pump(streamID)
	return nil
}

// pump drains the subscriber channel and writes each Packet as an RTMP
// audio/video/data message until the channel closes, the idle timeout
// trips, or playStop is closed.
func (s *Session) pump(streamID uint32) {
	for {
		select {
		case <-s.playStop:
			return
		default:
		}

		p, err := s.ch.DequeueTimeout(s.idleTimeout)
		if err != nil {
			return
		}

		var msgType byte
		switch p.Kind {
		case packet.KindVideo:
			msgType = rtmpprotocol.MessageTypeVideo
		case packet.KindAudio:
			msgType = rtmpprotocol.MessageTypeAudio
		default:
			msgType = rtmpprotocol.MessageTypeDataAMF0
		}

		if err := s.WriteMessage(streamID+3, msgType, p.TimestampMS, streamID, p.Payload); err != nil {
			return
		}
	}
}

// extractPlayName extracts the stream name from a play command.
// Format: ["play", txnID, null, streamName, start, duration, reset].
func extractPlayName(command amf0.Array) string {
	if len(command) >= 4 {
		if name, ok := command[3].(string); ok {
			return name
		}
	}
	return ""
}
