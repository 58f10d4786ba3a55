// If you are AI: This file manages one inbound RTMP session's command/publish
// lifecycle, attaching and detaching it from the stream hub/registry.

package ingest

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/streamforge/origind/internal/auth"
	"github.com/streamforge/origind/internal/core/hub"
	"github.com/streamforge/origind/internal/core/protocol/amf0"
	rtmpprotocol "github.com/streamforge/origind/internal/core/protocol/rtmp"
	"github.com/streamforge/origind/internal/core/registry"
	"github.com/streamforge/origind/internal/core/subscriber"
)

// Session wraps an RTMP protocol session with both the publish and play
// lifecycles, since inbound RTMP ingest and outbound RTMP playback share a
// single configured port and connection.
type Session struct {
	*rtmpprotocol.Session
	registry      *registry.Registry
	authenticator auth.Authenticator
	publisher     *Publisher
	nextStreamID  uint32

	ch          *subscriber.Channel
	playStop    chan struct{}
	idleTimeout time.Duration

	onPublish       func(hub.StreamKey, *hub.Hub)
	onPublisherLeft func(hub.StreamKey)
}

// NewSession creates a Session ready to perform the handshake and dispatch
// commands against reg. idleTimeout bounds how long a play pump waits for a
// packet before the subscriber is disconnected; 0 selects a 30s default.
// authenticator is consulted before every publish/play; pass auth.NoOp{}
// when auth.enable is false.
func NewSession(conn io.ReadWriter, reg *registry.Registry, authenticator auth.Authenticator, idleTimeout time.Duration) *Session {
	if idleTimeout <= 0 {
		idleTimeout = 30 * time.Second
	}
	if authenticator == nil {
		authenticator = auth.NoOp{}
	}
	return &Session{
		Session:       rtmpprotocol.NewSession(conn),
		registry:      reg,
		authenticator: authenticator,
		nextStreamID:  1,
		idleTimeout:   idleTimeout,
	}
}

// SetPublishHooks installs callbacks invoked when this session acquires a
// publisher and when it releases one, letting the caller (e.g. an
// HLS-segmenter manager) start and stop per-stream work without the
// registry itself needing to know about HLS.
func (s *Session) SetPublishHooks(onPublish func(hub.StreamKey, *hub.Hub), onPublisherLeft func(hub.StreamKey)) {
	s.onPublish = onPublish
	s.onPublisherLeft = onPublisherLeft
}

// HandleConnect handles the connect command: records the app name and sends
// window ack size, peer bandwidth, and the _result response.
func (s *Session) HandleConnect(command amf0.Array) error {
	if len(command) < 2 {
		return fmt.Errorf("invalid connect command: need at least 2 elements")
	}

	app := "live"
	objectEncoding := float64(0)

	if len(command) >= 3 && command[2] != nil {
		var cmdObj amf0.Object
		switch v := command[2].(type) {
		case amf0.Object:
			cmdObj = v
		case map[string]interface{}:
			cmdObj = make(amf0.Object)
			for k, val := range v {
				cmdObj[k] = val
			}
		}
		if cmdObj != nil {
			if appVal, ok := cmdObj["app"].(string); ok {
				app = appVal
			}
			if encVal, ok := cmdObj["objectEncoding"].(float64); ok {
				objectEncoding = encVal
			}
		}
	}

	s.SetApp(app)

	// Window ack size and peer bandwidth must be sent after connect but
	// before the connect _result, per the RTMP handshake sequence.
	if err := s.WriteMessage(2, rtmpprotocol.MessageTypeWinAckSize, 0, 0, windowAckSizeBody(5000000)); err != nil {
		return fmt.Errorf("send window ack size: %w", err)
	}
	if err := s.WriteMessage(2, rtmpprotocol.MessageTypeSetPeerBandwidth, 0, 0, setPeerBandwidthBody(5000000, 2)); err != nil {
		return fmt.Errorf("send set peer bandwidth: %w", err)
	}
	return s.sendConnectResult(command[1], objectEncoding)
}

// sendConnectResult sends the connect _result response.
func (s *Session) sendConnectResult(transID interface{}, objectEncoding float64) error {
	cmdObj := amf0.Object{
		"fmsVer":       "FMS/3,0,1,123",
		"capabilities": float64(31),
	}
	info := amf0.Object{
		"level":          "status",
		"code":           "NetConnection.Connect.Success",
		"description":    "Connection succeeded.",
		"objectEncoding": objectEncoding,
	}
	body, err := amf0.EncodeCommand(amf0.Array{"_result", toFloat64(transID), cmdObj, info})
	if err != nil {
		return err
	}
	return s.WriteMessage(3, rtmpprotocol.MessageTypeCommandAMF0, 0, 0, body)
}

// HandleReleaseStream responds to the releaseStream command FFmpeg-family
// clients send ahead of createStream.
func (s *Session) HandleReleaseStream(command amf0.Array) error {
	if len(command) < 2 {
		return nil
	}
	body, err := amf0.EncodeCommand(amf0.Array{"_result", toFloat64(command[1]), nil})
	if err != nil {
		return err
	}
	return s.WriteMessage(3, rtmpprotocol.MessageTypeCommandAMF0, 0, 0, body)
}

// HandleFCPublish responds to the FCPublish command FFmpeg-family clients
// send ahead of createStream.
func (s *Session) HandleFCPublish(command amf0.Array) error {
	if len(command) < 2 {
		return nil
	}
	body, err := amf0.EncodeCommand(amf0.Array{"_result", toFloat64(command[1]), nil})
	if err != nil {
		return err
	}
	return s.WriteMessage(3, rtmpprotocol.MessageTypeCommandAMF0, 0, 0, body)
}

// HandleCreateStream handles createStream, returning a fresh stream ID.
func (s *Session) HandleCreateStream(command amf0.Array) error {
	if len(command) < 2 {
		return fmt.Errorf("invalid createStream command")
	}
	streamID := s.nextStreamID
	s.nextStreamID++

	body, err := amf0.EncodeCommand(amf0.Array{"_result", toFloat64(command[1]), nil, float64(streamID)})
	if err != nil {
		return err
	}
	return s.WriteMessage(3, rtmpprotocol.MessageTypeCommandAMF0, 0, 0, body)
}

// HandlePublish handles the publish command: acquires the hub for the
// requested stream name and attaches a Publisher. streamID is the RTMP
// message stream ID the publish command arrived on, echoed back on the
// StreamBegin and onStatus responses so the client's play/publish state
// machine matches it to the right NetStream.
func (s *Session) HandlePublish(command amf0.Array, streamID uint32) error {
	streamName, suppliedKey := extractStreamNameAndKey(command)
	if streamName == "" {
		return fmt.Errorf("stream name not found in publish command")
	}
	app := s.GetApp()
	if app == "" {
		return fmt.Errorf("app not set")
	}

	key := hub.NewStreamKey(app, streamName)
	if err := s.authenticator.AuthorizePublish(context.Background(), key.String(), suppliedKey); err != nil {
		s.sendOnStatus(streamID, "error", "NetStream.Publish.BadName", err.Error())
		return fmt.Errorf("authorize publish for %s: %w", key, err)
	}

	h, token, err := s.registry.AcquireForPublisher(key)
	if err != nil {
		s.sendOnStatus(streamID, "error", "NetStream.Publish.BadName", err.Error())
		return fmt.Errorf("acquire publisher for %s: %w", key, err)
	}

	s.publisher = NewPublisher(h, key, token)
	s.SetStreamName(streamName)
	s.SetState(rtmpprotocol.StatePublishing)

	if err := s.WriteMessage(2, rtmpprotocol.MessageTypeUserCtrl, 0, 0, rtmpprotocol.CreateStreamBegin(streamID)); err != nil {
		log.Printf("ingest: failed to send StreamBegin for %s: %v", key, err)
	}
	if s.onPublish != nil {
		s.onPublish(key, h)
	}
	return s.sendOnStatus(streamID, "status", "NetStream.Publish.Start", "Start publishing")
}

// sendOnStatus sends an onStatus command on the given RTMP stream ID.
func (s *Session) sendOnStatus(streamID uint32, level, code, description string) error {
	status := amf0.Object{
		"level":       level,
		"code":        code,
		"description": description,
	}
	body, err := amf0.EncodeCommand(amf0.Array{"onStatus", float64(0), nil, status})
	if err != nil {
		return err
	}
	return s.WriteMessage(5, rtmpprotocol.MessageTypeCommandAMF0, 0, streamID, body)
}

// HandleMediaMessage forwards an audio/video/data message to the attached
// publisher, if any. A message arriving before publish (or after teardown)
// is silently dropped.
func (s *Session) HandleMediaMessage(msgType byte, timestamp uint32, body []byte) {
	if s.publisher == nil {
		return
	}
	switch msgType {
	case rtmpprotocol.MessageTypeAudio:
		s.publisher.PublishAudio(timestamp, body)
	case rtmpprotocol.MessageTypeVideo:
		s.publisher.PublishVideo(timestamp, body)
	case rtmpprotocol.MessageTypeDataAMF0:
		s.publisher.PublishMetadata(timestamp, body)
	}
}

// Close tears down the publisher and/or play pump, if any, and the
// underlying connection.
func (s *Session) Close() {
	if s.publisher != nil {
		key := s.publisher.StreamKey()
		s.publisher.Detach(s.registry)
		if s.onPublisherLeft != nil {
			s.onPublisherLeft(key)
		}
	}
	if s.playStop != nil {
		close(s.playStop)
	}
	if s.ch != nil {
		s.ch.Close()
	}
	s.Session.Close()
}

