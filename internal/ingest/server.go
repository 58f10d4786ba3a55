// If you are AI: This file implements the RTMP ingest server: handshake,
// command dispatch, and the publish message loop for each connection.

package ingest

import (
	"bytes"
	"io"
	"log"
	"net"
	"time"

	"github.com/streamforge/origind/internal/auth"
	"github.com/streamforge/origind/internal/core/hub"
	"github.com/streamforge/origind/internal/core/protocol/amf0"
	rtmpprotocol "github.com/streamforge/origind/internal/core/protocol/rtmp"
	"github.com/streamforge/origind/internal/core/registry"
)

// Server accepts inbound RTMP connections and drives both publish (ingest)
// and play (playback) sessions against a shared Registry, since a single
// rtmp_port serves both roles.
type Server struct {
	registry      *registry.Registry
	authenticator auth.Authenticator
	idleTimeout   time.Duration
	listener      net.Listener

	OnPublish       func(hub.StreamKey, *hub.Hub)
	OnPublisherLeft func(hub.StreamKey)
}

// NewServer creates a Server bound to reg. idleTimeout bounds how long a
// play session waits for a packet before disconnecting. authenticator is
// consulted on every publish/play; pass auth.NoOp{} when auth.enable is
// false.
func NewServer(reg *registry.Registry, authenticator auth.Authenticator, idleTimeout time.Duration) *Server {
	return &Server{registry: reg, authenticator: authenticator, idleTimeout: idleTimeout}
}

// Listen opens a TCP listener on addr.
func (s *Server) Listen(addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = l
	return nil
}

// Serve accepts connections until the listener is closed, handling each in
// its own goroutine.
func (s *Server) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return err
		}
		go s.handleConnection(conn)
	}
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

// handleConnection runs one publisher's full session lifecycle: handshake,
// then the read/dispatch loop until EOF or a fatal protocol error.
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	session := NewSession(conn, s.registry, s.authenticator, s.idleTimeout)
	session.SetPublishHooks(s.OnPublish, s.OnPublisherLeft)
	defer session.Close()

	if err := session.PerformHandshake(); err != nil {
		log.Printf("ingest: handshake failed from %s: %v", conn.RemoteAddr(), err)
		return
	}

	for {
		csID, err := session.ReadChunk()
		if err != nil {
			if err != io.EOF {
				log.Printf("ingest: read chunk error from %s: %v", conn.RemoteAddr(), err)
			}
			return
		}

		body, msgType, timestamp, streamID, complete := session.GetCompleteMessage(csID)
		if !complete {
			continue
		}

		switch msgType {
		case rtmpprotocol.MessageTypeSetChunkSize:
			size, err := rtmpprotocol.ParseSetChunkSize(body)
			if err != nil {
				log.Printf("ingest: invalid set chunk size from %s: %v", conn.RemoteAddr(), err)
				continue
			}
			session.SetChunkSize(size)

		case rtmpprotocol.MessageTypeUserCtrl:
			// Ping/StreamBegin variants the client sends us require no response.

		case rtmpprotocol.MessageTypeCommandAMF0:
			if err := s.handleCommand(session, body, streamID); err != nil {
				log.Printf("ingest: command error from %s: %v", conn.RemoteAddr(), err)
				return
			}

		case rtmpprotocol.MessageTypeAudio, rtmpprotocol.MessageTypeVideo, rtmpprotocol.MessageTypeDataAMF0:
			session.HandleMediaMessage(msgType, timestamp, body)

		default:
			// Other message types (acknowledgement, window ack size, etc.)
			// require no action from the ingest side.
		}
	}
}

// handleCommand decodes and dispatches one AMF0 command message.
func (s *Server) handleCommand(session *Session, body []byte, streamID uint32) error {
	command, err := amf0.DecodeCommand(bytes.NewReader(body))
	if err != nil {
		return err
	}
	if len(command) == 0 {
		return nil
	}
	cmdName, ok := command[0].(string)
	if !ok {
		return nil
	}

	switch cmdName {
	case "connect":
		return session.HandleConnect(command)
	case "releaseStream":
		return session.HandleReleaseStream(command)
	case "FCPublish":
		return session.HandleFCPublish(command)
	case "createStream":
		return session.HandleCreateStream(command)
	case "publish":
		return session.HandlePublish(command, streamID)
	case "play":
		return session.HandlePlay(command, streamID)
	case "deleteStream", "closeStream", "FCUnpublish":
		session.Close()
		return nil
	default:
		// Unrecognized commands (pause, seek, etc.) require no response.
		return nil
	}
}
