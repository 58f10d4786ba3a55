// If you are AI: This file implements the top-level server lifecycle and
// routing, wiring the registry, RTMP ingest/playback, HTTP-FLV, WebSocket-
// FLV, the HLS segmenter manager, static HLS file serving, and health
// checks onto their configured ports.

package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/streamforge/origind/internal/auth"
	"github.com/streamforge/origind/internal/config"
	"github.com/streamforge/origind/internal/core/hub"
	"github.com/streamforge/origind/internal/core/registry"
	"github.com/streamforge/origind/internal/core/subscriber"
	"github.com/streamforge/origind/internal/egress/httpflv"
	"github.com/streamforge/origind/internal/egress/wsflv"
	"github.com/streamforge/origind/internal/ingest"
	"github.com/streamforge/origind/internal/svc/api"
	"github.com/streamforge/origind/internal/svc/health"
)

// Server wires together every network-facing service the process runs.
type Server struct {
	httpflvServer *http.Server
	healthServer  *http.Server
	hlsServer     *http.Server
	rtmpServer    *ingest.Server
	registry      *registry.Registry
	hlsMgr        *hlsManager
}

// New creates a Server from cfg. The server is not started until Start is
// called.
func New(cfg *config.Config) *Server {
	policy := subscriber.DropOldest
	if cfg.Subscriber.OverflowPolicy == "disconnect_slow" {
		policy = subscriber.DisconnectSlow
	}

	reg := registry.New(hub.Config{
		GOPCacheEnabled:   cfg.FullGOP,
		GOPCacheMaxFrames: cfg.GOPCacheMaxFrames,
		ChannelCapacity:   cfg.Subscriber.ChannelCapacity,
		OverflowPolicy:    policy,
	})

	var authenticator auth.Authenticator = auth.NoOp{}

	hlsMgr := newHLSManager(cfg.HLS)

	idleTimeout := 30 * time.Second

	rtmpServer := ingest.NewServer(reg, authenticator, idleTimeout)
	rtmpServer.OnPublish = hlsMgr.onPublish
	rtmpServer.OnPublisherLeft = hlsMgr.onPublisherLeft

	flvMux := http.NewServeMux()
	httpflv.NewService(reg, authenticator, idleTimeout).RegisterRoutes(flvMux)
	wsflv.NewService(reg, authenticator, idleTimeout).RegisterRoutes(flvMux)
	api.NewService(reg).RegisterRoutes(flvMux)

	healthMux := http.NewServeMux()
	health.New().RegisterRoutes(healthMux)

	var hlsServer *http.Server
	if cfg.HLS.Enable {
		hlsMux := http.NewServeMux()
		hlsMux.Handle("/", http.FileServer(http.Dir(cfg.HLS.DataPath)))
		hlsServer = &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Server.HLSPort),
			Handler: hlsMux,
		}
	}

	return &Server{
		httpflvServer: &http.Server{Addr: fmt.Sprintf(":%d", cfg.Server.HTTPFLVPort), Handler: flvMux},
		healthServer:  &http.Server{Addr: fmt.Sprintf(":%d", cfg.Server.HealthPort), Handler: healthMux},
		hlsServer:     hlsServer,
		rtmpServer:    rtmpServer,
		registry:      reg,
		hlsMgr:        hlsMgr,
	}
}

// Start begins serving RTMP, HTTP-FLV/WS-FLV, health, and (if enabled) HLS
// file requests. It blocks on the HTTP-FLV server until that server stops.
func (s *Server) Start(cfg *config.Config) error {
	if err := s.rtmpServer.Listen(fmt.Sprintf(":%d", cfg.Server.RTMPPort)); err != nil {
		return fmt.Errorf("rtmp server listen: %w", err)
	}
	go func() {
		_ = s.rtmpServer.Serve()
	}()

	go func() {
		if err := s.healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			_ = err
		}
	}()

	if s.hlsServer != nil {
		go func() {
			if err := s.hlsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				_ = err
			}
		}()
	}

	return s.httpflvServer.ListenAndServe()
}

// Shutdown gracefully stops every HTTP listener with ctx's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.healthServer.Shutdown(ctx); err != nil {
		return err
	}
	if s.hlsServer != nil {
		if err := s.hlsServer.Shutdown(ctx); err != nil {
			return err
		}
	}
	return s.httpflvServer.Shutdown(ctx)
}

// ShutdownWithTimeout stops the server with a fixed 5-second timeout,
// closing the RTMP listener first so no new connections arrive mid-drain.
func (s *Server) ShutdownWithTimeout() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if s.rtmpServer != nil {
		s.rtmpServer.Close()
	}
	return s.Shutdown(ctx)
}
