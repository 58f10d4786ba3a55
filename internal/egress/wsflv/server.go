// If you are AI: This file wires WebSocket-FLV egress into the main HTTP server's mux.

package wsflv

import (
	"net/http"
	"time"

	"github.com/streamforge/origind/internal/auth"
	"github.com/streamforge/origind/internal/core/registry"
)

// Service exposes WebSocket-FLV playback routes backed by a Registry.
type Service struct {
	handler *Handler
}

// NewService creates a Service with the given idle timeout for subscribers.
func NewService(reg *registry.Registry, authenticator auth.Authenticator, idleTimeout time.Duration) *Service {
	return &Service{handler: NewHandler(reg, authenticator, idleTimeout)}
}

// RegisterRoutes registers WebSocket-FLV routes on mux.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.handler.RegisterRoutes(mux)
}
