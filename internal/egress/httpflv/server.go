// If you are AI: This file wires HTTP-FLV egress into the main HTTP server's mux.

package httpflv

import (
	"net/http"
	"time"

	"github.com/streamforge/origind/internal/auth"
	"github.com/streamforge/origind/internal/core/registry"
)

// Service exposes HTTP-FLV playback routes backed by a Registry.
type Service struct {
	handler *Handler
}

// NewService creates a Service with the given idle timeout for subscribers.
func NewService(reg *registry.Registry, authenticator auth.Authenticator, idleTimeout time.Duration) *Service {
	return &Service{handler: NewHandler(reg, authenticator, idleTimeout)}
}

// RegisterRoutes registers HTTP-FLV routes on mux.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.handler.RegisterRoutes(mux)
}
