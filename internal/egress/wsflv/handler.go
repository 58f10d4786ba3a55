// If you are AI: This file implements the WebSocket handler for FLV stream requests.
// Handles GET /ws/{app}/{name} requests and manages subscriber lifecycle.

package wsflv

import (
	"net/http"
	"strings"
	"time"

	"github.com/streamforge/origind/internal/auth"
	"github.com/streamforge/origind/internal/core/hub"
	"github.com/streamforge/origind/internal/core/registry"

	"github.com/gorilla/websocket"
)

// Handler upgrades /ws/{app}/{name} requests to WebSocket and streams FLV
// tags over the connection.
type Handler struct {
	registry      *registry.Registry
	authenticator auth.Authenticator
	upgrader      websocket.Upgrader
	idleTimeout   time.Duration
}

// NewHandler creates a Handler. idleTimeout bounds how long a subscriber may
// wait on an empty channel before the connection is closed.
// authenticator is consulted before every subscribe; pass auth.NoOp{} when
// auth.enable is false.
func NewHandler(reg *registry.Registry, authenticator auth.Authenticator, idleTimeout time.Duration) *Handler {
	if idleTimeout <= 0 {
		idleTimeout = 30 * time.Second
	}
	if authenticator == nil {
		authenticator = auth.NoOp{}
	}
	return &Handler{
		registry:      reg,
		authenticator: authenticator,
		idleTimeout:   idleTimeout,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP handles the WebSocket upgrade and FLV streaming for one client.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	urlPath := strings.TrimPrefix(r.URL.Path, "/ws/")
	if urlPath == r.URL.Path {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	parts := strings.SplitN(urlPath, "/", 2)
	if len(parts) != 2 {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	key := hub.NewStreamKey(parts[0], parts[1])
	if err := h.authenticator.AuthorizeSubscribe(r.Context(), key.String()); err != nil {
		w.WriteHeader(http.StatusForbidden)
		return
	}

	hb, err := h.registry.LookupForSubscriber(key)
	if err != nil || !hb.HasPublisher() {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sub := NewSubscriber(conn, hb, h.idleTimeout)
	defer sub.Detach()

	if err := sub.WriteHeader(true, true); err != nil {
		return
	}
	_ = sub.ProcessMessages()
}

// RegisterRoutes registers the WebSocket-FLV route on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/", h.ServeHTTP)
}
