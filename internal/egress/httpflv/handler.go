// If you are AI: This file implements the HTTP handler for FLV stream requests.
// Handles GET /{app}/{name}.flv requests and manages subscriber lifecycle.

package httpflv

import (
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/streamforge/origind/internal/auth"
	"github.com/streamforge/origind/internal/core/hub"
	"github.com/streamforge/origind/internal/core/registry"
)

// Handler serves HTTP-FLV playback for streams held by a Registry.
type Handler struct {
	registry      *registry.Registry
	authenticator auth.Authenticator
	idleTimeout   time.Duration
}

// NewHandler creates a Handler. idleTimeout bounds how long a subscriber
// may wait on an empty channel before the connection is closed.
// authenticator is consulted before every subscribe; pass auth.NoOp{} when
// auth.enable is false.
func NewHandler(reg *registry.Registry, authenticator auth.Authenticator, idleTimeout time.Duration) *Handler {
	if idleTimeout <= 0 {
		idleTimeout = 30 * time.Second
	}
	if authenticator == nil {
		authenticator = auth.NoOp{}
	}
	return &Handler{registry: reg, authenticator: authenticator, idleTimeout: idleTimeout}
}

// ServeHTTP handles HTTP requests for FLV streams at GET /{app}/{name}.flv.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	urlPath := strings.TrimPrefix(r.URL.Path, "/")
	if !strings.HasSuffix(urlPath, ".flv") {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	streamPath := strings.TrimSuffix(urlPath, ".flv")
	parts := strings.SplitN(streamPath, "/", 2)
	if len(parts) != 2 {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	key := hub.NewStreamKey(parts[0], parts[1])
	if err := h.authenticator.AuthorizeSubscribe(r.Context(), key.String()); err != nil {
		w.WriteHeader(http.StatusForbidden)
		return
	}

	h2, err := h.registry.LookupForSubscriber(key)
	if err != nil || !h2.HasPublisher() {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	sub := NewSubscriber(w, h2, h.idleTimeout)
	defer sub.Detach()

	w.Header().Set("Content-Type", "video/x-flv")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	if err := sub.WriteHeader(true, true); err != nil {
		return
	}
	flusher.Flush()

	_ = sub.ProcessMessages(flusher)
}

// RegisterRoutes registers the HTTP-FLV catch-all route on mux. Other
// routes (e.g. /healthz) must be registered first so they take precedence.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if path.Ext(r.URL.Path) == ".flv" {
			h.ServeHTTP(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})
}
