// If you are AI: This file spins up and tears down one HlsSegmenter per
// stream, driven by the ingest server's publish hooks, using the same
// per-key map-with-mutex pattern as the stream registry.

package server

import (
	"sync"
	"time"

	"github.com/streamforge/origind/internal/config"
	"github.com/streamforge/origind/internal/core/hub"
	"github.com/streamforge/origind/internal/hls"
)

// hlsManager owns one hls.Segmenter per currently-publishing stream.
type hlsManager struct {
	enable bool
	cfg    hls.Config

	mu         sync.Mutex
	segmenters map[hub.StreamKey]*hls.Segmenter
}

// newHLSManager builds an hlsManager from the HLS section of Config.
func newHLSManager(c config.HLSConfig) *hlsManager {
	return &hlsManager{
		enable: c.Enable,
		cfg: hls.Config{
			DataPath:      c.DataPath,
			TSDuration:    time.Duration(c.TSDurationSeconds) * time.Second,
			MaxSegments:   c.Cleanup.MaxFilesPerStream,
			MinAge:        time.Duration(c.Cleanup.MinFileAgeSeconds) * time.Second,
			CleanupDelay:  time.Duration(c.Cleanup.CleanupDelaySeconds) * time.Second,
			MaxTotalBytes: int64(c.Cleanup.MaxTotalSizeMB) * 1024 * 1024,
		},
		segmenters: make(map[hub.StreamKey]*hls.Segmenter),
	}
}

// onPublish starts a Segmenter for key if HLS is enabled and one isn't
// already running for it.
func (m *hlsManager) onPublish(key hub.StreamKey, h *hub.Hub) {
	if !m.enable {
		return
	}
	m.mu.Lock()
	if _, exists := m.segmenters[key]; exists {
		m.mu.Unlock()
		return
	}
	seg := hls.New(key.String(), m.cfg)
	m.segmenters[key] = seg
	m.mu.Unlock()

	go seg.Run(h)
}

// onPublisherLeft stops and forgets the Segmenter for key, if any.
func (m *hlsManager) onPublisherLeft(key hub.StreamKey) {
	m.mu.Lock()
	seg, exists := m.segmenters[key]
	if exists {
		delete(m.segmenters, key)
	}
	m.mu.Unlock()

	if exists {
		seg.Stop()
	}
}
