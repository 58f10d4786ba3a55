// If you are AI: This file implements HubRegistry, the process-wide stream-name to StreamHub map.
// AcquireForPublisher rejects a name already held by a live publisher instead of silently
// reusing the hub.

package registry

import (
	"errors"
	"sync"

	"github.com/streamforge/origind/internal/core/hub"
)

// ErrNameInUse is returned by AcquireForPublisher when the requested stream
// name already has a live publisher attached.
var ErrNameInUse = errors.New("stream name in use")

// ErrStreamNotFound is returned by LookupForSubscriber when no hub exists
// for the requested stream name.
var ErrStreamNotFound = errors.New("stream not found")

// Registry maps stream names to Hubs, providing readers-writer concurrency:
// the subscribe path only ever takes a read lock and never suspends while
// holding it.
type Registry struct {
	mu   sync.RWMutex
	hubs map[hub.StreamKey]*hub.Hub
	cfg  hub.Config
}

// New creates an empty Registry. cfg supplies the default Hub configuration
// applied to every hub it creates.
func New(cfg hub.Config) *Registry {
	return &Registry{
		hubs: make(map[hub.StreamKey]*hub.Hub),
		cfg:  cfg,
	}
}

// AcquireForPublisher returns the Hub for key, creating it if absent, and
// attaches a new publisher token to it. If a hub already exists for key and
// currently has a live publisher, returns ErrNameInUse — unlike a naive
// get-or-create, a second publisher on the same name is always rejected,
// never silently handed the existing hub.
//
// If a hub exists but its previous publisher already left, the existing hub
// is reused for the new publisher. NotifyPublisherLeft removes a hub only
// when it is empty, so an entry found here without a publisher still has
// subscribers, and they go on to receive the new publisher's packets. Both
// methods hold r.mu, so this never interleaves with a NotifyPublisherLeft.
func (r *Registry) AcquireForPublisher(key hub.StreamKey) (*hub.Hub, hub.PublisherToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h, exists := r.hubs[key]; exists {
		if tok, ok := h.AcquirePublisher(); ok {
			return h, tok, nil
		}
		return nil, 0, ErrNameInUse
	}

	h := hub.New(key, r.cfg)
	tok, _ := h.AcquirePublisher()
	r.hubs[key] = h
	return h, tok, nil
}

// LookupForSubscriber returns the Hub for key without suspending. Read-lock
// only: concurrent lookups never block each other.
func (r *Registry) LookupForSubscriber(key hub.StreamKey) (*hub.Hub, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, exists := r.hubs[key]
	if !exists {
		return nil, ErrStreamNotFound
	}
	return h, nil
}

// NotifyPublisherLeft releases the publisher token on the hub for key and,
// if the hub is now empty (no publisher, no subscribers), removes it from
// the registry immediately so a racing new publisher creates a fresh hub
// rather than attaching to one mid-teardown.
//
// If the hub still has subscribers, it is left in the map. Neither this
// method nor ReleasePublisher closes subscriber channels, and the ingest
// caller does not close them either: each subscriber stays attached to the
// now-publisherless hub until its own idle timeout ends it or it
// unsubscribes.
func (r *Registry) NotifyPublisherLeft(key hub.StreamKey, token hub.PublisherToken) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, exists := r.hubs[key]
	if !exists {
		return
	}
	h.ReleasePublisher(token)
	if h.IsEmpty() {
		delete(r.hubs, key)
	}
}

// RemoveIfEmpty removes the hub for key if it has neither a publisher nor
// subscribers, reclaiming a hub whose last subscriber left after the
// publisher already had. Nothing in this module calls it on a schedule.
func (r *Registry) RemoveIfEmpty(key hub.StreamKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, exists := r.hubs[key]
	if !exists {
		return false
	}
	if !h.IsEmpty() {
		return false
	}
	delete(r.hubs, key)
	return true
}

// Count returns the number of active hubs.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.hubs)
}

// List returns every currently registered stream key.
func (r *Registry) List() []hub.StreamKey {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]hub.StreamKey, 0, len(r.hubs))
	for k := range r.hubs {
		keys = append(keys, k)
	}
	return keys
}
