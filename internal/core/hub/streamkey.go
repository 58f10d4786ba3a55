// If you are AI: This file defines StreamKey, the comparable identifier used to look a hub up in the registry.

package hub

import "fmt"

// StreamKey uniquely identifies a stream by application and stream name. It
// is comparable and safe to use as a map key.
type StreamKey struct {
	App  string
	Name string
}

// String returns the stable "app/name" representation used in logs.
func (k StreamKey) String() string {
	return fmt.Sprintf("%s/%s", k.App, k.Name)
}

// NewStreamKey builds a StreamKey from an application and stream name.
func NewStreamKey(app, name string) StreamKey {
	return StreamKey{App: app, Name: name}
}
