// If you are AI: This file defines the Authenticator collaborator interface
// consulted by ingest and egress sessions when auth is enabled, plus a
// no-op implementation for deployments with no backing credential store.

package auth

import "context"

// Authenticator authorizes publish and subscribe requests against a
// stream key. Callers consult it only when the configured auth.enable
// flag is true; a no-op Authenticator is otherwise wired in.
type Authenticator interface {
	// AuthorizePublish returns an error if suppliedKey does not authorize
	// publishing to streamKey.
	AuthorizePublish(ctx context.Context, streamKey, suppliedKey string) error

	// AuthorizeSubscribe returns an error if the caller may not subscribe
	// to streamKey.
	AuthorizeSubscribe(ctx context.Context, streamKey string) error
}

// NoOp authorizes every request. It is the default Authenticator when
// auth.enable is false.
type NoOp struct{}

// AuthorizePublish always succeeds.
func (NoOp) AuthorizePublish(ctx context.Context, streamKey, suppliedKey string) error {
	return nil
}

// AuthorizeSubscribe always succeeds.
func (NoOp) AuthorizeSubscribe(ctx context.Context, streamKey string) error {
	return nil
}
