// Package container narrows the upstream MongoDB process to a single
// sandboxed Docker container: start it, restart it on supervisor failure,
// and tear it down on process exit.
package container

import "context"

// Handle is the external collaborator the proxy and supervisor depend on:
// an opaque thing exposing a port, a restart operation, and a scoped
// teardown. Production code talks only to this interface; DockerHandle is
// the concrete Docker-backed implementation.
type Handle interface {
	// Start launches the upstream and returns the host port it published.
	Start(ctx context.Context) (port int, err error)
	// Restart kills and relaunches the upstream, preserving its published
	// port where possible.
	Restart(ctx context.Context) error
	// Teardown stops and removes the upstream container.
	Teardown(ctx context.Context) error
}
