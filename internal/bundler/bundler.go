// Package bundler declares the contracts this plugin consumes from its host
// bundler. The plugin core never talks to a concrete bundler directly; it
// drives the module graph, the artifact writer, and the style resolver
// through these interfaces so the same core serves a one-shot build and a
// live dev server.
package bundler

import (
	"context"
	"time"
)

// HostMode identifies which embedding of the plugin is active. A build-time
// plugin context and a live dev server expose the same graph semantics
// through different APIs, and a few probe filters only apply to one of them.
type HostMode int

const (
	// HostBuild is a one-shot build invocation.
	HostBuild HostMode = iota
	// HostDev is a long-lived dev server with incremental invalidation.
	HostDev
)

// String returns the mode name for logs.
func (m HostMode) String() string {
	if m == HostDev {
		return "dev"
	}
	return "build"
}

// Module is the plugin's view of one entry in the host's module graph.
type Module struct {
	// ID is the graph identifier, usually a resolved path plus query.
	ID string
	// File is the underlying file path, without query decoration.
	File string
	// Transformed reports whether the host already holds transformed
	// output for the module.
	Transformed bool
}

// Graph is the host's incremental module graph. Implementations must be safe
// for concurrent use; the probe and the finalizer call into it from the
// barrier's driving goroutine while host hooks run on their own.
type Graph interface {
	// KnownModules lists every module the graph has admitted so far.
	KnownModules(ctx context.Context) []Module

	// ForceResolve asks the host to resolve and transform the module,
	// admitting any modules it discovers along the way. It blocks until
	// the host finishes with this module.
	ForceResolve(ctx context.Context, id string) error

	// IsTransformed reports whether the module already carries
	// transformed output.
	IsTransformed(id string) bool

	// ImportersOf returns the modules that import the given file.
	ImportersOf(file string) []Module

	// PendingRequests exposes the host's in-flight resolution ids for
	// diagnostics. Implementations may return nil.
	PendingRequests() []string
}

// ArtifactWriter persists the aggregated stylesheet. Write is idempotent:
// writing the same fragment list twice must produce the same artifact.
type ArtifactWriter interface {
	Write(ctx context.Context, fragments []string) error
}

// StyleResolver resolves a style-source specifier the way the host would.
// An empty path with a nil error means the host found nothing and the
// caller should fall through to the default resolution chain.
type StyleResolver interface {
	Resolve(ctx context.Context, source, importer string) (string, error)
}

// Toucher updates a file's modification time. It is a best-effort
// invalidation hint for the host's own cache tracking; callers ignore
// failures.
type Toucher interface {
	Touch(path string, t time.Time) error
}
