// Package vmod tracks the plugin's synthetic module space: the fragment set
// destined for the aggregated artifact and the generated stylesheet
// documents served under the virtual namespace.
package vmod

import (
	"strings"
	"sync"
)

const (
	// Prefix is the private namespace virtual stylesheet ids live under.
	Prefix = "virtual:vuetify-styles/"

	// mangledPrefix is the host's escaped spelling of the same namespace,
	// produced by its own id mangling for browser-facing urls.
	mangledPrefix = "/@id/virtual:vuetify-styles/"

	// VoidID is the sentinel id style resolutions map to when styles are
	// suppressed or already folded into the aggregated artifact. It loads
	// as an empty document without materializing any file.
	VoidID = "virtual:vuetify-styles:void"

	// AggregateKey is the reserved key the aggregated document is served
	// under once a settle cycle finalizes.
	AggregateKey = "aggregate"
)

// ID returns the full virtual module id for a registry key.
func ID(key string) string {
	return Prefix + key
}

// Registry is the per-plugin-instance store of fragments and virtual
// documents. The zero value is not usable; call New.
type Registry struct {
	mu sync.Mutex

	// fragments keeps registration order; seen backs idempotence.
	fragments []string
	seen      map[string]struct{}

	// dirty flips when a fragment is added and clears when the finalizer
	// consumes it, so only cycles that discovered something new trigger
	// downstream invalidation.
	dirty bool

	virtuals map[string]string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		seen:     make(map[string]struct{}),
		virtuals: make(map[string]string),
	}
}

// RegisterFragment adds a resolved stylesheet path to the fragment set and
// reports whether it was new. The set only ever grows; repeated
// registrations of the same path are no-ops.
func (r *Registry) RegisterFragment(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.seen[path]; ok {
		return false
	}
	r.seen[path] = struct{}{}
	r.fragments = append(r.fragments, path)
	r.dirty = true
	return true
}

// Fragments returns a snapshot of the fragment set in registration order.
func (r *Registry) Fragments() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.fragments...)
}

// ConsumeDirty reports whether any fragment was registered since the last
// call and resets the flag.
func (r *Registry) ConsumeDirty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	dirty := r.dirty
	r.dirty = false
	return dirty
}

// DefineVirtual stores content under key, replacing any prior document for
// the same key.
func (r *Registry) DefineVirtual(key, content string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.virtuals[key] = content
}

// IsVoid reports whether rawID names the suppressed sentinel, in either its
// raw or host-mangled spelling, ignoring query decoration.
func IsVoid(rawID string) bool {
	id, _, _ := strings.Cut(rawID, "?")
	return id == VoidID || id == "/@id/"+VoidID
}

// ResolveVirtual recognizes this registry's id convention and extracts the
// logical key. It accepts both the raw namespace prefix and the host's
// mangled spelling, and strips any query-string decoration.
func ResolveVirtual(rawID string) (string, bool) {
	id, _, _ := strings.Cut(rawID, "?")
	if key, ok := strings.CutPrefix(id, Prefix); ok {
		return key, true
	}
	if key, ok := strings.CutPrefix(id, mangledPrefix); ok {
		return key, true
	}
	return "", false
}

// LoadVirtual returns the document previously defined for key. The void
// sentinel always loads as an empty document.
func (r *Registry) LoadVirtual(key string) (string, bool) {
	if key == VoidID {
		return "", true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	content, ok := r.virtuals[key]
	return content, ok
}
