// Package memgraph provides an ephemeral, thread-safe, in-memory
// implementation of the bundler.Graph contract. It backs the standalone CLI
// and the test suite, where no real bundler is driving the plugin.
//
// Discovery is demand-driven like a real host graph: a scripted discovery
// hook can admit further modules whenever one is force-resolved, which is
// exactly the behavior the quiescence barrier exists to chase.
package memgraph

import (
	"context"
	"sort"
	"sync"

	"github.com/nmarshall23/vuetify-loader/internal/bundler"
)

// DiscoveryFunc returns the modules that resolving id admits to the graph.
type DiscoveryFunc func(id string) []bundler.Module

// Graph is an in-memory module graph. All methods are safe for concurrent
// use; mutable state sits behind one RWMutex since the module count in a
// session is small and reads dominate.
type Graph struct {
	mu        sync.RWMutex
	order     []string
	modules   map[string]*bundler.Module
	importers map[string][]bundler.Module
	pending   map[string]struct{}
	discover  DiscoveryFunc
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		modules:   make(map[string]*bundler.Module),
		importers: make(map[string][]bundler.Module),
		pending:   make(map[string]struct{}),
	}
}

// SetDiscovery installs the scripted discovery hook. It must be called
// before the graph is shared.
func (g *Graph) SetDiscovery(fn DiscoveryFunc) {
	g.discover = fn
}

// Admit adds a module to the graph. Admitting an existing id updates its
// recorded state without duplicating the entry.
func (g *Graph) Admit(mod bundler.Module) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.admitLocked(mod)
}

func (g *Graph) admitLocked(mod bundler.Module) {
	if existing, ok := g.modules[mod.ID]; ok {
		*existing = mod
		return
	}
	g.order = append(g.order, mod.ID)
	copied := mod
	g.modules[mod.ID] = &copied
}

// AddImporter records that importer imports the given file.
func (g *Graph) AddImporter(file string, importer bundler.Module) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.importers[file] = append(g.importers[file], importer)
}

// KnownModules lists admitted modules in admission order.
func (g *Graph) KnownModules(context.Context) []bundler.Module {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]bundler.Module, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, *g.modules[id])
	}
	return out
}

// ForceResolve marks the module transformed and admits whatever the
// discovery hook says this resolution uncovered.
func (g *Graph) ForceResolve(_ context.Context, id string) error {
	g.mu.Lock()
	g.pending[id] = struct{}{}
	g.mu.Unlock()

	var discovered []bundler.Module
	if g.discover != nil {
		discovered = g.discover(id)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.pending, id)
	if mod, ok := g.modules[id]; ok {
		mod.Transformed = true
	} else {
		g.admitLocked(bundler.Module{ID: id, File: id, Transformed: true})
	}
	for _, mod := range discovered {
		g.admitLocked(mod)
	}
	return nil
}

// IsTransformed reports whether the module holds transformed output.
func (g *Graph) IsTransformed(id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	mod, ok := g.modules[id]
	return ok && mod.Transformed
}

// ImportersOf returns the recorded importers of a file.
func (g *Graph) ImportersOf(file string) []bundler.Module {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]bundler.Module(nil), g.importers[file]...)
}

// PendingRequests lists ids with a ForceResolve currently in flight.
func (g *Graph) PendingRequests() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, 0, len(g.pending))
	for id := range g.pending {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
