// Package probe enumerates module-graph entries that have not been resolved
// or transformed yet and forces them toward resolution. One probe round is
// the barrier's unit of forward progress: a non-empty round means discovery
// may still be running, an empty round means the graph is quiescent.
package probe

import (
	"context"
	"runtime"
	"strings"

	"github.com/nmarshall23/vuetify-loader/internal/barrier"
	"github.com/nmarshall23/vuetify-loader/internal/bundler"
	"github.com/nmarshall23/vuetify-loader/internal/ctxlog"
	"github.com/nmarshall23/vuetify-loader/internal/styles"
)

const (
	// syntheticPrefix marks bundler-internal ids that never correspond to
	// plugin-visible source modules.
	syntheticPrefix = "virtual:"

	// depsCacheSegment is the path convention for the host's pre-bundled
	// dependency cache. Entries there are already optimized and forcing
	// them only churns the cache.
	depsCacheSegment = "/.deps/"

	// ownNamespace marks dependency-cache entries this plugin still needs
	// transformed despite the cache filter.
	ownNamespace = "vuetify"
)

// Probe inspects the host graph for unfinished modules. The filtering
// policy is the correctness-critical part: style files are excluded because
// they are what caused the wait, blocking waiters are excluded so nobody
// waits on itself, and already-materialized modules are excluded so the
// probe cannot spin re-forcing settled work.
type Probe struct {
	graph    bundler.Graph
	mode     bundler.HostMode
	blocking *barrier.BlockSet
	matcher  *styles.Matcher
}

// New creates a probe over the host graph.
func New(graph bundler.Graph, mode bundler.HostMode, blocking *barrier.BlockSet, matcher *styles.Matcher) *Probe {
	return &Probe{graph: graph, mode: mode, blocking: blocking, matcher: matcher}
}

// Probe runs one discovery round and returns the ids it forced. It returns
// immediately with no forced loads when nothing is pending. Otherwise it
// issues a forced resolution for every pending id and returns once any one
// of them settles; the rest keep running inside the host.
func (p *Probe) Probe(ctx context.Context) ([]string, error) {
	logger := ctxlog.FromContext(ctx)

	// Yield once so resolutions already in flight can admit the modules
	// they just discovered before we snapshot the graph.
	runtime.Gosched()

	var pending []string
	for _, mod := range p.graph.KnownModules(ctx) {
		if !p.keep(mod) {
			continue
		}
		pending = append(pending, mod.ID)
	}
	if len(pending) == 0 {
		return nil, nil
	}
	logger.Debug("forcing unresolved modules", "count", len(pending), "mode", p.mode)

	// Race the forced loads: the round reports as soon as any one module
	// finishes, because that alone may have admitted new work worth a
	// fresh round. The others keep resolving inside the host graph.
	first := make(chan error, len(pending))
	for _, id := range pending {
		go func() {
			first <- p.graph.ForceResolve(ctx, id)
		}()
	}
	if err := <-first; err != nil {
		logger.Debug("forced resolution failed", "error", err)
	}
	return pending, nil
}

// keep applies the filter policy for one graph entry.
func (p *Probe) keep(mod bundler.Module) bool {
	if mod.Transformed || p.graph.IsTransformed(mod.ID) {
		return false
	}
	if p.blocking.Has(mod.ID) {
		return false
	}
	if p.matcher.IsStyleFile(mod.ID) {
		return false
	}
	if p.mode == bundler.HostBuild {
		return true
	}

	// Dev-server graphs also carry synthetic ids and optimized
	// dependency-cache entries; neither represents real pending work.
	if strings.HasPrefix(mod.ID, syntheticPrefix) || strings.HasPrefix(mod.ID, "\x00") {
		return false
	}
	if strings.Contains(mod.ID, depsCacheSegment) && !strings.Contains(mod.ID, ownNamespace) {
		return false
	}
	return true
}
