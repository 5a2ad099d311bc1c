// Package finalize writes the aggregated stylesheet once a settle cycle
// completes and nudges the host's invalidation tracking for modules that
// already consumed a stale version of it.
package finalize

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nmarshall23/vuetify-loader/internal/bundler"
	"github.com/nmarshall23/vuetify-loader/internal/ctxlog"
	"github.com/nmarshall23/vuetify-loader/internal/styles"
	"github.com/nmarshall23/vuetify-loader/internal/vmod"
)

// Notifier pushes live-reload events to connected dev clients. Optional.
type Notifier interface {
	Broadcast(event string, payload any)
}

// UpdatedEvent is emitted to dev clients after a cycle that registered new
// fragments.
const UpdatedEvent = "styles:updated"

// Finalizer runs once per settled cycle.
type Finalizer struct {
	writer       bundler.ArtifactWriter
	graph        bundler.Graph
	toucher      bundler.Toucher
	registry     *vmod.Registry
	mode         bundler.HostMode
	artifactPath string
	notifier     Notifier
}

// New wires a finalizer. notifier may be nil.
func New(writer bundler.ArtifactWriter, graph bundler.Graph, toucher bundler.Toucher,
	registry *vmod.Registry, mode bundler.HostMode, artifactPath string, notifier Notifier) *Finalizer {
	return &Finalizer{
		writer:       writer,
		graph:        graph,
		toucher:      toucher,
		registry:     registry,
		mode:         mode,
		artifactPath: artifactPath,
		notifier:     notifier,
	}
}

// Finalize publishes the current fragment set: it refreshes the virtual
// aggregated document, writes the shared artifact, and in dev mode touches
// every importer of the artifact so the host re-evaluates them. Write
// failures are logged, never surfaced to barrier waiters; a degraded
// artifact beats a crashed build.
func (f *Finalizer) Finalize(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)

	fragments := f.registry.Fragments()
	f.registry.DefineVirtual(vmod.AggregateKey, styles.AggregateDocument(fragments))

	if err := f.writer.Write(ctx, fragments); err != nil {
		logger.Error("failed to write aggregated stylesheet", "error", err, "fragments", len(fragments))
	} else {
		logger.Debug("aggregated stylesheet written", "fragments", len(fragments))
	}

	if f.mode != bundler.HostDev {
		return
	}
	if !f.registry.ConsumeDirty() {
		return
	}

	// Invalidation hint: importers of the artifact hold a stale copy, and
	// the host watches file mtimes. Touching the importer file is the
	// only channel we have to tell it so; failures are a lost hint, not
	// an error.
	now := time.Now()
	g, _ := errgroup.WithContext(ctx)
	importers := f.graph.ImportersOf(f.artifactPath)
	for _, importer := range importers {
		g.Go(func() error {
			if err := f.toucher.Touch(importer.File, now); err != nil {
				logger.Debug("invalidation touch failed", "file", importer.File, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
	logger.Debug("stale importers touched", "count", len(importers))

	if f.notifier != nil {
		f.notifier.Broadcast(UpdatedEvent, map[string]any{"fragments": len(fragments)})
	}
}
