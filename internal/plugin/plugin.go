// Package plugin is the stateful core of the style aggregation plugin: one
// instance per build session, owning the virtual module registry, the
// quiescence barrier, and the resolution state machine the host hooks
// dispatch into.
package plugin

import (
	"context"
	"strings"

	"github.com/nmarshall23/vuetify-loader/internal/barrier"
	"github.com/nmarshall23/vuetify-loader/internal/bundler"
	"github.com/nmarshall23/vuetify-loader/internal/config"
	"github.com/nmarshall23/vuetify-loader/internal/ctxlog"
	"github.com/nmarshall23/vuetify-loader/internal/finalize"
	"github.com/nmarshall23/vuetify-loader/internal/probe"
	"github.com/nmarshall23/vuetify-loader/internal/styles"
	"github.com/nmarshall23/vuetify-loader/internal/vmod"
)

// Plugin holds all per-session state. Construct one per build session and
// discard it with the session; nothing here is global.
type Plugin struct {
	opts     *config.Options
	mode     bundler.HostMode
	resolver bundler.StyleResolver
	registry *vmod.Registry
	matcher  *styles.Matcher
	blocking *barrier.BlockSet
	barrier  *barrier.Barrier
}

// New wires a plugin instance from its collaborators. notifier may be nil
// when no dev-server side channel exists.
func New(opts *config.Options, mode bundler.HostMode, graph bundler.Graph,
	resolver bundler.StyleResolver, writer bundler.ArtifactWriter,
	toucher bundler.Toucher, notifier finalize.Notifier) *Plugin {

	registry := vmod.New()
	matcher := styles.NewMatcher(opts.StylePackage, opts.LibraryRoot, opts.Extensions)
	blocking := barrier.NewBlockSet()
	finalizer := finalize.New(writer, graph, toucher, registry, mode, opts.ArtifactPath, notifier)

	return &Plugin{
		opts:     opts,
		mode:     mode,
		resolver: resolver,
		registry: registry,
		matcher:  matcher,
		blocking: blocking,
		barrier: barrier.New(
			probe.New(graph, mode, blocking, matcher),
			blocking,
			barrier.Options{
				Timeout:         opts.StylesTimeout,
				OnSettled:       finalizer.Finalize,
				PendingRequests: graph.PendingRequests,
			},
		),
	}
}

// Registry exposes the virtual module registry, primarily for embedders
// that serve virtual content through their own load pipeline.
func (p *Plugin) Registry() *vmod.Registry {
	return p.registry
}

// RequestSettle joins (or starts) the current settle cycle without
// registering a blocking module, and returns once the fragment set has been
// finalized.
func (p *Plugin) RequestSettle(ctx context.Context) error {
	return p.barrier.RequestSettle(ctx, "")
}

// OnResolve handles a host resolution request. It returns the resolved id,
// or an empty string to fall through to the host's default chain.
func (p *Plugin) OnResolve(ctx context.Context, source, importer string) (string, error) {
	// Our own synthetic ids resolve to their canonical spelling so the
	// host routes their loads back to OnLoad.
	if vmod.IsVoid(source) {
		return vmod.VoidID, nil
	}
	if key, ok := vmod.ResolveVirtual(source); ok {
		return vmod.ID(key), nil
	}

	if !p.matcher.MatchesEntry(source, importer) {
		return "", nil
	}

	switch p.opts.Mode {
	case config.ModeSuppressed:
		return vmod.VoidID, nil
	case config.ModePassthrough:
		return p.resolver.Resolve(ctx, styles.ToSourceStyle(source), importer)
	case config.ModeAggregated:
		return p.resolveAggregated(ctx, source, importer)
	case config.ModeConfigured:
		return p.resolveConfigured(ctx, source, importer)
	}
	return "", nil
}

// resolveAggregated collects the style source as a fragment and suppresses
// the direct load; the content reaches the build through the shared
// aggregated artifact instead.
func (p *Plugin) resolveAggregated(ctx context.Context, source, importer string) (string, error) {
	// Start (or join) a settle cycle without waiting for it: resolution
	// itself must not block, that is the transform hook's job.
	p.barrier.Trigger(ctx)

	resolved, err := p.resolver.Resolve(ctx, styles.ToSourceStyle(source), importer)
	switch {
	case err != nil:
		ctxlog.FromContext(ctx).Debug("style source resolution failed", "source", source, "error", err)
	case resolved != "":
		p.registry.RegisterFragment(resolved)
	}
	return vmod.VoidID, nil
}

// resolveConfigured synthesizes a per-source stylesheet that prefixes the
// configured settings entry, served under a deterministic virtual key.
func (p *Plugin) resolveConfigured(ctx context.Context, source, importer string) (string, error) {
	resolved, err := p.resolver.Resolve(ctx, styles.ToCompiledStyle(source), importer)
	if err != nil {
		return "", err
	}
	if resolved == "" {
		return "", nil
	}

	sourcePath := styles.ToSourceStyle(resolved)
	key := styles.VirtualKey(resolved, p.opts.LibraryRoot)
	p.registry.DefineVirtual(key, styles.ConfiguredDocument(p.opts.ConfigFile, sourcePath, p.opts.UseLayers))
	return vmod.ID(key), nil
}

// OnTransform handles a host transform request. A module importing the
// aggregated style entry suspends here until the module graph settles, then
// resumes with its import rewritten to the synthetic aggregated module. An
// empty return means the code is untouched.
func (p *Plugin) OnTransform(ctx context.Context, code, id string) (string, error) {
	if p.opts.Mode != config.ModeAggregated {
		return "", nil
	}
	if !strings.Contains(code, p.opts.StylePackage) {
		return "", nil
	}

	if err := p.barrier.RequestSettle(ctx, id); err != nil {
		return "", err
	}
	return strings.ReplaceAll(code, p.opts.StylePackage, vmod.ID(vmod.AggregateKey)), nil
}

// OnLoad serves the content of this plugin's synthetic modules. The second
// return is false for ids outside our namespace.
func (p *Plugin) OnLoad(_ context.Context, id string) (string, bool) {
	if vmod.IsVoid(id) {
		return "", true
	}
	key, ok := vmod.ResolveVirtual(id)
	if !ok {
		return "", false
	}
	return p.registry.LoadVirtual(key)
}
