package finalize

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmarshall23/vuetify-loader/internal/bundler"
	"github.com/nmarshall23/vuetify-loader/internal/ctxlog"
	"github.com/nmarshall23/vuetify-loader/internal/vmod"
)

type recordingWriter struct {
	mu     sync.Mutex
	writes [][]string
}

func (w *recordingWriter) Write(_ context.Context, fragments []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writes = append(w.writes, append([]string(nil), fragments...))
	return nil
}

type recordingToucher struct {
	mu      sync.Mutex
	touched []string
}

func (tc *recordingToucher) Touch(path string, _ time.Time) error {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.touched = append(tc.touched, path)
	return nil
}

func (tc *recordingToucher) files() []string {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return append([]string(nil), tc.touched...)
}

type importerGraph struct {
	importers map[string][]bundler.Module
}

func (g *importerGraph) KnownModules(context.Context) []bundler.Module { return nil }
func (g *importerGraph) ForceResolve(context.Context, string) error    { return nil }
func (g *importerGraph) IsTransformed(string) bool                     { return true }
func (g *importerGraph) PendingRequests() []string                     { return nil }
func (g *importerGraph) ImportersOf(file string) []bundler.Module      { return g.importers[file] }

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) Broadcast(event string, _ any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

const artifact = "/project/.styles/aggregated.scss"

func TestFinalize_WritesFragmentSnapshot(t *testing.T) {
	t.Parallel()

	registry := vmod.New()
	registry.RegisterFragment("/lib/a.sass")
	registry.RegisterFragment("/lib/b.sass")

	writer := &recordingWriter{}
	f := New(writer, &importerGraph{}, &recordingToucher{}, registry, bundler.HostBuild, artifact, nil)
	f.Finalize(context.Background())

	require.Len(t, writer.writes, 1)
	assert.Equal(t, []string{"/lib/a.sass", "/lib/b.sass"}, writer.writes[0])

	t.Run("aggregated virtual document refreshed", func(t *testing.T) {
		doc, ok := registry.LoadVirtual(vmod.AggregateKey)
		require.True(t, ok)
		assert.Contains(t, doc, `@use "/lib/a.sass"`)
		assert.Contains(t, doc, `@use "/lib/b.sass"`)
	})
}

type failingWriter struct{}

func (failingWriter) Write(context.Context, []string) error {
	return errors.New("disk full")
}

func TestFinalize_WriteFailureLoggedAsError(t *testing.T) {
	t.Parallel()

	registry := vmod.New()
	registry.RegisterFragment("/lib/a.sass")

	var buf bytes.Buffer
	ctx := ctxlog.WithLogger(context.Background(),
		slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	f := New(failingWriter{}, &importerGraph{}, &recordingToucher{}, registry, bundler.HostBuild, artifact, nil)
	f.Finalize(ctx)

	assert.Contains(t, buf.String(), "failed to write aggregated stylesheet")
	assert.NotContains(t, buf.String(), "aggregated stylesheet written",
		"a failed write must not log success")
}

func TestFinalize_BuildModeNeverTouches(t *testing.T) {
	t.Parallel()

	registry := vmod.New()
	registry.RegisterFragment("/lib/a.sass")
	graph := &importerGraph{importers: map[string][]bundler.Module{
		artifact: {{ID: "/src/App.vue", File: "/src/App.vue"}},
	}}
	toucher := &recordingToucher{}

	f := New(&recordingWriter{}, graph, toucher, registry, bundler.HostBuild, artifact, nil)
	f.Finalize(context.Background())

	assert.Empty(t, toucher.files())
}

func TestFinalize_DevModeTouchesStaleImporters(t *testing.T) {
	t.Parallel()

	registry := vmod.New()
	registry.RegisterFragment("/lib/a.sass")

	graph := &importerGraph{importers: map[string][]bundler.Module{
		artifact: {
			{ID: "/src/App.vue", File: "/src/App.vue"},
			{ID: "/src/Other.vue", File: "/src/Other.vue"},
		},
	}}
	toucher := &recordingToucher{}
	notifier := &recordingNotifier{}

	f := New(&recordingWriter{}, graph, toucher, registry, bundler.HostDev, artifact, notifier)
	f.Finalize(context.Background())

	assert.ElementsMatch(t, []string{"/src/App.vue", "/src/Other.vue"}, toucher.files())
	assert.Equal(t, []string{UpdatedEvent}, notifier.events)

	t.Run("second cycle with no new fragments performs no touch", func(t *testing.T) {
		f.Finalize(context.Background())
		assert.Len(t, toucher.files(), 2, "no additional touches")
		assert.Len(t, notifier.events, 1, "no additional broadcast")
	})

	t.Run("new fragment re-arms invalidation", func(t *testing.T) {
		registry.RegisterFragment("/lib/b.sass")
		f.Finalize(context.Background())
		assert.Len(t, toucher.files(), 4)
	})
}
