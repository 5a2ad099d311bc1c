package probe

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmarshall23/vuetify-loader/internal/barrier"
	"github.com/nmarshall23/vuetify-loader/internal/bundler"
	"github.com/nmarshall23/vuetify-loader/internal/styles"
)

// fakeGraph is a minimal bundler.Graph for filter-policy tests.
type fakeGraph struct {
	mu      sync.Mutex
	modules []bundler.Module
	forced  []string
	slow    bool
}

func (g *fakeGraph) KnownModules(context.Context) []bundler.Module {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]bundler.Module(nil), g.modules...)
}

func (g *fakeGraph) ForceResolve(_ context.Context, id string) error {
	if g.slow {
		time.Sleep(5 * time.Millisecond)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.forced = append(g.forced, id)
	return nil
}

func (g *fakeGraph) IsTransformed(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, m := range g.modules {
		if m.ID == id {
			return m.Transformed
		}
	}
	return false
}

func (g *fakeGraph) ImportersOf(string) []bundler.Module { return nil }
func (g *fakeGraph) PendingRequests() []string           { return nil }

func (g *fakeGraph) forcedIDs() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.forced...)
}

func newTestMatcher() *styles.Matcher {
	return styles.NewMatcher("vuetify/styles", "/node_modules/vuetify/lib", []string{"css", "sass", "scss"})
}

func TestProbe_BuildFilterPolicy(t *testing.T) {
	t.Parallel()

	graph := &fakeGraph{modules: []bundler.Module{
		{ID: "/src/App.vue"},
		{ID: "/src/done.ts", Transformed: true},
		{ID: "/lib/main.sass"},
		{ID: "/src/waiting.vue"},
	}}
	blocking := barrier.NewBlockSet()
	blocking.Add("/src/waiting.vue")

	p := New(graph, bundler.HostBuild, blocking, newTestMatcher())
	pending, err := p.Probe(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"/src/App.vue"}, pending,
		"transformed, style, and blocking modules are all excluded")
}

func TestProbe_DevFilterPolicy(t *testing.T) {
	t.Parallel()

	graph := &fakeGraph{modules: []bundler.Module{
		{ID: "/src/App.vue"},
		{ID: "virtual:other-plugin/thing"},
		{ID: "\x00internal"},
		{ID: "/node_modules/.cache/.deps/lodash.js"},
		{ID: "/node_modules/.cache/.deps/vuetify.js"},
	}}

	p := New(graph, bundler.HostDev, barrier.NewBlockSet(), newTestMatcher())
	pending, err := p.Probe(context.Background())
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"/src/App.vue", "/node_modules/.cache/.deps/vuetify.js"}, pending,
		"synthetic ids and foreign dependency-cache entries are excluded, own namespace is kept")
}

func TestProbe_QuiescentGraphIssuesNoLoads(t *testing.T) {
	t.Parallel()

	graph := &fakeGraph{modules: []bundler.Module{
		{ID: "/src/done.ts", Transformed: true},
		{ID: "/lib/main.sass"},
	}}

	p := New(graph, bundler.HostBuild, barrier.NewBlockSet(), newTestMatcher())
	pending, err := p.Probe(context.Background())
	require.NoError(t, err)

	assert.Empty(t, pending)
	assert.Empty(t, graph.forcedIDs(), "zero pending means no forced loads at all")
}

func TestProbe_ForcesEverySurvivor(t *testing.T) {
	t.Parallel()

	graph := &fakeGraph{
		modules: []bundler.Module{{ID: "/src/a.ts"}, {ID: "/src/b.ts"}, {ID: "/src/c.ts"}},
		slow:    true,
	}

	p := New(graph, bundler.HostBuild, barrier.NewBlockSet(), newTestMatcher())
	pending, err := p.Probe(context.Background())
	require.NoError(t, err)
	assert.Len(t, pending, 3)

	// The round returns after the first completion, but every survivor
	// got its forced load issued.
	assert.Eventually(t, func() bool { return len(graph.forcedIDs()) == 3 },
		time.Second, time.Millisecond)
}
