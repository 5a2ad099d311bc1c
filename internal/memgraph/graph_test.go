package memgraph

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmarshall23/vuetify-loader/internal/bundler"
)

func TestAdmit(t *testing.T) {
	g := New()
	g.Admit(bundler.Module{ID: "a", File: "/src/a.ts"})
	g.Admit(bundler.Module{ID: "b", File: "/src/b.ts"})

	mods := g.KnownModules(context.Background())
	require.Len(t, mods, 2)
	assert.Equal(t, "a", mods[0].ID)
	assert.Equal(t, "b", mods[1].ID)

	t.Run("re-admission updates in place", func(t *testing.T) {
		g.Admit(bundler.Module{ID: "a", File: "/src/a.ts", Transformed: true})
		mods := g.KnownModules(context.Background())
		assert.Len(t, mods, 2)
		assert.True(t, mods[0].Transformed)
	})
}

func TestForceResolve(t *testing.T) {
	g := New()
	g.Admit(bundler.Module{ID: "a", File: "/src/a.ts"})

	require.NoError(t, g.ForceResolve(context.Background(), "a"))
	assert.True(t, g.IsTransformed("a"))

	t.Run("unknown id is admitted as transformed", func(t *testing.T) {
		require.NoError(t, g.ForceResolve(context.Background(), "late"))
		assert.True(t, g.IsTransformed("late"))
		assert.Len(t, g.KnownModules(context.Background()), 2)
	})
}

func TestScriptedDiscovery(t *testing.T) {
	g := New()
	g.SetDiscovery(func(id string) []bundler.Module {
		if id == "a" {
			return []bundler.Module{{ID: "child-of-a", File: "/src/child.ts"}}
		}
		return nil
	})
	g.Admit(bundler.Module{ID: "a", File: "/src/a.ts"})

	require.NoError(t, g.ForceResolve(context.Background(), "a"))

	mods := g.KnownModules(context.Background())
	require.Len(t, mods, 2)
	assert.Equal(t, "child-of-a", mods[1].ID)
	assert.False(t, mods[1].Transformed, "discovered modules still need their own resolution")
}

func TestImporters(t *testing.T) {
	g := New()
	importer := bundler.Module{ID: "/src/App.vue", File: "/src/App.vue"}
	g.AddImporter("/out/aggregated.scss", importer)

	got := g.ImportersOf("/out/aggregated.scss")
	require.Len(t, got, 1)
	assert.Equal(t, importer, got[0])
	assert.Empty(t, g.ImportersOf("/other.scss"))
}

func TestPendingRequests(t *testing.T) {
	g := New()
	started := make(chan struct{})
	release := make(chan struct{})
	g.SetDiscovery(func(id string) []bundler.Module {
		close(started)
		<-release
		return nil
	})
	g.Admit(bundler.Module{ID: "a", File: "/src/a.ts"})

	go func() { _ = g.ForceResolve(context.Background(), "a") }()
	<-started
	assert.Equal(t, []string{"a"}, g.PendingRequests())

	close(release)
	assert.Eventually(t, func() bool { return len(g.PendingRequests()) == 0 },
		time.Second, time.Millisecond)
}
