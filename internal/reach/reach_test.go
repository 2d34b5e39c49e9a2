package reach

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zheng/modgraph/internal/graph"
)

// build creates a graph from "a->b" style edges; node order follows first mention
func build(t *testing.T, edges ...string) *graph.Graph {
	t.Helper()
	var order []string
	specs := make(map[string][]string)
	add := func(id string) {
		if _, ok := specs[id]; !ok {
			specs[id] = nil
			order = append(order, id)
		}
	}
	for _, e := range edges {
		from, to, ok := strings.Cut(e, "->")
		require.True(t, ok, e)
		add(from)
		add(to)
		specs[from] = append(specs[from], "./"+to)
	}
	files := make([]graph.SourceFile, 0, len(order))
	for _, id := range order {
		files = append(files, graph.SourceFile{ID: graph.NodeID(id + ".js"), Specifiers: specs[id]})
	}
	g, diags := graph.NewBuilder("/repo", nil).Build(files)
	require.Empty(t, diags)
	return g
}

func counts(tbl *Table, ids ...string) []int {
	out := make([]int, len(ids))
	for i, id := range ids {
		out[i] = tbl.Count(graph.NodeID(id + ".js"))
	}
	return out
}

func TestForward_Chain(t *testing.T) {
	g := build(t, "a->b", "b->c")
	assert.Equal(t, []int{2, 1, 0}, counts(Forward(g), "a", "b", "c"))
	assert.Equal(t, []int{0, 1, 2}, counts(Reverse(g), "a", "b", "c"))
}

func TestForward_TwoCycle(t *testing.T) {
	g := build(t, "a->b", "b->a")
	tbl := Forward(g)
	assert.Equal(t, []int{1, 1}, counts(tbl, "a", "b"))
	assert.True(t, tbl.Cyclic("a.js"))
	assert.Equal(t, [][]graph.NodeID{{"a.js", "b.js"}}, tbl.Cycles())
}

func TestForward_Diamond(t *testing.T) {
	g := build(t, "a->b", "a->c", "b->d", "c->d")
	tbl := Forward(g)
	assert.Equal(t, []int{3, 1, 1, 0}, counts(tbl, "a", "b", "c", "d"))
	assert.Equal(t, []graph.NodeID{"b.js", "c.js", "d.js"}, tbl.Reachable("a.js"))
	assert.Equal(t, 3, Reverse(g).Count("d.js"))
}

func TestForward_CycleWithTail(t *testing.T) {
	// a->b->c->a forms a cycle that also reaches d and e
	g := build(t, "a->b", "b->c", "c->a", "c->d", "d->e", "x->a")
	tbl := Forward(g)
	assert.Equal(t, []int{4, 4, 4, 1, 0, 5}, counts(tbl, "a", "b", "c", "d", "e", "x"))
	assert.NotContains(t, tbl.Reachable("a.js"), graph.NodeID("a.js"))
	assert.True(t, tbl.Reaches("d.js", "e.js"))
	assert.False(t, tbl.Reaches("e.js", "d.js"))
	assert.False(t, tbl.Reaches("a.js", "a.js"))
}

func TestForward_EmptyOutgoingIsZero(t *testing.T) {
	g, _ := graph.NewBuilder("/repo", nil).Build([]graph.SourceFile{
		{ID: "lonely.js", Specifiers: []string{"react", "./missing"}},
		{ID: "self.js", Specifiers: []string{"./self"}},
	})
	tbl := Forward(g)
	assert.Equal(t, 0, tbl.Count("lonely.js"))
	assert.Equal(t, 0, tbl.Count("self.js"))
	assert.False(t, tbl.Cyclic("self.js"))
	assert.Empty(t, tbl.Reachable("self.js"))
	assert.Equal(t, 0, tbl.Count("unknown.js"))
}

func TestForward_EmptyGraph(t *testing.T) {
	g, _ := graph.NewBuilder("/repo", nil).Build(nil)
	tbl := Forward(g)
	assert.Empty(t, tbl.Counts())
	assert.Empty(t, tbl.Cycles())
}

// naive recomputes one reachable set with a fresh visited set per query
func naive(g *graph.Graph, from graph.NodeID) map[graph.NodeID]bool {
	seen := make(map[graph.NodeID]bool)
	stack := []graph.NodeID{from}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, to := range g.Successors(id) {
			if !seen[to] {
				seen[to] = true
				stack = append(stack, to)
			}
		}
	}
	delete(seen, from)
	return seen
}

func TestForward_MatchesIndependentTraversal(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	const n = 40
	files := make([]graph.SourceFile, n)
	for i := range files {
		files[i].ID = graph.NodeID(fmt.Sprintf("m%02d.js", i))
		for k := 0; k < 3; k++ {
			files[i].Specifiers = append(files[i].Specifiers, fmt.Sprintf("./m%02d", rng.Intn(n)))
		}
	}
	g, _ := graph.NewBuilder("/repo", nil).Build(files)
	tbl := Forward(g)

	// query in a shuffled order; answers must not depend on it
	ids := g.IDs()
	rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	for _, id := range ids {
		want := naive(g, id)
		assert.Equal(t, len(want), tbl.Count(id), id)
		for _, got := range tbl.Reachable(id) {
			assert.True(t, want[got], "%s should not reach %s", id, got)
		}
	}
}

func TestCounts_DiscoveryOrder(t *testing.T) {
	g := build(t, "c->a", "a->b")
	entries := Forward(g).Counts()
	require.Len(t, entries, 3)
	assert.Equal(t, Entry{ID: "c.js", Count: 2}, entries[0])
	assert.Equal(t, Entry{ID: "a.js", Count: 1}, entries[1])
	assert.Equal(t, Entry{ID: "b.js", Count: 0}, entries[2])
}
