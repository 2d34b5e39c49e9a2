package impact

import (
	"sort"

	"github.com/zheng/modgraph/internal/graph"
)

// Counter maps a node to a count, such as the size of its reachable set
type Counter interface {
	Count(id graph.NodeID) int
}

// Ranked is one row of a ranking
type Ranked struct {
	ID    graph.NodeID `json:"id"`
	Count int          `json:"count"`
}

// TopN returns the n nodes with the highest counts, highest first.
// Equal counts keep discovery order. n <= 0 returns every node.
func TopN(g *graph.Graph, table Counter, n int) []Ranked {
	ranked := make([]Ranked, 0, g.Len())
	for _, id := range g.IDs() {
		ranked = append(ranked, Ranked{ID: id, Count: table.Count(id)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})
	if n > 0 && n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}

// Top1 returns the top-level component, or a zero Ranked for an empty graph
func Top1(g *graph.Graph, table Counter) Ranked {
	top := TopN(g, table, 1)
	if len(top) == 0 {
		return Ranked{}
	}
	return top[0]
}
