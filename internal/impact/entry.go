package impact

import (
	"fmt"
	"strings"

	"github.com/zheng/modgraph/internal/graph"
)

// DefaultPriorityNames are the conventional file names tried, in order, when picking the canonical entry point
var DefaultPriorityNames = []string{"index.js", "index.tsx", "App.js", "App.tsx"}

// EntryPoints is the result of entry point classification
type EntryPoints struct {
	Entries     []graph.NodeID     `json:"entries"`
	Canonical   graph.NodeID       `json:"canonical,omitempty"`
	Alternates  []graph.NodeID     `json:"alternates"`
	Diagnostics []graph.Diagnostic `json:"diagnostics,omitempty"`
}

// Found reports whether at least one entry point exists
func (e EntryPoints) Found() bool {
	return len(e.Entries) > 0
}

// ClassifyEntryPoints flags every node without incoming edges as a probable entry point.
// With several candidates, the first priority suffix that matches any of them picks the
// canonical one; without a match the first candidate in discovery order wins.
func ClassifyEntryPoints(g *graph.Graph, priority []string) EntryPoints {
	result := EntryPoints{Entries: []graph.NodeID{}, Alternates: []graph.NodeID{}}
	for _, id := range g.IDs() {
		if n, _ := g.Node(id); n.InDegree() == 0 {
			result.Entries = append(result.Entries, id)
		}
	}

	switch len(result.Entries) {
	case 0:
		result.Diagnostics = append(result.Diagnostics, graph.Diagnostic{
			Code:    graph.DiagNoEntryPoint,
			Message: "every file is imported by another file; the project is fully cyclic or has no discoverable entry",
		})
		return result
	case 1:
		result.Canonical = result.Entries[0]
		return result
	}

	result.Canonical = pickCanonical(result.Entries, priority)
	for _, id := range result.Entries {
		if id != result.Canonical {
			result.Alternates = append(result.Alternates, id)
		}
	}
	result.Diagnostics = append(result.Diagnostics, graph.Diagnostic{
		Code:    graph.DiagMultipleEntryPoints,
		File:    result.Canonical,
		Message: fmt.Sprintf("found %d entry points, using %s", len(result.Entries), result.Canonical),
		Related: result.Alternates,
	})
	return result
}

func pickCanonical(entries []graph.NodeID, priority []string) graph.NodeID {
	for _, suffix := range priority {
		if suffix == "" {
			continue
		}
		for _, id := range entries {
			if strings.HasSuffix(string(id), suffix) {
				return id
			}
		}
	}
	return entries[0]
}
