package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/zheng/modgraph/internal/graph"
	"github.com/zheng/modgraph/internal/impact"
)

func (s *Server) handleMermaid(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errorResult(err), nil
	}
	if args.File == "" {
		return errorResult(errors.New("需要提供文件路径")), nil
	}

	direction := args.Direction
	if direction == "" {
		direction = "both"
	}
	if direction != "upstream" && direction != "downstream" && direction != "both" {
		return errorResult(fmt.Errorf("unknown direction: %s", direction)), nil
	}

	id, err := s.a.FindFile(args.File)
	if err != nil {
		return errorResult(err), nil
	}
	return textResult(s.mermaid(id, direction, args.depth(2))), nil
}

// mermaid renders the neighbourhood of id as a flowchart. Upstream nodes are blue,
// downstream nodes green; edges are only drawn between nodes present in the chart.
func (s *Server) mermaid(id graph.NodeID, direction string, depth int) string {
	g := s.a.Graph()
	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s 依赖图\n\n", shortName(id))
	sb.WriteString("```mermaid\nflowchart TB\n")

	names := map[graph.NodeID]string{id: "n0"}
	var order []graph.NodeID
	addNode := func(n graph.NodeID, style string) {
		if _, ok := names[n]; ok {
			return
		}
		names[n] = fmt.Sprintf("n%d", len(names))
		order = append(order, n)
		fmt.Fprintf(&sb, "    %s[\"%s\"]\n", names[n], shortName(n))
		fmt.Fprintf(&sb, "    style %s %s\n", names[n], style)
	}

	fmt.Fprintf(&sb, "    n0[\"🎯 %s\"]\n", shortName(id))
	sb.WriteString("    style n0 fill:#f96,stroke:#333,stroke-width:2px\n")

	up := direction == "upstream" || direction == "both"
	down := direction == "downstream" || direction == "both"
	if up {
		visitTree(s.a.DependentTree(id, depth), func(n graph.NodeID) { addNode(n, "fill:#9cf,stroke:#333") })
	}
	if down {
		visitTree(s.a.DependencyTree(id, depth), func(n graph.NodeID) { addNode(n, "fill:#9f9,stroke:#333") })
	}

	added := make(map[string]bool)
	for _, from := range append([]graph.NodeID{id}, order...) {
		for _, to := range g.Successors(from) {
			if _, ok := names[to]; !ok {
				continue
			}
			key := names[from] + "->" + names[to]
			if added[key] {
				continue
			}
			added[key] = true
			fmt.Fprintf(&sb, "    %s --> %s\n", names[from], names[to])
		}
	}
	sb.WriteString("```\n\n")

	sb.WriteString("**图例说明:**\n")
	sb.WriteString("- 🎯 橙色: 目标文件\n")
	if up {
		sb.WriteString("- 蓝色: 上游（导入目标文件）\n")
	}
	if down {
		sb.WriteString("- 绿色: 下游（被目标文件导入）\n")
	}
	sb.WriteString("- 箭头方向: A --> B 表示 A 导入 B\n")
	return sb.String()
}

func visitTree(nodes []*impact.TreeNode, fn func(graph.NodeID)) {
	for _, n := range nodes {
		fn(n.ID)
		visitTree(n.Children, fn)
	}
}
