package display

import (
	"fmt"
	"path"
	"strings"

	"github.com/zheng/modgraph/internal/impact"
)

// ShortFileName keeps the last two path components.
// e.g., "src/components/Button.tsx" -> "components/Button.tsx"
func ShortFileName(id string) string {
	parts := strings.Split(id, "/")
	if len(parts) <= 2 {
		return id
	}
	return strings.Join(parts[len(parts)-2:], "/")
}

// ShortSpecifier trims a relative specifier to its last component for compact tables.
// e.g., "../../utils/format" -> "…/format", "react" -> "react"
func ShortSpecifier(raw string) string {
	if !strings.HasPrefix(raw, ".") {
		return raw
	}
	base := path.Base(raw)
	if base == raw {
		return raw
	}
	return "…/" + base
}

// CalcTreeMaxWidth calculates the maximum file name width and depth for alignment in the tree.
func CalcTreeMaxWidth(tree []*impact.TreeNode, maxWidth *int, currentDepth int, maxDepth *int) {
	if currentDepth > *maxDepth {
		*maxDepth = currentDepth
	}
	for _, node := range tree {
		w := len(ShortFileName(string(node.ID)))
		if w > *maxWidth {
			*maxWidth = w
		}
		if len(node.Children) > 0 {
			CalcTreeMaxWidth(node.Children, maxWidth, currentDepth+1, maxDepth)
		}
	}
}

// FormatTree renders a dependency tree as a string with box-drawing characters.
// Files closing a cycle are marked with ↺, files already expanded above with ↑.
func FormatTree(tree []*impact.TreeNode, indent string, maxWidth int, maxDepth int, currentDepth int) string {
	var sb strings.Builder
	for i, node := range tree {
		isLast := i == len(tree)-1
		prefix := "├──"
		if isLast {
			prefix = "└──"
		}

		name := ShortFileName(string(node.ID))
		padding := maxWidth + (maxDepth-currentDepth)*4
		marker := ""
		switch {
		case node.Cycle:
			marker = "  ↺"
		case node.Seen:
			marker = "  ↑"
		}
		sb.WriteString(fmt.Sprintf("%s%s %-*s  %s%s\n", indent, prefix, padding, name, node.ID, marker))

		if len(node.Children) > 0 {
			childIndent := indent + "│   "
			if isLast {
				childIndent = indent + "    "
			}
			sb.WriteString(FormatTree(node.Children, childIndent, maxWidth, maxDepth, currentDepth+1))
		}
	}
	return sb.String()
}

// RenderTree measures and formats a whole tree
func RenderTree(tree []*impact.TreeNode) string {
	maxWidth, maxDepth := 0, 0
	CalcTreeMaxWidth(tree, &maxWidth, 0, &maxDepth)
	return FormatTree(tree, "", maxWidth, maxDepth, 0)
}
