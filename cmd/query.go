package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zheng/modgraph/internal/graph"
	"github.com/zheng/modgraph/internal/impact"
)

func entryCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "entry",
		Short: "列出入口文件（没有被任何文件导入的文件）",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			src, err := openGraph()
			if err != nil {
				return err
			}
			defer src.Close()

			ep := impact.ClassifyEntryPoints(src.a.Graph(), cfg.PriorityEntryNames)
			if format == "json" {
				return outputJSON(out, ep)
			}
			if !ep.Found() {
				fmt.Fprintln(out, "未找到入口文件: 每个文件都被其他文件导入，项目可能完全由循环依赖组成")
				return nil
			}
			fmt.Fprintf(out, "首选入口: %s\n", ep.Canonical)
			if len(ep.Alternates) > 0 {
				fmt.Fprintf(out, "\n其他入口 (%d):\n", len(ep.Alternates))
				for _, id := range ep.Alternates {
					fmt.Fprintf(out, "  %s\n", id)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "输出格式 (text/json)")

	return cmd
}

func rankingTable(a *impact.Analyzer, by string) (impact.Counter, string, error) {
	switch by {
	case "", "reach", "dependencies":
		return a.Forward(), "依赖", nil
	case "dependents":
		return a.Reverse(), "被依赖", nil
	default:
		return nil, "", fmt.Errorf("未知的排序方式: %s (可选 reach/dependents)", by)
	}
}

func topCmd() *cobra.Command {
	var n int
	var by string
	var format string

	cmd := &cobra.Command{
		Use:   "top",
		Short: "按传递依赖数量排序文件",
		Long: `按可达文件数量排序：
  --by reach       依赖最多的文件（传递导入的文件数）
  --by dependents  被依赖最多的文件（传递导入它的文件数）`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if !cmd.Flags().Changed("limit") {
				n = cfg.TopN
			}
			src, err := openGraph()
			if err != nil {
				return err
			}
			defer src.Close()

			table, label, err := rankingTable(src.a, by)
			if err != nil {
				return err
			}
			ranked := impact.TopN(src.a.Graph(), table, n)
			if format == "json" {
				return outputJSON(out, ranked)
			}

			width := 0
			for _, r := range ranked {
				if len(r.ID) > width {
					width = len(r.ID)
				}
			}
			fmt.Fprintf(out, "%s最多的文件 (Top %d)\n\n", label, len(ranked))
			for i, r := range ranked {
				fmt.Fprintf(out, "%3d. %-*s  %s %d\n", i+1, width, r.ID, label, r.Count)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&n, "limit", "n", 20, "显示数量 (0=全部)")
	cmd.Flags().StringVar(&by, "by", "reach", "排序依据 (reach/dependents)")
	cmd.Flags().StringVar(&format, "format", "text", "输出格式 (text/json)")

	return cmd
}

func toplevelCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "toplevel",
		Short: "显示顶层组件（传递依赖最多的文件）",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			src, err := openGraph()
			if err != nil {
				return err
			}
			defer src.Close()

			top := impact.Top1(src.a.Graph(), src.a.Forward())
			if format == "json" {
				return outputJSON(out, top)
			}
			if top.ID == "" {
				fmt.Fprintln(out, "依赖图为空")
				return nil
			}
			fmt.Fprintf(out, "顶层组件: %s (依赖 %d 个文件)\n", top.ID, top.Count)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "输出格式 (text/json)")

	return cmd
}

func impactCmd() *cobra.Command {
	var upstreamDepth int
	var downstreamDepth int
	var format string
	var selectN int

	cmd := &cobra.Command{
		Use:   "impact <file>",
		Short: "分析修改文件的影响范围",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkDepth("upstream-depth", upstreamDepth); err != nil {
				return err
			}
			if err := checkDepth("downstream-depth", downstreamDepth); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			src, err := openGraph()
			if err != nil {
				return err
			}
			defer src.Close()

			id, err := src.resolveFile(args[0], selectN, cmd.InOrStdin(), out)
			if err != nil {
				return err
			}
			report, err := src.a.AnalyzeImpact(string(id), upstreamDepth, downstreamDepth)
			if err != nil {
				return err
			}

			switch format {
			case "json":
				return outputJSON(out, report)
			case "markdown":
				fmt.Fprint(out, report.FormatMarkdown())
			default:
				fmt.Fprintln(out, "📍 当前文件")
				fmt.Fprintln(out, report.Target)
				fmt.Fprintf(out, "   %s\n", report.Summary())
				if report.Cyclic {
					fmt.Fprintln(out, "   ↺ 处于循环依赖中")
				}
				fmt.Fprintln(out)

				printSection(out, fmt.Sprintf("⬆️ 依赖者 (深度 %d)", upstreamDepth), src.a.DependentTree(id, upstreamDepth))
				fmt.Fprintln(out)
				printSection(out, fmt.Sprintf("⬇️ 依赖 (深度 %d)", downstreamDepth), src.a.DependencyTree(id, downstreamDepth))

				if len(report.External) > 0 {
					fmt.Fprintf(out, "\n📦 外部依赖: %s\n", strings.Join(report.External, ", "))
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&upstreamDepth, "upstream-depth", 7, "上游递归深度 (0=无限)")
	cmd.Flags().IntVar(&downstreamDepth, "downstream-depth", 7, "下游递归深度 (0=无限)")
	cmd.Flags().StringVar(&format, "format", "text", "输出格式 (text/json/markdown)")
	cmd.Flags().IntVar(&selectN, "select", 0, "当匹配到多个文件时，直接选择第N个（跳过交互提示）")

	return cmd
}

func printSection(out io.Writer, title string, tree []*impact.TreeNode) {
	fmt.Fprintln(out, title)
	if len(tree) == 0 {
		fmt.Fprintln(out, "└── (无)")
		return
	}
	printTree(out, tree)
}

// walkRefs returns the files reached from id, using the database queries when the
// graph came from the database
func (s *graphSource) walkRefs(id graph.NodeID, depth int, up bool) ([]impact.FileRef, error) {
	if s.db != nil {
		query := s.db.GetDependencies
		if up {
			query = s.db.GetDependents
		}
		rows, err := query(id, depth)
		if err != nil {
			return nil, fmt.Errorf("查询失败: %w", err)
		}
		refs := make([]impact.FileRef, 0, len(rows))
		for _, r := range rows {
			refs = append(refs, impact.FileRef{ID: r.ID, Depth: r.Depth})
		}
		return refs, nil
	}

	if up {
		report, err := s.a.AnalyzeImpact(string(id), depth, 1)
		if err != nil {
			return nil, err
		}
		return append(report.DirectDependents, report.IndirectDependents...), nil
	}
	report, err := s.a.AnalyzeImpact(string(id), 1, depth)
	if err != nil {
		return nil, err
	}
	return append(report.DirectDependencies, report.IndirectDependencies...), nil
}

func walkCmd(up bool) *cobra.Command {
	var depth int
	var format string
	var selectN int

	use, short, title := "downstream <file>", "查询文件直接或间接导入的文件", "⬇️ 依赖"
	mdTitle, empty := "下游依赖", "_无下游依赖_"
	if up {
		use, short, title = "upstream <file>", "查询直接或间接导入该文件的文件", "⬆️ 依赖者"
		mdTitle, empty = "上游依赖者", "_无上游依赖者_"
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkDepth("depth", depth); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			src, err := openGraph()
			if err != nil {
				return err
			}
			defer src.Close()

			id, err := src.resolveFile(args[0], selectN, cmd.InOrStdin(), out)
			if err != nil {
				return err
			}

			switch format {
			case "json", "markdown":
				refs, err := src.walkRefs(id, depth, up)
				if err != nil {
					return err
				}
				if format == "json" {
					return outputJSON(out, refs)
				}
				fmt.Fprintf(out, "## %s: %s\n\n", mdTitle, id)
				if len(refs) == 0 {
					fmt.Fprintln(out, empty)
					return nil
				}
				fmt.Fprintln(out, "| 文件 | 深度 |")
				fmt.Fprintln(out, "|------|------|")
				for _, r := range refs {
					fmt.Fprintf(out, "| %s | %d |\n", r.ID, r.Depth)
				}
			default:
				tree := src.a.DependencyTree(id, depth)
				if up {
					tree = src.a.DependentTree(id, depth)
				}
				fmt.Fprintln(out, "📍 当前文件")
				fmt.Fprintf(out, "%s\n\n", id)
				printSection(out, fmt.Sprintf("%s (深度 %d)", title, depth), tree)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&depth, "depth", 7, "递归深度 (0=无限)")
	cmd.Flags().StringVar(&format, "format", "text", "输出格式 (text/json/markdown)")
	cmd.Flags().IntVar(&selectN, "select", 0, "当匹配到多个文件时，直接选择第N个（跳过交互提示）")

	return cmd
}

func upstreamCmd() *cobra.Command {
	return walkCmd(true)
}

func downstreamCmd() *cobra.Command {
	return walkCmd(false)
}

func listCmd() *cobra.Command {
	var limit int
	var external bool
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "列出所有文件",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			src, err := openGraph()
			if err != nil {
				return err
			}
			defer src.Close()

			if external {
				return listExternal(out, src, limit, format)
			}

			g := src.a.Graph()
			if format == "json" {
				return outputJSON(out, src.a.Forward().Counts())
			}

			fmt.Fprintf(out, "共 %d 个文件:\n\n", g.Len())
			for i, id := range g.IDs() {
				if limit > 0 && i >= limit {
					fmt.Fprintf(out, "... 还有 %d 个文件\n", g.Len()-limit)
					break
				}
				n, _ := g.Node(id)
				fmt.Fprintf(out, "  %s\n    依赖 %d  被依赖 %d", id, src.a.Forward().Count(id), src.a.Reverse().Count(id))
				if n.ExtractionFailed() {
					fmt.Fprint(out, "  ⚠️ 解析失败")
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "限制显示数量 (0=全部)")
	cmd.Flags().BoolVar(&external, "external", false, "列出外部依赖包")
	cmd.Flags().StringVar(&format, "format", "text", "输出格式 (text/json)")

	return cmd
}

func listExternal(out io.Writer, src *graphSource, limit int, format string) error {
	modules := make(map[string]int)
	if src.db != nil {
		m, err := src.db.GetExternalModules()
		if err != nil {
			return fmt.Errorf("查询失败: %w", err)
		}
		modules = m
	} else {
		g := src.a.Graph()
		for _, id := range g.IDs() {
			n, _ := g.Node(id)
			seen := make(map[string]bool)
			for _, e := range n.Outgoing() {
				if e.Kind == graph.EdgeKindBare && !e.Target.IsNode() && !seen[e.Raw] {
					seen[e.Raw] = true
					modules[e.Raw]++
				}
			}
		}
	}

	ranked := make([]impact.Ranked, 0, len(modules))
	for name, count := range modules {
		ranked = append(ranked, impact.Ranked{ID: graph.NodeID(name), Count: count})
	}
	sortRanked(ranked)
	if limit > 0 && limit < len(ranked) {
		ranked = ranked[:limit]
	}
	if format == "json" {
		return outputJSON(out, ranked)
	}

	fmt.Fprintf(out, "共 %d 个外部依赖:\n\n", len(modules))
	for _, r := range ranked {
		fmt.Fprintf(out, "  %-30s  %d 个文件导入\n", r.ID, r.Count)
	}
	return nil
}

func searchCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "search <pattern>",
		Short: "按路径搜索文件",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			src, err := openGraph()
			if err != nil {
				return err
			}
			defer src.Close()

			matches := src.a.Search(args[0])
			if src.db != nil {
				if matches, err = src.db.FindFilesByPattern(args[0]); err != nil {
					return fmt.Errorf("查询失败: %w", err)
				}
			}
			if format == "json" {
				if matches == nil {
					matches = []graph.NodeID{}
				}
				return outputJSON(out, matches)
			}
			if len(matches) == 0 {
				fmt.Fprintln(out, "未找到匹配的文件")
				return nil
			}

			fmt.Fprintf(out, "找到 %d 个匹配:\n\n", len(matches))
			for _, id := range matches {
				fmt.Fprintf(out, "  %s\n", id)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "输出格式 (text/json)")

	return cmd
}
