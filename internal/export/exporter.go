package export

import (
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/zheng/modgraph/internal/graph"
	"github.com/zheng/modgraph/internal/impact"
)

// Exporter generates a markdown dependency report from an analyzed graph
type Exporter struct {
	a *impact.Analyzer
}

// NewExporter creates a new exporter
func NewExporter(a *impact.Analyzer) *Exporter {
	return &Exporter{a: a}
}

// ExportOptions configures the export behavior
type ExportOptions struct {
	ProjectName        string
	TopN               int
	PriorityNames      []string
	IncludeDirectories bool
	IncludeExternal    bool
	Now                func() time.Time
}

// DefaultExportOptions returns default export options
func DefaultExportOptions() ExportOptions {
	return ExportOptions{
		ProjectName:        "项目",
		TopN:               20,
		PriorityNames:      impact.DefaultPriorityNames,
		IncludeDirectories: true,
		IncludeExternal:    true,
		Now:                time.Now,
	}
}

// Export generates the complete report
func (e *Exporter) Export(w io.Writer, opts ExportOptions) error {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	g := e.a.Graph()
	stats := e.a.Stats()

	fmt.Fprintf(w, "# %s模块依赖图谱\n\n", opts.ProjectName)
	fmt.Fprintf(w, "> 生成时间: %s\n", opts.Now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "> 文件: %d | 导入: %d | 已解析: %d | 外部: %d\n\n", stats.Files, stats.Edges, stats.ResolvedEdges, stats.ExternalEdges)

	e.writeProjectStructure(w, g)
	e.writeEntryPoints(w, g, opts)
	e.writeRanking(w, "## 核心组件 (传递依赖最多)\n\n", "传递依赖", impact.TopN(g, e.a.Forward(), opts.TopN))
	e.writeRanking(w, "## 被依赖最多的文件\n\n", "传递依赖者", impact.TopN(g, e.a.Reverse(), opts.TopN))
	e.writeCycles(w)

	if opts.IncludeExternal {
		e.writeExternal(w, g, opts.TopN)
	}

	if opts.IncludeDirectories {
		fmt.Fprintf(w, "---\n\n## 目录详解\n\n")
		dirs := groupByDirectory(g)
		for _, dir := range sortedKeys(dirs) {
			e.writeDirectorySection(w, dir, dirs[dir])
		}
	}

	e.writeImpactTable(w, opts.TopN)
	return nil
}

// writeProjectStructure writes the directory tree of all files
func (e *Exporter) writeProjectStructure(w io.Writer, g *graph.Graph) {
	fmt.Fprintf(w, "## 项目结构\n\n```\n")

	dirs := make(map[string]bool)
	for _, id := range g.IDs() {
		dir := path.Dir(string(id))
		for dir != "." && dir != "/" && !dirs[dir] {
			dirs[dir] = true
			dir = path.Dir(dir)
		}
	}

	var sortedDirs []string
	for dir := range dirs {
		sortedDirs = append(sortedDirs, dir)
	}
	sort.Strings(sortedDirs)

	for _, dir := range sortedDirs {
		indent := strings.Count(dir, "/")
		prefix := strings.Repeat("│   ", indent)
		fmt.Fprintf(w, "%s├── %s/\n", prefix, path.Base(dir))
	}

	fmt.Fprintf(w, "```\n\n")
}

func (e *Exporter) writeEntryPoints(w io.Writer, g *graph.Graph, opts ExportOptions) {
	ep := impact.ClassifyEntryPoints(g, opts.PriorityNames)
	fmt.Fprintf(w, "## 入口点\n\n")
	if !ep.Found() {
		fmt.Fprintf(w, "_未找到入口点：所有文件都被其他文件导入（项目完全循环）_\n\n")
		return
	}
	fmt.Fprintf(w, "- **主入口**: `%s`\n", ep.Canonical)
	for _, alt := range ep.Alternates {
		fmt.Fprintf(w, "- 备选: `%s`\n", alt)
	}
	fmt.Fprintf(w, "\n")
}

func (e *Exporter) writeRanking(w io.Writer, title, column string, ranked []impact.Ranked) {
	fmt.Fprint(w, title)
	fmt.Fprintf(w, "| # | 文件 | %s |\n", column)
	fmt.Fprintf(w, "|---|------|------|\n")
	for i, r := range ranked {
		fmt.Fprintf(w, "| %d | `%s` | %d |\n", i+1, r.ID, r.Count)
	}
	fmt.Fprintf(w, "\n")
}

func (e *Exporter) writeCycles(w io.Writer) {
	cycles := e.a.Forward().Cycles()
	if len(cycles) == 0 {
		return
	}
	fmt.Fprintf(w, "## 循环依赖\n\n")
	for i, c := range cycles {
		names := make([]string, len(c))
		for j, id := range c {
			names[j] = "`" + string(id) + "`"
		}
		fmt.Fprintf(w, "%d. %s\n", i+1, strings.Join(names, " ↔ "))
	}
	fmt.Fprintf(w, "\n")
}

func (e *Exporter) writeExternal(w io.Writer, g *graph.Graph, limit int) {
	counts := make(map[string]int)
	for _, id := range g.IDs() {
		n, _ := g.Node(id)
		seen := make(map[string]bool)
		for _, edge := range n.Outgoing() {
			if edge.Kind != graph.EdgeKindBare || seen[edge.Raw] {
				continue
			}
			seen[edge.Raw] = true
			counts[edge.Raw]++
		}
	}
	if len(counts) == 0 {
		return
	}
	names := sortedKeys(counts)
	sort.SliceStable(names, func(i, j int) bool { return counts[names[i]] > counts[names[j]] })
	if limit > 0 && len(names) > limit {
		names = names[:limit]
	}

	fmt.Fprintf(w, "## 外部依赖\n\n")
	fmt.Fprintf(w, "| 模块 | 导入文件数 |\n")
	fmt.Fprintf(w, "|------|------------|\n")
	for _, name := range names {
		fmt.Fprintf(w, "| `%s` | %d |\n", name, counts[name])
	}
	fmt.Fprintf(w, "\n")
}

// writeDirectorySection writes one table row per file of a directory
func (e *Exporter) writeDirectorySection(w io.Writer, dir string, files []graph.NodeID) {
	fmt.Fprintf(w, "### 📁 %s\n\n", dir)
	fmt.Fprintf(w, "| 文件 | 被导入 | 导入 | 传递依赖 | 传递依赖者 |\n")
	fmt.Fprintf(w, "|------|--------|------|----------|------------|\n")

	g := e.a.Graph()
	for _, id := range files {
		n, _ := g.Node(id)
		name := path.Base(string(id))
		if n.ExtractionFailed() {
			name += " ⚠️"
		}
		fmt.Fprintf(w, "| `%s` | %d | %d | %d | %d |\n",
			name,
			n.InDegree(),
			len(g.Successors(id)),
			e.a.Forward().Count(id),
			e.a.Reverse().Count(id),
		)
	}
	fmt.Fprintf(w, "\n")
}

// writeImpactTable writes a summary table for impact analysis
func (e *Exporter) writeImpactTable(w io.Writer, limit int) {
	fmt.Fprintf(w, "---\n\n## 修改影响速查\n\n")
	fmt.Fprintf(w, "| 文件 | 直接依赖者 | 传递依赖者 | 风险 |\n")
	fmt.Fprintf(w, "|------|------------|------------|------|\n")

	for _, r := range e.a.TopRisky(limit) {
		if r.TotalDependents == 0 {
			break
		}
		fmt.Fprintf(w, "| `%s` | %d | %d | %s %s |\n", r.ID, r.DirectDependents, r.TotalDependents, r.Level.Icon(), r.Level)
	}
}

// ExportAffected generates a report for changed files only
func (e *Exporter) ExportAffected(w io.Writer, changed []string) error {
	if len(changed) == 0 {
		fmt.Fprintf(w, "# 增量更新报告\n\n> 没有检测到变更\n")
		return nil
	}

	report := e.a.Affected(changed)
	fmt.Fprintf(w, "# 增量更新报告\n\n")
	fmt.Fprintf(w, "## 变更范围\n\n")
	for _, id := range report.Changed {
		fmt.Fprintf(w, "- `%s`\n", id)
	}
	for _, p := range report.Unknown {
		fmt.Fprintf(w, "- `%s` (不在依赖图中)\n", p)
	}
	fmt.Fprintf(w, "\n")

	fmt.Fprintf(w, "## 影响分析\n\n")
	for _, id := range report.Changed {
		risk, err := e.a.Risk(id)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "### ⚠️ `%s`\n\n", id)
		fmt.Fprintf(w, "- **风险**: %s %s\n", risk.Level.Icon(), risk.Level)
		fmt.Fprintf(w, "- **直接依赖者**: %d\n", risk.DirectDependents)
		fmt.Fprintf(w, "- **传递依赖者**: %d\n\n", risk.TotalDependents)
	}

	fmt.Fprintf(w, "## 受影响文件 (共 %d 个)\n\n", len(report.Affected))
	for _, id := range report.Affected {
		fmt.Fprintf(w, "- `%s`\n", id)
	}
	return nil
}

func groupByDirectory(g *graph.Graph) map[string][]graph.NodeID {
	out := make(map[string][]graph.NodeID)
	for _, id := range g.IDs() {
		dir := path.Dir(string(id))
		out[dir] = append(out[dir], id)
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
