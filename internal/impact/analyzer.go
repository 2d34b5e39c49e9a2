package impact

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/zheng/modgraph/internal/graph"
	"github.com/zheng/modgraph/internal/reach"
)

var (
	// ErrFileNotFound is returned when no file matches a query
	ErrFileNotFound = errors.New("file not found")
	// ErrAmbiguousFile is returned when a query matches more than one file
	ErrAmbiguousFile = errors.New("ambiguous file name")
)

// AmbiguousError carries the candidate files of an ambiguous query
type AmbiguousError struct {
	Query   string
	Matches []graph.NodeID
}

func (e *AmbiguousError) Error() string {
	names := make([]string, len(e.Matches))
	for i, m := range e.Matches {
		names[i] = string(m)
	}
	return fmt.Sprintf("%s, found %d matches for %q: %s", ErrAmbiguousFile, len(e.Matches), e.Query, strings.Join(names, ", "))
}

func (e *AmbiguousError) Unwrap() error {
	return ErrAmbiguousFile
}

// Analyzer answers impact questions about one graph.
// The reachability tables are computed once in NewAnalyzer; the analyzer is safe for concurrent use.
type Analyzer struct {
	g       *graph.Graph
	forward *reach.Table
	reverse *reach.Table
}

// NewAnalyzer creates a new impact analyzer
func NewAnalyzer(g *graph.Graph) *Analyzer {
	return &Analyzer{
		g:       g,
		forward: reach.Forward(g),
		reverse: reach.Reverse(g),
	}
}

// Graph returns the analyzed graph
func (a *Analyzer) Graph() *graph.Graph {
	return a.g
}

// Forward returns the transitive dependency table
func (a *Analyzer) Forward() *reach.Table {
	return a.forward
}

// Reverse returns the transitive dependent table
func (a *Analyzer) Reverse() *reach.Table {
	return a.reverse
}

// Search returns files whose id contains pattern, case-insensitively.
// Results are sorted by match quality: exact id > id ends with pattern > contains pattern,
// then shorter ids first, then discovery order.
func (a *Analyzer) Search(pattern string) []graph.NodeID {
	p := strings.ToLower(pattern)
	type match struct {
		id   graph.NodeID
		rank int
	}
	var matches []match
	for _, id := range a.g.IDs() {
		s := strings.ToLower(string(id))
		switch {
		case s == p:
			matches = append(matches, match{id, 0})
		case strings.HasSuffix(s, p):
			matches = append(matches, match{id, 1})
		case strings.Contains(s, p):
			matches = append(matches, match{id, 2})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].rank != matches[j].rank {
			return matches[i].rank < matches[j].rank
		}
		return len(matches[i].id) < len(matches[j].id)
	})
	out := make([]graph.NodeID, len(matches))
	for i, m := range matches {
		out[i] = m.id
	}
	return out
}

// FindFile resolves a user query to a single file: an exact id wins, otherwise the
// query must match exactly one file by pattern.
func (a *Analyzer) FindFile(query string) (graph.NodeID, error) {
	if a.g.Has(graph.NodeID(query)) {
		return graph.NodeID(query), nil
	}
	matches := a.Search(query)
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrFileNotFound, query)
	case 1:
		return matches[0], nil
	}
	if strings.EqualFold(string(matches[0]), query) {
		return matches[0], nil
	}
	return "", &AmbiguousError{Query: query, Matches: matches}
}

// FileRef is a file found at some distance from the analyzed file
type FileRef struct {
	ID    graph.NodeID `json:"id"`
	Depth int          `json:"depth"`
}

// ImpactReport represents the impact analysis of a file change
type ImpactReport struct {
	Target               graph.NodeID `json:"target"`
	ExtractionFailed     bool         `json:"extraction_failed,omitempty"`
	DirectDependents     []FileRef    `json:"direct_dependents"`
	IndirectDependents   []FileRef    `json:"indirect_dependents"`
	DirectDependencies   []FileRef    `json:"direct_dependencies"`
	IndirectDependencies []FileRef    `json:"indirect_dependencies"`
	External             []string     `json:"external"`
	TotalDependents      int          `json:"total_dependents"`
	TotalDependencies    int          `json:"total_dependencies"`
	Cyclic               bool         `json:"cyclic"`
	Risk                 RiskLevel    `json:"risk"`
}

// AnalyzeImpact analyzes the impact of changing a file.
// A depth of 0 means no limit; a depth of 1 only lists direct neighbours.
func (a *Analyzer) AnalyzeImpact(query string, upstreamDepth, downstreamDepth int) (*ImpactReport, error) {
	id, err := a.FindFile(query)
	if err != nil {
		return nil, err
	}
	n, _ := a.g.Node(id)

	report := &ImpactReport{
		Target:            id,
		ExtractionFailed:  n.ExtractionFailed(),
		External:          []string{},
		TotalDependents:   a.reverse.Count(id),
		TotalDependencies: a.forward.Count(id),
		Cyclic:            a.forward.Cyclic(id),
	}
	report.DirectDependents, report.IndirectDependents = split(a.walk(id, a.g.Predecessors, upstreamDepth))
	report.DirectDependencies, report.IndirectDependencies = split(a.walk(id, a.g.Successors, downstreamDepth))

	seen := make(map[string]bool)
	for _, e := range n.Outgoing() {
		if e.Target.IsNode() || seen[e.Raw] {
			continue
		}
		seen[e.Raw] = true
		report.External = append(report.External, e.Raw)
	}
	report.Risk = CalculateRiskLevel(len(n.Incoming()), report.TotalDependents)
	return report, nil
}

// walk runs a breadth-first search from id and returns every file found with its distance
func (a *Analyzer) walk(id graph.NodeID, next func(graph.NodeID) []graph.NodeID, maxDepth int) []FileRef {
	var out []FileRef
	seen := map[graph.NodeID]bool{id: true}
	frontier := []graph.NodeID{id}
	for depth := 1; len(frontier) > 0 && (maxDepth == 0 || depth <= maxDepth); depth++ {
		var following []graph.NodeID
		for _, cur := range frontier {
			for _, to := range next(cur) {
				if seen[to] {
					continue
				}
				seen[to] = true
				out = append(out, FileRef{ID: to, Depth: depth})
				following = append(following, to)
			}
		}
		frontier = following
	}
	return out
}

func split(refs []FileRef) (direct, indirect []FileRef) {
	direct, indirect = []FileRef{}, []FileRef{}
	for _, r := range refs {
		if r.Depth == 1 {
			direct = append(direct, r)
		} else {
			indirect = append(indirect, r)
		}
	}
	return direct, indirect
}

// AffectedReport lists the files whose behavior may change after a set of files changed
type AffectedReport struct {
	Changed  []graph.NodeID `json:"changed"`
	Unknown  []string       `json:"unknown"`
	Affected []graph.NodeID `json:"affected"`
}

// Affected maps changed files to all of their transitive dependents.
// Paths that are not files of the graph are reported as unknown.
func (a *Analyzer) Affected(changed []string) *AffectedReport {
	report := &AffectedReport{Changed: []graph.NodeID{}, Unknown: []string{}, Affected: []graph.NodeID{}}
	changedSet := make(map[graph.NodeID]bool)
	for _, path := range changed {
		id := graph.NodeID(path)
		if !a.g.Has(id) {
			report.Unknown = append(report.Unknown, path)
			continue
		}
		if changedSet[id] {
			continue
		}
		report.Changed = append(report.Changed, id)
		changedSet[id] = true
	}
	for _, id := range a.g.IDs() {
		if changedSet[id] {
			continue
		}
		for _, c := range report.Changed {
			if a.forward.Reaches(id, c) {
				report.Affected = append(report.Affected, id)
				break
			}
		}
	}
	return report
}

// Stats summarizes a graph
type Stats struct {
	Files            int `json:"files"`
	Edges            int `json:"edges"`
	ResolvedEdges    int `json:"resolved_edges"`
	ExternalEdges    int `json:"external_edges"`
	ExtractionFailed int `json:"extraction_failed"`
	EntryPoints      int `json:"entry_points"`
	Cycles           int `json:"cycles"`
	FilesInCycles    int `json:"files_in_cycles"`
	MaxDependencies  int `json:"max_dependencies"`
	MaxDependents    int `json:"max_dependents"`
}

// Stats returns summary numbers for the analyzed graph
func (a *Analyzer) Stats() Stats {
	s := Stats{
		Files:         a.g.Len(),
		Edges:         a.g.EdgeCount(),
		ResolvedEdges: a.g.ResolvedEdgeCount(),
	}
	s.ExternalEdges = s.Edges - s.ResolvedEdges
	for _, id := range a.g.IDs() {
		n, _ := a.g.Node(id)
		if n.ExtractionFailed() {
			s.ExtractionFailed++
		}
		if n.InDegree() == 0 {
			s.EntryPoints++
		}
		if c := a.forward.Count(id); c > s.MaxDependencies {
			s.MaxDependencies = c
		}
		if c := a.reverse.Count(id); c > s.MaxDependents {
			s.MaxDependents = c
		}
	}
	cycles := a.forward.Cycles()
	s.Cycles = len(cycles)
	for _, c := range cycles {
		s.FilesInCycles += len(c)
	}
	return s
}

// FormatMarkdown formats the impact report as markdown
func (r *ImpactReport) FormatMarkdown() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("## 变更影响分析: %s\n\n", r.Target))
	sb.WriteString(fmt.Sprintf("**风险等级:** %s %s\n\n", r.Risk.Icon(), r.Risk))
	sb.WriteString(fmt.Sprintf("**依赖者总数:** %d　**依赖总数:** %d\n\n", r.TotalDependents, r.TotalDependencies))
	if r.Cyclic {
		sb.WriteString("**注意:** 该文件处于循环依赖中\n\n")
	}
	if r.ExtractionFailed {
		sb.WriteString("**注意:** 该文件解析失败，依赖列表可能不完整\n\n")
	}

	writeTable := func(title, empty string, refs []FileRef) {
		sb.WriteString(title)
		if len(refs) == 0 {
			sb.WriteString(empty)
			return
		}
		sb.WriteString("| 文件 | 深度 |\n")
		sb.WriteString("|------|------|\n")
		for _, ref := range refs {
			sb.WriteString(fmt.Sprintf("| %s | %d |\n", ref.ID, ref.Depth))
		}
		sb.WriteString("\n")
	}

	writeTable("### 直接依赖者 (需检查是否需要同步修改)\n\n", "_无直接依赖者_\n\n", r.DirectDependents)
	if len(r.IndirectDependents) > 0 {
		writeTable("### 间接依赖者 (可能受影响)\n\n", "", r.IndirectDependents)
	}
	writeTable("### 下游依赖 (本文件导入的)\n\n", "_无下游依赖_\n\n", r.DirectDependencies)
	if len(r.IndirectDependencies) > 0 {
		writeTable("### 间接下游依赖\n\n", "", r.IndirectDependencies)
	}

	if len(r.External) > 0 {
		sb.WriteString("### 外部引用\n\n")
		for _, ext := range r.External {
			sb.WriteString(fmt.Sprintf("- `%s`\n", ext))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// FormatTree formats the impact report as a tree structure
func (r *ImpactReport) FormatTree() string {
	var sb strings.Builder

	upstream := append(append([]FileRef{}, r.DirectDependents...), r.IndirectDependents...)
	downstream := append(append([]FileRef{}, r.DirectDependencies...), r.IndirectDependencies...)

	maxWidth := len(shortPath(string(r.Target)))
	for _, ref := range append(append([]FileRef{}, upstream...), downstream...) {
		if w := len(shortPath(string(ref.ID))); w > maxWidth {
			maxWidth = w
		}
	}

	sb.WriteString("📍 当前文件\n")
	sb.WriteString(fmt.Sprintf("%-*s  %s\n\n", maxWidth, shortPath(string(r.Target)), r.Target))

	writeSection := func(title string, refs []FileRef, last bool) {
		if len(refs) == 0 {
			sb.WriteString(title + "\n")
			sb.WriteString("└── (无)\n")
		} else {
			sb.WriteString(fmt.Sprintf("%s (共 %d 个)\n", title, len(refs)))
			for i, ref := range refs {
				prefix := "├──"
				if i == len(refs)-1 {
					prefix = "└──"
				}
				sb.WriteString(fmt.Sprintf("%s %-*s  深度 %d\n", prefix, maxWidth, shortPath(string(ref.ID)), ref.Depth))
			}
		}
		if !last {
			sb.WriteString("\n")
		}
	}

	writeSection("⬆️ 依赖者", upstream, false)
	writeSection("⬇️ 依赖", downstream, true)

	return sb.String()
}

// shortPath extracts the last two path components
// e.g., "src/components/Button.tsx" -> "components/Button.tsx"
func shortPath(fullPath string) string {
	parts := strings.Split(fullPath, "/")
	if len(parts) <= 2 {
		return fullPath
	}
	return strings.Join(parts[len(parts)-2:], "/")
}

// Summary returns a one-line summary of the impact report
func (r *ImpactReport) Summary() string {
	return fmt.Sprintf(
		"风险: %s %s  依赖者: %d (直接 %d)  依赖: %d (直接 %d)",
		r.Risk.Icon(), r.Risk,
		r.TotalDependents, len(r.DirectDependents),
		r.TotalDependencies, len(r.DirectDependencies),
	)
}
