package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/zheng/modgraph/internal/display"
	"github.com/zheng/modgraph/internal/graph"
	"github.com/zheng/modgraph/internal/impact"
	"github.com/zheng/modgraph/internal/storage"
)

func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printTree prints a dependency tree to w
func printTree(w io.Writer, tree []*impact.TreeNode) {
	fmt.Fprint(w, display.RenderTree(tree))
}

// graphSource is an analyzed graph opened from a snapshot or the database
type graphSource struct {
	a     *impact.Analyzer
	db    *storage.DB
	diags []graph.Diagnostic
}

// openGraph loads the graph from --snapshot when given, else from the database.
// A missing or corrupt graph is fatal.
func openGraph() (*graphSource, error) {
	if SnapshotPath != "" {
		g, diags, err := graph.LoadSnapshot(SnapshotPath)
		if err != nil {
			return nil, fmt.Errorf("读取快照失败: %w", err)
		}
		logDiagnostics(diags)
		return &graphSource{a: impact.NewAnalyzer(g), diags: diags}, nil
	}

	db, err := storage.Open(DbPath)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}
	g, diags, err := db.LoadGraph()
	if err != nil {
		db.Close()
		if errors.Is(err, storage.ErrNotAnalyzed) {
			return nil, fmt.Errorf("数据库 %s 中没有依赖图，请先运行 modgraph analyze: %w", DbPath, err)
		}
		return nil, fmt.Errorf("读取数据库失败: %w", err)
	}
	logDiagnostics(diags)
	return &graphSource{a: impact.NewAnalyzer(g), db: db, diags: diags}, nil
}

func (s *graphSource) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// resolveFile maps a user query to one file. When several files match, --select picks
// the n-th one; otherwise the user is asked on in.
func (s *graphSource) resolveFile(query string, selectN int, in io.Reader, out io.Writer) (graph.NodeID, error) {
	id, err := s.a.FindFile(query)
	if err == nil {
		return id, nil
	}
	var amb *impact.AmbiguousError
	if !errors.As(err, &amb) {
		return "", fmt.Errorf("未找到文件: %s", query)
	}
	if selectN >= 1 && selectN <= len(amb.Matches) {
		return amb.Matches[selectN-1], nil
	}

	fmt.Fprintln(out, "找到多个匹配的文件，请选择:")
	for i, m := range amb.Matches {
		fmt.Fprintf(out, "  [%d] %s\n", i+1, m)
	}
	fmt.Fprintf(out, "\n请输入序号 [1-%d]: ", len(amb.Matches))

	var choice int
	if _, err := fmt.Fscanln(in, &choice); err != nil || choice < 1 || choice > len(amb.Matches) {
		return "", fmt.Errorf("无效的选择")
	}
	return amb.Matches[choice-1], nil
}

func logDiagnostics(diags []graph.Diagnostic) {
	for _, d := range diags {
		slog.Warn(d.Message, "code", d.Code, "file", d.File)
	}
}

// sortRanked orders by count descending, then by name
func sortRanked(ranked []impact.Ranked) {
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].ID < ranked[j].ID
	})
}

// root returns the analyzed project root, as recorded in the database when available
func (s *graphSource) root() string {
	if s.db != nil {
		if root, err := s.db.Meta("root"); err == nil && root != "" {
			return root
		}
	}
	return cfg.RootDirectory
}

// checkDepth rejects negative depth flags; 0 already means unlimited
func checkDepth(flag string, depth int) error {
	if depth < 0 {
		return fmt.Errorf("--%s 不能为负数: %d", flag, depth)
	}
	return nil
}
