package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/zheng/modgraph/internal/graph"
	"github.com/zheng/modgraph/internal/impact"
)

type toolArgs struct {
	File      string `json:"file"`
	Pattern   string `json:"pattern"`
	By        string `json:"by"`
	Direction string `json:"direction"`
	Depth     *int   `json:"depth"`
	Limit     int    `json:"limit"`
}

func parseArgs(req *mcp.CallToolRequest) (toolArgs, error) {
	var args toolArgs
	if req.Params == nil || len(req.Params.Arguments) == 0 {
		return args, nil
	}
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return args, fmt.Errorf("invalid arguments: %w", err)
	}
	if args.Limit < 0 {
		return args, fmt.Errorf("invalid limit: %d", args.Limit)
	}
	if args.Depth != nil && *args.Depth < 0 {
		return args, fmt.Errorf("invalid depth: %d", *args.Depth)
	}
	return args, nil
}

func (a toolArgs) limit(def int) int {
	if a.Limit > 0 {
		return a.Limit
	}
	return def
}

func (a toolArgs) depth(def int) int {
	if a.Depth != nil {
		return *a.Depth
	}
	return def
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

// errorResult reports tool failures inside the result so the client can see them
func errorResult(err error) *mcp.CallToolResult {
	text := fmt.Sprintf("错误：%v", err)
	var amb *impact.AmbiguousError
	if errors.As(err, &amb) {
		var sb strings.Builder
		fmt.Fprintf(&sb, "找到多个匹配的文件：%s\n\n", amb.Query)
		for _, m := range amb.Matches {
			fmt.Fprintf(&sb, "- %s\n", m)
		}
		sb.WriteString("\n请使用更完整的路径。")
		text = sb.String()
	} else if errors.Is(err, impact.ErrFileNotFound) {
		text += "\n\n💡 提示：如果这是新添加的文件，请运行以下命令重新分析：\n```bash\nmodgraph analyze\n```"
	}
	result := textResult(text)
	result.IsError = true
	return result
}

func (s *Server) handleEntryPoints(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ep := impact.ClassifyEntryPoints(s.a.Graph(), s.priority)

	var sb strings.Builder
	if !ep.Found() {
		sb.WriteString("未找到入口文件：所有文件都被其他文件导入（可能全部处于循环依赖中）\n")
		return textResult(sb.String()), nil
	}
	fmt.Fprintf(&sb, "## 入口文件 (%d)\n\n", len(ep.Entries))
	fmt.Fprintf(&sb, "**首选入口:** %s\n\n", ep.Canonical)
	for _, id := range ep.Entries {
		marker := ""
		if id == ep.Canonical {
			marker = " ⭐"
		}
		fmt.Fprintf(&sb, "- %s (依赖 %d 个文件)%s\n", id, s.a.Forward().Count(id), marker)
	}
	return textResult(sb.String()), nil
}

func (s *Server) handleTopComponents(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errorResult(err), nil
	}

	var table impact.Counter = s.a.Forward()
	title, unit := "依赖最多的文件", "依赖"
	switch args.By {
	case "", "dependencies":
	case "dependents":
		table = s.a.Reverse()
		title, unit = "被依赖最多的文件", "被依赖"
	default:
		return errorResult(fmt.Errorf("unknown ranking: %s", args.By)), nil
	}

	ranked := impact.TopN(s.a.Graph(), table, args.limit(10))
	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s\n\n", title)
	sb.WriteString("| # | 文件 | 数量 |\n|---|------|------|\n")
	for i, r := range ranked {
		fmt.Fprintf(&sb, "| %d | %s | %s %d |\n", i+1, r.ID, unit, r.Count)
	}
	return textResult(sb.String()), nil
}

func (s *Server) handleImpact(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errorResult(err), nil
	}
	if args.File == "" {
		return errorResult(errors.New("需要提供文件路径")), nil
	}

	report, err := s.a.AnalyzeImpact(args.File, 0, 0)
	if err != nil {
		return errorResult(err), nil
	}
	return textResult(formatImpactWithLimit(report, args.limit(defaultLimit))), nil
}

func formatImpactWithLimit(report *impact.ImpactReport, limit int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## 变更影响分析: %s\n\n", report.Target)
	fmt.Fprintf(&sb, "**风险等级:** %s %s\n\n", report.Risk.Icon(), report.Risk)
	if report.Cyclic {
		sb.WriteString("**注意:** 该文件处于循环依赖中\n\n")
	}
	writeRefs(&sb, "直接依赖者 (需检查是否需要同步修改)", "_无直接依赖者_", report.DirectDependents, limit)
	writeRefs(&sb, "间接依赖者 (可能受影响)", "", report.IndirectDependents, limit)
	writeRefs(&sb, "导入的文件", "_无导入的项目文件_", report.DirectDependencies, limit)
	if len(report.External) > 0 {
		fmt.Fprintf(&sb, "### 外部依赖\n\n%s\n", strings.Join(report.External, ", "))
	}
	return sb.String()
}

func writeRefs(sb *strings.Builder, title, empty string, refs []impact.FileRef, limit int) {
	if len(refs) == 0 {
		if empty != "" {
			fmt.Fprintf(sb, "### %s\n\n%s\n\n", title, empty)
		}
		return
	}
	fmt.Fprintf(sb, "### %s\n\n", title)
	sb.WriteString("| 文件 | 深度 |\n|------|------|\n")
	shown := refs
	if len(shown) > limit {
		shown = shown[:limit]
	}
	for _, r := range shown {
		fmt.Fprintf(sb, "| %s | %d |\n", r.ID, r.Depth)
	}
	if len(refs) > limit {
		fmt.Fprintf(sb, "\n_（共 %d 个，仅显示前 %d 个）_\n", len(refs), limit)
	}
	sb.WriteString("\n")
}

func (s *Server) handleUpstream(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.handleWalk(req, true)
}

func (s *Server) handleDownstream(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.handleWalk(req, false)
}

func (s *Server) handleWalk(req *mcp.CallToolRequest, up bool) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errorResult(err), nil
	}
	if args.File == "" {
		return errorResult(errors.New("需要提供文件路径")), nil
	}

	depth := args.depth(0)
	var report *impact.ImpactReport
	var refs []impact.FileRef
	var title string
	if up {
		report, err = s.a.AnalyzeImpact(args.File, depth, 1)
		if err == nil {
			refs = append(report.DirectDependents, report.IndirectDependents...)
		}
		title = "上游依赖者"
	} else {
		report, err = s.a.AnalyzeImpact(args.File, 1, depth)
		if err == nil {
			refs = append(report.DirectDependencies, report.IndirectDependencies...)
		}
		title = "下游依赖"
	}
	if err != nil {
		return errorResult(err), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s 的%s (%d)\n\n", report.Target, title, len(refs))
	writeRefs(&sb, title, "_无_", refs, args.limit(defaultLimit))
	return textResult(sb.String()), nil
}

func (s *Server) handleSearch(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errorResult(err), nil
	}
	if args.Pattern == "" {
		return errorResult(errors.New("需要提供搜索模式")), nil
	}

	matches := s.a.Search(args.Pattern)
	if len(matches) == 0 {
		return textResult(fmt.Sprintf("未找到匹配 \"%s\" 的文件", args.Pattern)), nil
	}
	limit := args.limit(defaultLimit)

	var sb strings.Builder
	fmt.Fprintf(&sb, "## 搜索结果: %s (%d)\n\n", args.Pattern, len(matches))
	for i, id := range matches {
		if i >= limit {
			fmt.Fprintf(&sb, "\n_（共 %d 个，仅显示前 %d 个）_\n", len(matches), limit)
			break
		}
		fmt.Fprintf(&sb, "- %s\n", id)
	}
	return textResult(sb.String()), nil
}

func (s *Server) handleRisk(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errorResult(err), nil
	}

	var scores []*impact.RiskScore
	if args.File != "" {
		id, err := s.a.FindFile(args.File)
		if err != nil {
			return errorResult(err), nil
		}
		score, err := s.a.Risk(id)
		if err != nil {
			return errorResult(err), nil
		}
		scores = []*impact.RiskScore{score}
	} else {
		scores = s.a.TopRisky(args.limit(10))
	}

	var sb strings.Builder
	sb.WriteString("## 风险评估\n\n")
	sb.WriteString("| 文件 | 风险 | 直接依赖者 | 总依赖者 |\n|------|------|------|------|\n")
	for _, r := range scores {
		fmt.Fprintf(&sb, "| %s | %s %s | %d | %d |\n", r.ID, r.Level.Icon(), r.Level, r.DirectDependents, r.TotalDependents)
	}
	return textResult(sb.String()), nil
}

func shortName(id graph.NodeID) string {
	s := string(id)
	if idx := strings.LastIndex(s, "/"); idx >= 0 {
		return s[idx+1:]
	}
	return s
}
