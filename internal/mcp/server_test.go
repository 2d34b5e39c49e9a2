package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zheng/modgraph/internal/graph"
	"github.com/zheng/modgraph/internal/impact"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	g, _ := graph.NewBuilder("/repo", nil).Build([]graph.SourceFile{
		{ID: "src/index.js", Specifiers: []string{"./App", "react"}},
		{ID: "src/App.js", Specifiers: []string{"./lib/a"}},
		{ID: "src/lib/a.js", Specifiers: []string{"./b"}},
		{ID: "src/lib/b.js", Specifiers: []string{"./a", "lodash"}},
		{ID: "scripts/build.js"},
	})
	return NewServer(impact.NewAnalyzer(g), nil, "test", nil)
}

type handler func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error)

func call(t *testing.T, h handler, args map[string]any) (string, bool) {
	t.Helper()
	raw, err := json.Marshal(args)
	require.NoError(t, err)
	result, err := h(context.Background(), &mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{Arguments: raw},
	})
	require.NoError(t, err)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text, result.IsError
}

func TestEntryPoints(t *testing.T) {
	s := newTestServer(t)
	text, isErr := call(t, s.handleEntryPoints, nil)
	assert.False(t, isErr)
	assert.Contains(t, text, "**首选入口:** src/index.js")
	assert.Contains(t, text, "- scripts/build.js (依赖 0 个文件)")
}

func TestTopComponents(t *testing.T) {
	s := newTestServer(t)
	text, isErr := call(t, s.handleTopComponents, map[string]any{"limit": 1})
	assert.False(t, isErr)
	assert.Contains(t, text, "| 1 | src/index.js | 依赖 3 |")
	assert.NotContains(t, text, "| 2 |")

	text, _ = call(t, s.handleTopComponents, map[string]any{"by": "dependents", "limit": 2})
	assert.Contains(t, text, "| 1 | src/lib/a.js | 被依赖 3 |")
	assert.Contains(t, text, "| 2 | src/lib/b.js | 被依赖 3 |")

	_, isErr = call(t, s.handleTopComponents, map[string]any{"by": "size"})
	assert.True(t, isErr)
}

func TestImpact(t *testing.T) {
	s := newTestServer(t)
	text, isErr := call(t, s.handleImpact, map[string]any{"file": "lib/b.js"})
	assert.False(t, isErr)
	assert.Contains(t, text, "## 变更影响分析: src/lib/b.js")
	assert.Contains(t, text, "循环依赖")
	assert.Contains(t, text, "| src/lib/a.js | 1 |")
	assert.Contains(t, text, "| src/index.js | 3 |")
	assert.Contains(t, text, "lodash")

	text, isErr = call(t, s.handleImpact, map[string]any{"file": "lib"})
	assert.True(t, isErr)
	assert.Contains(t, text, "- src/lib/a.js")

	text, isErr = call(t, s.handleImpact, map[string]any{"file": "nothing.js"})
	assert.True(t, isErr)
	assert.Contains(t, text, "modgraph analyze")

	_, isErr = call(t, s.handleImpact, nil)
	assert.True(t, isErr)
}

func TestUpstreamDownstream(t *testing.T) {
	s := newTestServer(t)
	text, isErr := call(t, s.handleUpstream, map[string]any{"file": "src/App.js"})
	assert.False(t, isErr)
	assert.Contains(t, text, "(1)")
	assert.Contains(t, text, "| src/index.js | 1 |")

	text, _ = call(t, s.handleDownstream, map[string]any{"file": "src/index.js", "depth": 1})
	assert.Contains(t, text, "| src/App.js | 1 |")
	assert.NotContains(t, text, "src/lib/a.js")

	_, isErr = call(t, s.handleDownstream, map[string]any{"file": "src/index.js", "depth": -1})
	assert.True(t, isErr)
}

func TestSearch(t *testing.T) {
	s := newTestServer(t)
	text, isErr := call(t, s.handleSearch, map[string]any{"pattern": "lib", "limit": 1})
	assert.False(t, isErr)
	assert.Contains(t, text, "(2)")
	assert.Contains(t, text, "仅显示前 1 个")

	text, _ = call(t, s.handleSearch, map[string]any{"pattern": "zzz"})
	assert.Contains(t, text, "未找到")
}

func TestRisk(t *testing.T) {
	s := newTestServer(t)
	text, isErr := call(t, s.handleRisk, map[string]any{"file": "src/App.js"})
	assert.False(t, isErr)
	assert.Contains(t, text, "| src/App.js |")
	assert.Equal(t, 1, strings.Count(text, "| src/"))

	text, _ = call(t, s.handleRisk, map[string]any{"limit": 2})
	assert.Equal(t, 2, strings.Count(text, "| src/"))
}

func TestMermaid(t *testing.T) {
	s := newTestServer(t)
	text, isErr := call(t, s.handleMermaid, map[string]any{"file": "src/App.js", "depth": 0})
	assert.False(t, isErr)
	assert.Contains(t, text, "```mermaid\nflowchart TB\n")
	assert.Contains(t, text, "n0[\"🎯 App.js\"]")
	assert.Contains(t, text, "[\"index.js\"]")
	assert.Contains(t, text, "[\"b.js\"]")
	assert.Contains(t, text, "n0 --> ")

	_, isErr = call(t, s.handleMermaid, map[string]any{"file": "src/App.js", "direction": "sideways"})
	assert.True(t, isErr)
}
