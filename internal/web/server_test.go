package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zheng/modgraph/internal/graph"
	"github.com/zheng/modgraph/internal/impact"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	g, _ := graph.NewBuilder("/repo", nil).Build([]graph.SourceFile{
		{ID: "src/index.js", Specifiers: []string{"./App", "react"}},
		{ID: "src/App.js", Specifiers: []string{"./lib/a"}},
		{ID: "src/lib/a.js", Specifiers: []string{"./b"}},
		{ID: "src/lib/b.js", Specifiers: []string{"./a"}},
	})
	ts := httptest.NewServer(NewServer(impact.NewAnalyzer(g), "localhost", 0).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, ts *httptest.Server, path string, out any) int {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestAPI_Stats(t *testing.T) {
	ts := newTestServer(t)
	var stats impact.Stats
	assert.Equal(t, http.StatusOK, get(t, ts, "/api/stats", &stats))
	assert.Equal(t, 4, stats.Files)
	assert.Equal(t, 1, stats.Cycles)
}

func TestAPI_Top(t *testing.T) {
	ts := newTestServer(t)
	var top []impact.Ranked
	assert.Equal(t, http.StatusOK, get(t, ts, "/api/top?n=1", &top))
	assert.Equal(t, []impact.Ranked{{ID: "src/index.js", Count: 3}}, top)

	assert.Equal(t, http.StatusOK, get(t, ts, "/api/top?n=2&by=dependents", &top))
	assert.Equal(t, []impact.Ranked{{ID: "src/lib/a.js", Count: 3}, {ID: "src/lib/b.js", Count: 3}}, top)

	assert.Equal(t, http.StatusBadRequest, get(t, ts, "/api/top?by=size", nil))
	assert.Equal(t, http.StatusBadRequest, get(t, ts, "/api/top?n=x", nil))
}

func TestAPI_File(t *testing.T) {
	ts := newTestServer(t)
	var file FileData
	assert.Equal(t, http.StatusOK, get(t, ts, "/api/file?id=src/index.js", &file))
	assert.Empty(t, file.Incoming)
	require.Len(t, file.Outgoing, 2)
	assert.True(t, file.Outgoing[0].Resolved)
	assert.Equal(t, "react", file.Outgoing[1].ResolvedPath)
	assert.False(t, file.Outgoing[1].Resolved)

	var e errorData
	assert.Equal(t, http.StatusNotFound, get(t, ts, "/api/file?id=nope", &e))
	assert.Equal(t, http.StatusConflict, get(t, ts, "/api/file?id=lib", &e))
	assert.Len(t, e.Matches, 2)
	assert.Equal(t, http.StatusBadRequest, get(t, ts, "/api/file", nil))
}

func TestAPI_EntriesImpactSearch(t *testing.T) {
	ts := newTestServer(t)

	var ep impact.EntryPoints
	assert.Equal(t, http.StatusOK, get(t, ts, "/api/entries", &ep))
	assert.Equal(t, graph.NodeID("src/index.js"), ep.Canonical)

	var report impact.ImpactReport
	assert.Equal(t, http.StatusOK, get(t, ts, "/api/impact?id=src/lib/b.js", &report))
	assert.Equal(t, 3, report.TotalDependents)
	assert.True(t, report.Cyclic)

	var ids []graph.NodeID
	assert.Equal(t, http.StatusOK, get(t, ts, "/api/search?q=app", &ids))
	assert.Equal(t, []graph.NodeID{"src/App.js"}, ids)

	var cycles [][]graph.NodeID
	assert.Equal(t, http.StatusOK, get(t, ts, "/api/cycles", &cycles))
	assert.Equal(t, [][]graph.NodeID{{"src/lib/a.js", "src/lib/b.js"}}, cycles)

	var tree []*impact.TreeNode
	assert.Equal(t, http.StatusOK, get(t, ts, "/api/tree?id=src/App.js&depth=0", &tree))
	require.Len(t, tree, 1)
	assert.Equal(t, graph.NodeID("src/lib/a.js"), tree[0].ID)
	assert.True(t, tree[0].Children[0].Children[0].Cycle)
}
