package storage

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zheng/modgraph/internal/graph"
)

func openTemp(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g, _ := graph.NewBuilder("/repo", graph.AliasTable{"@/": "/repo/src"}).Build([]graph.SourceFile{
		{ID: "src/index.js", Specifiers: []string{"./App", "react", "./App"}},
		{ID: "src/App.js", Specifiers: []string{"@/lib/a", "./missing"}},
		{ID: "src/lib/a.js", Specifiers: []string{"./b", "react"}},
		{ID: "src/lib/b.js", Specifiers: []string{"./a"}},
		{ID: "src/broken.js", Err: errors.New("syntax error")},
	})
	return g
}

func TestLoadGraph_NotAnalyzed(t *testing.T) {
	_, _, err := openTemp(t).LoadGraph()
	assert.ErrorIs(t, err, ErrNotAnalyzed)
}

func TestSaveAndLoadGraph(t *testing.T) {
	db := openTemp(t)
	g := sampleGraph(t)
	meta := map[graph.NodeID]FileMeta{
		"src/index.js":  {Hash: 0xdeadbeef},
		"src/broken.js": {ExtractError: "syntax error"},
	}
	require.NoError(t, db.SaveGraph(g, meta, "/repo"))

	back, diags, err := db.LoadGraph()
	require.NoError(t, err)
	assert.Empty(t, diags)
	assert.True(t, g.Equal(back))

	broken, _ := back.Node("src/broken.js")
	assert.True(t, broken.ExtractionFailed())

	root, err := db.Meta("root")
	require.NoError(t, err)
	assert.Equal(t, "/repo", root)

	hashes, err := db.FileHashes()
	require.NoError(t, err)
	assert.Equal(t, map[graph.NodeID]uint64{"src/index.js": 0xdeadbeef}, hashes)

	files, edges, err := db.GetStats()
	require.NoError(t, err)
	assert.Equal(t, int64(5), files)
	assert.Equal(t, int64(8), edges)

	// saving again replaces everything
	require.NoError(t, db.SaveGraph(g, nil, "/repo"))
	files, _, err = db.GetStats()
	require.NoError(t, err)
	assert.Equal(t, int64(5), files)
}

func TestDependentsAndDependencies(t *testing.T) {
	db := openTemp(t)
	require.NoError(t, db.SaveGraph(sampleGraph(t), nil, "/repo"))

	up, err := db.GetDependents("src/lib/b.js", 0)
	require.NoError(t, err)
	assert.Equal(t, []FileRow{{"src/lib/a.js", 1}, {"src/App.js", 2}, {"src/index.js", 3}}, up)

	up, err = db.GetDependents("src/lib/b.js", 2)
	require.NoError(t, err)
	assert.Len(t, up, 2)

	down, err := db.GetDependencies("src/index.js", 0)
	require.NoError(t, err)
	assert.Equal(t, []FileRow{{"src/App.js", 1}, {"src/lib/a.js", 2}, {"src/lib/b.js", 3}}, down)

	cyclic, err := db.GetDependencies("src/lib/a.js", 0)
	require.NoError(t, err)
	assert.Equal(t, []FileRow{{"src/lib/b.js", 1}}, cyclic, "a file never lists itself")
}

func TestFindFilesByPattern(t *testing.T) {
	db := openTemp(t)
	require.NoError(t, db.SaveGraph(sampleGraph(t), nil, "/repo"))

	ids, err := db.FindFilesByPattern("a.js")
	require.NoError(t, err)
	assert.Equal(t, []graph.NodeID{"src/lib/a.js"}, ids)

	ids, err = db.FindFilesByPattern("src/")
	require.NoError(t, err)
	assert.Len(t, ids, 5)
	assert.Equal(t, graph.NodeID("src/App.js"), ids[0], "shortest id first")

	ids, err = db.FindFilesByPattern("LIB/A")
	require.NoError(t, err)
	assert.Equal(t, []graph.NodeID{"src/lib/a.js"}, ids)

	ids, err = db.FindFilesByPattern("lib_a")
	require.NoError(t, err)
	assert.Empty(t, ids, "underscore is not a wildcard")
}

func TestExternalModules(t *testing.T) {
	db := openTemp(t)
	require.NoError(t, db.SaveGraph(sampleGraph(t), nil, "/repo"))

	ext, err := db.GetExternalModules()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"react": 2}, ext)
}

func TestLoadGraph_KeepsExternalTargets(t *testing.T) {
	db := openTemp(t)
	g, _ := graph.NewBuilder("/repo", nil).Build([]graph.SourceFile{
		{ID: "index.js", Specifiers: []string{"config.js", "./config"}},
		{ID: "config.js"},
	})
	require.NoError(t, db.SaveGraph(g, nil, "/repo"))

	back, _, err := db.LoadGraph()
	require.NoError(t, err)
	assert.True(t, g.Equal(back))

	index, _ := back.Node("index.js")
	assert.False(t, index.Outgoing()[0].Target.IsNode())
	assert.True(t, index.Outgoing()[1].Target.IsNode())

	up, err := db.GetDependents("config.js", 0)
	require.NoError(t, err)
	assert.Equal(t, []FileRow{{"index.js", 1}}, up)
}
