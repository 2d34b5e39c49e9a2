package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func fileSet(ids ...string) FileChecker {
	set := make(map[NodeID]bool, len(ids))
	for _, id := range ids {
		set[NodeID(id)] = true
	}
	return func(p NodeID) bool { return set[p] }
}

func TestResolve_AliasLongestPrefixWins(t *testing.T) {
	aliases := AliasTable{
		"@app/":       "/base1",
		"@app/utils/": "/base2",
	}
	r := NewResolver("/", aliases, fileSet("base2/foo.ts", "base1/utils/foo.ts"), nil)

	// repeat to make sure map iteration order cannot leak into the result
	for i := 0; i < 20; i++ {
		target, kind := r.Resolve("src/a.ts", "@app/utils/foo")
		assert.Equal(t, EdgeKindAliased, kind)
		assert.Equal(t, "base2/foo.ts", target.String())
	}
}

func TestResolve_AliasRelativeToRoot(t *testing.T) {
	r := NewResolver("/repo", AliasTable{"@/": "/repo/src"}, fileSet("src/components/Button.tsx"), nil)

	target, kind := r.Resolve("src/pages/home.tsx", "@/components/Button")
	assert.Equal(t, EdgeKindAliased, kind)
	id, ok := target.Node()
	assert.True(t, ok)
	assert.Equal(t, NodeID("src/components/Button.tsx"), id)
}

func TestResolve_AliasOutsideRootKeepsNormalizedPath(t *testing.T) {
	r := NewResolver("/repo", AliasTable{"shared/": "/elsewhere/shared"}, fileSet(), nil)

	target, kind := r.Resolve("a.ts", "shared/x")
	assert.Equal(t, EdgeKindAliased, kind)
	assert.Equal(t, "../elsewhere/shared/x", target.String())
}

func TestResolve_Relative(t *testing.T) {
	exists := fileSet("src/util.js", "src/lib/index.ts", "src/lib.css", "src/both.ts", "src/both/index.js")
	r := NewResolver("/repo", nil, exists, nil)

	tests := []struct {
		name   string
		source NodeID
		raw    string
		want   string
	}{
		{"file with extension search", "src/app.js", "./util", "src/util.js"},
		{"directory index", "src/app.js", "./lib", "src/lib/index.ts"},
		{"parent directory", "src/pages/home.js", "../util", "src/util.js"},
		{"file beats index", "src/app.js", "./both", "src/both.ts"},
		{"missing file keeps candidate", "src/app.js", "./nope", "src/nope"},
		{"explicit extension falls back to candidate", "src/app.js", "./util.js", "src/util.js"},
		{"escapes root", "app.js", "../outside", "../outside"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, kind := r.Resolve(tt.source, tt.raw)
			assert.Equal(t, EdgeKindRelative, kind)
			assert.Equal(t, tt.want, target.String())
		})
	}
}

func TestResolve_ExtensionPriority(t *testing.T) {
	r := NewResolver("/repo", nil, fileSet("a.js", "a.ts"), []string{".js", ".ts"})
	target, _ := r.Resolve("main.js", "./a")
	assert.Equal(t, "a.js", target.String())

	r = NewResolver("/repo", nil, fileSet("a.js", "a.ts"), nil)
	target, _ = r.Resolve("main.js", "./a")
	assert.Equal(t, "a.ts", target.String())
}

func TestResolve_Bare(t *testing.T) {
	r := NewResolver("/repo", AliasTable{"@app/": "/repo/src"}, fileSet("react.js"), nil)

	for _, raw := range []string{"react", "lodash/fp", "@scope/pkg", "node:fs"} {
		target, kind := r.Resolve("a.js", raw)
		assert.Equal(t, EdgeKindBare, kind, raw)
		assert.False(t, target.IsNode(), raw)
		assert.Equal(t, raw, target.String())
	}
}
