package display

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zheng/modgraph/internal/impact"
)

func TestShortNames(t *testing.T) {
	assert.Equal(t, "components/Button.tsx", ShortFileName("src/components/Button.tsx"))
	assert.Equal(t, "a.js", ShortFileName("a.js"))
	assert.Equal(t, "…/format", ShortSpecifier("../../utils/format"))
	assert.Equal(t, "@scope/pkg", ShortSpecifier("@scope/pkg"))
	assert.Equal(t, ".", ShortSpecifier("."))
}

func TestRenderTree(t *testing.T) {
	tree := []*impact.TreeNode{
		{ID: "b.js", Children: []*impact.TreeNode{
			{ID: "a.js", Cycle: true},
			{ID: "c.js"},
		}},
		{ID: "d.js"},
	}
	want := "" +
		"├── b.js      b.js\n" +
		"│   ├── a.js  a.js  ↺\n" +
		"│   └── c.js  c.js\n" +
		"└── d.js      d.js\n"
	assert.Equal(t, want, RenderTree(tree))
}
