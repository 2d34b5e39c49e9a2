package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zheng/modgraph/internal/graph"
	"github.com/zheng/modgraph/internal/impact"
)

func analyzer(t *testing.T) *impact.Analyzer {
	t.Helper()
	g, _ := graph.NewBuilder("/repo", nil).Build([]graph.SourceFile{
		{ID: "src/index.js", Specifiers: []string{"./App", "react"}},
		{ID: "src/App.js", Specifiers: []string{"./lib/a", "react", "lodash"}},
		{ID: "src/lib/a.js", Specifiers: []string{"./b"}},
		{ID: "src/lib/b.js", Specifiers: []string{"./a"}},
	})
	return impact.NewAnalyzer(g)
}

func TestExport(t *testing.T) {
	opts := DefaultExportOptions()
	opts.ProjectName = "demo"
	opts.Now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	var buf bytes.Buffer
	require.NoError(t, NewExporter(analyzer(t)).Export(&buf, opts))
	out := buf.String()

	assert.Contains(t, out, "# demo模块依赖图谱")
	assert.Contains(t, out, "> 生成时间: 2024-05-01 12:00:00")
	assert.Contains(t, out, "> 文件: 4 | 导入: 7 | 已解析: 4 | 外部: 3")
	assert.Contains(t, out, "├── src/\n│   ├── lib/\n")
	assert.Contains(t, out, "- **主入口**: `src/index.js`")
	assert.Contains(t, out, "| 1 | `src/index.js` | 3 |")
	assert.Contains(t, out, "1. `src/lib/a.js` ↔ `src/lib/b.js`")
	assert.Contains(t, out, "| `react` | 2 |")
	assert.Contains(t, out, "### 📁 src/lib")
	assert.Contains(t, out, "| `a.js` | 2 | 1 | 1 | 3 |")
}

func TestExportAffected(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewExporter(analyzer(t)).ExportAffected(&buf, []string{"src/lib/b.js", "README.md"}))
	out := buf.String()

	assert.Contains(t, out, "- `README.md` (不在依赖图中)")
	assert.Contains(t, out, "## 受影响文件 (共 3 个)")
	assert.Contains(t, out, "- `src/lib/a.js`")

	buf.Reset()
	require.NoError(t, NewExporter(analyzer(t)).ExportAffected(&buf, nil))
	assert.Contains(t, buf.String(), "没有检测到变更")
}
