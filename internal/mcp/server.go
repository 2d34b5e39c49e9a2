package mcp

import (
	"context"
	"log/slog"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/zheng/modgraph/internal/impact"
)

const defaultLimit = 50

// Server exposes graph queries as MCP tools over stdio
type Server struct {
	a        *impact.Analyzer
	priority []string
	version  string
	logger   *slog.Logger
	server   *mcp.Server
}

// NewServer creates a new MCP server and registers its tools
func NewServer(a *impact.Analyzer, priority []string, version string, logger *slog.Logger) *Server {
	if priority == nil {
		priority = impact.DefaultPriorityNames
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		a:        a,
		priority: priority,
		version:  version,
		logger:   logger,
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "modgraph",
			Version: version,
		}, nil),
	}
	s.registerTools()
	return s
}

// Run serves requests on stdin/stdout until ctx is cancelled or the client disconnects
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("mcp server started", "files", s.a.Graph().Len())
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func fileProperty(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: desc}
}

func intProperty(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "integer", Description: desc}
}

func (s *Server) registerTools() {
	s.server.AddTool(&mcp.Tool{
		Name:        "entry_points",
		Description: "列出项目的入口文件（没有被任何文件导入的文件），并给出首选入口",
		InputSchema: &jsonschema.Schema{
			Type:       "object",
			Properties: map[string]*jsonschema.Schema{},
		},
	}, s.handleEntryPoints)

	s.server.AddTool(&mcp.Tool{
		Name:        "top_components",
		Description: "按可达文件数量排序，返回依赖最多（by=dependencies）或被依赖最多（by=dependents）的文件",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"limit": intProperty("返回的文件数量，默认 10"),
				"by": {
					Type:        "string",
					Description: "排序依据：dependencies（默认）或 dependents",
					Enum:        []any{"dependencies", "dependents"},
				},
			},
		},
	}, s.handleTopComponents)

	s.server.AddTool(&mcp.Tool{
		Name:        "impact",
		Description: "分析修改一个文件的影响范围，返回直接/间接依赖者、依赖的文件和风险等级",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"file":  fileProperty("文件路径（支持模糊匹配）"),
				"limit": intProperty("每个分类最多返回的文件数量，默认 50"),
			},
			Required: []string{"file"},
		},
	}, s.handleImpact)

	s.server.AddTool(&mcp.Tool{
		Name:        "upstream",
		Description: "查询直接或间接导入指定文件的所有文件",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"file":  fileProperty("文件路径"),
				"depth": intProperty("递归查询深度，0表示无限"),
				"limit": intProperty("最多返回的文件数量，默认 50"),
			},
			Required: []string{"file"},
		},
	}, s.handleUpstream)

	s.server.AddTool(&mcp.Tool{
		Name:        "downstream",
		Description: "查询指定文件直接或间接导入的所有文件",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"file":  fileProperty("文件路径"),
				"depth": intProperty("递归查询深度，0表示无限"),
				"limit": intProperty("最多返回的文件数量，默认 50"),
			},
			Required: []string{"file"},
		},
	}, s.handleDownstream)

	s.server.AddTool(&mcp.Tool{
		Name:        "search",
		Description: "按路径搜索文件，支持模糊匹配",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"pattern": fileProperty("搜索模式（路径的一部分）"),
				"limit":   intProperty("最多返回的文件数量，默认 50"),
			},
			Required: []string{"pattern"},
		},
	}, s.handleSearch)

	s.server.AddTool(&mcp.Tool{
		Name:        "risk",
		Description: "评估文件的修改风险；不传 file 时返回风险最高的文件",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"file":  fileProperty("文件路径（可选）"),
				"limit": intProperty("不传 file 时返回的文件数量，默认 10"),
			},
		},
	}, s.handleRisk)

	s.server.AddTool(&mcp.Tool{
		Name:        "mermaid",
		Description: "生成文件导入关系的 Mermaid 流程图，可视化文件的上下游依赖链",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"file": fileProperty("文件路径（支持模糊匹配）"),
				"direction": {
					Type:        "string",
					Description: "方向：upstream（上游）、downstream（下游）、both（双向）",
				},
				"depth": intProperty("递归深度，默认2"),
			},
			Required: []string{"file"},
		},
	}, s.handleMermaid)
}
