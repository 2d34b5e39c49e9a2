package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/zheng/modgraph/internal/mcp"
	"github.com/zheng/modgraph/internal/web"
)

func mcpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "启动 MCP (Model Context Protocol) 服务器",
		Long: `启动 MCP 服务器，允许 AI 助手（如 Cursor、Claude）直接查询模块依赖图。

MCP 工具包括：
  - entry_points: 列出入口文件
  - top_components: 依赖最多/被依赖最多的文件
  - impact: 分析文件修改的影响范围
  - upstream: 查询导入该文件的文件
  - downstream: 查询该文件导入的文件
  - search: 搜索文件
  - risk: 评估修改风险
  - mermaid: 生成依赖关系图`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := openGraph()
			if err != nil {
				return err
			}
			defer src.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			server := mcp.NewServer(src.a, cfg.PriorityEntryNames, Version, slog.Default())
			return server.Run(ctx)
		},
	}

	return cmd
}

func serveCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动只读 JSON API 服务",
		Long: `启动一个本地 HTTP 服务器，以 JSON 形式提供依赖图查询。

接口：
  /api/stats                   统计信息
  /api/files                   所有文件及其传递依赖数
  /api/file?id=                单个文件的导入与依赖者
  /api/entries                 入口文件
  /api/top?n=&by=              排行 (by=reach|dependents)
  /api/impact?id=&depth=       影响分析
  /api/tree?id=&depth=&dir=    依赖树 (dir=up 为依赖者树)
  /api/cycles                  循环依赖
  /api/search?q=               搜索文件

示例：
  modgraph serve              # 使用配置中的端口 (默认 8080)
  modgraph serve -p 3000      # 指定端口`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("host") {
				host = cfg.Server.Host
			}
			if !cmd.Flags().Changed("port") {
				port = cfg.Server.Port
			}

			src, err := openGraph()
			if err != nil {
				return err
			}
			defer src.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(cmd.OutOrStdout(), "🚀 API 已启动: http://%s:%d/api/stats\n", host, port)
			server := web.NewServer(src.a, host, port,
				web.WithTopN(cfg.TopN),
				web.WithPriorityNames(cfg.PriorityEntryNames),
				web.WithLogger(slog.Default()),
			)
			return server.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "localhost", "监听地址")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "服务器端口")

	return cmd
}
