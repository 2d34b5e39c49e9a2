package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zheng/modgraph/internal/impact"
)

func riskCmd() *cobra.Command {
	var limit int
	var format string
	var selectN int

	cmd := &cobra.Command{
		Use:   "risk [file]",
		Short: "分析文件修改风险",
		Long: `分析文件的修改风险等级，基于依赖者数量评估。

风险等级说明：
  - critical: 直接依赖者 >= 50 或传递依赖者 >= 200
  - high:     直接依赖者 >= 20 或传递依赖者 >= 100
  - medium:   直接依赖者 >= 5 或传递依赖者 >= 30
  - low:      其他

示例：
  modgraph risk src/utils/format.js   # 查看单个文件的风险
  modgraph risk --top --limit 20      # 显示风险最高的20个文件`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			showTop, _ := cmd.Flags().GetBool("top")

			src, err := openGraph()
			if err != nil {
				return err
			}
			defer src.Close()

			if showTop || len(args) == 0 {
				risks := src.a.TopRisky(limit)
				if format == "json" {
					return outputJSON(out, risks)
				}
				if len(risks) == 0 {
					fmt.Fprintln(out, "项目中没有文件")
					return nil
				}

				fmt.Fprintf(out, "高风险文件排行 (Top %d)\n\n", len(risks))
				for _, r := range risks {
					fmt.Fprintf(out, "%s %-8s  %s\n", r.Level.Icon(), r.Level, r.ID)
					fmt.Fprintf(out, "             直接依赖者: %d  传递依赖者: %d\n\n", r.DirectDependents, r.TotalDependents)
				}

				fmt.Fprintln(out, "风险等级: 🔴critical(>=50) 🟠high(>=20) 🟡medium(>=5) 🟢low")
				fmt.Fprintln(out, "\n💡 使用 modgraph risk <文件> 查看详细分析")
				return nil
			}

			id, err := src.resolveFile(args[0], selectN, cmd.InOrStdin(), out)
			if err != nil {
				return err
			}
			risk, err := src.a.Risk(id)
			if err != nil {
				return fmt.Errorf("计算风险失败: %w", err)
			}
			if format == "json" {
				return outputJSON(out, risk)
			}

			fmt.Fprintf(out, "## 修改风险分析: %s\n\n", risk.ID)
			fmt.Fprintf(out, "### 风险等级: %s %s\n\n", risk.Level.Icon(), risk.Level)
			fmt.Fprintf(out, "直接依赖者: %d\n", risk.DirectDependents)
			fmt.Fprintf(out, "传递依赖者: %d\n", risk.TotalDependents)

			fmt.Fprintln(out, "\n**建议:**")
			switch risk.Level {
			case impact.RiskCritical:
				fmt.Fprintln(out, "- ⚠️  此文件被大量导入，修改需极其谨慎")
				fmt.Fprintln(out, "- 建议先运行 `modgraph impact` 查看完整影响范围")
				fmt.Fprintln(out, "- 修改前确保有充分的测试覆盖")
				fmt.Fprintln(out, "- 考虑是否可以新增模块而非修改现有导出")
			case impact.RiskHigh:
				fmt.Fprintln(out, "- ⚠️  此文件依赖者较多，修改需谨慎")
				fmt.Fprintln(out, "- 建议运行 `modgraph upstream` 查看依赖者")
				fmt.Fprintln(out, "- 确保修改后同步更新所有导入处")
			case impact.RiskMedium:
				fmt.Fprintln(out, "- 正常风险，注意检查导入处是否需要同步修改")
				fmt.Fprintln(out, "- 可运行 `modgraph upstream` 查看具体依赖者")
			default:
				fmt.Fprintln(out, "- 低风险，影响范围较小")
				fmt.Fprintln(out, "- 正常修改即可")
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "显示数量")
	cmd.Flags().Bool("top", false, "显示风险最高的文件列表")
	cmd.Flags().StringVar(&format, "format", "text", "输出格式 (text/json)")
	cmd.Flags().IntVar(&selectN, "select", 0, "当匹配到多个文件时，直接选择第N个（跳过交互提示）")

	return cmd
}
