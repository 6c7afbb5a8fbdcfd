package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/yuqie6/MiNomina/internal/bootstrap"
	"github.com/yuqie6/MiNomina/internal/migration"
	"github.com/yuqie6/MiNomina/internal/pkg/config"
)

var (
	cfgFile string
	core    *bootstrap.Core
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "minomina",
		Short: "MiNomina - 个人工资与支出管理",
		Long:  `MiNomina 命令行工具：管理数据库迁移、查看支出汇总、生成默认配置。`,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "配置文件路径")

	// 添加子命令
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(expensesCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openCore 加载配置并初始化数据库
func openCore(cmd *cobra.Command, args []string) error {
	var err error
	core, err = bootstrap.NewCore(cfgFile)
	if err != nil {
		slog.Error("初始化失败", "error", err)
		return err
	}
	return nil
}

func closeCore(cmd *cobra.Command, args []string) {
	if core != nil {
		_ = core.Close()
	}
}

// migrateCmd 迁移命令
func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "migrate",
		Short:             "管理数据库迁移",
		PersistentPreRunE: openCore,
		PersistentPostRun: closeCore,
	}
	cmd.AddCommand(migrateUpCmd(), migrateDownCmd(), migrateStatusCmd())
	return cmd
}

func migrateUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "应用全部待执行的迁移",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("🔄 正在检查数据库并应用迁移...")
			report, err := core.Prepare(cmd.Context())
			if err != nil {
				fmt.Printf("❌ 迁移失败: %v\n", err)
				return err
			}
			printReport(report)
			return nil
		},
	}
}

func migrateDownCmd() *cobra.Command {
	var steps int
	var name string

	cmd := &cobra.Command{
		Use:   "down",
		Short: "回滚最近的迁移",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ms, err := core.LoadMigrations()
			if err != nil {
				return err
			}

			var results []migration.Result
			if name != "" {
				m, ok := findMigration(ms, name)
				if !ok {
					return fmt.Errorf("未知迁移: %s", name)
				}
				res, err := core.Runner.RevertOne(ctx, m)
				results = append(results, res)
				if err != nil {
					printResults(results)
					return err
				}
			} else {
				results, err = core.Runner.RevertLast(ctx, ms, steps)
				if err != nil {
					printResults(results)
					return err
				}
			}

			if len(results) == 0 {
				fmt.Println("✅ 没有可回滚的迁移")
				return nil
			}
			printResults(results)
			return nil
		},
	}

	cmd.Flags().IntVar(&steps, "steps", 1, "回滚的迁移数量")
	cmd.Flags().StringVar(&name, "name", "", "只回滚指定名称的迁移")
	return cmd
}

func migrateStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "查看迁移状态",
		RunE: func(cmd *cobra.Command, args []string) error {
			ms, err := core.LoadMigrations()
			if err != nil {
				return err
			}
			st, err := core.Runner.Status(cmd.Context(), ms)
			if err != nil {
				return err
			}

			fmt.Printf("📋 已应用 %d 个迁移\n", len(st.Applied))
			for _, e := range st.Applied {
				fmt.Printf("  ✔ %s  (%s)\n", e.Name, e.AppliedAt.Local().Format("2006-01-02 15:04:05"))
			}
			if len(st.Pending) > 0 {
				fmt.Printf("\n⏳ 待执行 %d 个\n", len(st.Pending))
				for _, n := range st.Pending {
					fmt.Printf("  • %s\n", n)
				}
			}
			if len(st.Orphaned) > 0 {
				fmt.Printf("\n⚠️  台账中存在但代码中已删除 %d 个\n", len(st.Orphaned))
				for _, n := range st.Orphaned {
					fmt.Printf("  • %s\n", n)
				}
			}
			return nil
		},
	}
}

func findMigration(ms []migration.Migration, name string) (migration.Migration, bool) {
	for _, m := range ms {
		if m.Name == name {
			return m, true
		}
	}
	return migration.Migration{}, false
}

func printReport(report *migration.Report) {
	if report.Applied > 0 {
		fmt.Printf("\n✅ 已应用 %d 个新迁移\n", report.Applied)
	} else if len(report.Failures) == 0 {
		fmt.Println("\n✅ 数据库已是最新，没有待执行的迁移")
	}
	for _, res := range report.Skipped() {
		fmt.Printf("⏭️  %s 已跳过: %s\n", res.Name, res.Reason)
	}
	if len(report.Failures) > 0 {
		fmt.Printf("\n⚠️  %d 个迁移失败:\n", len(report.Failures))
		for i, f := range report.Failures {
			fmt.Printf("  %d. %s\n     %v\n", i+1, f.Name, f.Err)
		}
	}
}

func printResults(results []migration.Result) {
	for _, res := range results {
		switch res.Outcome {
		case migration.OutcomeReverted:
			fmt.Printf("↩️  已回滚 %s\n", res.Name)
		case migration.OutcomeNotApplied:
			fmt.Printf("•  %s 未应用，无需回滚\n", res.Name)
		case migration.OutcomeFailed:
			fmt.Printf("❌ %s 回滚失败: %v\n", res.Name, res.Err)
		}
	}
}

// expensesCmd 支出统计命令
func expensesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "expenses",
		Short:             "支出统计",
		PersistentPreRunE: openCore,
		PersistentPostRun: closeCore,
	}

	var userID int64
	var year, month int
	summary := &cobra.Command{
		Use:   "summary",
		Short: "查看某月支出汇总",
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			if year == 0 {
				year = now.Year()
			}
			if month == 0 {
				month = int(now.Month())
			}
			sum, err := core.Repos.Expense.SummarizeMonth(cmd.Context(), userID, year, month)
			if err != nil {
				fmt.Printf("❌ 汇总失败: %v\n", err)
				return err
			}

			fmt.Printf("📊 %04d-%02d 支出汇总 (用户 %d)\n", year, month, userID)
			fmt.Println("═══════════════════════════════════════")
			for _, t := range sum.ByTag {
				fmt.Printf("  • %-10s %10.2f  (%d 笔)\n", t.Tag, t.TotalAmount, t.Count)
			}
			fmt.Println("───────────────────────────────────────")
			fmt.Printf("  合计       %10.2f  (%d 笔)\n", sum.TotalAmount, sum.Count)
			return nil
		},
	}
	summary.Flags().Int64Var(&userID, "user", 1, "用户 ID")
	summary.Flags().IntVar(&year, "year", 0, "年份（默认今年）")
	summary.Flags().IntVar(&month, "month", 0, "月份（默认本月）")

	cmd.AddCommand(summary)
	return cmd
}

// configCmd 配置命令
func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "配置文件管理",
	}

	var path string
	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "生成默认配置文件",
		RunE: func(cmd *cobra.Command, args []string) error {
			target := path
			if target == "" {
				p, err := config.DefaultConfigPath()
				if err != nil {
					return err
				}
				target = p
			}
			if _, err := os.Stat(target); err == nil && !force {
				return fmt.Errorf("配置文件已存在: %s（使用 --force 覆盖）", target)
			}
			if err := config.WriteFile(target, config.Default()); err != nil {
				return err
			}
			fmt.Printf("✅ 已生成配置文件: %s\n", target)
			return nil
		},
	}
	initCmd.Flags().StringVar(&path, "path", "", "输出路径（默认 <exe>/config/config.yaml）")
	initCmd.Flags().BoolVar(&force, "force", false, "覆盖已存在的文件")

	cmd.AddCommand(initCmd)
	return cmd
}
