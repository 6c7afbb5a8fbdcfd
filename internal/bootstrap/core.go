package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/yuqie6/MiNomina/internal/migration"
	"github.com/yuqie6/MiNomina/internal/migrations"
	"github.com/yuqie6/MiNomina/internal/pkg/config"
	"github.com/yuqie6/MiNomina/internal/repository"
)

// ErrConnection 数据库无法连接，进程应以非零状态退出
var ErrConnection = errors.New("无法连接数据库")

// Core 持有跨二进制共享的核心依赖
type Core struct {
	Cfg       *config.Config
	CfgPath   string
	DB        *repository.Database
	LogCloser io.Closer

	Ledger     *migration.Ledger
	Runner     *migration.Runner
	Migrations []migration.Migration

	Repos struct {
		Expense *repository.ExpenseRepository
	}
}

// NewCore 加载配置、初始化日志并打开数据库（不执行迁移）
func NewCore(cfgPath string) (*Core, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	logCloser, err := config.SetupLogger(config.LoggerOptions{
		Level:     cfg.App.LogLevel,
		Path:      cfg.App.LogPath,
		Component: filepath.Base(os.Args[0]),
	})
	if err != nil {
		slog.Warn("日志文件初始化失败，仅输出到终端", "error", err)
	}

	c, err := NewCoreWithConfig(cfg)
	if err != nil {
		if logCloser != nil {
			_ = logCloser.Close()
		}
		return nil, err
	}
	c.CfgPath = cfgPath
	c.LogCloser = logCloser
	return c, nil
}

// NewCoreWithConfig 使用已加载的配置构建依赖
func NewCoreWithConfig(cfg *config.Config) (*Core, error) {
	db, err := repository.NewDatabase(cfg.Storage)
	if err != nil {
		return nil, err
	}

	c := &Core{Cfg: cfg, DB: db}
	c.Ledger = migration.NewLedger(db.DB, migration.RetryPolicy{
		Attempts: cfg.Migration.RetryAttempts,
		Delay:    cfg.Migration.RetryDelay(),
	})
	c.Runner = migration.NewRunner(db.DB, c.Ledger, migration.RunnerOptions{
		FailureDelay: cfg.Migration.FailureDelay(),
	})
	c.Repos.Expense = repository.NewExpenseRepository(db.DB)
	return c, nil
}

// LoadMigrations 加载内置与配置目录中的迁移；目录不可读视为致命错误
func (c *Core) LoadMigrations() ([]migration.Migration, error) {
	ms, err := migrations.Load(c.Cfg.Migration.SQLDir)
	if err != nil {
		return nil, fmt.Errorf("加载迁移失败: %w", err)
	}
	c.Migrations = ms
	slog.Info("迁移加载完成", "count", len(ms))
	return ms, nil
}

// Prepare 按启动顺序检查连接、同步表结构并应用迁移。
// 单个迁移失败只记录在报告中；连接、同步、加载或台账初始化失败返回错误。
func (c *Core) Prepare(ctx context.Context) (*migration.Report, error) {
	if !c.DB.TestConnection(ctx) {
		return nil, ErrConnection
	}
	if err := c.DB.SyncModels(ctx); err != nil {
		return nil, err
	}

	ms, err := c.LoadMigrations()
	if err != nil {
		return nil, err
	}

	slog.Info("开始执行迁移")
	report, err := c.Runner.ApplyPending(ctx, ms)
	if err != nil {
		return nil, err
	}
	if report.Applied > 0 {
		slog.Info("已应用新的迁移", "applied", report.Applied)
	} else if len(report.Failures) == 0 {
		slog.Info("数据库已是最新，没有待执行的迁移")
	}
	return report, nil
}

// Close 关闭核心依赖资源
func (c *Core) Close() error {
	if c == nil {
		return nil
	}
	var dbErr error
	if c.DB != nil {
		dbErr = c.DB.Close()
	}
	if c.LogCloser != nil {
		_ = c.LogCloser.Close()
	}
	return dbErr
}
