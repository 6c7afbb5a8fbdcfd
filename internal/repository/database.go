package repository

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite" // 纯 Go SQLite 驱动
	"github.com/yuqie6/MiNomina/internal/pkg/config"
	"github.com/yuqie6/MiNomina/internal/schema"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database 数据库管理器
type Database struct {
	DB   *gorm.DB
	Path string
}

// NewDatabase 创建数据库连接
func NewDatabase(cfg config.StorageConfig) (*Database, error) {
	if cfg.DBPath != ":memory:" {
		// 确保目录存在
		dir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("创建数据目录失败: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(cfg.DBPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	if cfg.DBPath == ":memory:" {
		// 内存库每个连接都是独立实例，只能保留一个连接
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
	}

	if err := configureDB(db, cfg.BusyTimeoutMs); err != nil {
		return nil, fmt.Errorf("配置数据库失败: %w", err)
	}

	slog.Info("数据库初始化成功", "path", cfg.DBPath)
	return &Database{DB: db, Path: cfg.DBPath}, nil
}

// configureDB 配置 SQLite 参数
func configureDB(db *gorm.DB, busyTimeoutMs int) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",   // 启用 WAL 模式，读写互不阻塞
		"PRAGMA synchronous=NORMAL", // 平衡性能与安全
		"PRAGMA foreign_keys=ON",
	}
	if busyTimeoutMs > 0 {
		pragmas = append(pragmas, fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeoutMs))
	}

	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return fmt.Errorf("执行 %s 失败: %w", pragma, err)
		}
	}
	return nil
}

// TestConnection 检查数据库是否可用
func (d *Database) TestConnection(ctx context.Context) bool {
	sqlDB, err := d.DB.DB()
	if err != nil {
		slog.Error("获取底层连接失败", "error", err)
		return false
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		slog.Error("连接数据库失败", "path", d.Path, "error", err)
		return false
	}
	slog.Info("数据库连接正常", "path", d.Path)
	return true
}

// Models 返回需要同步的业务模型，迁移台账由迁移模块自行维护
func Models() []any {
	return []any{
		&schema.User{},
		&schema.WorkDay{},
		&schema.WorkShift{},
		&schema.Expense{},
	}
}

// SyncModels 自动同步业务表结构（只新增，不删除列）
func (d *Database) SyncModels(ctx context.Context) error {
	if err := d.DB.WithContext(ctx).AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("同步数据表失败: %w", err)
	}
	slog.Info("数据表同步完成")
	return nil
}

// Close 关闭数据库连接
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
