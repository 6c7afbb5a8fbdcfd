package migration

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/yuqie6/MiNomina/internal/schema"
	"gorm.io/gorm"
)

// Ledger 迁移台账（migrations 表）
// 启动时创建一次并注入 Runner；WithTx 返回绑定到某个事务的副本
type Ledger struct {
	db    *gorm.DB
	retry RetryPolicy
	now   func() time.Time
}

// NewLedger 创建台账
func NewLedger(db *gorm.DB, retry RetryPolicy) *Ledger {
	return &Ledger{db: db, retry: retry, now: time.Now}
}

// WithTx 返回使用给定事务的台账
func (l *Ledger) WithTx(tx *gorm.DB) *Ledger {
	cp := *l
	cp.db = tx
	return &cp
}

// EnsureInitialized 台账表不存在时创建
func (l *Ledger) EnsureInitialized(ctx context.Context) error {
	err := l.retry.do(ctx, "初始化迁移台账", func() error {
		return l.db.WithContext(ctx).AutoMigrate(&schema.MigrationRecord{})
	})
	if err != nil {
		slog.Error("初始化迁移台账失败", "error", err)
		return err
	}
	slog.Debug("迁移台账已就绪")
	return nil
}

// IsApplied 查询迁移是否已记录
func (l *Ledger) IsApplied(ctx context.Context, name string) (bool, error) {
	var n int64
	err := l.retry.do(ctx, "查询迁移台账", func() error {
		return l.db.WithContext(ctx).
			Model(&schema.MigrationRecord{}).
			Where("name = ?", name).
			Count(&n).Error
	})
	if err != nil {
		slog.Error("查询迁移台账失败", "name", name, "error", err)
		return false, err
	}
	return n > 0, nil
}

// Record 记录迁移已应用，须在迁移自身的事务中调用
func (l *Ledger) Record(ctx context.Context, name string) error {
	rec := schema.MigrationRecord{Name: name, AppliedAt: l.now()}
	err := l.retry.do(ctx, "写入迁移台账", func() error {
		return l.db.WithContext(ctx).Create(&rec).Error
	})
	if err != nil {
		slog.Error("写入迁移台账失败", "name", name, "error", err)
		return err
	}
	return nil
}

// Remove 删除迁移记录，须在回滚事务中调用
func (l *Ledger) Remove(ctx context.Context, name string) error {
	var affected int64
	err := l.retry.do(ctx, "删除迁移台账", func() error {
		res := l.db.WithContext(ctx).Where("name = ?", name).Delete(&schema.MigrationRecord{})
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		slog.Error("删除迁移台账失败", "name", name, "error", err)
		return err
	}
	if affected == 0 {
		return fmt.Errorf("台账中不存在迁移 %s", name)
	}
	return nil
}

// Entries 按应用时间升序返回全部记录
func (l *Ledger) Entries(ctx context.Context) ([]schema.MigrationRecord, error) {
	var records []schema.MigrationRecord
	err := l.retry.do(ctx, "读取迁移台账", func() error {
		records = records[:0]
		return l.db.WithContext(ctx).
			Order("applied_at ASC").
			Order("id ASC").
			Find(&records).Error
	})
	if err != nil {
		slog.Error("读取迁移台账失败", "error", err)
		return nil, err
	}
	return records, nil
}

// ListApplied 按应用时间升序返回已应用的迁移名
func (l *Ledger) ListApplied(ctx context.Context) ([]string, error) {
	records, err := l.Entries(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(records))
	for _, r := range records {
		names = append(names, r.Name)
	}
	return names, nil
}
