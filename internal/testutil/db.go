package testutil

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/yuqie6/MiNomina/internal/schema"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenTestDB 打开内存 SQLite 并自动迁移业务表（不含迁移台账）
func OpenTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db := OpenEmptyDB(t)
	if err := db.AutoMigrate(
		&schema.User{},
		&schema.WorkDay{},
		&schema.WorkShift{},
		&schema.Expense{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	return db
}

// OpenEmptyDB 打开不含任何表的内存 SQLite
// 内存库每个连接是独立实例，这里限制为单连接
func OpenEmptyDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return db
}
