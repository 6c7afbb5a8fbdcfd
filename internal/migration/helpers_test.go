package migration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yuqie6/MiNomina/internal/testutil"
	"gorm.io/gorm"
	sqlite3 "modernc.org/sqlite/lib"
)

var testRetry = RetryPolicy{Attempts: 5, Delay: time.Millisecond}

// openItemsDB 打开带 items 表的内存库
func openItemsDB(t *testing.T) *gorm.DB {
	t.Helper()
	db := testutil.OpenEmptyDB(t)
	if err := db.Exec("CREATE TABLE items (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL)").Error; err != nil {
		t.Fatalf("create items: %v", err)
	}
	return db
}

func newTestRunner(db *gorm.DB) *Runner {
	return NewRunner(db, NewLedger(db, testRetry), RunnerOptions{})
}

func addColumn(table, column, typ string) StepFunc {
	return func(ctx context.Context, tx *gorm.DB) error {
		return tx.Exec("ALTER TABLE " + table + " ADD COLUMN " + column + " " + typ).Error
	}
}

func dropColumn(table, column string) StepFunc {
	return func(ctx context.Context, tx *gorm.DB) error {
		return tx.Exec("ALTER TABLE " + table + " DROP COLUMN " + column).Error
	}
}

func failing(msg string) StepFunc {
	return func(ctx context.Context, tx *gorm.DB) error {
		return errors.New(msg)
	}
}

func mustListApplied(t *testing.T, l *Ledger) []string {
	t.Helper()
	names, err := l.ListApplied(context.Background())
	if err != nil {
		t.Fatalf("ListApplied error: %v", err)
	}
	return names
}

func equalNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// busyError 模拟驱动返回的 SQLITE_BUSY
type busyError struct{ code int }

func (e busyError) Error() string { return "database is locked" }
func (e busyError) Code() int     { return e.code }

// injectQueryErrors 让接下来 n 次查询返回 err，返回总查询次数计数器
func injectQueryErrors(t *testing.T, db *gorm.DB, n int, err error) *int {
	t.Helper()
	calls := 0
	remaining := n
	cb := func(tx *gorm.DB) {
		calls++
		if remaining > 0 {
			remaining--
			_ = tx.AddError(err)
		}
	}
	if err := db.Callback().Query().Before("gorm:query").Register("test:inject_error", cb); err != nil {
		t.Fatalf("register callback: %v", err)
	}
	return &calls
}

var errSQLiteBusy = busyError{code: sqlite3.SQLITE_BUSY}
