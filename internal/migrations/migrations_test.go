package migrations

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/yuqie6/MiNomina/internal/migration"
	"github.com/yuqie6/MiNomina/internal/schema"
	"github.com/yuqie6/MiNomina/internal/testutil"
)

func newRunner(t *testing.T) (*migration.Runner, func() []string) {
	t.Helper()
	db := testutil.OpenTestDB(t)
	ledger := migration.NewLedger(db, migration.RetryPolicy{Attempts: 5, Delay: time.Millisecond})
	runner := migration.NewRunner(db, ledger, migration.RunnerOptions{})
	list := func() []string {
		names, err := ledger.ListApplied(context.Background())
		if err != nil {
			t.Fatalf("ListApplied error: %v", err)
		}
		return names
	}
	return runner, list
}

func TestLoadBuiltinOrder(t *testing.T) {
	ms, err := Load("")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	want := []string{"001_add_is_paid_to_expenses", "002_add_user_profile_fields", "003_expense_is_paid_index"}
	if len(ms) != len(want) {
		t.Fatalf("got %d migrations, want %d", len(ms), len(want))
	}
	for i, m := range ms {
		if m.Name != want[i] {
			t.Fatalf("migrations[%d]=%s, want %s", i, m.Name, want[i])
		}
		if m.Down == nil {
			t.Fatalf("%s should be reversible", m.Name)
		}
	}
}

func TestLoadWithExtraDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "004_work_days_date_index.up.sql"),
		[]byte("CREATE INDEX idx_work_days_date ON work_days(date);\n"), 0o644); err != nil {
		t.Fatalf("write sql: %v", err)
	}
	ms, err := Load(dir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(ms) != 4 || ms[3].Name != "004_work_days_date_index" {
		t.Fatalf("migrations=%v, want extra dir appended", ms)
	}
}

func TestBuiltinMigrationsApplyAndRevert(t *testing.T) {
	runner, list := newRunner(t)
	ctx := context.Background()

	ms, err := Load("")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	report, err := runner.ApplyPending(ctx, ms)
	if err != nil {
		t.Fatalf("ApplyPending error: %v", err)
	}
	if report.Applied != 3 || len(report.Failures) != 0 {
		t.Fatalf("report=%+v, want 3 applied", report)
	}
	if got := list(); len(got) != 3 {
		t.Fatalf("ledger=%v, want 3 entries", got)
	}

	report, err = runner.ApplyPending(ctx, ms)
	if err != nil || report.Applied != 0 {
		t.Fatalf("second run applied=%d err=%v, want 0", report.Applied, err)
	}

	results, err := runner.RevertLast(ctx, ms, 3)
	if err != nil {
		t.Fatalf("RevertLast error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("reverted %d, want 3", len(results))
	}
	if got := list(); len(got) != 0 {
		t.Fatalf("ledger=%v, want empty", got)
	}
}

func TestAddIsPaidColumn(t *testing.T) {
	db := testutil.OpenTestDB(t)
	runner := migration.NewRunner(db, migration.NewLedger(db, migration.DefaultRetryPolicy()), migration.RunnerOptions{})
	ctx := context.Background()

	if err := db.Create(&schema.Expense{UserID: 1, Concept: "arriendo", Amount: 100, Date: "2024-01-01"}).Error; err != nil {
		t.Fatalf("create expense: %v", err)
	}
	if _, err := runner.ApplyOne(ctx, addIsPaidToExpenses()); err != nil {
		t.Fatalf("ApplyOne error: %v", err)
	}
	var unpaid int64
	if err := db.Table("expenses").Where("is_paid = ?", false).Count(&unpaid).Error; err != nil {
		t.Fatalf("count unpaid: %v", err)
	}
	if unpaid != 1 {
		t.Fatalf("unpaid=%d, want existing row defaulted to false", unpaid)
	}
}

func TestAddUserProfileFieldsBackfillsCreationDate(t *testing.T) {
	db := testutil.OpenTestDB(t)
	runner := migration.NewRunner(db, migration.NewLedger(db, migration.DefaultRetryPolicy()), migration.RunnerOptions{})
	ctx := context.Background()

	u := schema.User{Name: "Ana", Email: "ana@example.com", Password: "x", Identification: "1"}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	// 模拟旧版本已手动加过其中一列
	if err := db.Exec("ALTER TABLE users ADD COLUMN company TEXT").Error; err != nil {
		t.Fatalf("pre-add column: %v", err)
	}

	if _, err := runner.ApplyOne(ctx, addUserProfileFields()); err != nil {
		t.Fatalf("ApplyOne error: %v", err)
	}
	for _, col := range profileColumns {
		if !db.Migrator().HasColumn("users", col.name) {
			t.Fatalf("column %s missing", col.name)
		}
	}
	var missing int64
	db.Table("users").Where("account_creation_date IS NULL").Count(&missing)
	if missing != 0 {
		t.Fatalf("account_creation_date not backfilled for %d users", missing)
	}
}

func TestIndexMigrationFailsWithoutIsPaid(t *testing.T) {
	runner, list := newRunner(t)
	ctx := context.Background()

	ms, err := Load("")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	index := ms[2]
	// 003 依赖 001 添加的列，单独执行必须失败且不留记录
	if _, err := runner.ApplyOne(ctx, index); err == nil {
		t.Fatalf("003 without 001 should fail")
	}
	if got := list(); len(got) != 0 {
		t.Fatalf("ledger=%v, want empty", got)
	}
}
