package migrations

import (
	"context"
	"log/slog"

	"github.com/yuqie6/MiNomina/internal/migration"
	"gorm.io/gorm"
)

func addIsPaidToExpenses() migration.Migration {
	return migration.Migration{
		Name:        "001_add_is_paid_to_expenses",
		Description: "expenses 增加 is_paid（是否已支付）",
		Requires:    []string{"expenses"},
		Up: func(ctx context.Context, tx *gorm.DB) error {
			if tx.Migrator().HasColumn("expenses", "is_paid") {
				slog.Info("列已存在，跳过", "table", "expenses", "column", "is_paid")
				return nil
			}
			return tx.Exec("ALTER TABLE expenses ADD COLUMN is_paid NUMERIC NOT NULL DEFAULT false").Error
		},
		Down: func(ctx context.Context, tx *gorm.DB) error {
			return tx.Exec("ALTER TABLE expenses DROP COLUMN is_paid").Error
		},
	}
}
