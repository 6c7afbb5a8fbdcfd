package migrations

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/yuqie6/MiNomina/internal/migration"
	"gorm.io/gorm"
)

// 个人资料列，顺序即添加顺序
var profileColumns = []struct {
	name string
	typ  string
}{
	{"full_name", "TEXT"},
	{"company", "TEXT"},
	{"rut", "TEXT"},
	{"company_email", "TEXT"},
	{"position", "TEXT"},
	{"account_creation_date", "DATETIME"},
}

func addUserProfileFields() migration.Migration {
	return migration.Migration{
		Name:        "002_add_user_profile_fields",
		Description: "users 增加个人资料字段",
		Requires:    []string{"users"},
		Up: func(ctx context.Context, tx *gorm.DB) error {
			for _, col := range profileColumns {
				if tx.Migrator().HasColumn("users", col.name) {
					slog.Info("列已存在，跳过", "table", "users", "column", col.name)
					continue
				}
				stmt := fmt.Sprintf("ALTER TABLE users ADD COLUMN %s %s", col.name, col.typ)
				if err := tx.Exec(stmt).Error; err != nil {
					return fmt.Errorf("添加列 %s 失败: %w", col.name, err)
				}
			}
			// ADD COLUMN 不支持 CURRENT_TIMESTAMP 默认值，已有用户用注册时间回填
			return tx.Exec("UPDATE users SET account_creation_date = created_at WHERE account_creation_date IS NULL").Error
		},
		Down: func(ctx context.Context, tx *gorm.DB) error {
			for i := len(profileColumns) - 1; i >= 0; i-- {
				stmt := fmt.Sprintf("ALTER TABLE users DROP COLUMN %s", profileColumns[i].name)
				if err := tx.Exec(stmt).Error; err != nil {
					return fmt.Errorf("删除列 %s 失败: %w", profileColumns[i].name, err)
				}
			}
			return nil
		},
	}
}
