// Package migrations 列出 MiNomina 的全部 schema 迁移。
// Go 迁移在 Builtin 中显式注册，SQL 迁移随二进制嵌入 sql/ 目录。
package migrations

import (
	"embed"

	"github.com/yuqie6/MiNomina/internal/migration"
)

//go:embed sql/*.sql
var sqlFiles embed.FS

// Builtin 返回 Go 编写的迁移
func Builtin() *migration.Registry {
	r := migration.NewRegistry()
	r.Register(addIsPaidToExpenses())
	r.Register(addUserProfileFields())
	return r
}

// Sources 返回全部迁移来源；extraDir 非空时追加本地 SQL 目录
func Sources(extraDir string) []migration.Source {
	sources := []migration.Source{
		Builtin(),
		migration.DirSource{FS: sqlFiles, Dir: "sql"},
	}
	if extraDir != "" {
		sources = append(sources, migration.NewOSDirSource(extraDir))
	}
	return sources
}

// Load 加载并排序全部迁移
func Load(extraDir string) ([]migration.Migration, error) {
	return migration.Load(Sources(extraDir)...)
}
