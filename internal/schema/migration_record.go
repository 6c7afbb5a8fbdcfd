package schema

import "time"

// MigrationRecord 迁移台账，每个已应用的迁移一行，回滚时删除
type MigrationRecord struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	Name      string    `gorm:"size:255;not null;uniqueIndex"`
	AppliedAt time.Time `gorm:"not null;index"`
}

// TableName 指定表名
func (MigrationRecord) TableName() string {
	return "migrations"
}
