package schema

import "time"

// User 用户账户
// 个人资料字段（full_name、company 等）由迁移 002 追加，不在模型中声明
type User struct {
	ID             int64     `gorm:"primaryKey;autoIncrement"`
	Name           string    `gorm:"size:255;not null"`
	Email          string    `gorm:"size:255;not null;uniqueIndex"`
	Password       string    `gorm:"size:255;not null"` // bcrypt 哈希
	Identification string    `gorm:"size:64;not null"`
	CompanyName    string    `gorm:"size:255"`
	CompanyNit     string    `gorm:"size:64"`
	CompanyCity    string    `gorm:"size:128"`
	Signature      string    `gorm:"type:text"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}
