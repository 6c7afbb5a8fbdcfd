package schema

import "time"

// 支出标签
const (
	ExpenseTagFixed      = "Fijo"
	ExpenseTagUnexpected = "Imprevisto"
	ExpenseTagPersonal   = "Personal"
)

// Expense 支出记录
// is_paid 列由迁移 001 追加
type Expense struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	UserID      int64     `gorm:"not null;index" validate:"gt=0"`
	Concept     string    `gorm:"size:255;not null" validate:"required,max=255"`
	Amount      float64   `gorm:"not null" validate:"gt=0"`
	Date        string    `gorm:"size:10;index" validate:"omitempty,datetime=2006-01-02"` // YYYY-MM-DD
	Tag         string    `gorm:"size:16;not null" validate:"expense_tag"`                // Fijo / Imprevisto / Personal
	IsRecurring bool      `gorm:"default:false"`                                          // 仅固定支出按月重复
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Expense) TableName() string {
	return "expenses"
}

// IsValidExpenseTag 校验支出标签
func IsValidExpenseTag(tag string) bool {
	switch tag {
	case ExpenseTagFixed, ExpenseTagUnexpected, ExpenseTagPersonal:
		return true
	default:
		return false
	}
}
