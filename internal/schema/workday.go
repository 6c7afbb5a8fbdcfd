package schema

import "time"

// 工作日类型
const (
	WorkDayHalf = "medio"
	WorkDayFull = "completo"
)

// WorkDay 单日出勤记录，每个用户每天一条
type WorkDay struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	UserID    int64     `gorm:"not null;uniqueIndex:idx_work_days_user_date"`
	Date      string    `gorm:"size:10;not null;uniqueIndex:idx_work_days_user_date"` // YYYY-MM-DD
	Type      string    `gorm:"size:16;not null"`                                     // medio / completo
	IsHoliday bool      `gorm:"default:false"`
	Amount    float64   `gorm:"not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (WorkDay) TableName() string {
	return "work_days"
}

// WorkShift 用户自定义的班次及单价
type WorkShift struct {
	ID                int64     `gorm:"primaryKey;autoIncrement"`
	UserID            int64     `gorm:"not null;uniqueIndex:idx_work_shifts_user_name"`
	Name              string    `gorm:"size:128;not null;uniqueIndex:idx_work_shifts_user_name"`
	Amount            float64   `gorm:"not null"`
	HolidayMultiplier float64   `gorm:"default:1.75"` // 节假日倍率
	CreatedAt         time.Time `gorm:"autoCreateTime"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (WorkShift) TableName() string {
	return "work_shifts"
}

// IsValidWorkDayType 校验工作日类型
func IsValidWorkDayType(t string) bool {
	return t == WorkDayHalf || t == WorkDayFull
}
