package repository

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/yuqie6/MiNomina/internal/schema"
	"gorm.io/gorm"
)

var expenseValidator = func() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("expense_tag", func(fl validator.FieldLevel) bool {
		return schema.IsValidExpenseTag(fl.Field().String())
	})
	return v
}()

// ExpenseRepository 支出仓储
type ExpenseRepository struct {
	db *gorm.DB
}

// NewExpenseRepository 创建仓储
func NewExpenseRepository(db *gorm.DB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

// Create 新增支出
func (r *ExpenseRepository) Create(ctx context.Context, expense *schema.Expense) error {
	if expense.Tag == "" {
		expense.Tag = schema.ExpenseTagPersonal
	}
	if err := expenseValidator.Struct(expense); err != nil {
		return fmt.Errorf("支出校验失败: %w", err)
	}
	if err := r.db.WithContext(ctx).Create(expense).Error; err != nil {
		return fmt.Errorf("保存支出失败: %w", err)
	}
	return nil
}

// ListByMonth 获取某用户某月的支出，按日期倒序
func (r *ExpenseRepository) ListByMonth(ctx context.Context, userID int64, year, month int) ([]schema.Expense, error) {
	start, end, err := MonthRange(year, month)
	if err != nil {
		return nil, err
	}
	var expenses []schema.Expense
	err = r.db.WithContext(ctx).
		Where("user_id = ? AND date >= ? AND date <= ?", userID, start, end).
		Order("date DESC").
		Find(&expenses).Error
	if err != nil {
		return nil, fmt.Errorf("查询月度支出失败: %w", err)
	}
	return expenses, nil
}

// TagTotal 按标签汇总
type TagTotal struct {
	Tag         string
	TotalAmount float64
	Count       int64
}

// MonthSummary 月度汇总
type MonthSummary struct {
	TotalAmount float64
	Count       int64
	ByTag       []TagTotal
}

// SummarizeMonth 汇总某用户某月的支出总额与笔数，并按标签分组
func (r *ExpenseRepository) SummarizeMonth(ctx context.Context, userID int64, year, month int) (*MonthSummary, error) {
	start, end, err := MonthRange(year, month)
	if err != nil {
		return nil, err
	}
	var rows []TagTotal
	err = r.db.WithContext(ctx).
		Model(&schema.Expense{}).
		Select("tag, COALESCE(SUM(amount), 0) as total_amount, COUNT(id) as count").
		Where("user_id = ? AND date >= ? AND date <= ?", userID, start, end).
		Group("tag").
		Order("tag ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("汇总月度支出失败: %w", err)
	}

	out := &MonthSummary{ByTag: rows}
	for _, row := range rows {
		out.TotalAmount += row.TotalAmount
		out.Count += row.Count
	}
	return out, nil
}
