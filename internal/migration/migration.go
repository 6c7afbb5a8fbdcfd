// Package migration 实现基于台账的数据库迁移：
// 每个迁移在独立事务中执行并记录，失败只回滚自身，不影响后续迁移。
package migration

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"gorm.io/gorm"
)

var (
	// ErrBusy 数据库被其他连接锁定，可重试
	ErrBusy = errors.New("数据库忙或被锁定")
	// ErrIrreversible 迁移没有提供 Down，无法回滚
	ErrIrreversible = errors.New("迁移不可回滚")
	// ErrDuplicateMigration 多个来源中出现同名迁移
	ErrDuplicateMigration = errors.New("迁移名称重复")
)

// StepFunc 迁移步骤，tx 为当前迁移的事务
type StepFunc func(ctx context.Context, tx *gorm.DB) error

// Migration 一个迁移单元，Name 决定执行顺序且不可更改
type Migration struct {
	Name        string
	Description string
	// Requires 执行前必须存在的表，缺失时本次跳过（不记录台账，下次启动再试）
	Requires []string
	Up       StepFunc
	Down     StepFunc
}

// Direction 迁移方向
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Outcome 单个迁移的处理结果
type Outcome string

const (
	OutcomeApplied        Outcome = "applied"
	OutcomeAlreadyApplied Outcome = "already_applied"
	OutcomeSkipped        Outcome = "skipped"
	OutcomeFailed         Outcome = "failed"
	OutcomeReverted       Outcome = "reverted"
	OutcomeNotApplied     Outcome = "not_applied"
)

// Result 单个迁移的处理结果；Reason 仅在 Skipped 时有值
type Result struct {
	Name    string
	Outcome Outcome
	Reason  string
	Err     error
}

// StepError 迁移执行失败，附带迁移名称与方向
type StepError struct {
	Name      string
	Direction Direction
	Err       error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("迁移 %s (%s) 失败: %v", e.Name, e.Direction, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Sorted 返回按名称升序排列的副本
func Sorted(migrations []Migration) []Migration {
	out := slices.Clone(migrations)
	slices.SortStableFunc(out, func(a, b Migration) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}
