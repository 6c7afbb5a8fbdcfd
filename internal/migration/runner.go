package migration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"gorm.io/gorm"
)

// DefaultFailureDelay 批量执行中某个迁移失败后，继续下一个前的等待时间
const DefaultFailureDelay = 2 * time.Second

// RunnerOptions Runner 参数
type RunnerOptions struct {
	FailureDelay time.Duration
}

// Runner 负责计算待执行集合并逐个应用/回滚迁移。
// 同一时间只持有一个事务，迁移 N 提交后才开始处理 N+1。
type Runner struct {
	db           *gorm.DB
	ledger       *Ledger
	failureDelay time.Duration

	ledgerReady atomic.Bool
}

// NewRunner 创建 Runner
func NewRunner(db *gorm.DB, ledger *Ledger, opts RunnerOptions) *Runner {
	return &Runner{
		db:           db,
		ledger:       ledger,
		failureDelay: opts.FailureDelay,
	}
}

// Ledger 返回 Runner 使用的台账
func (r *Runner) Ledger() *Ledger {
	return r.ledger
}

func (r *Runner) ensureLedger(ctx context.Context) error {
	if r.ledgerReady.Load() {
		return nil
	}
	if err := r.ledger.EnsureInitialized(ctx); err != nil {
		return err
	}
	r.ledgerReady.Store(true)
	return nil
}

// ApplyOne 在单个事务内应用迁移并记录台账。
// 已应用或前置表缺失时不返回错误；Up 或记录失败时整个事务回滚。
func (r *Runner) ApplyOne(ctx context.Context, m Migration) (Result, error) {
	res := Result{Name: m.Name}
	if err := r.ensureLedger(ctx); err != nil {
		return r.fail(res, DirectionUp, fmt.Errorf("初始化迁移台账失败: %w", err))
	}
	if m.Up == nil {
		return r.fail(res, DirectionUp, errors.New("缺少 Up 步骤"))
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ledger := r.ledger.WithTx(tx)

		applied, err := ledger.IsApplied(ctx, m.Name)
		if err != nil {
			return err
		}
		if applied {
			res.Outcome = OutcomeAlreadyApplied
			return nil
		}

		if missing := missingTables(tx, m.Requires); len(missing) > 0 {
			res.Outcome = OutcomeSkipped
			res.Reason = "缺少数据表: " + strings.Join(missing, ", ")
			return nil
		}

		slog.Info("应用迁移", "name", m.Name, "description", m.Description)
		if err := m.Up(ctx, tx); err != nil {
			return err
		}
		if err := ledger.Record(ctx, m.Name); err != nil {
			return fmt.Errorf("记录台账失败: %w", err)
		}
		return nil
	})
	if err != nil {
		return r.fail(res, DirectionUp, err)
	}

	switch res.Outcome {
	case OutcomeAlreadyApplied:
		slog.Info("迁移已应用过，跳过", "name", m.Name)
	case OutcomeSkipped:
		slog.Warn("迁移前置条件不满足，本次跳过", "name", m.Name, "reason", res.Reason)
	default:
		res.Outcome = OutcomeApplied
		slog.Info("迁移应用成功", "name", m.Name)
	}
	return res, nil
}

// RevertOne 在单个事务内执行 Down 并删除台账记录；未应用时不返回错误
func (r *Runner) RevertOne(ctx context.Context, m Migration) (Result, error) {
	res := Result{Name: m.Name}
	if err := r.ensureLedger(ctx); err != nil {
		return r.fail(res, DirectionDown, fmt.Errorf("初始化迁移台账失败: %w", err))
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ledger := r.ledger.WithTx(tx)

		applied, err := ledger.IsApplied(ctx, m.Name)
		if err != nil {
			return err
		}
		if !applied {
			res.Outcome = OutcomeNotApplied
			return nil
		}
		if m.Down == nil {
			return ErrIrreversible
		}

		slog.Info("回滚迁移", "name", m.Name)
		if err := m.Down(ctx, tx); err != nil {
			return err
		}
		return ledger.Remove(ctx, m.Name)
	})
	if err != nil {
		return r.fail(res, DirectionDown, err)
	}

	if res.Outcome == OutcomeNotApplied {
		slog.Info("迁移未应用，无需回滚", "name", m.Name)
		return res, nil
	}
	res.Outcome = OutcomeReverted
	slog.Info("迁移回滚成功", "name", m.Name)
	return res, nil
}

func (r *Runner) fail(res Result, dir Direction, err error) (Result, error) {
	stepErr := &StepError{Name: res.Name, Direction: dir, Err: err}
	res.Outcome = OutcomeFailed
	res.Err = stepErr
	slog.Error("迁移执行失败，事务已回滚", "name", res.Name, "direction", dir, "error", err)
	return res, stepErr
}

// ApplyPending 按名称顺序应用全部未执行的迁移。
// 单个迁移失败只记录并继续（迁移多为相互独立的增量变更），
// 只有台账无法初始化时才返回错误。
func (r *Runner) ApplyPending(ctx context.Context, migrations []Migration) (*Report, error) {
	if err := r.ensureLedger(ctx); err != nil {
		return nil, fmt.Errorf("初始化迁移台账失败: %w", err)
	}

	ordered := Sorted(migrations)
	report := &Report{Results: make([]Result, 0, len(ordered))}
	for i, m := range ordered {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		res, err := r.ApplyOne(ctx, m)
		report.Results = append(report.Results, res)
		if err != nil {
			report.Failures = append(report.Failures, Failure{Name: m.Name, Err: err})
			slog.Error("迁移失败，继续执行后续迁移", "name", m.Name, "error", err)
			if i < len(ordered)-1 {
				if err := sleepCtx(ctx, r.failureDelay); err != nil {
					return report, err
				}
			}
			continue
		}
		if res.Outcome == OutcomeApplied {
			report.Applied++
		}
	}

	report.log()
	return report, nil
}

// RevertLast 按台账倒序回滚最近 steps 个迁移，遇到失败立即停止。
// 台账中存在但代码里已删除的迁移会被跳过。
func (r *Runner) RevertLast(ctx context.Context, migrations []Migration, steps int) ([]Result, error) {
	if err := r.ensureLedger(ctx); err != nil {
		return nil, fmt.Errorf("初始化迁移台账失败: %w", err)
	}
	if steps <= 0 {
		return nil, nil
	}

	known := make(map[string]Migration, len(migrations))
	for _, m := range migrations {
		known[m.Name] = m
	}

	applied, err := r.ledger.ListApplied(ctx)
	if err != nil {
		return nil, err
	}

	var results []Result
	for i := len(applied) - 1; i >= 0 && len(results) < steps; i-- {
		m, ok := known[applied[i]]
		if !ok {
			slog.Warn("台账中的迁移在代码中不存在，跳过", "name", applied[i])
			continue
		}
		res, err := r.RevertOne(ctx, m)
		results = append(results, res)
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

// missingTables 返回 tables 中当前不存在的表
func missingTables(tx *gorm.DB, tables []string) []string {
	var missing []string
	for _, t := range tables {
		if !tx.Migrator().HasTable(t) {
			missing = append(missing, t)
		}
	}
	return missing
}
