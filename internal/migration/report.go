package migration

import (
	"context"
	"log/slog"
	"time"
)

// Failure 批量执行中失败的迁移
type Failure struct {
	Name string
	Err  error
}

// Report ApplyPending 的汇总
type Report struct {
	Applied  int
	Results  []Result
	Failures []Failure
}

// Skipped 返回因前置条件不满足而跳过的迁移
func (r *Report) Skipped() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Outcome == OutcomeSkipped {
			out = append(out, res)
		}
	}
	return out
}

func (r *Report) log() {
	if len(r.Failures) > 0 {
		slog.Warn("部分迁移执行失败", "failed", len(r.Failures))
		for i, f := range r.Failures {
			slog.Warn("失败的迁移", "index", i+1, "name", f.Name, "error", f.Err)
		}
	}
	if skipped := r.Skipped(); len(skipped) > 0 {
		slog.Warn("部分迁移被跳过", "skipped", len(skipped))
	}
	slog.Info("迁移执行完成", "applied", r.Applied, "total", len(r.Results))
}

// AppliedEntry 已应用的迁移
type AppliedEntry struct {
	Name      string
	AppliedAt time.Time
}

// Status 台账与已知迁移的对比
type Status struct {
	Applied  []AppliedEntry
	Pending  []string // 已知但未应用，按执行顺序
	Orphaned []string // 台账中有记录但代码中已不存在
}

// Status 计算当前迁移状态
func (r *Runner) Status(ctx context.Context, migrations []Migration) (*Status, error) {
	if err := r.ensureLedger(ctx); err != nil {
		return nil, err
	}
	records, err := r.ledger.Entries(ctx)
	if err != nil {
		return nil, err
	}

	known := make(map[string]struct{}, len(migrations))
	for _, m := range migrations {
		known[m.Name] = struct{}{}
	}

	st := &Status{}
	applied := make(map[string]struct{}, len(records))
	for _, rec := range records {
		applied[rec.Name] = struct{}{}
		st.Applied = append(st.Applied, AppliedEntry{Name: rec.Name, AppliedAt: rec.AppliedAt})
		if _, ok := known[rec.Name]; !ok {
			st.Orphaned = append(st.Orphaned, rec.Name)
		}
	}
	for _, m := range Sorted(migrations) {
		if _, ok := applied[m.Name]; !ok {
			st.Pending = append(st.Pending, m.Name)
		}
	}
	return st, nil
}
