package migration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sqlite3 "modernc.org/sqlite/lib"
)

// RetryPolicy 台账读写遇到锁冲突时的重试策略
type RetryPolicy struct {
	Attempts int           // 总尝试次数（含第一次）
	Delay    time.Duration // 固定间隔
}

// DefaultRetryPolicy 最多 5 次，每次间隔 1 秒
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 5, Delay: time.Second}
}

// sqliteCoder 由 SQLite 驱动错误实现（glebarez/go-sqlite 的 *Error）
type sqliteCoder interface {
	Code() int
}

// IsBusy 判断错误是否为可重试的锁冲突（SQLITE_BUSY / SQLITE_LOCKED 及其扩展码）
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrBusy) {
		return true
	}
	var coder sqliteCoder
	if errors.As(err, &coder) {
		switch coder.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
	}
	return false
}

// do 执行 fn；锁冲突时按策略重试，其他错误立即返回
func (p RetryPolicy) do(ctx context.Context, op string, fn func() error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !IsBusy(err) {
			return err
		}
		if attempt == attempts {
			break
		}
		slog.Warn("数据库被锁定，稍后重试", "op", op, "attempt", attempt, "remaining", attempts-attempt, "error", err)
		if werr := sleepCtx(ctx, p.Delay); werr != nil {
			return fmt.Errorf("%s: 等待重试时被取消: %w", op, werr)
		}
	}
	return fmt.Errorf("%s: 重试 %d 次后数据库仍被锁定: %w", op, attempts, err)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
