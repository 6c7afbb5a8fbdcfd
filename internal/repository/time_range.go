package repository

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// MonthRange 返回某年某月的日期闭区间 [start, end]，格式 YYYY-MM-DD。
func MonthRange(year, month int) (start string, end string, err error) {
	if month < 1 || month > 12 {
		return "", "", fmt.Errorf("月份超出范围: %d", month)
	}
	if year < 1 {
		return "", "", fmt.Errorf("年份超出范围: %d", year)
	}
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return first.Format(dateLayout), last.Format(dateLayout), nil
}
