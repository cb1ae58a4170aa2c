// Package datewindow 把命名的日期窗口策略解析成具体的闭区间，
// 并为大跨度区间提供抽样步长。
package datewindow

import (
	"errors"
	"fmt"
	"time"
)

// Policy 日期窗口策略，名称与 chart_date_types 查找表一致
type Policy string

const (
	PolicyToday        Policy = "today"
	PolicyFromWeek     Policy = "from_week"     // 本周（从最近的周日起）
	PolicyRollingWeek  Policy = "rolling_week"  // 最近 7 天
	PolicyFromMonth    Policy = "from_month"    // 本月（从 1 号起）
	PolicyRollingMonth Policy = "rolling_month" // 最近 30 天
	PolicyFromYear     Policy = "from_year"     // 本年（从 1 月 1 日起）
	PolicyRollingYear  Policy = "rolling_year"  // 最近 365 天
)

// ErrInvalidRange 自定义区间的开始日期晚于结束日期
var ErrInvalidRange = errors.New("开始日期不能晚于结束日期")

// DSFormat 日期键格式，数据行按该格式的字符串索引
const DSFormat = "2006-01-02"

// DS 把时间转成日期键（仅保留年月日）
func DS(t time.Time) string {
	return t.Format(DSFormat)
}

// ParseDS 解析日期键
func ParseDS(ds string) (time.Time, error) {
	t, err := time.ParseInLocation(DSFormat, ds, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("日期格式错误，应为 %s: %w", DSFormat, err)
	}
	return t, nil
}

// truncate 去掉时分秒，只留日期
func truncate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Resolve 把策略解析成具体的闭区间 [start, end]，end 恒为参考日期。
// 参考日期带时分秒时先截断到当天零点。
func Resolve(policy Policy, ref time.Time) (start, end time.Time, err error) {
	end = truncate(ref)

	switch policy {
	case PolicyToday:
		start = end
	case PolicyFromWeek:
		// 最近的周日（参考日期本身是周日则就是当天）
		start = end.AddDate(0, 0, -int(end.Weekday()))
	case PolicyRollingWeek:
		start = end.AddDate(0, 0, -7)
	case PolicyFromMonth:
		start = time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, end.Location())
	case PolicyRollingMonth:
		start = end.AddDate(0, 0, -30)
	case PolicyFromYear:
		start = time.Date(end.Year(), time.January, 1, 0, 0, 0, 0, end.Location())
	case PolicyRollingYear:
		start = end.AddDate(0, 0, -365)
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("未知日期窗口策略: %s", policy)
	}
	return start, end, nil
}

// ResolveCustom 校验并截断自定义区间
func ResolveCustom(start, end time.Time) (time.Time, time.Time, error) {
	start, end = truncate(start), truncate(end)
	if start.After(end) {
		return time.Time{}, time.Time{}, ErrInvalidRange
	}
	return start, end, nil
}

// Days 闭区间内的天数。
// 按历法计算而不是按时长相减，避免夏令时造成少算一天。
func Days(start, end time.Time) int {
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	return int(e.Sub(s)/(24*time.Hour)) + 1
}

// Axis 生成闭区间内逐日的日期键序列（不抽样）
func Axis(start, end time.Time) []string {
	start, end = truncate(start), truncate(end)
	var out []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		out = append(out, DS(d))
	}
	return out
}

// Sample 对区间按跨度抽样：
// 跨度 ≤20 天步长 1 天，≤100 天步长 3 天，更大步长 7 天。
// 两个端点始终各出现一次，即使步长正好越过结束日期。
func Sample(start, end time.Time) []time.Time {
	start, end = truncate(start), truncate(end)
	if end.Before(start) {
		return nil
	}

	span := Days(start, end)
	stride := 1
	switch {
	case span <= 20:
		stride = 1
	case span <= 100:
		stride = 3
	default:
		stride = 7
	}

	var out []time.Time
	for d := start; d.Before(end); d = d.AddDate(0, 0, stride) {
		out = append(out, d)
	}
	out = append(out, end)
	return out
}
