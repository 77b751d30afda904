package service

import (
	"fmt"
	"time"
)

// MonthKey 月度分桶键；年份随桶携带，跨年不合并
type MonthKey struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

// String 返回 "2025-01" 形式
func (k MonthKey) String() string {
	return fmt.Sprintf("%04d-%02d", k.Year, int(k.Month))
}

// WeekKey 周度分桶键；周序号从 1 起，上不封顶（第 53 周合法）
type WeekKey struct {
	Year int `json:"year"`
	Week int `json:"week"`
}

// String 返回 "2025-W05" 形式
func (k WeekKey) String() string {
	return fmt.Sprintf("%04d-W%02d", k.Year, k.Week)
}

// monthKeyOf 计算时间戳所在的月度桶
func monthKeyOf(t time.Time, loc *time.Location) MonthKey {
	local := t.In(loc)
	return MonthKey{Year: local.Year(), Month: local.Month()}
}

// weekKeyOf 计算时间戳所在的周度桶。
// 周序号 = floor((t - 当年1月1日0点) / 7天) + 1，
// 1月1日取参考时区；t 与 1月1日的 UTC 偏移差（夏令时）需要补偿，
// 否则周边界会偏离 7 天的整数倍。
func weekKeyOf(t time.Time, loc *time.Location) WeekKey {
	local := t.In(loc)
	startOfYear := time.Date(local.Year(), time.January, 1, 0, 0, 0, 0, loc)

	diff := local.Sub(startOfYear)
	_, offT := local.Zone()
	_, offStart := startOfYear.Zone()
	diff += time.Duration(offT-offStart) * time.Second

	week := int(diff/(7*24*time.Hour)) + 1
	return WeekKey{Year: local.Year(), Week: week}
}

// sameDay 判断两个时间戳是否落在参考时区的同一天
func sameDay(a, b time.Time, loc *time.Location) bool {
	al, bl := a.In(loc), b.In(loc)
	ay, am, ad := al.Date()
	by, bm, bd := bl.Date()
	return ay == by && am == bm && ad == bd
}
